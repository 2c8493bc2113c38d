package compiler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/promptc/internal/emit"
	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/source"
	"github.com/roach88/promptc/internal/store"
)

// ErrOutputConflict is returned when two documents render to the same file.
var ErrOutputConflict = errors.New("documents write the same output")

// BuildOptions selects build behaviour.
type BuildOptions struct {
	// Incremental reuses cached artifacts whose source closure and compiler
	// version are unchanged and whose output file is intact.
	Incremental bool

	// Prune drops cache entries of documents not in the build.
	Prune bool
}

// DocumentError is the failure of one document in a build or check.
type DocumentError struct {
	Source string
	Err    error
}

func (e *DocumentError) Error() string { return e.Err.Error() }

func (e *DocumentError) Unwrap() error { return e.Err }

// BuildResult lists the outcome of every document, in source path order.
type BuildResult struct {
	Seq     int64 // cache build seq, 0 without a cache
	Results []*Result
	Errors  []*DocumentError
	Written int
	Pruned  int
}

// Compiled returns how many documents were compiled rather than reused.
func (b *BuildResult) Compiled() int {
	n := 0
	for _, r := range b.Results {
		if !r.Cached {
			n++
		}
	}
	return n
}

// Build compiles paths in parallel and writes every fresh artifact. A
// document that fails to compile is reported in Errors and does not stop
// the others; I/O and cache failures abort the build.
func (c *Compiler) Build(ctx context.Context, paths []string, opts BuildOptions) (*BuildResult, error) {
	ctx, span := c.tracer.Start(ctx, "promptc.build",
		trace.WithAttributes(
			attribute.Int("promptc.documents", len(paths)),
			attribute.Bool("promptc.incremental", opts.Incremental),
		))
	defer span.End()

	paths = slices.Clone(paths)
	slices.Sort(paths)
	paths = slices.Compact(paths)

	out := &BuildResult{}
	cache := c.opts.Cache
	if cache != nil {
		seq, err := cache.BeginBuild(ctx)
		if err != nil {
			fail(span, err, "begin build")
			return nil, err
		}
		out.Seq = seq
	}

	results := make([]*Result, len(paths))
	docErrs := make([]*DocumentError, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, c.opts.Config.Concurrency))
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := c.buildOne(gctx, p, opts.Incremental)
			switch {
			case err == nil:
				results[i] = r
			case IsDocumentError(err):
				docErrs[i] = &DocumentError{Source: p, Err: err}
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fail(span, err, "compile")
		return nil, err
	}

	owners := make(map[string]string)
	for i, r := range results {
		if r == nil {
			out.Errors = append(out.Errors, docErrs[i])
			continue
		}
		if prev, ok := owners[r.OutputPath]; ok {
			err := fmt.Errorf("%w: %s and %s both render %s", ErrOutputConflict, prev, r.Source, r.OutputPath)
			fail(span, err, "layout")
			return nil, err
		}
		owners[r.OutputPath] = r.Source
		out.Results = append(out.Results, r)
	}

	for _, r := range out.Results {
		if r.Cached {
			continue
		}
		if err := writeArtifact(r); err != nil {
			fail(span, err, "write")
			return nil, err
		}
		out.Written++
		if cache != nil {
			if err := cache.PutArtifact(ctx, artifactOf(r, out.Seq)); err != nil {
				fail(span, err, "cache")
				return nil, err
			}
		}
	}

	if cache != nil {
		if opts.Prune {
			n, err := cache.Prune(ctx, paths)
			if err != nil {
				fail(span, err, "prune")
				return nil, err
			}
			out.Pruned = n
		}
		if err := cache.FinishBuild(ctx, out.Seq, len(paths), out.Compiled()); err != nil {
			fail(span, err, "finish build")
			return nil, err
		}
	}

	span.SetAttributes(
		attribute.Int("promptc.compiled", out.Compiled()),
		attribute.Int("promptc.failed", len(out.Errors)),
	)
	c.opts.Logger.Info("build finished",
		"documents", len(paths),
		"compiled", out.Compiled(),
		"cached", len(out.Results)-out.Compiled(),
		"failed", len(out.Errors))
	return out, nil
}

// buildOne reuses a fresh cached artifact when allowed, otherwise compiles.
func (c *Compiler) buildOne(ctx context.Context, path string, incremental bool) (*Result, error) {
	if incremental && c.opts.Cache != nil {
		r, ok, err := c.cached(ctx, path)
		if err != nil {
			return nil, err
		}
		if ok {
			return r, nil
		}
	}
	return c.Compile(ctx, path)
}

// cached returns the cached result for path when its sources are unchanged
// and its output file still holds the cached artifact. The cached runtime
// calls are handed to the bundler again so the manifest stays complete.
func (c *Compiler) cached(ctx context.Context, path string) (*Result, bool, error) {
	hash, err := c.SourceHash(path)
	if err != nil {
		// Let Compile report it.
		return nil, false, nil
	}
	a, ok, err := c.opts.Cache.Fresh(ctx, path, hash)
	if err != nil || !ok {
		return nil, false, err
	}
	data, err := os.ReadFile(a.OutputPath)
	if err != nil || ir.ArtifactHash(string(data)) != a.ArtifactHash {
		return nil, false, nil
	}
	if len(a.Calls) > 0 && c.opts.Bundler != nil {
		if _, err := c.opts.Bundler.Bundle(ctx, a.Calls); err != nil {
			return nil, false, fmt.Errorf("%s: bundle cached runtime calls: %w", path, err)
		}
	}
	c.opts.Logger.Debug("document up to date", "source", path)
	return &Result{
		Source:       path,
		Kind:         ir.DocumentKind(a.Kind),
		Name:         a.Name,
		OutputPath:   a.OutputPath,
		SourceHash:   hash,
		Text:         string(data),
		ArtifactHash: a.ArtifactHash,
		DocumentHash: a.DocumentHash,
		Calls:        a.Calls,
		Cached:       true,
	}, true, nil
}

// IsDocumentError reports whether err fails a single document rather than
// the whole build.
func IsDocumentError(err error) bool {
	var ce *ir.CompileError
	var ve ValidationError
	return errors.As(err, &ce) ||
		errors.As(err, &ve) ||
		errors.Is(err, emit.ErrNotBundled) ||
		errors.Is(err, emit.ErrNoBundler) ||
		errors.Is(err, source.ErrNotFound)
}

func writeArtifact(r *Result) error {
	if err := os.MkdirAll(filepath.Dir(r.OutputPath), 0o755); err != nil {
		return fmt.Errorf("write %s: %w", r.OutputPath, err)
	}
	if err := os.WriteFile(r.OutputPath, []byte(r.Text), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", r.OutputPath, err)
	}
	return nil
}

func artifactOf(r *Result, seq int64) store.Artifact {
	return store.Artifact{
		ID:              store.ArtifactID(r.Source),
		SourcePath:      r.Source,
		SourceHash:      r.SourceHash,
		Kind:            string(r.Kind),
		Name:            r.Name,
		OutputPath:      r.OutputPath,
		ArtifactHash:    r.ArtifactHash,
		DocumentHash:    r.DocumentHash,
		CompilerVersion: ir.CompilerVersion,
		IRVersion:       ir.IRVersion,
		BuildSeq:        seq,
		Calls:           r.Calls,
	}
}
