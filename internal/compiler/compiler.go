package compiler

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/promptc/internal/config"
	"github.com/roach88/promptc/internal/emit"
	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/source"
	"github.com/roach88/promptc/internal/store"
	"github.com/roach88/promptc/internal/transform"
)

const tracerName = "github.com/roach88/promptc/internal/compiler"

// Options configures a Compiler.
type Options struct {
	// Config supplies layout, runtime and concurrency settings. Required.
	Config *config.Config

	// Bundler receives the runtime-call requests of every document.
	Bundler emit.Bundler

	// Cache enables incremental builds when set.
	Cache *store.Store

	Logger *slog.Logger
}

// Compiler compiles the documents of one project. Parsed sources are cached
// for the lifetime of the Compiler.
type Compiler struct {
	opts        Options
	fsys        fs.FS
	program     *source.Program
	transformer *transform.Transformer
	emitter     *emit.Emitter
	tracer      trace.Tracer
}

// New creates a Compiler reading sources from fsys, whose root is the
// project root.
func New(fsys fs.FS, opts Options) *Compiler {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	program := source.NewProgram(fsys)
	return &Compiler{
		opts:    opts,
		fsys:    fsys,
		program: program,
		transformer: transform.New(transform.Options{
			Contracts:         program,
			Components:        program,
			MaxExpansionDepth: opts.Config.MaxExpansionDepth,
			Logger:            opts.Logger,
		}),
		emitter: emit.New(emit.Options{
			Bundler:     opts.Bundler,
			RuntimePath: opts.Config.RuntimePath,
			Logger:      opts.Logger,
		}),
		tracer: otel.Tracer(tracerName),
	}
}

// Result is the outcome of compiling one document.
type Result struct {
	Source     string
	Kind       ir.DocumentKind
	Name       string
	OutputPath string
	SourceHash string

	// Document is nil for cached results; Text is read back from OutputPath.
	Document *ir.Document
	Text     string

	ArtifactHash string
	DocumentHash string
	Calls        []ir.RuntimeCallRequest
	Cached       bool
}

// Transform parses path and its imports and returns the IR Document.
func (c *Compiler) Transform(ctx context.Context, path string) (*ir.Document, error) {
	_, span := c.tracer.Start(ctx, "promptc.transform",
		trace.WithAttributes(attribute.String("promptc.source", path)))
	defer span.End()

	doc, err := c.transform(path)
	if err != nil {
		fail(span, err, "transform")
		return nil, err
	}
	span.SetAttributes(attribute.String("promptc.kind", string(doc.Kind)))
	return doc, nil
}

func (c *Compiler) transform(path string) (*ir.Document, error) {
	f, err := c.program.Load(path)
	if err != nil {
		return nil, err
	}
	return c.transformer.Transform(f)
}

// Compile transforms and emits path. Nothing is written.
func (c *Compiler) Compile(ctx context.Context, path string) (*Result, error) {
	ctx, span := c.tracer.Start(ctx, "promptc.compile",
		trace.WithAttributes(attribute.String("promptc.source", path)))
	defer span.End()

	hash, err := c.SourceHash(path)
	if err != nil {
		fail(span, err, "hash sources")
		return nil, err
	}

	doc, err := c.transform(path)
	if err != nil {
		fail(span, err, "transform")
		return nil, err
	}
	if errs := ValidateDocument(doc); len(errs) > 0 {
		err := fmt.Errorf("%s: invalid document: %w", path, errs[0])
		fail(span, err, "validate")
		return nil, err
	}

	text, err := c.emitter.Emit(ctx, doc)
	if err != nil {
		err = fmt.Errorf("%s: %w", path, err)
		fail(span, err, "emit")
		return nil, err
	}
	docHash, err := ir.DocumentHash(doc)
	if err != nil {
		fail(span, err, "hash document")
		return nil, err
	}
	calls, err := emit.Requests(doc)
	if err != nil {
		fail(span, err, "runtime calls")
		return nil, err
	}

	r := &Result{
		Source:       path,
		Kind:         doc.Kind,
		Name:         doc.Name,
		OutputPath:   c.opts.Config.OutputPath(string(doc.Kind), doc.Name),
		SourceHash:   hash,
		Document:     doc,
		Text:         text,
		ArtifactHash: ir.ArtifactHash(text),
		DocumentHash: docHash,
		Calls:        calls,
	}
	span.SetAttributes(
		attribute.String("promptc.kind", string(doc.Kind)),
		attribute.Int("promptc.runtime_calls", len(r.Calls)),
	)
	c.opts.Logger.Debug("document compiled",
		"source", path,
		"kind", doc.Kind,
		"name", doc.Name,
		"bytes", len(text))
	return r, nil
}

// SourceHash hashes path and every file it transitively imports.
func (c *Compiler) SourceHash(path string) (string, error) {
	files, err := c.program.Closure(path)
	if err != nil {
		return "", err
	}
	srcs := make([][]byte, len(files))
	for i, f := range files {
		srcs[i] = []byte(f.Src)
	}
	return ir.SourceHash(srcs...), nil
}

func fail(span trace.Span, err error, stage string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, stage)
}
