package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/roach88/promptc/internal/bundler"
	"github.com/roach88/promptc/internal/compiler"
	"github.com/roach88/promptc/internal/config"
	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/store"
)

// Harness runs scenarios. The zero value discards logs.
type Harness struct {
	logger *slog.Logger
}

// New creates a Harness logging to logger. A nil logger discards.
func New(logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Harness{logger: logger}
}

// Run executes a scenario with a discarding logger.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return New(nil).Run(ctx, scenario)
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh temporary project with an in-memory cache:
//  1. Write the scenario files and promptc.cue
//  2. For every flow step apply its edits, then build (pruning the cache
//     when documents are discovered)
//  3. Check each step's expect clause
//  4. Evaluate assertions against the last build
//
// An error is returned only when the scenario cannot be executed; failed
// expectations are reported in Result.Errors.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	if h.logger == nil {
		h.logger = slog.New(slog.DiscardHandler)
	}
	root, err := os.MkdirTemp("", "promptc-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	defer os.RemoveAll(root)

	if scenario.Config != "" {
		if err := writeFile(root, config.FileName, scenario.Config); err != nil {
			return nil, err
		}
	}
	for name, content := range scenario.Files {
		if err := writeFile(root, name, content); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(root, "")
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	cache, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	defer cache.Close()

	h.logger.Info("running scenario", "name", scenario.Name, "steps", len(scenario.Flow))

	result := NewResult()
	var last *compiler.BuildResult
	var manifest bundler.Manifest
	for i, step := range scenario.Flow {
		if err := applyStep(root, step); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}

		b := bundler.New(cfg.RuntimeFunctions)
		c := compiler.New(os.DirFS(root), compiler.Options{
			Config:  cfg,
			Bundler: b,
			Cache:   cache,
			Logger:  h.logger,
		})

		paths := scenario.Documents
		if len(paths) == 0 {
			paths, err = c.Discover(filepath.ToSlash(cfg.SourceDir))
			if err != nil {
				return nil, fmt.Errorf("step %d: discover: %w", i, err)
			}
		}

		br, err := c.Build(ctx, paths, compiler.BuildOptions{
			Incremental: step.Build.Incremental,
			Prune:       len(scenario.Documents) == 0,
		})
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}

		record := recordOf(i, br)
		result.Builds = append(result.Builds, record)
		checkExpect(result, record, step.Expect)

		last = br
		manifest = b.Manifest()
	}

	for _, r := range last.Results {
		result.Outputs[r.Source] = r.Text
	}
	for _, e := range last.Errors {
		code := string(ir.CodeOf(e.Err))
		if code == "" {
			code = "error"
		}
		result.Failures[e.Source] = code
	}
	result.Functions = manifest.Functions

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func applyStep(root string, step FlowStep) error {
	for _, name := range step.Remove {
		if err := os.Remove(filepath.Join(root, filepath.FromSlash(name))); err != nil {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	for name, content := range step.Write {
		if err := writeFile(root, name, content); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(root, name, content string) error {
	p := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func recordOf(step int, br *compiler.BuildResult) BuildRecord {
	rec := BuildRecord{Step: step, Compiled: []string{}, Cached: []string{}, Failed: []string{}}
	for _, r := range br.Results {
		if r.Cached {
			rec.Cached = append(rec.Cached, r.Source)
		} else {
			rec.Compiled = append(rec.Compiled, r.Source)
		}
	}
	for _, e := range br.Errors {
		rec.Failed = append(rec.Failed, e.Source)
	}
	slices.Sort(rec.Failed)
	return rec
}

func checkExpect(result *Result, rec BuildRecord, expect *ExpectClause) {
	if expect == nil {
		return
	}
	check := func(what string, want *int, got []string) {
		if want != nil && *want != len(got) {
			result.AddError(fmt.Sprintf("step %d: expected %d %s, got %d %v", rec.Step, *want, what, len(got), got))
		}
	}
	check("compiled", expect.Compiled, rec.Compiled)
	check("cached", expect.Cached, rec.Cached)
	check("failed", expect.Failed, rec.Failed)
}
