// Package bundler collects the runtime-call requests of a build and writes
// them to a manifest consumed by the runtime script builder.
package bundler

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/roach88/promptc/internal/ir"
)

// ManifestVersion is written into every manifest.
const ManifestVersion = 1

// Bundler records runtime-call requests. It is safe for concurrent use by
// the documents of one build.
type Bundler struct {
	available map[string]bool // nil accepts every function

	mu    sync.Mutex
	calls []ir.RuntimeCallRequest
}

// New creates a Bundler. With a non-empty available list only those
// functions are bundled; a call of any other function is left out of the
// returned list, which fails emission of the calling document.
func New(available []string) *Bundler {
	b := &Bundler{}
	if len(available) > 0 {
		b.available = make(map[string]bool, len(available))
		for _, name := range available {
			b.available[name] = true
		}
	}
	return b
}

// Bundle records calls and returns the sorted names of the functions it
// bundled.
func (b *Bundler) Bundle(ctx context.Context, calls []ir.RuntimeCallRequest) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var names []string
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range calls {
		if b.available != nil && !b.available[c.Function] {
			continue
		}
		b.calls = append(b.calls, c)
		names = append(names, c.Function)
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// Manifest lists every recorded call, sorted by function then source then
// output, and the distinct function names.
type Manifest struct {
	Version   int
	Functions []string
	Calls     []ir.RuntimeCallRequest
}

// Manifest returns a snapshot of the recorded calls.
func (b *Bundler) Manifest() Manifest {
	b.mu.Lock()
	calls := slices.Clone(b.calls)
	b.mu.Unlock()

	slices.SortFunc(calls, func(x, y ir.RuntimeCallRequest) int {
		return cmp.Or(
			cmp.Compare(x.Function, y.Function),
			cmp.Compare(x.Source, y.Source),
			cmp.Compare(x.Output, y.Output),
			cmp.Compare(x.Args, y.Args),
		)
	})
	calls = slices.Compact(calls)

	m := Manifest{Version: ManifestVersion, Calls: calls}
	for _, c := range calls {
		m.Functions = append(m.Functions, c.Function)
	}
	m.Functions = slices.Compact(m.Functions)
	return m
}

// MarshalCanonical renders the manifest as canonical JSON.
func (m Manifest) MarshalCanonical() ([]byte, error) {
	functions := make([]any, len(m.Functions))
	for i, f := range m.Functions {
		functions[i] = f
	}
	calls := make([]any, len(m.Calls))
	for i, c := range m.Calls {
		calls[i] = map[string]any{
			"function": c.Function,
			"args":     c.Args,
			"output":   c.Output,
			"source":   c.Source,
		}
	}
	return ir.MarshalCanonical(map[string]any{
		"version":   int64(m.Version),
		"functions": functions,
		"calls":     calls,
	})
}

// WriteManifest writes the manifest to path, creating parent directories.
// Nothing is written when no calls were recorded.
func (b *Bundler) WriteManifest(path string) error {
	m := b.Manifest()
	if len(m.Calls) == 0 {
		return nil
	}
	data, err := m.MarshalCanonical()
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
