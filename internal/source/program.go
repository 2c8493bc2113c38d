package source

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/promptc/internal/ir"
)

// ErrNotFound is returned when an import path resolves to no file.
var ErrNotFound = errors.New("source file not found")

// extensions tried, in order, when resolving a relative import.
var extensions = []string{"", ".tsx", ".ts", "/index.tsx", "/index.ts"}

type loaded struct {
	file *File
	err  error
}

// Program is a set of source files read from one filesystem. Parsed files are
// cached: concurrent loads of the same path share a single parse, and cached
// files are only ever read afterwards.
type Program struct {
	fsys fs.FS

	mu    sync.RWMutex
	files map[string]loaded
	group singleflight.Group
}

// NewProgram creates a program reading from fsys. Paths are slash-separated
// and relative to the root of fsys.
func NewProgram(fsys fs.FS) *Program {
	return &Program{fsys: fsys, files: make(map[string]loaded)}
}

// Load returns the parsed file at name, parsing it at most once.
func (p *Program) Load(name string) (*File, error) {
	name = path.Clean(name)

	p.mu.RLock()
	l, ok := p.files[name]
	p.mu.RUnlock()
	if ok {
		return l.file, l.err
	}

	v, err, _ := p.group.Do(name, func() (any, error) {
		p.mu.RLock()
		l, ok := p.files[name]
		p.mu.RUnlock()
		if ok {
			return l.file, l.err
		}

		f, err := p.parse(name)
		p.mu.Lock()
		p.files[name] = loaded{file: f, err: err}
		p.mu.Unlock()
		return f, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*File), nil
}

func (p *Program) parse(name string) (*File, error) {
	data, err := fs.ReadFile(p.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return Parse(name, string(data))
}

// Resolve maps a relative import path written in from to a file name.
func (p *Program) Resolve(from, spec string) (string, error) {
	if !IsRelative(spec) {
		return "", fmt.Errorf("%s: package import %q is not a source file", from, spec)
	}
	base := path.Join(path.Dir(from), spec)
	for _, ext := range extensions {
		candidate := base + ext
		info, err := fs.Stat(p.fsys, candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%s: import %q: %w", from, spec, ErrNotFound)
}

// Closure returns name followed by every file it transitively imports through
// relative imports, depth first in import order. Each file appears once.
func (p *Program) Closure(name string) ([]*File, error) {
	var out []*File
	seen := make(map[string]bool)
	var visit func(string) error
	visit = func(n string) error {
		if seen[n] {
			return nil
		}
		seen[n] = true
		f, err := p.Load(n)
		if err != nil {
			return err
		}
		out = append(out, f)
		for _, imp := range f.Imports() {
			if !IsRelative(imp.Path) {
				continue
			}
			target, err := p.Resolve(f.Path, imp.Path)
			if err != nil {
				return ir.Errorf(ir.ErrUnresolvedReference, f.PosOf(imp), "%v", err)
			}
			if err := visit(target); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(path.Clean(name)); err != nil {
		return nil, err
	}
	return out, nil
}

// Binding is a top-level declaration located through imports.
type Binding struct {
	File *File
	Decl Stmt
}

// Lookup finds the top-level declaration that name refers to inside file,
// following relative imports and re-exports. Declarations imported from
// packages report ok=false.
func (p *Program) Lookup(file, name string) (Binding, bool) {
	return p.lookup(path.Clean(file), name, 0)
}

const maxImportDepth = 32

func (p *Program) lookup(file, name string, depth int) (Binding, bool) {
	if depth > maxImportDepth {
		return Binding{}, false
	}
	f, err := p.Load(file)
	if err != nil {
		return Binding{}, false
	}
	if d, ok := f.TopLevel(name); ok {
		return Binding{File: f, Decl: d}, true
	}
	if imp, imported, ok := f.ImportOf(name); ok {
		if !IsRelative(imp.Path) {
			return Binding{}, false
		}
		target, err := p.Resolve(f.Path, imp.Path)
		if err != nil {
			return Binding{}, false
		}
		if imported == "default" {
			return p.lookupDefault(target)
		}
		return p.lookupExport(target, imported, depth+1)
	}
	return Binding{}, false
}

// lookupExport finds an exported name, following export lists.
func (p *Program) lookupExport(file, name string, depth int) (Binding, bool) {
	f, err := p.Load(file)
	if err != nil {
		return Binding{}, false
	}
	for _, s := range f.Stmts {
		list, ok := s.(*ExportList)
		if !ok {
			continue
		}
		for _, spec := range list.Specs {
			if spec.Local != name {
				continue
			}
			if list.From == "" {
				return p.lookup(file, spec.Imported, depth+1)
			}
			target, err := p.Resolve(f.Path, list.From)
			if err != nil {
				return Binding{}, false
			}
			return p.lookupExport(target, spec.Imported, depth+1)
		}
	}
	return p.lookup(file, name, depth+1)
}

func (p *Program) lookupDefault(file string) (Binding, bool) {
	f, err := p.Load(file)
	if err != nil {
		return Binding{}, false
	}
	d := f.Default()
	if d == nil {
		return Binding{}, false
	}
	if id, ok := d.X.(*Ident); ok {
		return p.Lookup(file, id.Name)
	}
	return Binding{File: f, Decl: d}, true
}
