package source

import (
	"sort"
	"unicode/utf8"

	"github.com/roach88/promptc/internal/ir"
)

// File is a parsed source file. It is immutable after Parse returns and safe
// for concurrent readers.
type File struct {
	Path  string
	Src   string
	Stmts []Stmt

	lines []int // byte offset of each line start
}

func newFile(path, src string) *File {
	f := &File{Path: path, Src: src, lines: []int{0}}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			f.lines = append(f.lines, i+1)
		}
	}
	return f
}

// Pos converts a byte offset into a 1-based line and rune column.
func (f *File) Pos(off int) ir.Pos {
	if off < 0 {
		off = 0
	}
	if off > len(f.Src) {
		off = len(f.Src)
	}
	line := sort.Search(len(f.lines), func(i int) bool { return f.lines[i] > off }) - 1
	col := utf8.RuneCountInString(f.Src[f.lines[line]:off]) + 1
	return ir.Pos{File: f.Path, Line: line + 1, Column: col}
}

// PosOf returns the start position of n.
func (f *File) PosOf(n Node) ir.Pos {
	return f.Pos(n.Span().Start)
}

// Text returns the verbatim source of n.
func (f *File) Text(n Node) string {
	s := n.Span()
	return f.Src[s.Start:s.End]
}

// Slice returns the verbatim source of a span.
func (f *File) Slice(s Span) string {
	return f.Src[s.Start:s.End]
}

// Imports returns the file's import statements in source order.
func (f *File) Imports() []*ImportDecl {
	var out []*ImportDecl
	for _, s := range f.Stmts {
		if imp, ok := s.(*ImportDecl); ok {
			out = append(out, imp)
		}
	}
	return out
}

// Default returns the export default expression, or nil.
func (f *File) Default() *ExportDefault {
	for _, s := range f.Stmts {
		if d, ok := s.(*ExportDefault); ok {
			return d
		}
	}
	return nil
}

// TopLevel returns the top-level declaration (variable, interface or type
// alias) bound to name.
func (f *File) TopLevel(name string) (Stmt, bool) {
	for _, s := range f.Stmts {
		switch d := s.(type) {
		case *VarDecl:
			if d.Name == name {
				return d, true
			}
		case *InterfaceDecl:
			if d.Name == name {
				return d, true
			}
		case *TypeAlias:
			if d.Name == name {
				return d, true
			}
		}
	}
	return nil, false
}

// ImportOf returns the import statement and exported name that bind local.
func (f *File) ImportOf(local string) (*ImportDecl, string, bool) {
	for _, imp := range f.Imports() {
		if imp.Default == local {
			return imp, "default", true
		}
		for _, spec := range imp.Specs {
			if spec.Local == local {
				return imp, spec.Imported, true
			}
		}
	}
	return nil, "", false
}

// IsRelative reports whether an import path refers to a local file.
func IsRelative(path string) bool {
	return len(path) > 0 && path[0] == '.'
}
