package transform

import (
	"log/slog"
	"path"
	"strings"

	"github.com/roach88/promptc/internal/cond"
	"github.com/roach88/promptc/internal/decl"
	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/source"
)

// DefaultMaxExpansionDepth bounds nested local-component expansion.
const DefaultMaxExpansionDepth = 16

// ContractResolver resolves a generic type argument written in file to an
// Interface Contract. ok=false is an explicit not-found signal.
type ContractResolver interface {
	ResolveContract(file string, ref *source.TypeRef) (*ir.Contract, bool)
}

// ComponentResolver finds the declaration an imported name refers to.
// *source.Program implements it.
type ComponentResolver interface {
	Lookup(file, name string) (source.Binding, bool)
}

// Options configures a Transformer. Zero values are usable: without a
// ContractResolver typed invocations fail as unresolved, and without a
// ComponentResolver only components declared in the document are known.
type Options struct {
	Contracts         ContractResolver
	Components        ComponentResolver
	MaxExpansionDepth int
	Logger            *slog.Logger
}

// Transformer turns one parsed document into an IR Document. A Transformer
// holds no per-document state and may be shared between goroutines.
type Transformer struct {
	opts Options
}

// New creates a Transformer.
func New(opts Options) *Transformer {
	if opts.MaxExpansionDepth <= 0 {
		opts.MaxExpansionDepth = DefaultMaxExpansionDepth
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Transformer{opts: opts}
}

// Transform converts f into an IR Document. Any error aborts the document:
// either a complete Document is returned or a *ir.CompileError.
func (t *Transformer) Transform(f *source.File) (*ir.Document, error) {
	s := newState(t, f)

	root, err := s.root()
	if err != nil {
		return nil, err
	}
	if err := s.conflicts(); err != nil {
		return nil, err
	}
	if err := s.checkRecursion(); err != nil {
		return nil, err
	}

	doc, err := s.document(root)
	if err != nil {
		return nil, err
	}
	t.opts.Logger.Debug("document transformed",
		"file", f.Path,
		"kind", doc.Kind,
		"blocks", len(doc.Body),
		"variables", len(doc.Variables))
	return doc, nil
}

// state is the private per-document transform state.
type state struct {
	t      *Transformer
	file   *source.File
	table  *decl.Table
	tables map[*source.File]*decl.Table
	kind   ir.DocumentKind

	loops     int      // enclosing Loop count
	inList    bool     // direct children of a List are being transformed
	steps     int      // last Step number
	expanding []string // component expansion stack
}

func newState(t *Transformer, f *source.File) *state {
	table := decl.Scan(f)
	return &state{
		t:      t,
		file:   f,
		table:  table,
		tables: map[*source.File]*decl.Table{f: table},
	}
}

// tableOf returns the declaration table of f, scanning it once.
func (s *state) tableOf(f *source.File) *decl.Table {
	if tb, ok := s.tables[f]; ok {
		return tb
	}
	tb := decl.Scan(f)
	s.tables[f] = tb
	return tb
}

func (s *state) moduleCtx() cond.Context {
	return cond.Context{File: s.file, Scope: s.table.Module}
}

// root returns the element rendered by the document's default export.
func (s *state) root() (*source.JSXElement, error) {
	d := s.file.Default()
	if d == nil {
		return nil, ir.Errorf(ir.ErrStructuralViolation, ir.Pos{File: s.file.Path, Line: 1, Column: 1},
			"document has no default export")
	}
	e, _ := cond.Follow(s.moduleCtx(), d.X)
	if id, ok := source.Unparen(e).(*source.Ident); ok {
		if st, found := s.file.TopLevel(id.Name); found {
			if v, isVar := st.(*source.VarDecl); isVar && v.Init != nil {
				e = v.Init
			}
		}
	}
	el, ok := source.Unparen(e).(*source.JSXElement)
	if !ok || (el.Name != "Command" && el.Name != "Agent") {
		return nil, ir.Errorf(ir.ErrStructuralViolation, s.file.PosOf(d.X),
			"default export must be a <Command> or <Agent> element")
	}
	return el, nil
}

// conflicts surfaces redeclarations the tracker recorded.
func (s *state) conflicts() error {
	if len(s.table.Conflicts) == 0 {
		return nil
	}
	c := s.table.Conflicts[0]
	return ir.Errorf(ir.ErrStructuralViolation, c.Redeclared.Pos,
		"%q redeclared as %s %s; first declared as %s %s at %s",
		c.Redeclared.Name, c.Redeclared.Kind, typeLabel(c.Redeclared),
		c.Existing.Kind, typeLabel(c.Existing), c.Existing.Pos)
}

func typeLabel(r *decl.Record) string {
	if n := r.TypeName(); n != "" {
		return "<" + n + ">"
	}
	return "(untyped)"
}

func (s *state) document(root *source.JSXElement) (*ir.Document, error) {
	ctx := s.moduleCtx()
	doc := &ir.Document{
		Source: s.file.Path,
		Name:   strings.TrimSuffix(path.Base(s.file.Path), path.Ext(s.file.Path)),
	}
	if root.Name == "Agent" {
		doc.Kind = ir.DocAgent
	} else {
		doc.Kind = ir.DocCommand
	}
	s.kind = doc.Kind

	fm, name, err := s.frontMatter(ctx, root, doc.Kind)
	if err != nil {
		return nil, err
	}
	doc.FrontMatter = fm
	if name != "" {
		doc.Name = name
	}

	if doc.Kind == ir.DocAgent && len(root.TypeArgs) > 0 {
		c, err := s.contract(s.file, root.TypeArgs[0])
		if err != nil {
			return nil, err
		}
		doc.Output = c
	}

	body, err := s.blocks(ctx, root.Children)
	if err != nil {
		return nil, err
	}
	doc.Body = body

	vars, err := runtimeVars(s.table.Runtime())
	if err != nil {
		return nil, err
	}
	doc.Variables = vars
	return doc, nil
}

// runtimeVars builds the variable table. A runtime name declared again in
// a nested scope is the same variable; declaring it with another kind or
// interface is an error. An untyped declaration takes the type of a typed one.
func runtimeVars(records []*decl.Record) ([]ir.RuntimeVar, error) {
	var out []ir.RuntimeVar
	index := make(map[string]int)
	for _, r := range records {
		v := ir.RuntimeVar{
			Name:    r.RuntimeName,
			Binding: r.Name,
			Kind:    ir.VarVariable,
			Type:    r.TypeName(),
			Pos:     r.Pos,
		}
		if r.Kind == decl.KindOutput {
			v.Kind = ir.VarOutput
		}
		i, seen := index[v.Name]
		if !seen {
			index[v.Name] = len(out)
			out = append(out, v)
			continue
		}
		prev := &out[i]
		if prev.Kind != v.Kind || (prev.Type != "" && v.Type != "" && prev.Type != v.Type) {
			return nil, ir.Errorf(ir.ErrStructuralViolation, v.Pos,
				"runtime name $%s redeclared as %s %s, first declared as %s %s at %s",
				v.Name, v.Kind, typeNameLabel(v.Type), prev.Kind, typeNameLabel(prev.Type), prev.Pos)
		}
		if prev.Type == "" {
			prev.Type = v.Type
		}
	}
	return out, nil
}

func typeNameLabel(name string) string {
	if name == "" {
		return "(untyped)"
	}
	return name
}

// contract resolves a type argument written in file. A type that cannot be
// resolved is an unresolved reference.
func (s *state) contract(f *source.File, ref *source.TypeRef) (*ir.Contract, error) {
	if s.t.opts.Contracts != nil {
		if c, ok := s.t.opts.Contracts.ResolveContract(f.Path, ref); ok {
			return c, nil
		}
	}
	return nil, ir.Errorf(ir.ErrUnresolvedReference, f.PosOf(ref),
		"cannot resolve interface %s", ref.Text)
}
