package decl

import (
	"github.com/roach88/promptc/internal/source"
)

// Conflict is a redeclaration in one scope with a different kind or type.
type Conflict struct {
	Existing   *Record
	Redeclared *Record
}

// Table is the result of scanning one file.
type Table struct {
	File      *source.File
	Module    *Scope
	Conflicts []Conflict

	scopes map[*source.Arrow]*Scope
	order  []*Record
}

// Scope returns the scope of an arrow-function body, or the module scope
// for nil or unknown arrows.
func (t *Table) Scope(a *source.Arrow) *Scope {
	if s, ok := t.scopes[a]; ok {
		return s
	}
	return t.Module
}

// Records returns every declaration in source order.
func (t *Table) Records() []*Record {
	return t.order
}

// Runtime returns the variable and output declarations in source order.
func (t *Table) Runtime() []*Record {
	var out []*Record
	for _, r := range t.order {
		if r.Kind != KindComponent {
			out = append(out, r)
		}
	}
	return out
}

// Scan walks the whole file depth first and records every declaration. It
// never fails: unresolved names and conflicts are left to the caller.
func Scan(f *source.File) *Table {
	t := &Table{
		File:   f,
		Module: newScope(nil, nil),
		scopes: make(map[*source.Arrow]*Scope),
	}
	s := &scanner{table: t}
	for _, stmt := range f.Stmts {
		s.stmt(t.Module, stmt)
	}
	return t
}

type scanner struct {
	table *Table
}

func (s *scanner) stmt(sc *Scope, stmt source.Stmt) {
	switch n := stmt.(type) {
	case *source.VarDecl:
		s.varDecl(sc, n)
	case *source.ExportDefault:
		s.expr(sc, n.X)
	case *source.ReturnStmt:
		s.expr(sc, n.X)
	case *source.ExprStmt:
		s.expr(sc, n.X)
	case *source.ImportDecl:
		if sc == s.table.Module {
			for _, spec := range n.Specs {
				sc.locals[spec.Local] = true
			}
			if n.Default != "" {
				sc.locals[n.Default] = true
			}
		}
	}
}

func (s *scanner) varDecl(sc *Scope, d *source.VarDecl) {
	call, ok := source.Unparen(d.Init).(*source.Call)
	var reg registration
	if ok {
		if id, isIdent := call.Fun.(*source.Ident); isIdent {
			reg, ok = registry[id.Name]
		} else {
			ok = false
		}
	}
	if !ok || d.Name == "" {
		if d.Name != "" {
			sc.locals[d.Name] = true
		}
		for _, pp := range d.Pattern {
			sc.locals[pp.Local] = true
		}
		s.expr(sc, d.Init)
		return
	}

	rec := &Record{
		Name:  d.Name,
		Kind:  reg.kind,
		Pos:   s.table.File.Pos(d.NameSp.Start),
		Scope: sc,
		Call:  call,
		File:  s.table.File,
	}
	if len(call.TypeArgs) > 0 {
		rec.Type = call.TypeArgs[0]
	} else if d.Type != nil {
		rec.Type = d.Type
	}
	if reg.runtimeName != nil {
		rec.RuntimeName = reg.runtimeName(d.Name, call)
	}
	if reg.kind == KindComponent && len(call.Args) > 0 {
		if a, isArrow := source.Unparen(call.Args[0]).(*source.Arrow); isArrow {
			rec.Component = a
			if rec.Type == nil && len(a.Params) > 0 {
				rec.Type = a.Params[0].Type
			}
		}
	}
	s.register(sc, rec)

	for _, arg := range call.Args {
		s.expr(sc, arg)
	}
}

func (s *scanner) register(sc *Scope, rec *Record) {
	if prev, ok := sc.own(rec.Name); ok {
		if prev.Kind != rec.Kind || prev.TypeName() != rec.TypeName() || prev.RuntimeName != rec.RuntimeName {
			s.table.Conflicts = append(s.table.Conflicts, Conflict{Existing: prev, Redeclared: rec})
		}
		return
	}
	sc.table(rec.Kind)[rec.Name] = rec
	s.table.order = append(s.table.order, rec)
}

func (s *scanner) expr(sc *Scope, e source.Expr) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *source.Arrow:
		inner := newScope(sc, n)
		s.table.scopes[n] = inner
		for _, p := range n.Params {
			for _, local := range p.Locals() {
				inner.locals[local] = true
			}
			for _, pp := range p.Pattern {
				s.expr(inner, pp.Default)
			}
		}
		s.expr(inner, n.Body)
		for _, st := range n.Block {
			s.stmt(inner, st)
		}
	case *source.Call:
		s.expr(sc, n.Fun)
		for _, a := range n.Args {
			s.expr(sc, a)
		}
	case *source.Member:
		s.expr(sc, n.X)
	case *source.IndexExpr:
		s.expr(sc, n.X)
		s.expr(sc, n.Index)
	case *source.Unary:
		s.expr(sc, n.X)
	case *source.Binary:
		s.expr(sc, n.X)
		s.expr(sc, n.Y)
	case *source.Conditional:
		s.expr(sc, n.Test)
		s.expr(sc, n.Then)
		s.expr(sc, n.Else)
	case *source.Paren:
		s.expr(sc, n.X)
	case *source.TemplateLit:
		for _, x := range n.Exprs {
			s.expr(sc, x)
		}
	case *source.ObjectLit:
		for _, p := range n.Props {
			s.expr(sc, p.Computed)
			s.expr(sc, p.Value)
		}
	case *source.ArrayLit:
		for _, x := range n.Elems {
			s.expr(sc, x)
		}
	case *source.Spread:
		s.expr(sc, n.X)
	case *source.JSXElement:
		for _, a := range n.Attrs {
			s.expr(sc, a.Value)
		}
		for _, c := range n.Children {
			s.expr(sc, c)
		}
	case *source.JSXFragment:
		for _, c := range n.Children {
			s.expr(sc, c)
		}
	case *source.JSXExprContainer:
		s.expr(sc, n.X)
	}
}
