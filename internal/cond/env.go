package cond

import (
	"github.com/roach88/promptc/internal/decl"
	"github.com/roach88/promptc/internal/source"
)

// Context is where an expression is resolved: its file, its declaration
// scope and the prop bindings of the local component it sits in.
type Context struct {
	File  *source.File
	Scope *decl.Scope
	Env   *Env
}

// Binding is the value a local-component parameter receives. Expr is
// resolved in Ctx, the context of the call site (or of the component for
// default values). A nil Expr means the caller supplied nothing.
type Binding struct {
	Expr source.Expr
	Ctx  Context
}

// Env maps parameter names of one component expansion to their bindings.
type Env struct {
	props map[string]Binding
}

// NewEnv returns an empty environment.
func NewEnv() *Env {
	return &Env{props: make(map[string]Binding)}
}

// Bind binds a parameter name.
func (e *Env) Bind(name string, b Binding) {
	e.props[name] = b
}

// Lookup returns the binding of a parameter.
func (e *Env) Lookup(name string) (Binding, bool) {
	if e == nil {
		return Binding{}, false
	}
	b, ok := e.props[name]
	return b, ok
}
