package decl

import (
	"github.com/roach88/promptc/internal/source"
)

// Scope holds the declarations of the module or of one arrow-function body.
type Scope struct {
	Parent *Scope
	Owner  *source.Arrow // nil for the module scope

	variables  map[string]*Record
	outputs    map[string]*Record
	components map[string]*Record
	locals     map[string]bool // other bindings that shadow outer declarations
}

func newScope(parent *Scope, owner *source.Arrow) *Scope {
	return &Scope{
		Parent:     parent,
		Owner:      owner,
		variables:  make(map[string]*Record),
		outputs:    make(map[string]*Record),
		components: make(map[string]*Record),
		locals:     make(map[string]bool),
	}
}

func (s *Scope) table(k Kind) map[string]*Record {
	switch k {
	case KindVariable:
		return s.variables
	case KindOutput:
		return s.outputs
	default:
		return s.components
	}
}

// own returns the declaration of name in this scope only.
func (s *Scope) own(name string) (*Record, bool) {
	for _, k := range []Kind{KindVariable, KindOutput, KindComponent} {
		if r, ok := s.table(k)[name]; ok {
			return r, true
		}
	}
	return nil, false
}

// Lookup finds name in this scope or the nearest enclosing one. A plain
// binding (parameter or ordinary const) shadows outer declarations.
func (s *Scope) Lookup(name string) (*Record, bool) {
	for sc := s; sc != nil; sc = sc.Parent {
		if r, ok := sc.own(name); ok {
			return r, true
		}
		if sc.locals[name] {
			return nil, false
		}
	}
	return nil, false
}

// LookupKind is Lookup restricted to one kind.
func (s *Scope) LookupKind(k Kind, name string) (*Record, bool) {
	r, ok := s.Lookup(name)
	if !ok || r.Kind != k {
		return nil, false
	}
	return r, true
}

// Binder returns the scope in which name is a plain local, or nil when name
// is undeclared or resolves to a declaration first.
func (s *Scope) Binder(name string) *Scope {
	for sc := s; sc != nil; sc = sc.Parent {
		if _, ok := sc.own(name); ok {
			return nil
		}
		if sc.locals[name] {
			return sc
		}
	}
	return nil
}

// Shadowed reports whether name is bound by a plain local between s and the
// scope that declares it.
func (s *Scope) Shadowed(name string) bool {
	for sc := s; sc != nil; sc = sc.Parent {
		if _, ok := sc.own(name); ok {
			return false
		}
		if sc.locals[name] {
			return true
		}
	}
	return false
}
