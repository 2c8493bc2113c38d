// Package decl pre-scans a source file for runtime declarations.
//
// The scan runs once over the whole file before any rendering-order work, so
// a declaration is visible to every reference in its scope, including
// references that appear textually earlier. Declarations are recognized by
// the name of the function they are initialized from, through a
// registration table rather than by type.
package decl

import (
	"strings"
	"unicode"

	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/source"
)

// Kind is the category of a declaration.
type Kind string

// Declaration kinds.
const (
	KindVariable  Kind = "variable"
	KindOutput    Kind = "output"
	KindComponent Kind = "local-component"
)

// Record describes one declaration.
type Record struct {
	Name        string // source identifier
	Kind        Kind
	Pos         ir.Pos
	Type        *source.TypeRef // generic argument, nil when untyped
	RuntimeName string          // "CTX"; empty for components
	Scope       *Scope
	Call        *source.Call
	Component   *source.Arrow // KindComponent only
	File        *source.File
}

// TypeName returns the source text of the declared type, or "".
func (r *Record) TypeName() string {
	if r.Type == nil {
		return ""
	}
	return r.Type.Text
}

// registration is what a recognized call contributes to a declaration.
type registration struct {
	kind        Kind
	runtimeName func(name string, call *source.Call) string
}

// registry maps call-target identifiers to the declaration they produce.
var registry = map[string]registration{
	"useRuntimeVar": {
		kind: KindVariable,
		runtimeName: func(name string, call *source.Call) string {
			if len(call.Args) > 0 {
				if s, ok := call.Args[0].(*source.StringLit); ok && s.Value != "" {
					return s.Value
				}
			}
			return UpperSnake(name)
		},
	},
	"useOutput": {
		kind: KindOutput,
		runtimeName: func(name string, _ *source.Call) string {
			return UpperSnake(name)
		},
	},
	"defineComponent": {
		kind: KindComponent,
	},
}

// IsDeclarator reports whether callee is a recognized declaration call.
func IsDeclarator(callee string) bool {
	_, ok := registry[callee]
	return ok
}

// UpperSnake converts a camelCase identifier to UPPER_SNAKE_CASE.
func UpperSnake(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		if r == '-' {
			r = '_'
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
