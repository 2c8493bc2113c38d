package cond

import (
	"fmt"

	"github.com/roach88/promptc/internal/ir"
)

// MaxDepth is the deepest condition tree the emitter will render.
const MaxDepth = 32

// ValidationResult reports whether a condition tree is well formed.
type ValidationResult struct {
	// Valid is true when Errors is empty.
	Valid bool

	// Errors lists every structural problem found, in traversal order.
	Errors []string
}

// Validate checks the structural rules of a condition tree:
//  1. And and Or carry at least two terms
//  2. Compare operands are leaves (a reference or a literal)
//  3. Reference paths contain only valid segments
//  4. The tree is no deeper than MaxDepth
//
// Validate is a pure function with no side effects.
func Validate(c ir.Condition) ValidationResult {
	v := &validator{errors: []string{}}
	v.validateCondition(c)
	if d := ir.CondDepth(c); c != nil && d > MaxDepth {
		v.addError("condition nests %d levels deep; at most %d are supported", d, MaxDepth)
	}
	return ValidationResult{
		Valid:  len(v.errors) == 0,
		Errors: v.errors,
	}
}

// validator accumulates errors during traversal.
type validator struct {
	errors []string
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) validateCondition(c ir.Condition) {
	if c == nil {
		v.addError("missing condition")
		return
	}
	switch n := c.(type) {
	case *ir.CondRef:
		v.validateRef(n.Ref)
	case *ir.CondLiteral:
		if n.Value == nil {
			v.addError("literal without a value")
		}
	case *ir.Not:
		v.validateCondition(n.X)
	case *ir.And:
		v.validateTerms("and", n.Terms)
	case *ir.Or:
		v.validateTerms("or", n.Terms)
	case *ir.Compare:
		v.validateOperand(n.Op, n.X)
		v.validateOperand(n.Op, n.Y)
	default:
		v.addError("unknown condition type %T", c)
	}
}

func (v *validator) validateTerms(op string, terms []ir.Condition) {
	if len(terms) < 2 {
		v.addError("%s needs at least two terms, got %d", op, len(terms))
	}
	for _, t := range terms {
		v.validateCondition(t)
	}
}

func (v *validator) validateOperand(op ir.CompareOp, c ir.Condition) {
	switch c.(type) {
	case *ir.CondRef, *ir.CondLiteral:
		v.validateCondition(c)
	default:
		v.addError("operand of %s must be a reference or a literal, got %T", op, c)
	}
}

func (v *validator) validateRef(r ir.Ref) {
	if r.Var == "" {
		v.addError("reference without a variable name")
	}
	for _, seg := range r.Path {
		if seg.Index && !ir.IsValidIndex(seg.Value) {
			v.addError("invalid index %q in %s", seg.Value, r.Var)
		}
		if !seg.Index && seg.Value == "" {
			v.addError("empty field name in %s", r.Var)
		}
	}
}
