package cond

import (
	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/source"
)

var compareOps = map[string]ir.CompareOp{
	"===": ir.OpEq,
	"==":  ir.OpEq,
	"!==": ir.OpNeq,
	"!=":  ir.OpNeq,
	">":   ir.OpGt,
	">=":  ir.OpGte,
	"<":   ir.OpLt,
	"<=":  ir.OpLte,
}

// ResolveCondition translates a boolean source expression into a Condition
// tree. The result is validated before it is returned.
func ResolveCondition(ctx Context, e source.Expr) (ir.Condition, error) {
	r := &resolver{}
	c, err := r.condition(ctx, e)
	if err != nil {
		return nil, err
	}
	if res := Validate(c); !res.Valid {
		return nil, ir.Unsupported(ctx.File.PosOf(e), ctx.File.Text(e), res.Errors[0])
	}
	return c, nil
}

func (r *resolver) condition(ctx Context, e source.Expr) (ir.Condition, error) {
	pos := ctx.File.PosOf(e)
	switch n := source.Unparen(e).(type) {
	case *source.Unary:
		if n.Op != "!" {
			break
		}
		x, err := r.condition(ctx, n.X)
		if err != nil {
			return nil, err
		}
		return negate(x), nil

	case *source.Binary:
		switch n.Op {
		case "&&", "||":
			x, err := r.condition(ctx, n.X)
			if err != nil {
				return nil, err
			}
			y, err := r.condition(ctx, n.Y)
			if err != nil {
				return nil, err
			}
			if n.Op == "&&" {
				return &ir.And{Terms: flatten(ir.KindAnd, x, y)}, nil
			}
			return &ir.Or{Terms: flatten(ir.KindOr, x, y)}, nil
		}
		if op, ok := compareOps[n.Op]; ok {
			x, err := r.leaf(ctx, n.X)
			if err != nil {
				return nil, err
			}
			y, err := r.leaf(ctx, n.Y)
			if err != nil {
				return nil, err
			}
			return &ir.Compare{Op: op, X: x, Y: y}, nil
		}
		return nil, unsupportedBinary(ctx, n)

	case *source.Conditional:
		return nil, ir.Unsupported(pos, ctx.File.Text(n), "a ternary cannot be used as a condition; nest If elements instead")
	case *source.Call:
		return nil, ir.Unsupported(pos, ctx.File.Text(n), "function calls cannot be compiled into a condition")
	}
	return r.leaf(ctx, e)
}

// leaf resolves an operand of a condition: a reference or a literal.
func (r *resolver) leaf(ctx Context, e source.Expr) (ir.Condition, error) {
	p, err := r.operand(ctx, e)
	if err != nil {
		return nil, err
	}
	op, err := r.finish(p)
	if err != nil {
		return nil, err
	}
	switch {
	case op.Ref != nil:
		return &ir.CondRef{Ref: *op.Ref}, nil
	case op.Choice != nil:
		return nil, ir.Unsupported(ctx.File.PosOf(e), ctx.File.Text(e), "a ternary cannot be used as a condition operand")
	}
	return &ir.CondLiteral{Value: op.Value}, nil
}

func negate(c ir.Condition) ir.Condition {
	if n, ok := c.(*ir.Not); ok {
		return n.X
	}
	return &ir.Not{X: c}
}

// flatten merges directly nested terms of the same connective, so a && b && c
// is one And of three terms.
func flatten(kind ir.Kind, terms ...ir.Condition) []ir.Condition {
	var out []ir.Condition
	for _, t := range terms {
		if t.Kind() == kind {
			out = append(out, termsOf(t)...)
			continue
		}
		out = append(out, t)
	}
	return out
}

func termsOf(c ir.Condition) []ir.Condition {
	switch n := c.(type) {
	case *ir.And:
		return n.Terms
	case *ir.Or:
		return n.Terms
	}
	return []ir.Condition{c}
}

// choice translates a value-position ternary. Both branches must be static
// scalars; a test that folds to a literal selects its branch at compile time.
func (r *resolver) choice(ctx Context, n *source.Conditional) (partial, error) {
	test, err := r.condition(ctx, n.Test)
	if err != nil {
		return partial{}, err
	}
	then, err := r.branch(ctx, n.Then)
	if err != nil {
		return partial{}, err
	}
	els, err := r.branch(ctx, n.Else)
	if err != nil {
		return partial{}, err
	}
	if lit, ok := test.(*ir.CondLiteral); ok {
		if ir.Truthy(lit.Value) {
			return static(ir.String(then)), nil
		}
		return static(ir.String(els)), nil
	}
	if res := Validate(test); !res.Valid {
		return partial{}, ir.Unsupported(ctx.File.PosOf(n), ctx.File.Text(n), res.Errors[0])
	}
	return partial{Operand: Operand{Choice: &ir.Choice{Test: test, Then: then, Else: els}}}, nil
}

func (r *resolver) branch(ctx Context, e source.Expr) (string, error) {
	p, err := r.operand(ctx, e)
	if err != nil {
		return "", err
	}
	op, err := r.finish(p)
	if err != nil {
		return "", err
	}
	if op.Value == nil {
		return "", ir.Unsupported(ctx.File.PosOf(e), ctx.File.Text(e),
			"ternary branches must be literals")
	}
	return ir.TextOf(op.Value), nil
}
