package cond

import (
	"fmt"

	"github.com/roach88/promptc/internal/decl"
	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/source"
)

// maxHops bounds how many bindings and constants one resolution may follow.
const maxHops = 64

// Operand is a resolved value expression: a runtime reference, a static
// literal or a value-position ternary. Exactly one of Ref, Value and Choice
// is set.
type Operand struct {
	Ref    *ir.Ref
	Record *decl.Record // declaration behind Ref
	Value  ir.Value
	Choice *ir.Choice
}

// IsRef reports whether the operand reads runtime state.
func (o Operand) IsRef() bool { return o.Ref != nil }

// IsStatic reports whether the operand is a compile-time literal.
func (o Operand) IsStatic() bool { return o.Value != nil }

// partial is an operand during chain walking. Object and array literals stay
// unevaluated so member access can index into them statically.
type partial struct {
	Operand
	obj *source.ObjectLit
	arr *source.ArrayLit
	ctx Context
}

type resolver struct {
	hops int
}

// Resolve resolves a value expression.
func Resolve(ctx Context, e source.Expr) (Operand, error) {
	r := &resolver{}
	p, err := r.operand(ctx, e)
	if err != nil {
		return Operand{}, err
	}
	return r.finish(p)
}

// ResolveRef resolves an expression that must read runtime state, such as
// an Assign source or a Loop bound.
func ResolveRef(ctx Context, e source.Expr) (ir.Ref, *decl.Record, error) {
	op, err := Resolve(ctx, e)
	if err != nil {
		return ir.Ref{}, nil, err
	}
	if !op.IsRef() {
		return ir.Ref{}, nil, ir.Unsupported(ctx.File.PosOf(e), ctx.File.Text(e),
			"expected a reference to a runtime variable")
	}
	return *op.Ref, op.Record, nil
}

// Entry is one property of an object literal reached through bindings.
type Entry struct {
	Key  string
	Expr source.Expr
	Ctx  Context
}

// ResolveObject follows bindings and constants from e to an object literal
// and returns its properties in source order. ok is false when e does not
// statically denote an object literal.
func ResolveObject(ctx Context, e source.Expr) ([]Entry, bool, error) {
	r := &resolver{}
	p, err := r.operand(ctx, e)
	if err != nil {
		return nil, false, err
	}
	if p.obj == nil {
		return nil, false, nil
	}
	var out []Entry
	for _, prop := range p.obj.Props {
		if prop.Spread || prop.Computed != nil {
			return nil, false, ir.Unsupported(p.ctx.File.PosOf(prop), p.ctx.File.Text(prop),
				"spread and computed keys cannot be checked against a contract")
		}
		out = append(out, Entry{Key: prop.Key, Expr: prop.Value, Ctx: p.ctx})
	}
	return out, true, nil
}

// ResolveList follows bindings and constants from e to an array literal.
func ResolveList(ctx Context, e source.Expr) ([]Entry, bool, error) {
	r := &resolver{}
	p, err := r.operand(ctx, e)
	if err != nil {
		return nil, false, err
	}
	if p.arr == nil {
		return nil, false, nil
	}
	out := make([]Entry, 0, len(p.arr.Elems))
	for _, el := range p.arr.Elems {
		if sp, ok := el.(*source.Spread); ok {
			return nil, false, ir.Unsupported(p.ctx.File.PosOf(sp), p.ctx.File.Text(sp), "spread in list")
		}
		out = append(out, Entry{Expr: el, Ctx: p.ctx})
	}
	return out, true, nil
}

// Static evaluates e to a literal. ok is false when e reads runtime state.
func Static(ctx Context, e source.Expr) (ir.Value, bool, error) {
	op, err := Resolve(ctx, e)
	if err != nil {
		return nil, false, err
	}
	if !op.IsStatic() {
		return nil, false, nil
	}
	return op.Value, true, nil
}

// Follow follows e through prop bindings to the expression and context it
// finally denotes. Used for props that carry JSX or arrow functions.
func Follow(ctx Context, e source.Expr) (source.Expr, Context) {
	for range maxHops {
		id, ok := source.Unparen(e).(*source.Ident)
		if !ok {
			return e, ctx
		}
		if _, declared := ctx.Scope.Lookup(id.Name); declared {
			return e, ctx
		}
		b, bound := ctx.Env.Lookup(id.Name)
		if !bound || b.Expr == nil {
			return e, ctx
		}
		e, ctx = b.Expr, b.Ctx
	}
	return e, ctx
}

func (r *resolver) hop(ctx Context, e source.Expr) error {
	r.hops++
	if r.hops > maxHops {
		return ir.Unsupported(ctx.File.PosOf(e), ctx.File.Text(e), "reference cycle")
	}
	return nil
}

func (r *resolver) operand(ctx Context, e source.Expr) (partial, error) {
	pos := ctx.File.PosOf(e)
	switch n := source.Unparen(e).(type) {
	case *source.Ident:
		return r.ident(ctx, n)

	case *source.Member:
		base, err := r.operand(ctx, n.X)
		if err != nil {
			return partial{}, err
		}
		return r.step(ctx, base, ir.Field(n.Name), n)

	case *source.IndexExpr:
		seg, err := indexSegment(ctx, n)
		if err != nil {
			return partial{}, err
		}
		base, err := r.operand(ctx, n.X)
		if err != nil {
			return partial{}, err
		}
		return r.step(ctx, base, seg, n)

	case *source.StringLit:
		return static(ir.String(n.Value)), nil
	case *source.BoolLit:
		return static(ir.Bool(n.Value)), nil
	case *source.NullLit:
		return static(ir.Null{}), nil
	case *source.NumberLit:
		if n.Float {
			return partial{}, ir.Unsupported(pos, n.Raw, "float literals are not supported; use an integer")
		}
		return static(ir.Int(n.Int)), nil

	case *source.Unary:
		if num, ok := source.Unparen(n.X).(*source.NumberLit); ok && n.Op == "-" {
			if num.Float {
				return partial{}, ir.Unsupported(pos, ctx.File.Text(n), "float literals are not supported; use an integer")
			}
			return static(ir.Int(-num.Int)), nil
		}
		return partial{}, ir.Unsupported(pos, ctx.File.Text(n), fmt.Sprintf("operator %s in value position", n.Op))

	case *source.TemplateLit:
		if len(n.Exprs) == 0 {
			return static(ir.String(n.Quasis[0])), nil
		}
		return partial{}, ir.Unsupported(pos, ctx.File.Text(n), "template substitutions are only supported in text")

	case *source.ObjectLit:
		return partial{obj: n, ctx: ctx}, nil
	case *source.ArrayLit:
		return partial{arr: n, ctx: ctx}, nil

	case *source.Conditional:
		c, err := r.choice(ctx, n)
		if err != nil {
			return partial{}, err
		}
		return c, nil

	case *source.Call:
		return partial{}, ir.Unsupported(pos, ctx.File.Text(n), "function calls cannot be evaluated at compile time")
	case *source.Binary:
		return partial{}, unsupportedBinary(ctx, n)
	case *source.Arrow:
		return partial{}, ir.Unsupported(pos, ctx.File.Text(n), "functions are not values")
	case *source.JSXElement, *source.JSXFragment:
		return partial{}, ir.Unsupported(pos, ctx.File.Text(n), "markup is not a value")
	}
	return partial{}, ir.Unsupported(pos, ctx.File.Text(e), "unsupported expression")
}

func static(v ir.Value) partial {
	return partial{Operand: Operand{Value: v}}
}

func (r *resolver) ident(ctx Context, n *source.Ident) (partial, error) {
	if err := r.hop(ctx, n); err != nil {
		return partial{}, err
	}
	pos := ctx.File.PosOf(n)
	if rec, ok := ctx.Scope.Lookup(n.Name); ok {
		if rec.Kind == decl.KindComponent {
			return partial{}, ir.Unsupported(pos, n.Name, "a component is not a value")
		}
		return partial{Operand: Operand{Ref: &ir.Ref{Var: rec.RuntimeName}, Record: rec}}, nil
	}
	if b, ok := ctx.Env.Lookup(n.Name); ok {
		if b.Expr == nil {
			return static(ir.Null{}), nil
		}
		return r.operand(b.Ctx, b.Expr)
	}
	if binder := ctx.Scope.Binder(n.Name); binder != nil {
		if init := localConst(ctx.File, binder, n.Name); init != nil {
			return r.operand(Context{File: ctx.File, Scope: binder, Env: ctx.Env}, init)
		}
	}
	return partial{}, ir.Errorf(ir.ErrUnresolvedReference, pos, "unresolved reference %q", n.Name)
}

// localConst finds the literal initializer of a plain const bound in sc.
func localConst(f *source.File, sc *decl.Scope, name string) source.Expr {
	var stmts []source.Stmt
	if sc.Owner == nil {
		stmts = f.Stmts
	} else {
		stmts = sc.Owner.Block
	}
	for _, st := range stmts {
		v, ok := st.(*source.VarDecl)
		if !ok || v.Name != name || v.Init == nil {
			continue
		}
		if isLiteralInit(v.Init) {
			return v.Init
		}
		return nil
	}
	return nil
}

// isLiteralInit reports whether a const initializer is usable as a static
// value (and not, say, a component or a call).
func isLiteralInit(e source.Expr) bool {
	switch n := source.Unparen(e).(type) {
	case *source.ObjectLit, *source.ArrayLit, *source.StringLit, *source.NumberLit,
		*source.BoolLit, *source.NullLit, *source.TemplateLit, *source.Ident, *source.Member:
		return true
	case *source.Unary:
		return n.Op == "-"
	}
	return false
}

// step applies one path segment to a partially resolved operand.
func (r *resolver) step(ctx Context, base partial, seg ir.Segment, at source.Expr) (partial, error) {
	pos := ctx.File.PosOf(at)
	switch {
	case base.Ref != nil:
		ref := ir.Ref{Var: base.Ref.Var, Path: base.Ref.Path.Append(seg)}
		return partial{Operand: Operand{Ref: &ref, Record: base.Record}}, nil

	case base.obj != nil:
		if seg.Index {
			return static(ir.Null{}), nil
		}
		val, ok := base.obj.Get(seg.Value)
		if !ok {
			return static(ir.Null{}), nil
		}
		return r.operand(base.ctx, val)

	case base.arr != nil:
		if !seg.Index {
			if seg.Value == "length" {
				return static(ir.Int(len(base.arr.Elems))), nil
			}
			return static(ir.Null{}), nil
		}
		i := atoi(seg.Value)
		if i >= len(base.arr.Elems) {
			return static(ir.Null{}), nil
		}
		return r.operand(base.ctx, base.arr.Elems[i])

	case base.Value != nil:
		return static(indexValue(base.Value, seg)), nil

	case base.Choice != nil:
		return partial{}, ir.Unsupported(pos, ctx.File.Text(at), "member access on a conditional value")
	}
	return partial{}, ir.Unsupported(pos, ctx.File.Text(at), "unsupported member access")
}

func indexValue(v ir.Value, seg ir.Segment) ir.Value {
	switch val := v.(type) {
	case ir.Object:
		if e, ok := val[seg.Value]; ok && !seg.Index {
			return e
		}
	case ir.Array:
		if seg.Index {
			if i := atoi(seg.Value); i < len(val) {
				return val[i]
			}
		}
	}
	return ir.Null{}
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
		if n > 1<<30 {
			return n
		}
	}
	return n
}

// indexSegment converts the index of x[i] into a path segment. Only
// non-negative integer and string literals are accepted.
func indexSegment(ctx Context, n *source.IndexExpr) (ir.Segment, error) {
	pos := ctx.File.PosOf(n)
	switch idx := source.Unparen(n.Index).(type) {
	case *source.NumberLit:
		if idx.Float {
			return ir.Segment{}, ir.Unsupported(pos, ctx.File.Text(n), "index must be a non-negative integer")
		}
		return ir.Index(int(idx.Int)), nil
	case *source.StringLit:
		return ir.Field(idx.Value), nil
	case *source.Unary:
		return ir.Segment{}, ir.Unsupported(pos, ctx.File.Text(n), "index must be a non-negative integer")
	}
	return ir.Segment{}, ir.Unsupported(pos, ctx.File.Text(n), "computed index; only literal indices can be compiled to a path")
}

func unsupportedBinary(ctx Context, n *source.Binary) error {
	pos := ctx.File.PosOf(n)
	text := ctx.File.Text(n)
	switch n.Op {
	case "??":
		return ir.Unsupported(pos, text, "the ?? operator is not supported; use an If with an Else")
	case "+", "-", "*", "/", "%":
		return ir.Unsupported(pos, text, "arithmetic is not supported")
	}
	return ir.Unsupported(pos, text, fmt.Sprintf("operator %s in value position; use it inside a condition", n.Op))
}

// finish turns a partial into an Operand, evaluating literal containers.
func (r *resolver) finish(p partial) (Operand, error) {
	if p.obj == nil && p.arr == nil {
		return p.Operand, nil
	}
	v, err := r.literal(p)
	if err != nil {
		return Operand{}, err
	}
	return Operand{Value: v}, nil
}

func (r *resolver) literal(p partial) (ir.Value, error) {
	switch {
	case p.obj != nil:
		obj := make(ir.Object, len(p.obj.Props))
		for _, prop := range p.obj.Props {
			if prop.Spread || prop.Computed != nil {
				return nil, ir.Unsupported(p.ctx.File.PosOf(prop), p.ctx.File.Text(prop),
					"spread and computed keys are not supported in literals")
			}
			v, err := r.literalOf(p.ctx, prop.Value)
			if err != nil {
				return nil, err
			}
			obj[prop.Key] = v
		}
		return obj, nil
	case p.arr != nil:
		arr := make(ir.Array, 0, len(p.arr.Elems))
		for _, el := range p.arr.Elems {
			v, err := r.literalOf(p.ctx, el)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	}
	return p.Value, nil
}

func (r *resolver) literalOf(ctx Context, e source.Expr) (ir.Value, error) {
	p, err := r.operand(ctx, e)
	if err != nil {
		return nil, err
	}
	if p.Ref != nil || p.Choice != nil {
		return nil, ir.Unsupported(ctx.File.PosOf(e), ctx.File.Text(e),
			"runtime values cannot be nested in a literal")
	}
	return r.literal(p)
}
