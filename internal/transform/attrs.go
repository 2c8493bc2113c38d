package transform

import (
	"github.com/roach88/promptc/internal/cond"
	"github.com/roach88/promptc/internal/decl"
	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/source"
)

// attrExpr returns the expression of attribute name, or nil.
func attrExpr(el *source.JSXElement, name string) source.Expr {
	if a, ok := el.Attr(name); ok {
		return a.Value
	}
	return nil
}

// staticAttr evaluates attribute name to a literal. ok is false when the
// attribute is absent.
func staticAttr(ctx cond.Context, el *source.JSXElement, name string) (ir.Value, bool, error) {
	e := attrExpr(el, name)
	if e == nil {
		return nil, false, nil
	}
	v, ok, err := cond.Static(ctx, e)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, ir.Unsupported(ctx.File.PosOf(e), ctx.File.Text(e),
			"attribute "+name+" of <"+el.Name+"> must be known at compile time")
	}
	return v, true, nil
}

// stringAttr returns a static string attribute. A missing attribute yields "".
func stringAttr(ctx cond.Context, el *source.JSXElement, name string) (string, error) {
	v, ok, err := staticAttr(ctx, el, name)
	if err != nil || !ok {
		return "", err
	}
	if _, isNull := v.(ir.Null); isNull {
		return "", nil
	}
	return ir.TextOf(v), nil
}

// requiredString is stringAttr for attributes that must be present and
// non-empty.
func requiredString(ctx cond.Context, el *source.JSXElement, name string) (string, error) {
	v, err := stringAttr(ctx, el, name)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", ir.Errorf(ir.ErrStructuralViolation, ctx.File.PosOf(el),
			"<%s> requires %s", el.Name, name)
	}
	return v, nil
}

// intAttr returns a static integer attribute.
func intAttr(ctx cond.Context, el *source.JSXElement, name string) (int, bool, error) {
	v, ok, err := staticAttr(ctx, el, name)
	if err != nil || !ok {
		return 0, false, err
	}
	n, isInt := v.(ir.Int)
	if !isInt {
		e := attrExpr(el, name)
		return 0, false, ir.Unsupported(ctx.File.PosOf(e), ctx.File.Text(e),
			"attribute "+name+" of <"+el.Name+"> must be an integer")
	}
	return int(n), true, nil
}

// boolAttr returns a static boolean attribute. A bare attribute is true.
func boolAttr(ctx cond.Context, el *source.JSXElement, name string) (bool, error) {
	v, ok, err := staticAttr(ctx, el, name)
	if err != nil || !ok {
		return false, err
	}
	return ir.Truthy(v), nil
}

// runtimeAttr resolves an attribute that names a declared runtime value
// (no path) and returns its declaration. kinds restricts the accepted
// declaration kinds; none means any runtime kind.
func runtimeAttr(ctx cond.Context, el *source.JSXElement, name string, kinds ...decl.Kind) (*decl.Record, error) {
	e := attrExpr(el, name)
	if e == nil {
		return nil, nil
	}
	ref, rec, err := cond.ResolveRef(ctx, e)
	if err != nil {
		return nil, err
	}
	if len(ref.Path) > 0 || rec == nil {
		return nil, ir.Unsupported(ctx.File.PosOf(e), ctx.File.Text(e),
			"attribute "+name+" of <"+el.Name+"> must name a declared runtime value")
	}
	if len(kinds) == 0 {
		return rec, nil
	}
	for _, k := range kinds {
		if rec.Kind == k {
			return rec, nil
		}
	}
	return nil, ir.Errorf(ir.ErrStructuralViolation, ctx.File.PosOf(e),
		"attribute %s of <%s> must be declared with %s, not %s", name, el.Name, declarator(kinds[0]), rec.Kind)
}

func declarator(k decl.Kind) string {
	switch k {
	case decl.KindOutput:
		return "useOutput"
	case decl.KindComponent:
		return "defineComponent"
	default:
		return "useRuntimeVar"
	}
}

// arg resolves one named argument to a literal or a runtime reference.
func arg(name string, ctx cond.Context, e source.Expr) (ir.Arg, error) {
	op, err := cond.Resolve(ctx, e)
	if err != nil {
		return ir.Arg{}, err
	}
	switch {
	case op.Ref != nil:
		return ir.Arg{Name: name, Ref: op.Ref}, nil
	case op.Choice != nil:
		return ir.Arg{}, ir.Unsupported(ctx.File.PosOf(e), ctx.File.Text(e),
			"conditional values cannot be passed as arguments")
	}
	return ir.Arg{Name: name, Literal: op.Value}, nil
}

// objectArgs resolves an object-literal attribute into named arguments in
// source order. ok is false when the attribute is not an object literal.
func objectArgs(ctx cond.Context, e source.Expr) ([]ir.Arg, map[string]bool, bool, error) {
	entries, ok, err := cond.ResolveObject(ctx, e)
	if err != nil || !ok {
		return nil, nil, ok, err
	}
	args := make([]ir.Arg, 0, len(entries))
	keys := make(map[string]bool, len(entries))
	for _, entry := range entries {
		a, err := arg(entry.Key, entry.Ctx, entry.Expr)
		if err != nil {
			return nil, nil, false, err
		}
		args = append(args, a)
		keys[entry.Key] = true
	}
	return args, keys, true, nil
}
