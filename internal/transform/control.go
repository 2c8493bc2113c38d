package transform

import (
	"github.com/roach88/promptc/internal/cond"
	"github.com/roach88/promptc/internal/decl"
	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/source"
)

// ifElement builds an If from <If condition={...}> and the <Else> that
// immediately follows it, if any.
func (s *state) ifElement(ctx cond.Context, el, els *source.JSXElement) (*ir.If, error) {
	e := attrExpr(el, "condition")
	if e == nil {
		return nil, ir.Errorf(ir.ErrStructuralViolation, ctx.File.PosOf(el), "<If> requires a condition")
	}
	test, err := cond.ResolveCondition(ctx, e)
	if err != nil {
		return nil, err
	}
	node := &ir.If{Test: test}
	if node.Then, err = s.blocks(ctx, el.Children); err != nil {
		return nil, err
	}
	if els != nil {
		if node.Else, err = s.blocks(ctx, els.Children); err != nil {
			return nil, err
		}
		node.HasElse = true
	}
	return node, nil
}

// ifOnly handles an <If> reached outside a sibling list, such as the result
// of a component.
func ifOnly(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	node, err := s.ifElement(ctx, el, nil)
	if err != nil {
		return err
	}
	b.block(node)
	return nil
}

func elseOnly(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	return ir.Errorf(ir.ErrStructuralViolation, ctx.File.PosOf(el), "else must follow conditional")
}

// loop requires a bound: a positive static integer or a runtime reference.
// An unbounded loop never reaches emission.
func loop(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	pos := ctx.File.PosOf(el)
	e := attrExpr(el, "max")
	if e == nil {
		return ir.Errorf(ir.ErrStructuralViolation, pos, "<Loop> requires max; unbounded loops are not allowed")
	}
	op, err := cond.Resolve(ctx, e)
	if err != nil {
		return err
	}
	var bound ir.Bound
	switch {
	case op.Ref != nil:
		bound.Ref = op.Ref
	case op.Value != nil:
		n, ok := op.Value.(ir.Int)
		if !ok || n <= 0 {
			return ir.Errorf(ir.ErrStructuralViolation, pos,
				"<Loop> max must be a positive integer, got %s", ctx.File.Text(e))
		}
		bound.Static = int(n)
	default:
		return ir.Unsupported(ctx.File.PosOf(e), ctx.File.Text(e), "<Loop> max cannot be conditional")
	}

	s.loops++
	children, err := s.blocks(ctx, el.Children)
	s.loops--
	if err != nil {
		return err
	}
	b.block(&ir.Loop{Max: bound, Children: children})
	return nil
}

func breakElement(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	if s.loops == 0 {
		return ir.Errorf(ir.ErrStructuralViolation, ctx.File.PosOf(el), "<Break> must be inside <Loop>")
	}
	msg, err := stringAttr(ctx, el, "message")
	if err != nil {
		return err
	}
	b.block(&ir.Break{Message: msg})
	return nil
}

func returnElement(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	status, err := stringAttr(ctx, el, "status")
	if err != nil {
		return err
	}
	msg, err := stringAttr(ctx, el, "message")
	if err != nil {
		return err
	}
	b.block(&ir.Return{Status: status, Message: msg})
	return nil
}

func onStatus(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	out, err := runtimeAttr(ctx, el, "output", decl.KindOutput)
	if err != nil {
		return err
	}
	if out == nil {
		return ir.Errorf(ir.ErrStructuralViolation, ctx.File.PosOf(el), "<OnStatus> requires output")
	}
	status, err := requiredString(ctx, el, "status")
	if err != nil {
		return err
	}
	children, err := s.blocks(ctx, el.Children)
	if err != nil {
		return err
	}
	b.block(&ir.StatusBranch{Output: out.RuntimeName, Status: status, Children: children})
	return nil
}

// assign takes exactly one of value (a literal or reference), bash (a shell
// command) or from (a reference).
func assign(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	pos := ctx.File.PosOf(el)
	target, err := runtimeAttr(ctx, el, "var", decl.KindVariable)
	if err != nil {
		return err
	}
	if target == nil {
		return ir.Errorf(ir.ErrStructuralViolation, pos, "<Assign> requires var")
	}

	node := &ir.Assign{Var: target.RuntimeName}
	sources := 0
	if e := attrExpr(el, "value"); e != nil {
		sources++
		op, err := cond.Resolve(ctx, e)
		if err != nil {
			return err
		}
		switch {
		case op.Ref != nil:
			node.Source, node.Ref = ir.AssignRef, op.Ref
		case op.Value != nil:
			node.Source, node.Literal = ir.AssignLiteral, op.Value
		default:
			return ir.Unsupported(ctx.File.PosOf(e), ctx.File.Text(e), "conditional values cannot be assigned")
		}
	}
	if attrExpr(el, "bash") != nil {
		sources++
		cmd, err := requiredString(ctx, el, "bash")
		if err != nil {
			return err
		}
		node.Source, node.Shell = ir.AssignShell, cmd
	}
	if e := attrExpr(el, "from"); e != nil {
		sources++
		ref, _, err := cond.ResolveRef(ctx, e)
		if err != nil {
			return err
		}
		node.Source, node.Ref = ir.AssignRef, &ref
	}
	if sources != 1 {
		return ir.Errorf(ir.ErrStructuralViolation, pos,
			"<Assign> takes exactly one of value, bash or from; got %d", sources)
	}
	b.block(node)
	return nil
}
