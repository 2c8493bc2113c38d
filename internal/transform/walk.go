package transform

import (
	"github.com/roach88/promptc/internal/cond"
	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/source"
)

// blocks transforms a child list into the blocks of a new container.
func (s *state) blocks(ctx cond.Context, children []source.Expr) ([]ir.Block, error) {
	b := &builder{}
	if err := s.children(ctx, b, children); err != nil {
		return nil, err
	}
	return b.finish(), nil
}

// inlineContent transforms the children of an element that accepts inline
// content only.
func (s *state) inlineContent(ctx cond.Context, el *source.JSXElement) ([]ir.Inline, error) {
	b := &builder{}
	if err := s.children(ctx, b, el.Children); err != nil {
		return nil, err
	}
	content, ok := b.inlines()
	if !ok {
		return nil, ir.Errorf(ir.ErrStructuralViolation, ctx.File.PosOf(el),
			"<%s> accepts inline content only", el.Name)
	}
	return content, nil
}

// children transforms siblings in order. An <Else> is consumed by the <If>
// immediately before it; anywhere else it is a structural violation.
func (s *state) children(ctx cond.Context, b *builder, children []source.Expr) error {
	for i := 0; i < len(children); i++ {
		el, ok := children[i].(*source.JSXElement)
		if ok && s.builtin(ctx, el) {
			switch el.Name {
			case "If":
				var els *source.JSXElement
				if j := nextSibling(children, i); j >= 0 {
					if next, isEl := children[j].(*source.JSXElement); isEl && next.Name == "Else" && s.builtin(ctx, next) {
						els = next
						i = j
					}
				}
				node, err := s.ifElement(ctx, el, els)
				if err != nil {
					return err
				}
				b.block(node)
				continue
			case "Else":
				return ir.Errorf(ir.ErrStructuralViolation, ctx.File.PosOf(el), "else must follow conditional")
			}
		}
		if err := s.content(ctx, b, children[i]); err != nil {
			return err
		}
	}
	return nil
}

// nextSibling returns the index of the next child after i that renders
// anything, or -1.
func nextSibling(children []source.Expr, i int) int {
	for j := i + 1; j < len(children); j++ {
		if t, ok := children[j].(*source.JSXText); ok && isBlank(t.Value) {
			continue
		}
		return j
	}
	return -1
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' {
			return false
		}
	}
	return true
}

// content transforms one child into b.
func (s *state) content(ctx cond.Context, b *builder, e source.Expr) error {
	switch n := e.(type) {
	case *source.JSXText:
		b.text(n.Value)
		return nil
	case *source.JSXExprContainer:
		return s.expr(ctx, b, n.X)
	case *source.JSXElement:
		return s.element(ctx, b, n)
	case *source.JSXFragment:
		return s.children(ctx, b, n.Children)
	}
	return s.expr(ctx, b, e)
}

// expr transforms an embedded expression: markup reached through prop
// bindings, conditional markup, template strings and inline values.
func (s *state) expr(ctx cond.Context, b *builder, e source.Expr) error {
	e, ctx = cond.Follow(ctx, e)
	switch n := source.Unparen(e).(type) {
	case *source.JSXElement, *source.JSXFragment:
		return s.content(ctx, b, n)

	case *source.NullLit, *source.BoolLit:
		return nil

	case *source.ArrayLit:
		for _, el := range n.Elems {
			if err := s.expr(ctx, b, el); err != nil {
				return err
			}
		}
		return nil

	case *source.Binary:
		if n.Op == "&&" && isMarkup(n.Y) {
			return s.conditionalMarkup(ctx, b, n, n.X, n.Y, nil)
		}

	case *source.Conditional:
		if isMarkup(n.Then) || isMarkup(n.Else) {
			return s.conditionalMarkup(ctx, b, n, n.Test, n.Then, n.Else)
		}

	case *source.TemplateLit:
		for i, q := range n.Quasis {
			b.text(q)
			if i < len(n.Exprs) {
				in, err := s.valueInline(ctx, n.Exprs[i])
				if err != nil {
					return err
				}
				b.inline(in...)
			}
		}
		return nil
	}

	in, err := s.valueInline(ctx, e)
	if err != nil {
		return err
	}
	b.inline(in...)
	return nil
}

// valueInline resolves a value expression to inline content: a var-ref, a
// choice or static text. A static null renders nothing.
func (s *state) valueInline(ctx cond.Context, e source.Expr) ([]ir.Inline, error) {
	op, err := cond.Resolve(ctx, e)
	if err != nil {
		return nil, err
	}
	switch {
	case op.Ref != nil:
		return []ir.Inline{&ir.VarRef{Ref: *op.Ref}}, nil
	case op.Choice != nil:
		return []ir.Inline{op.Choice}, nil
	}
	if _, isNull := op.Value.(ir.Null); isNull {
		return nil, nil
	}
	return []ir.Inline{&ir.Text{Value: ir.TextOf(op.Value)}}, nil
}

func isMarkup(e source.Expr) bool {
	switch source.Unparen(e).(type) {
	case *source.JSXElement, *source.JSXFragment, *source.NullLit:
		return true
	}
	return false
}

// conditionalMarkup turns {c && <X/>} and {c ? <X/> : <Y/>} into an If.
func (s *state) conditionalMarkup(ctx cond.Context, b *builder, at, test, then, els source.Expr) error {
	c, err := cond.ResolveCondition(ctx, test)
	if err != nil {
		return err
	}
	node := &ir.If{Test: c}
	if node.Then, err = s.branch(ctx, then); err != nil {
		return err
	}
	if els != nil {
		if !isMarkup(els) {
			return ir.Unsupported(ctx.File.PosOf(at), ctx.File.Text(at),
				"both branches of a conditional must be markup or null")
		}
		if node.Else, err = s.branch(ctx, els); err != nil {
			return err
		}
		node.HasElse = len(node.Else) > 0
	}
	b.block(node)
	return nil
}

func (s *state) branch(ctx cond.Context, e source.Expr) ([]ir.Block, error) {
	if _, isNull := source.Unparen(e).(*source.NullLit); isNull {
		return nil, nil
	}
	b := &builder{}
	if err := s.content(ctx, b, source.Unparen(e)); err != nil {
		return nil, err
	}
	return b.finish(), nil
}

// element dispatches a JSX element: local components first, then the
// built-in table. Anything else is an unknown component.
func (s *state) element(ctx cond.Context, b *builder, el *source.JSXElement) error {
	rec, ok, err := s.lookupComponent(ctx, el)
	if err != nil {
		return err
	}
	if ok {
		return s.expand(ctx, b, el, rec)
	}
	h, ok := handlers[el.Name]
	if !ok {
		return &ir.CompileError{
			Code:      ir.ErrUnknownComponent,
			Message:   "unknown component <" + el.Name + ">",
			Pos:       ctx.File.Pos(el.NameSp.Start),
			Construct: el.Name,
		}
	}
	return h(s, ctx, el, b)
}

// builtin reports whether the tag of el dispatches to the built-in table in
// ctx, that is, no local component shadows it.
func (s *state) builtin(ctx cond.Context, el *source.JSXElement) bool {
	if _, ok := handlers[el.Name]; !ok {
		return false
	}
	_, local, err := s.lookupComponent(ctx, el)
	return err == nil && !local
}
