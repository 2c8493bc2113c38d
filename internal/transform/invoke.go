package transform

import (
	"errors"

	"github.com/roach88/promptc/internal/cond"
	"github.com/roach88/promptc/internal/decl"
	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/source"
)

// commandOnly rejects invocation elements inside agent documents.
func (s *state) commandOnly(ctx cond.Context, el *source.JSXElement) error {
	if s.kind == ir.DocAgent {
		return ir.Errorf(ir.ErrStructuralViolation, ctx.File.PosOf(el),
			"<%s> is not allowed in agent documents", el.Name)
	}
	return nil
}

// spawnAgent builds an AgentSpawn. With a type argument the input is checked
// against the resolved contract and every missing required property is
// reported in one ContractViolation.
func spawnAgent(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	if err := s.commandOnly(ctx, el); err != nil {
		return err
	}
	agent, err := requiredString(ctx, el, "agent")
	if err != nil {
		return err
	}
	node := &ir.AgentSpawn{Agent: agent}
	if node.Model, err = stringAttr(ctx, el, "model"); err != nil {
		return err
	}
	if node.Description, err = stringAttr(ctx, el, "description"); err != nil {
		return err
	}

	var contract *ir.Contract
	if len(el.TypeArgs) > 0 {
		if contract, err = s.contract(ctx.File, el.TypeArgs[0]); err != nil {
			return err
		}
		node.Contract = contract.Name
	}

	supplied := map[string]bool{}
	checkable := true
	if e := attrExpr(el, "input"); e != nil {
		args, keys, ok, err := objectArgs(ctx, e)
		if err != nil {
			return err
		}
		if ok {
			node.Input, supplied = args, keys
		} else {
			ref, _, err := cond.ResolveRef(ctx, e)
			if err != nil {
				return err
			}
			node.InputRef = &ref
			checkable = false
		}
	}
	if contract != nil && checkable {
		if missing := contract.Missing(supplied); len(missing) > 0 {
			return ir.ContractViolation(ctx.File.PosOf(el), "<SpawnAgent>", contract.Name, missing)
		}
	}

	out, err := runtimeAttr(ctx, el, "output", decl.KindOutput)
	if err != nil {
		return err
	}
	if out != nil {
		node.Output = out.RuntimeName
	}
	if node.Prompt, err = s.blocks(ctx, el.Children); err != nil {
		return err
	}
	b.block(node)
	return nil
}

// askUser builds a UserPrompt. Options are strings or {label, description}
// objects.
func askUser(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	if err := s.commandOnly(ctx, el); err != nil {
		return err
	}
	question, err := requiredString(ctx, el, "question")
	if err != nil {
		return err
	}
	node := &ir.UserPrompt{Question: question}
	if node.Header, err = stringAttr(ctx, el, "header"); err != nil {
		return err
	}
	if node.MultiSelect, err = boolAttr(ctx, el, "multiSelect"); err != nil {
		return err
	}
	if v, ok, err := staticAttr(ctx, el, "options"); err != nil {
		return err
	} else if ok {
		opts, isArr := v.(ir.Array)
		if !isArr {
			return ir.Errorf(ir.ErrStructuralViolation, ctx.File.PosOf(el), "<AskUser> options must be an array")
		}
		for _, o := range opts {
			opt, err := option(o)
			if err != nil {
				return ir.Errorf(ir.ErrStructuralViolation, ctx.File.PosOf(el), "<AskUser> %s", err.Error())
			}
			node.Options = append(node.Options, opt)
		}
	}
	out, err := runtimeAttr(ctx, el, "output")
	if err != nil {
		return err
	}
	if out != nil {
		node.Output = out.RuntimeName
	}
	b.block(node)
	return nil
}

func option(v ir.Value) (ir.Option, error) {
	switch o := v.(type) {
	case ir.String:
		return ir.Option{Label: string(o)}, nil
	case ir.Object:
		label, ok := o["label"].(ir.String)
		if !ok || label == "" {
			return ir.Option{}, errors.New("option requires a label")
		}
		opt := ir.Option{Label: string(label)}
		if d, ok := o["description"]; ok {
			opt.Description = ir.TextOf(d)
		}
		return opt, nil
	}
	return ir.Option{}, errors.New("options must be strings or {label, description} objects")
}

// runtimeCall records a call of a bundled runtime function.
func runtimeCall(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	fn, err := requiredString(ctx, el, "fn")
	if err != nil {
		return err
	}
	node := &ir.RuntimeCall{Function: fn}
	if e := attrExpr(el, "args"); e != nil {
		args, _, ok, err := objectArgs(ctx, e)
		if err != nil {
			return err
		}
		if !ok {
			return ir.Unsupported(ctx.File.PosOf(e), ctx.File.Text(e), "<RuntimeCall> args must be an object literal")
		}
		node.Args = args
	}
	out, err := runtimeAttr(ctx, el, "output")
	if err != nil {
		return err
	}
	if out == nil {
		return ir.Errorf(ir.ErrStructuralViolation, ctx.File.PosOf(el), "<RuntimeCall> requires output")
	}
	node.Output = out.RuntimeName
	b.block(node)
	return nil
}
