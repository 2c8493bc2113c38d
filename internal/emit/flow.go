package emit

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/promptc/internal/cond"
	"github.com/roach88/promptc/internal/ir"
)

// assign renders a shell assignment. Literal values are stored as JSON so
// they can be read back with --argjson; shell commands store their stdout
// as printed.
func (em *emitter) assign(n *ir.Assign) (string, error) {
	em.use(n.Var)
	var rhs string
	switch n.Source {
	case ir.AssignLiteral:
		data, err := ir.MarshalCanonical(n.Literal)
		if err != nil {
			return "", fmt.Errorf("assign %s: %w", n.Var, err)
		}
		rhs = cond.ShellQuote(string(data))
	case ir.AssignShell:
		rhs = "$(" + n.Shell + ")"
	case ir.AssignRef:
		if n.Ref == nil {
			return "", fmt.Errorf("assign %s: missing reference", n.Var)
		}
		rhs = "$(" + jqValue(*n.Ref) + ")"
		em.use(n.Ref.Var)
	default:
		return "", fmt.Errorf("assign %s: unknown source %q", n.Var, n.Source)
	}
	return fenced("bash", n.Var+"="+rhs), nil
}

// jqValue reads a reference as compact JSON.
func jqValue(r ir.Ref) string {
	return "jq -n -c" + cond.ArgJSON([]string{r.Var}) + " " + cond.ShellQuote(r.Expr())
}

// conditional renders a described test, its jq command, the branch and an
// optional otherwise branch.
func (em *emitter) conditional(test ir.Condition, then, els []ir.Block, hasElse bool, st state) (string, error) {
	cmd, err := cond.Test(test)
	if err != nil {
		return "", err
	}
	em.useCondition(test)

	parts := []string{
		"**If " + cond.Describe(test) + ":**",
		fenced("bash", cmd),
	}
	body, _, err := em.blocks(then, st, "\n\n")
	if err != nil {
		return "", err
	}
	if body != "" {
		parts = append(parts, body)
	}
	if hasElse {
		other, _, err := em.blocks(els, st, "\n\n")
		if err != nil {
			return "", err
		}
		parts = append(parts, "**Otherwise:**")
		if other != "" {
			parts = append(parts, other)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func (em *emitter) ifBlock(n *ir.If, st state) (string, error) {
	return em.conditional(n.Test, n.Then, n.Else, n.HasElse, st)
}

// statusBranch tests the status field of an agent output.
func (em *emitter) statusBranch(n *ir.StatusBranch, st state) (string, error) {
	test := &ir.Compare{
		Op: ir.OpEq,
		X:  &ir.CondRef{Ref: ir.Ref{Var: n.Output, Path: ir.Path{ir.Field("status")}}},
		Y:  &ir.CondLiteral{Value: ir.String(n.Status)},
	}
	return em.conditional(test, n.Children, nil, false, st)
}

// loop renders the bound and the body. A Loop without a bound cannot reach
// the emitter; it is rejected here as well.
func (em *emitter) loop(n *ir.Loop, st state) (string, error) {
	var bound string
	switch {
	case n.Max.Ref != nil:
		bound = em.useRef(*n.Max.Ref)
	case n.Max.Static > 0:
		bound = fmt.Sprintf("%d", n.Max.Static)
	default:
		return "", fmt.Errorf("emit: loop without a bound")
	}
	head := "**Repeat the following at most " + bound + " times:**"
	body, _, err := em.blocks(n.Children, st, "\n\n")
	if err != nil {
		return "", err
	}
	if body == "" {
		return head, nil
	}
	return head + "\n\n" + body, nil
}

func (em *emitter) returnBlock(n *ir.Return) string {
	lead := "**Return.**"
	if n.Status != "" {
		lead = "**Return** with status `" + n.Status + "`."
	}
	return withMessage(lead, n.Message)
}

// arg renders one named argument as "name: value".
func (em *emitter) arg(a ir.Arg) (string, error) {
	if a.Ref != nil {
		return a.Name + ": " + em.useRef(*a.Ref), nil
	}
	data, err := ir.MarshalCanonical(a.Literal)
	if err != nil {
		return "", fmt.Errorf("argument %s: %w", a.Name, err)
	}
	return a.Name + ": " + string(data), nil
}

func (em *emitter) agentSpawn(n *ir.AgentSpawn, st state) (string, error) {
	attrs := []ir.Attr{{Name: "agent", Value: n.Agent}}
	if n.Model != "" {
		attrs = append(attrs, ir.Attr{Name: "model", Value: n.Model})
	}
	if n.Contract != "" {
		attrs = append(attrs, ir.Attr{Name: "input-type", Value: n.Contract})
	}

	lead := "Use the Task tool to run the `" + n.Agent + "` agent."
	if n.Description != "" {
		lead = "Use the Task tool to run the `" + n.Agent + "` agent: " + n.Description
	}
	parts := []string{lead}

	switch {
	case n.InputRef != nil:
		parts = append(parts, "Input: "+em.useRef(*n.InputRef))
	case len(n.Input) > 0:
		lines := []string{"Input:"}
		for _, a := range n.Input {
			line, err := em.arg(a)
			if err != nil {
				return "", err
			}
			lines = append(lines, "- "+line)
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}

	prompt, _, err := em.blocks(n.Prompt, st, "\n\n")
	if err != nil {
		return "", err
	}
	if prompt != "" {
		parts = append(parts, wrapTag("prompt", nil, prompt))
	}
	if n.Output != "" {
		em.use(n.Output)
		parts = append(parts, "Save the agent's response to $"+n.Output+".")
	}
	return wrapTag("spawn-agent", attrs, strings.Join(parts, "\n\n")), nil
}

func (em *emitter) userPrompt(n *ir.UserPrompt) string {
	var attrs []ir.Attr
	if n.Header != "" {
		attrs = append(attrs, ir.Attr{Name: "header", Value: n.Header})
	}
	if n.MultiSelect {
		attrs = append(attrs, ir.Attr{Name: "multi-select", Value: "true"})
	}

	parts := []string{"Use the AskUserQuestion tool to ask: " + n.Question}
	if len(n.Options) > 0 {
		lines := []string{"Options:"}
		for _, o := range n.Options {
			lines = append(lines, "- "+withDescription(o.Label, o.Description))
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}
	if n.Output != "" {
		em.use(n.Output)
		parts = append(parts, "Save the answer to $"+n.Output+".")
	}
	return wrapTag("ask-user", attrs, strings.Join(parts, "\n\n"))
}

func withDescription(label, desc string) string {
	if desc == "" {
		return label
	}
	return label + ": " + desc
}

// callArgs renders the argument literal of a runtime call and the variables
// it reads. Without references it is a quoted canonical JSON object; with
// references jq builds the object at run time.
func callArgs(rc *ir.RuntimeCall) (string, []string, error) {
	hasRef := slices.ContainsFunc(rc.Args, func(a ir.Arg) bool { return a.Ref != nil })
	if !hasRef {
		obj := make(ir.Object, len(rc.Args))
		for _, a := range rc.Args {
			obj[a.Name] = a.Literal
		}
		data, err := ir.MarshalCanonical(obj)
		if err != nil {
			return "", nil, fmt.Errorf("runtime call %s: %w", rc.Function, err)
		}
		return cond.ShellQuote(string(data)), nil, nil
	}

	var vars []string
	fields := make([]string, 0, len(rc.Args))
	for _, a := range rc.Args {
		key, err := ir.MarshalCanonical(ir.String(a.Name))
		if err != nil {
			return "", nil, err
		}
		if a.Ref != nil {
			fields = append(fields, string(key)+": "+a.Ref.Expr())
			vars = append(vars, a.Ref.Var)
			continue
		}
		data, err := ir.MarshalCanonical(a.Literal)
		if err != nil {
			return "", nil, fmt.Errorf("runtime call %s: %w", rc.Function, err)
		}
		fields = append(fields, string(key)+": "+string(data))
	}
	slices.Sort(vars)
	vars = slices.Compact(vars)
	prog := "{" + strings.Join(fields, ", ") + "}"
	return `"$(jq -n -c` + cond.ArgJSON(vars) + " " + cond.ShellQuote(prog) + `)"`, vars, nil
}

// Requests lists the runtime calls of doc, in document order, as they are
// handed to the bundler.
func Requests(doc *ir.Document) ([]ir.RuntimeCallRequest, error) {
	var reqs []ir.RuntimeCallRequest
	for _, rc := range doc.RuntimeCalls() {
		args, _, err := callArgs(rc)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, ir.RuntimeCallRequest{
			Function: rc.Function,
			Args:     args,
			Output:   rc.Output,
			Source:   doc.Source,
		})
	}
	return reqs, nil
}

// runtimeCall renders NAME=$(node <runtime> <fn> <args>). The function must
// have been bundled.
func (em *emitter) runtimeCall(rc *ir.RuntimeCall) (string, error) {
	if !em.bundled[rc.Function] {
		return "", fmt.Errorf("%w: %s", ErrNotBundled, rc.Function)
	}
	args, vars, err := callArgs(rc)
	if err != nil {
		return "", err
	}
	for _, v := range vars {
		em.use(v)
	}
	em.use(rc.Output)
	return fenced("bash", fmt.Sprintf("%s=$(node %s %s %s)", rc.Output, em.opts.RuntimePath, rc.Function, args)), nil
}
