package emit

import (
	"fmt"
	"strings"

	"github.com/roach88/promptc/internal/ir"
)

// blocks renders bs in order, joined by sep, threading st through each.
func (em *emitter) blocks(bs []ir.Block, st state, sep string) (string, state, error) {
	parts := make([]string, 0, len(bs))
	for _, b := range bs {
		text, next, err := em.block(b, st)
		if err != nil {
			return "", st, err
		}
		st = next
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, sep), st, nil
}

// block renders one block node. The switch is exhaustive over block kinds.
func (em *emitter) block(b ir.Block, st state) (string, state, error) {
	switch n := b.(type) {
	case *ir.Heading:
		text, err := em.inlines(n.Content)
		return heading(n.Level+st.offset, text), st, err
	case *ir.Paragraph:
		text, err := em.inlines(n.Content)
		return text, st, err
	case *ir.List:
		text, err := em.list(n, st)
		return text, st, err
	case *ir.ListItem:
		return em.listItem(n, st)
	case *ir.CodeBlock:
		return fenced(n.Language, n.Code), st, nil
	case *ir.Blockquote:
		text, _, err := em.blocks(n.Children, st, "\n\n")
		return prefixLines(text, "> ", ">"), st, err
	case *ir.Table:
		text, err := em.table(n)
		return text, st, err
	case *ir.ThematicBreak:
		return "---", st, nil
	case *ir.TaggedBlock:
		text, _, err := em.blocks(n.Children, st, "\n\n")
		return wrapTag(n.Name, n.Attrs, text), st, err
	case *ir.Section:
		text, err := em.section(n.Title, n.Children, st)
		return text, st, err
	case *ir.RawMarkdown:
		return strings.TrimRight(n.Text, "\n"), st, nil
	case *ir.Step:
		title := fmt.Sprintf("Step %d", n.Number)
		if n.Name != "" {
			title += ": " + n.Name
		}
		text, err := em.section([]ir.Inline{&ir.Text{Value: title}}, n.Children, st)
		return text, st, err
	case *ir.Assign:
		text, err := em.assign(n)
		return text, st, err
	case *ir.If:
		text, err := em.ifBlock(n, st)
		return text, st, err
	case *ir.Loop:
		text, err := em.loop(n, st)
		return text, st, err
	case *ir.Break:
		return withMessage("**Exit the loop.**", n.Message), st, nil
	case *ir.Return:
		return em.returnBlock(n), st, nil
	case *ir.StatusBranch:
		text, err := em.statusBranch(n, st)
		return text, st, err
	case *ir.AgentSpawn:
		text, err := em.agentSpawn(n, st)
		return text, st, err
	case *ir.UserPrompt:
		return em.userPrompt(n), st, nil
	case *ir.RuntimeCall:
		text, err := em.runtimeCall(n)
		return text, st, err
	}
	return "", st, fmt.Errorf("emit: unsupported block kind %q", b.Kind())
}

func heading(level int, text string) string {
	level = max(1, min(level, 6))
	return strings.Repeat("#", level) + " " + text
}

// section renders title one level below the enclosing section and shifts
// every heading inside by one. An untitled section only shifts.
func (em *emitter) section(title []ir.Inline, children []ir.Block, st state) (string, error) {
	head, err := em.inlines(title)
	if err != nil {
		return "", err
	}
	body, _, err := em.blocks(children, st.nested(), "\n\n")
	if err != nil {
		return "", err
	}
	if head == "" {
		return body, nil
	}
	out := heading(st.offset+2, head)
	if body != "" {
		out += "\n\n" + body
	}
	return out, nil
}

// list opens a frame and renders each item against it. Items are tight:
// separated by a single newline.
func (em *emitter) list(n *ir.List, st state) (string, error) {
	start := n.Start
	if start == 0 {
		start = 1
	}
	inner := st.push(listFrame{ordered: n.Ordered, next: start})
	items := make([]string, 0, len(n.Items))
	for _, it := range n.Items {
		text, next, err := em.listItem(it, inner)
		if err != nil {
			return "", err
		}
		inner = next
		items = append(items, text)
	}
	return strings.Join(items, "\n"), nil
}

// listItem renders one item with the marker of the innermost open list and
// advances its counter. Continuation lines are indented by exactly the
// marker width; nested lists add their own unit when they render.
func (em *emitter) listItem(n *ir.ListItem, st state) (string, state, error) {
	if len(st.lists) == 0 {
		st = st.push(listFrame{})
	}
	frame := st.lists[len(st.lists)-1]
	marker := "- "
	if frame.ordered {
		marker = fmt.Sprintf("%d. ", frame.next)
	}

	body, err := em.itemBody(n.Children, st)
	if err != nil {
		return "", st, err
	}

	if body == "" {
		return strings.TrimRight(marker, " "), st.advance(), nil
	}
	return marker + indentRest(body, strings.Repeat(" ", len(marker))), st.advance(), nil
}

// itemBody separates the blocks of one item with a blank line so they stay
// distinct paragraphs. A nested list follows its lead-in directly, which
// keeps the list tight.
func (em *emitter) itemBody(children []ir.Block, st state) (string, error) {
	var sb strings.Builder
	for _, c := range children {
		text, next, err := em.block(c, st)
		if err != nil {
			return "", err
		}
		st = next
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			if _, isList := c.(*ir.List); isList {
				sb.WriteString("\n")
			} else {
				sb.WriteString("\n\n")
			}
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

// indentRest indents every non-empty line after the first.
func indentRest(text, pad string) string {
	lines := strings.Split(text, "\n")
	for i := 1; i < len(lines); i++ {
		if lines[i] != "" {
			lines[i] = pad + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

// prefixLines prefixes every line, using empty for blank ones.
func prefixLines(text, prefix, empty string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l == "" {
			lines[i] = empty
		} else {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

// fenced renders a code fence longer than any backtick run in code.
func fenced(lang, code string) string {
	fence := "```"
	for strings.Contains(code, fence) {
		fence += "`"
	}
	code = strings.TrimRight(code, "\n")
	return fence + lang + "\n" + code + "\n" + fence
}

func wrapTag(name string, attrs []ir.Attr, body string) string {
	var open strings.Builder
	open.WriteString("<" + name)
	for _, a := range attrs {
		fmt.Fprintf(&open, " %s=\"%s\"", a.Name, attrEscaper.Replace(a.Value))
	}
	open.WriteString(">")
	if body == "" {
		return open.String() + "\n</" + name + ">"
	}
	return open.String() + "\n" + body + "\n</" + name + ">"
}

var attrEscaper = strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", "<", "&lt;")

var alignRules = map[ir.Align]string{
	ir.AlignNone:   "---",
	ir.AlignLeft:   ":---",
	ir.AlignCenter: ":---:",
	ir.AlignRight:  "---:",
}

func (em *emitter) table(n *ir.Table) (string, error) {
	cols := len(n.Headers)
	for _, r := range n.Rows {
		cols = max(cols, len(r))
	}
	if cols == 0 {
		return "", nil
	}
	row := func(cells []ir.Cell) (string, error) {
		out := make([]string, cols)
		for i := range out {
			if i < len(cells) {
				text, err := em.inlines(cells[i])
				if err != nil {
					return "", err
				}
				out[i] = cellEscaper.Replace(text)
			}
		}
		return "| " + strings.Join(out, " | ") + " |", nil
	}

	lines := make([]string, 0, len(n.Rows)+2)
	head, err := row(n.Headers)
	if err != nil {
		return "", err
	}
	lines = append(lines, head)
	rules := make([]string, cols)
	for i := range rules {
		var a ir.Align
		if i < len(n.Align) {
			a = n.Align[i]
		}
		rules[i] = alignRules[a]
	}
	lines = append(lines, "| "+strings.Join(rules, " | ")+" |")
	for _, r := range n.Rows {
		line, err := row(r)
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\n", " ")

func withMessage(lead, msg string) string {
	if msg == "" {
		return lead
	}
	return lead + " " + msg
}
