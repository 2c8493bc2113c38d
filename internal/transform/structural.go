package transform

import (
	"regexp"
	"strings"

	"github.com/roach88/promptc/internal/cond"
	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/source"
)

// handler transforms one built-in element into b.
type handler func(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error

// handlers is the closed dispatch table of built-in elements.
var handlers map[string]handler

// semanticTags maps wrapper elements to their tagged-block names.
var semanticTags = map[string]string{
	"Role":            "role",
	"Objective":       "objective",
	"Context":         "context",
	"Process":         "process",
	"Constraints":     "constraints",
	"SuccessCriteria": "success-criteria",
}

func init() {
	handlers = map[string]handler{
		"Command": rootOnly,
		"Agent":   rootOnly,

		"H1": heading(1), "H2": heading(2), "H3": heading(3),
		"H4": heading(4), "H5": heading(5), "H6": heading(6),
		"P":          paragraph,
		"Bold":       bold,
		"B":          bold,
		"Italic":     italic,
		"I":          italic,
		"Code":       inlineCode,
		"Link":       link,
		"Br":         lineBreak,
		"Hr":         thematicBreak,
		"List":       list,
		"Item":       listItem,
		"Table":      table,
		"CodeBlock":  codeBlock,
		"Blockquote": blockquote,
		"XmlBlock":   xmlBlock,
		"Section":    section,
		"Step":       step,
		"Markdown":   markdown,

		"Assign":   assign,
		"If":       ifOnly,
		"Else":     elseOnly,
		"Loop":     loop,
		"Break":    breakElement,
		"Return":   returnElement,
		"OnStatus": onStatus,

		"SpawnAgent":  spawnAgent,
		"AskUser":     askUser,
		"RuntimeCall": runtimeCall,
	}
	for name, tag := range semanticTags {
		handlers[name] = tagged(tag)
	}
}

func rootOnly(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	return ir.Errorf(ir.ErrStructuralViolation, ctx.File.PosOf(el),
		"<%s> must be the root element of the document", el.Name)
}

func heading(level int) handler {
	return func(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
		content, err := s.inlineContent(ctx, el)
		if err != nil {
			return err
		}
		b.block(&ir.Heading{Level: level, Content: content})
		return nil
	}
}

// paragraph always produces its own paragraph; it never merges into open
// inline content around it.
func paragraph(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	content, err := s.inlineContent(ctx, el)
	if err != nil {
		return err
	}
	if len(content) > 0 {
		b.block(&ir.Paragraph{Content: content})
	}
	b.close()
	return nil
}

func bold(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	content, err := s.inlineContent(ctx, el)
	if err != nil {
		return err
	}
	b.inline(&ir.Bold{Content: content})
	return nil
}

func italic(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	content, err := s.inlineContent(ctx, el)
	if err != nil {
		return err
	}
	b.inline(&ir.Italic{Content: content})
	return nil
}

func inlineCode(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	content, err := s.inlineContent(ctx, el)
	if err != nil {
		return err
	}
	var sb strings.Builder
	for _, in := range content {
		t, ok := in.(*ir.Text)
		if !ok {
			return ir.Errorf(ir.ErrStructuralViolation, ctx.File.PosOf(el),
				"<Code> accepts text only")
		}
		sb.WriteString(t.Value)
	}
	b.inline(&ir.InlineCode{Value: sb.String()})
	return nil
}

func link(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	href, err := requiredString(ctx, el, "href")
	if err != nil {
		return err
	}
	content, err := s.inlineContent(ctx, el)
	if err != nil {
		return err
	}
	if len(content) == 0 {
		content = []ir.Inline{&ir.Text{Value: href}}
	}
	b.inline(&ir.Link{Href: href, Content: content})
	return nil
}

func lineBreak(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	b.inline(&ir.LineBreak{})
	return nil
}

func thematicBreak(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	b.block(&ir.ThematicBreak{})
	return nil
}

func list(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	ordered, err := boolAttr(ctx, el, "ordered")
	if err != nil {
		return err
	}
	start, hasStart, err := intAttr(ctx, el, "start")
	if err != nil {
		return err
	}
	if hasStart && start < 0 {
		return ir.Errorf(ir.ErrStructuralViolation, ctx.File.PosOf(el), "<List> start must not be negative")
	}

	saved := s.inList
	s.inList = true
	blocks, err := s.blocks(ctx, el.Children)
	s.inList = saved
	if err != nil {
		return err
	}

	node := &ir.List{Ordered: ordered, Start: start}
	for _, bl := range blocks {
		item, ok := bl.(*ir.ListItem)
		if !ok {
			return ir.Errorf(ir.ErrStructuralViolation, ctx.File.PosOf(el),
				"<List> accepts only <Item> children, found %s", bl.Kind())
		}
		node.Items = append(node.Items, item)
	}
	b.block(node)
	return nil
}

func listItem(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	if !s.inList {
		return ir.Errorf(ir.ErrStructuralViolation, ctx.File.PosOf(el), "<Item> must be a child of <List>")
	}
	s.inList = false
	children, err := s.blocks(ctx, el.Children)
	s.inList = true
	if err != nil {
		return err
	}
	b.block(&ir.ListItem{Children: children})
	return nil
}

var aligns = map[string]ir.Align{
	"":       ir.AlignNone,
	"left":   ir.AlignLeft,
	"center": ir.AlignCenter,
	"right":  ir.AlignRight,
}

func table(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	pos := ctx.File.PosOf(el)
	node := &ir.Table{}

	if e := attrExpr(el, "headers"); e != nil {
		cells, err := s.cells(ctx, e)
		if err != nil {
			return err
		}
		node.Headers = cells
	}
	if e := attrExpr(el, "rows"); e != nil {
		rows, ok, err := cond.ResolveList(ctx, e)
		if err != nil {
			return err
		}
		if !ok {
			return ir.Unsupported(ctx.File.PosOf(e), ctx.File.Text(e), "rows must be an array literal")
		}
		for _, r := range rows {
			cells, err := s.cells(r.Ctx, r.Expr)
			if err != nil {
				return err
			}
			node.Rows = append(node.Rows, cells)
		}
	}
	if len(node.Headers) == 0 {
		return ir.Errorf(ir.ErrStructuralViolation, pos, "<Table> requires headers")
	}
	for i, row := range node.Rows {
		if len(row) != len(node.Headers) {
			return ir.Errorf(ir.ErrStructuralViolation, pos,
				"<Table> row %d has %d cells, expected %d", i+1, len(row), len(node.Headers))
		}
	}

	if v, ok, err := staticAttr(ctx, el, "align"); err != nil {
		return err
	} else if ok {
		arr, isArr := v.(ir.Array)
		if !isArr || len(arr) > len(node.Headers) {
			return ir.Errorf(ir.ErrStructuralViolation, pos, "<Table> align must list at most one alignment per column")
		}
		for _, a := range arr {
			al, known := aligns[ir.TextOf(a)]
			if !known {
				return ir.Errorf(ir.ErrStructuralViolation, pos, "unknown column alignment %q", ir.TextOf(a))
			}
			node.Align = append(node.Align, al)
		}
	}
	b.block(node)
	return nil
}

// cells resolves an array literal of cell values. A cell is a value or
// inline markup.
func (s *state) cells(ctx cond.Context, e source.Expr) ([]ir.Cell, error) {
	entries, ok, err := cond.ResolveList(ctx, e)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ir.Unsupported(ctx.File.PosOf(e), ctx.File.Text(e), "table cells must be an array literal")
	}
	out := make([]ir.Cell, 0, len(entries))
	for _, entry := range entries {
		cb := &builder{}
		if err := s.expr(entry.Ctx, cb, entry.Expr); err != nil {
			return nil, err
		}
		content, ok := cb.inlines()
		if !ok {
			return nil, ir.Errorf(ir.ErrStructuralViolation, entry.Ctx.File.PosOf(entry.Expr),
				"table cells accept inline content only")
		}
		out = append(out, ir.Cell(content))
	}
	return out, nil
}

func codeBlock(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	lang, err := stringAttr(ctx, el, "language")
	if err != nil {
		return err
	}
	code, err := rawContent(ctx, el)
	if err != nil {
		return err
	}
	b.block(&ir.CodeBlock{Language: lang, Code: code})
	return nil
}

func markdown(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	text, err := rawContent(ctx, el)
	if err != nil {
		return err
	}
	if text != "" {
		b.block(&ir.RawMarkdown{Text: text})
	}
	return nil
}

// rawContent returns the verbatim content of an element: a single string or
// template child, or else the dedented source between its tags.
func rawContent(ctx cond.Context, el *source.JSXElement) (string, error) {
	var exprs []source.Expr
	for _, c := range el.Children {
		if t, ok := c.(*source.JSXText); ok && isBlank(t.Value) {
			continue
		}
		exprs = append(exprs, c)
	}
	if len(exprs) == 1 {
		if c, ok := exprs[0].(*source.JSXExprContainer); ok {
			v, static, err := cond.Static(ctx, c.X)
			if err != nil {
				return "", err
			}
			if !static {
				return "", ir.Unsupported(ctx.File.PosOf(c), ctx.File.Text(c),
					"<"+el.Name+"> content must be known at compile time")
			}
			return strings.Trim(ir.TextOf(v), "\n"), nil
		}
	}
	for _, c := range exprs {
		if _, ok := c.(*source.JSXText); !ok {
			return "", ir.Errorf(ir.ErrStructuralViolation, ctx.File.PosOf(c),
				"<%s> accepts text or a single string expression", el.Name)
		}
	}
	return dedent(ctx.File.Slice(el.Inner)), nil
}

// dedent removes the common leading indentation and surrounding blank lines.
func dedent(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	indent := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	for i, l := range lines {
		if len(l) >= indent && indent > 0 {
			lines[i] = l[indent:]
		} else {
			lines[i] = strings.TrimLeft(l, " \t")
		}
	}
	return strings.Join(lines, "\n")
}

func blockquote(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	children, err := s.blocks(ctx, el.Children)
	if err != nil {
		return err
	}
	b.block(&ir.Blockquote{Children: children})
	return nil
}

var tagName = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

func xmlBlock(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	name, err := requiredString(ctx, el, "name")
	if err != nil {
		return err
	}
	if !tagName.MatchString(name) {
		return ir.Errorf(ir.ErrStructuralViolation, ctx.File.PosOf(el),
			"<XmlBlock> name %q must be lowercase and hyphenated", name)
	}
	return taggedBlock(s, ctx, el, b, name)
}

func tagged(name string) handler {
	return func(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
		return taggedBlock(s, ctx, el, b, name)
	}
}

func taggedBlock(s *state, ctx cond.Context, el *source.JSXElement, b *builder, name string) error {
	children, err := s.blocks(ctx, el.Children)
	if err != nil {
		return err
	}
	b.block(&ir.TaggedBlock{Name: name, Children: children})
	return nil
}

func section(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	node := &ir.Section{}
	if e := attrExpr(el, "title"); e != nil {
		tb := &builder{}
		if err := s.expr(ctx, tb, e); err != nil {
			return err
		}
		title, ok := tb.inlines()
		if !ok {
			return ir.Errorf(ir.ErrStructuralViolation, ctx.File.PosOf(e), "<Section> title must be inline content")
		}
		node.Title = title
	}
	children, err := s.blocks(ctx, el.Children)
	if err != nil {
		return err
	}
	node.Children = children
	b.block(node)
	return nil
}

// step numbers itself after the previous step of the document when no
// number is given.
func step(s *state, ctx cond.Context, el *source.JSXElement, b *builder) error {
	n, ok, err := intAttr(ctx, el, "number")
	if err != nil {
		return err
	}
	if !ok {
		n = s.steps + 1
	}
	if n <= 0 {
		return ir.Errorf(ir.ErrStructuralViolation, ctx.File.PosOf(el), "<Step> number must be positive, got %d", n)
	}
	s.steps = n
	name, err := stringAttr(ctx, el, "name")
	if err != nil {
		return err
	}
	children, err := s.blocks(ctx, el.Children)
	if err != nil {
		return err
	}
	b.block(&ir.Step{Number: n, Name: name, Children: children})
	return nil
}
