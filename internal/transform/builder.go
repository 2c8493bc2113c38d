package transform

import (
	"strings"

	"github.com/roach88/promptc/internal/ir"
)

// builder collects the blocks of one container. Inline content from every
// source (JSX text, {expr} children, inline elements, template strings,
// expanded components) goes through inline, which appends to the open
// paragraph or opens one. Any block closes the open paragraph.
type builder struct {
	blocks []ir.Block
	open   *ir.Paragraph
	// explicit is set once any element added a block of its own, an
	// explicit <P> included.
	explicit bool
}

// inline appends content to the open paragraph, opening one if needed.
func (b *builder) inline(content ...ir.Inline) {
	if len(content) == 0 {
		return
	}
	if b.open == nil {
		b.open = &ir.Paragraph{}
		b.blocks = append(b.blocks, b.open)
	}
	b.open.Content = appendInline(b.open.Content, content...)
}

// text is inline for plain prose. Empty text is dropped.
func (b *builder) text(s string) {
	if s == "" {
		return
	}
	b.inline(&ir.Text{Value: s})
}

// block appends a block and closes the open paragraph.
func (b *builder) block(bl ir.Block) {
	b.open = nil
	b.explicit = true
	b.blocks = append(b.blocks, bl)
}

// close ends the open paragraph so the next inline content starts a new one.
func (b *builder) close() {
	b.open = nil
}

// finish trims whitespace at paragraph edges and drops empty paragraphs.
func (b *builder) finish() []ir.Block {
	out := b.blocks[:0:0]
	for _, bl := range b.blocks {
		if p, ok := bl.(*ir.Paragraph); ok {
			p.Content = trimInlines(p.Content)
			if len(p.Content) == 0 {
				continue
			}
		}
		out = append(out, bl)
	}
	return out
}

// inlines returns the content of a container that accepts inline content
// only. ok is false when a block was added, even a paragraph.
func (b *builder) inlines() ([]ir.Inline, bool) {
	if b.explicit {
		return nil, false
	}
	var out []ir.Inline
	for _, bl := range b.blocks {
		out = appendInline(out, bl.(*ir.Paragraph).Content...)
	}
	return trimInlines(out), true
}

// appendInline appends content, merging adjacent text nodes.
func appendInline(dst []ir.Inline, content ...ir.Inline) []ir.Inline {
	for _, in := range content {
		t, isText := in.(*ir.Text)
		if isText && len(dst) > 0 {
			if prev, ok := dst[len(dst)-1].(*ir.Text); ok {
				dst[len(dst)-1] = &ir.Text{Value: prev.Value + t.Value}
				continue
			}
		}
		dst = append(dst, in)
	}
	return dst
}

// trimInlines removes leading and trailing whitespace of the run.
func trimInlines(content []ir.Inline) []ir.Inline {
	for len(content) > 0 {
		t, ok := content[0].(*ir.Text)
		if !ok {
			break
		}
		v := strings.TrimLeft(t.Value, " \t\n")
		if v != "" {
			content[0] = &ir.Text{Value: v}
			break
		}
		content = content[1:]
	}
	for len(content) > 0 {
		last := len(content) - 1
		t, ok := content[last].(*ir.Text)
		if !ok {
			break
		}
		v := strings.TrimRight(t.Value, " \t\n")
		if v != "" {
			content[last] = &ir.Text{Value: v}
			break
		}
		content = content[:last]
	}
	return content
}
