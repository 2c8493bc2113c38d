package emit

import (
	"fmt"
	"strings"

	"github.com/roach88/promptc/internal/cond"
	"github.com/roach88/promptc/internal/ir"
)

// inlines renders inline content on one logical line.
func (em *emitter) inlines(in []ir.Inline) (string, error) {
	var b strings.Builder
	for _, n := range in {
		text, err := em.inline(n)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

func (em *emitter) inline(n ir.Inline) (string, error) {
	switch v := n.(type) {
	case *ir.Text:
		return v.Value, nil
	case *ir.Bold:
		text, err := em.inlines(v.Content)
		return "**" + text + "**", err
	case *ir.Italic:
		text, err := em.inlines(v.Content)
		return "*" + text + "*", err
	case *ir.InlineCode:
		return codeSpan(v.Value), nil
	case *ir.Link:
		text, err := em.inlines(v.Content)
		return "[" + text + "](" + v.Href + ")", err
	case *ir.LineBreak:
		return "  \n", nil
	case *ir.VarRef:
		return em.useRef(v.Ref), nil
	case *ir.Choice:
		em.useCondition(v.Test)
		return cond.ChoiceShell(v)
	}
	return "", fmt.Errorf("emit: unsupported inline kind %q", n.Kind())
}

// codeSpan wraps s in enough backticks that none inside close it early.
func codeSpan(s string) string {
	fence := "`"
	for strings.Contains(s, fence) {
		fence += "`"
	}
	if len(fence) > 1 || strings.HasPrefix(s, "`") || strings.HasSuffix(s, "`") {
		return fence + " " + s + " " + fence
	}
	return fence + s + fence
}
