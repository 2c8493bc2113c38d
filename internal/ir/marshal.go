package ir

import "fmt"

// MarshalDocument renders a Document as canonical JSON. Every node becomes an
// object with a "kind" field; empty optional fields are omitted so adding a
// field never changes the hash of documents that do not use it.
func MarshalDocument(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("MarshalDocument: nil document")
	}
	return MarshalCanonical(DocumentMap(doc))
}

// DocumentMap converts a Document to plain maps and slices suitable for
// MarshalCanonical.
func DocumentMap(doc *Document) map[string]any {
	m := map[string]any{
		"ir_version": IRVersion,
		"kind":       string(doc.Kind),
		"name":       doc.Name,
		"source":     doc.Source,
		"body":       blocksMap(doc.Body),
	}
	if len(doc.FrontMatter) > 0 {
		fm := make([]any, len(doc.FrontMatter))
		for i, e := range doc.FrontMatter {
			fm[i] = map[string]any{"key": e.Key, "value": valueOrNull(e.Value)}
		}
		m["front_matter"] = fm
	}
	if len(doc.Variables) > 0 {
		vars := make([]any, len(doc.Variables))
		for i, v := range doc.Variables {
			vm := map[string]any{"name": v.Name, "binding": v.Binding, "kind": string(v.Kind)}
			putString(vm, "type", v.Type)
			vars[i] = vm
		}
		m["variables"] = vars
	}
	if doc.Output != nil {
		m["output"] = contractMap(doc.Output)
	}
	return m
}

func contractMap(c *Contract) map[string]any {
	fields := make([]any, len(c.Fields))
	for i, f := range c.Fields {
		fm := map[string]any{"name": f.Name, "required": f.Required}
		putString(fm, "type", f.Type)
		fields[i] = fm
	}
	return map[string]any{"name": c.Name, "fields": fields}
}

func blocksMap(bs []Block) []any {
	out := make([]any, len(bs))
	for i, b := range bs {
		out[i] = NodeMap(b)
	}
	return out
}

func inlinesMap(is []Inline) []any {
	out := make([]any, len(is))
	for i, in := range is {
		out[i] = NodeMap(in)
	}
	return out
}

// NodeMap converts a single node (and its subtree) to plain maps.
func NodeMap(n Node) map[string]any {
	m := map[string]any{"kind": string(n.Kind())}
	switch v := n.(type) {
	case *Heading:
		m["level"] = v.Level
		m["content"] = inlinesMap(v.Content)
	case *Paragraph:
		m["content"] = inlinesMap(v.Content)
	case *List:
		m["ordered"] = v.Ordered
		if v.Start != 0 {
			m["start"] = v.Start
		}
		items := make([]any, len(v.Items))
		for i, it := range v.Items {
			items[i] = NodeMap(it)
		}
		m["items"] = items
	case *ListItem:
		m["children"] = blocksMap(v.Children)
	case *CodeBlock:
		putString(m, "language", v.Language)
		m["code"] = v.Code
	case *Blockquote:
		m["children"] = blocksMap(v.Children)
	case *Table:
		headers := make([]any, len(v.Headers))
		for i, c := range v.Headers {
			headers[i] = inlinesMap(c)
		}
		rows := make([]any, len(v.Rows))
		for i, row := range v.Rows {
			cells := make([]any, len(row))
			for j, c := range row {
				cells[j] = inlinesMap(c)
			}
			rows[i] = cells
		}
		m["headers"] = headers
		m["rows"] = rows
		if len(v.Align) > 0 {
			align := make([]any, len(v.Align))
			for i, a := range v.Align {
				align[i] = string(a)
			}
			m["align"] = align
		}
	case *ThematicBreak, *LineBreak:
	case *TaggedBlock:
		m["name"] = v.Name
		if len(v.Attrs) > 0 {
			attrs := make([]any, len(v.Attrs))
			for i, a := range v.Attrs {
				attrs[i] = map[string]any{"name": a.Name, "value": a.Value}
			}
			m["attrs"] = attrs
		}
		m["children"] = blocksMap(v.Children)
	case *Section:
		m["title"] = inlinesMap(v.Title)
		m["children"] = blocksMap(v.Children)
	case *RawMarkdown:
		m["text"] = v.Text
	case *Step:
		m["number"] = v.Number
		putString(m, "name", v.Name)
		m["children"] = blocksMap(v.Children)
	case *Assign:
		m["var"] = v.Var
		m["source"] = string(v.Source)
		switch v.Source {
		case AssignLiteral:
			m["value"] = valueOrNull(v.Literal)
		case AssignShell:
			m["shell"] = v.Shell
		case AssignRef:
			if v.Ref != nil {
				m["ref"] = v.Ref.Expr()
			}
		}
	case *If:
		m["test"] = NodeMap(v.Test)
		m["then"] = blocksMap(v.Then)
		if v.HasElse {
			m["else"] = blocksMap(v.Else)
		}
	case *Loop:
		if v.Max.Ref != nil {
			m["max"] = v.Max.Ref.Expr()
		} else {
			m["max"] = v.Max.Static
		}
		m["children"] = blocksMap(v.Children)
	case *Break:
		putString(m, "message", v.Message)
	case *Return:
		putString(m, "status", v.Status)
		putString(m, "message", v.Message)
	case *StatusBranch:
		m["output"] = v.Output
		m["status"] = v.Status
		m["children"] = blocksMap(v.Children)
	case *AgentSpawn:
		m["agent"] = v.Agent
		putString(m, "model", v.Model)
		putString(m, "description", v.Description)
		putString(m, "contract", v.Contract)
		if len(v.Input) > 0 {
			m["input"] = argsMap(v.Input)
		}
		if v.InputRef != nil {
			m["input_ref"] = v.InputRef.Expr()
		}
		putString(m, "output", v.Output)
		if len(v.Prompt) > 0 {
			m["prompt"] = blocksMap(v.Prompt)
		}
	case *UserPrompt:
		m["question"] = v.Question
		putString(m, "header", v.Header)
		opts := make([]any, len(v.Options))
		for i, o := range v.Options {
			om := map[string]any{"label": o.Label}
			putString(om, "description", o.Description)
			opts[i] = om
		}
		m["options"] = opts
		m["multi_select"] = v.MultiSelect
		m["output"] = v.Output
	case *RuntimeCall:
		m["function"] = v.Function
		m["args"] = argsMap(v.Args)
		m["output"] = v.Output
	case *Text:
		m["value"] = v.Value
	case *Bold:
		m["content"] = inlinesMap(v.Content)
	case *Italic:
		m["content"] = inlinesMap(v.Content)
	case *InlineCode:
		m["value"] = v.Value
	case *Link:
		m["href"] = v.Href
		m["content"] = inlinesMap(v.Content)
	case *VarRef:
		m["ref"] = v.Ref.Expr()
	case *Choice:
		m["test"] = NodeMap(v.Test)
		m["then"] = v.Then
		m["else"] = v.Else
	case *CondRef:
		m["ref"] = v.Ref.Expr()
	case *CondLiteral:
		m["value"] = valueOrNull(v.Value)
	case *Not:
		m["x"] = NodeMap(v.X)
	case *And:
		m["terms"] = condsMap(v.Terms)
	case *Or:
		m["terms"] = condsMap(v.Terms)
	case *Compare:
		m["x"] = NodeMap(v.X)
		m["y"] = NodeMap(v.Y)
	}
	return m
}

func condsMap(cs []Condition) []any {
	out := make([]any, len(cs))
	for i, c := range cs {
		out[i] = NodeMap(c)
	}
	return out
}

func argsMap(args []Arg) []any {
	out := make([]any, len(args))
	for i, a := range args {
		am := map[string]any{"name": a.Name}
		if a.Ref != nil {
			am["ref"] = a.Ref.Expr()
		} else {
			am["value"] = valueOrNull(a.Literal)
		}
		out[i] = am
	}
	return out
}

func valueOrNull(v Value) Value {
	if v == nil {
		return Null{}
	}
	return v
}

func putString(m map[string]any, key, val string) {
	if val != "" {
		m[key] = val
	}
}
