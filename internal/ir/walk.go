package ir

// Children returns the direct child nodes of n in render order.
// Conditions of If, Loop and Choice are included before their bodies.
func Children(n Node) []Node {
	var out []Node
	addBlocks := func(bs []Block) {
		for _, b := range bs {
			out = append(out, b)
		}
	}
	addInlines := func(is []Inline) {
		for _, in := range is {
			out = append(out, in)
		}
	}

	switch v := n.(type) {
	case *Heading:
		addInlines(v.Content)
	case *Paragraph:
		addInlines(v.Content)
	case *List:
		for _, it := range v.Items {
			out = append(out, it)
		}
	case *ListItem:
		addBlocks(v.Children)
	case *Blockquote:
		addBlocks(v.Children)
	case *Table:
		for _, c := range v.Headers {
			addInlines(c)
		}
		for _, row := range v.Rows {
			for _, c := range row {
				addInlines(c)
			}
		}
	case *TaggedBlock:
		addBlocks(v.Children)
	case *Section:
		addInlines(v.Title)
		addBlocks(v.Children)
	case *Step:
		addBlocks(v.Children)
	case *If:
		out = append(out, v.Test)
		addBlocks(v.Then)
		addBlocks(v.Else)
	case *Loop:
		addBlocks(v.Children)
	case *StatusBranch:
		addBlocks(v.Children)
	case *AgentSpawn:
		addBlocks(v.Prompt)
	case *Bold:
		addInlines(v.Content)
	case *Italic:
		addInlines(v.Content)
	case *Link:
		addInlines(v.Content)
	case *Choice:
		out = append(out, v.Test)
	case *Not:
		out = append(out, v.X)
	case *And:
		for _, t := range v.Terms {
			out = append(out, t)
		}
	case *Or:
		for _, t := range v.Terms {
			out = append(out, t)
		}
	case *Compare:
		out = append(out, v.X, v.Y)
	}
	return out
}

// Walk visits n and its descendants depth first. If fn returns false the
// children of that node are skipped.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}

// Refs returns every runtime reference held directly by n (not its
// descendants).
func Refs(n Node) []Ref {
	switch v := n.(type) {
	case *Assign:
		if v.Ref != nil {
			return []Ref{*v.Ref}
		}
	case *Loop:
		if v.Max.Ref != nil {
			return []Ref{*v.Max.Ref}
		}
	case *VarRef:
		return []Ref{v.Ref}
	case *CondRef:
		return []Ref{v.Ref}
	case *AgentSpawn:
		refs := argRefs(v.Input)
		if v.InputRef != nil {
			refs = append(refs, *v.InputRef)
		}
		return refs
	case *RuntimeCall:
		return argRefs(v.Args)
	}
	return nil
}

func argRefs(args []Arg) []Ref {
	var refs []Ref
	for _, a := range args {
		if a.Ref != nil {
			refs = append(refs, *a.Ref)
		}
	}
	return refs
}
