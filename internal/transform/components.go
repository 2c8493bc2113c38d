package transform

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/promptc/internal/cond"
	"github.com/roach88/promptc/internal/decl"
	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/source"
)

// lookupComponent resolves the tag of el to a local component declared in
// the document or imported from a relative module.
func (s *state) lookupComponent(ctx cond.Context, el *source.JSXElement) (*decl.Record, bool, error) {
	name := el.Name
	if rec, ok := ctx.Scope.LookupKind(decl.KindComponent, name); ok {
		return rec, true, nil
	}
	if binder := ctx.Scope.Binder(name); binder != nil && binder.Parent == nil {
		if imp, imported, ok := ctx.File.ImportOf(name); ok && source.IsRelative(imp.Path) {
			return s.importedComponent(ctx, el, imported)
		}
	}
	return nil, false, nil
}

func (s *state) importedComponent(ctx cond.Context, el *source.JSXElement, imported string) (*decl.Record, bool, error) {
	if s.t.opts.Components == nil {
		return nil, false, nil
	}
	binding, ok := s.t.opts.Components.Lookup(ctx.File.Path, el.Name)
	if !ok {
		return nil, false, ir.Errorf(ir.ErrUnresolvedReference, ctx.File.Pos(el.NameSp.Start),
			"cannot resolve imported component %q", imported)
	}
	v, ok := binding.Decl.(*source.VarDecl)
	if !ok {
		return nil, false, nil
	}
	rec, ok := s.tableOf(binding.File).Module.LookupKind(decl.KindComponent, v.Name)
	return rec, ok, nil
}

// expand inlines a local component: its props are bound to the caller's
// attribute expressions and its result is transformed in its own scope.
func (s *state) expand(ctx cond.Context, b *builder, el *source.JSXElement, rec *decl.Record) error {
	pos := ctx.File.PosOf(el)
	if len(s.expanding) >= s.t.opts.MaxExpansionDepth {
		return ir.Errorf(ir.ErrStructuralViolation, pos,
			"component expansion deeper than %d: %s", s.t.opts.MaxExpansionDepth,
			strings.Join(append(s.expanding, rec.Name), " → "))
	}
	if rec.Component == nil {
		return ir.Errorf(ir.ErrStructuralViolation, pos,
			"component %s must be defined with an arrow function", rec.Name)
	}
	if rec.Type != nil {
		if err := s.checkProps(ctx, el, rec); err != nil {
			return err
		}
	}

	env, err := bindProps(ctx, el, rec)
	if err != nil {
		return err
	}
	inner := cond.Context{
		File:  rec.File,
		Scope: s.tableOf(rec.File).Scope(rec.Component),
		Env:   env,
	}
	result := rec.Component.Result()
	if result == nil {
		return nil
	}

	s.expanding = append(s.expanding, rec.Name)
	defer func() { s.expanding = s.expanding[:len(s.expanding)-1] }()
	return s.expr(inner, b, result)
}

// checkProps validates the attributes of a typed component invocation
// against its props contract and reports every missing property at once.
func (s *state) checkProps(ctx cond.Context, el *source.JSXElement, rec *decl.Record) error {
	c, err := s.contract(rec.File, rec.Type)
	if err != nil {
		return err
	}
	supplied := make(map[string]bool)
	for _, a := range el.Attrs {
		if !a.Spread {
			supplied[a.Name] = true
			continue
		}
		entries, ok, err := cond.ResolveObject(ctx, a.Value)
		if err != nil {
			return err
		}
		if !ok {
			return ir.Unsupported(ctx.File.PosOf(a), ctx.File.Text(a),
				"spread props must be an object literal to be checked")
		}
		for _, e := range entries {
			supplied[e.Key] = true
		}
	}
	if hasContent(el.Children) {
		supplied["children"] = true
	}
	if missing := c.Missing(supplied); len(missing) > 0 {
		return ir.ContractViolation(ctx.File.PosOf(el), "<"+el.Name+">", c.Name, missing)
	}
	return nil
}

func hasContent(children []source.Expr) bool {
	for _, c := range children {
		if t, ok := c.(*source.JSXText); ok && isBlank(t.Value) {
			continue
		}
		return true
	}
	return false
}

// bindProps builds the environment of one expansion. Destructured props bind
// to the caller's attribute, then to the parameter default; an absent prop is
// bound to nothing and reads as null. A plain props parameter binds to an
// object literal of the attributes.
func bindProps(ctx cond.Context, el *source.JSXElement, rec *decl.Record) (*cond.Env, error) {
	env := cond.NewEnv()
	arrow := rec.Component
	if len(arrow.Params) == 0 {
		return env, nil
	}
	param := arrow.Params[0]
	children := &source.JSXFragment{Sp: el.Sp, Children: el.Children}

	attrs := make(map[string]source.Expr)
	props := &source.ObjectLit{Sp: el.Sp}
	for _, a := range el.Attrs {
		if a.Spread {
			entries, ok, err := cond.ResolveObject(ctx, a.Value)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, ir.Unsupported(ctx.File.PosOf(a), ctx.File.Text(a),
					"spread props must be an object literal")
			}
			for _, e := range entries {
				attrs[e.Key] = e.Expr
				props.Props = append(props.Props, &source.Property{Sp: a.Sp, Key: e.Key, Value: e.Expr})
			}
			continue
		}
		attrs[a.Name] = a.Value
		props.Props = append(props.Props, &source.Property{Sp: a.Sp, Key: a.Name, Value: a.Value})
	}

	if param.Pattern == nil {
		props.Props = append(props.Props, &source.Property{Sp: el.Sp, Key: "children", Value: children})
		env.Bind(param.Name, cond.Binding{Expr: props, Ctx: ctx})
		return env, nil
	}

	compCtx := cond.Context{File: rec.File, Scope: rec.Scope}
	for _, pp := range param.Pattern {
		if pp.Rest {
			return nil, ir.Unsupported(ctx.File.PosOf(el), "..."+pp.Local, "rest props are not supported")
		}
		switch {
		case pp.Key == "children":
			env.Bind(pp.Local, cond.Binding{Expr: children, Ctx: ctx})
		case attrs[pp.Key] != nil:
			env.Bind(pp.Local, cond.Binding{Expr: attrs[pp.Key], Ctx: ctx})
		case pp.Default != nil:
			env.Bind(pp.Local, cond.Binding{Expr: pp.Default, Ctx: compCtx})
		default:
			env.Bind(pp.Local, cond.Binding{})
		}
	}
	return env, nil
}

// componentGraph maps a component key to the components its body renders.
type componentGraph map[string][]string

// checkRecursion rejects recursive local components before expansion. It
// builds the render graph of every component reachable from the document and
// runs Tarjan's strongly connected components algorithm over it.
func (s *state) checkRecursion() error {
	graph := make(componentGraph)
	nodes := make(map[string]*decl.Record)

	var visit func(rec *decl.Record) error
	visit = func(rec *decl.Record) error {
		key := componentKey(rec)
		if _, seen := nodes[key]; seen {
			return nil
		}
		ctx := cond.Context{File: rec.File, Scope: s.tableOf(rec.File).Scope(rec.Component)}
		nodes[key] = rec
		graph[key] = []string{}
		if rec.Component == nil {
			return nil
		}
		var deps []*decl.Record
		var walkErr error
		walkJSX(rec.Component.Result(), func(el *source.JSXElement) {
			if walkErr != nil {
				return
			}
			dep, ok, err := s.lookupComponent(ctx, el)
			if err != nil {
				walkErr = err
				return
			}
			if ok {
				deps = append(deps, dep)
			}
		})
		if walkErr != nil {
			return walkErr
		}
		for _, dep := range deps {
			graph[key] = append(graph[key], componentKey(dep))
			if err := visit(dep); err != nil {
				return err
			}
		}
		return nil
	}

	for _, rec := range s.table.Records() {
		if rec.Kind == decl.KindComponent {
			if err := visit(rec); err != nil {
				return err
			}
		}
	}

	for _, scc := range tarjanSCC(graph) {
		if len(scc) == 1 && !hasSelfLoop(scc[0], graph) {
			continue
		}
		path := cyclePath(scc, graph)
		first := nodes[path[0]]
		names := make([]string, len(path))
		for i, k := range path {
			names[i] = nodes[k].Name
		}
		return ir.Errorf(ir.ErrStructuralViolation, first.Pos,
			"recursive component: %s", strings.Join(names, " → "))
	}
	return nil
}

func componentKey(rec *decl.Record) string {
	return fmt.Sprintf("%s#%s@%d:%d", rec.File.Path, rec.Name, rec.Pos.Line, rec.Pos.Column)
}

// walkJSX calls fn for every JSX element in e, including elements nested in
// attributes and arrow bodies.
func walkJSX(e source.Expr, fn func(*source.JSXElement)) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *source.JSXElement:
		fn(n)
		for _, a := range n.Attrs {
			walkJSX(a.Value, fn)
		}
		for _, c := range n.Children {
			walkJSX(c, fn)
		}
	case *source.JSXFragment:
		for _, c := range n.Children {
			walkJSX(c, fn)
		}
	case *source.JSXExprContainer:
		walkJSX(n.X, fn)
	case *source.Paren:
		walkJSX(n.X, fn)
	case *source.Binary:
		walkJSX(n.X, fn)
		walkJSX(n.Y, fn)
	case *source.Conditional:
		walkJSX(n.Then, fn)
		walkJSX(n.Else, fn)
	case *source.ArrayLit:
		for _, x := range n.Elems {
			walkJSX(x, fn)
		}
	case *source.ObjectLit:
		for _, p := range n.Props {
			walkJSX(p.Value, fn)
		}
	case *source.Arrow:
		walkJSX(n.Result(), fn)
	}
}

func hasSelfLoop(node string, graph componentGraph) bool {
	for _, w := range graph[node] {
		if w == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components. Nodes are visited in sorted
// order so the reported cycle is stable.
func tarjanSCC(graph componentGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range slices.Sorted(maps.Keys(graph)) {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// cyclePath walks edges inside an SCC from its smallest member back to it.
func cyclePath(scc []string, graph componentGraph) []string {
	members := make(map[string]bool, len(scc))
	start := scc[0]
	for _, n := range scc {
		members[n] = true
		if n < start {
			start = n
		}
	}
	path := []string{start}
	visited := map[string]bool{start: true}
	for current := start; ; {
		next := ""
		for _, w := range graph[current] {
			if w == start {
				return append(path, start)
			}
			if members[w] && !visited[w] && next == "" {
				next = w
			}
		}
		if next == "" {
			return append(path, start)
		}
		visited[next] = true
		path = append(path, next)
		current = next
	}
}
