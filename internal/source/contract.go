package source

import (
	"path"
	"slices"

	"github.com/roach88/promptc/internal/ir"
)

// ResolveContract resolves a type reference written in file to an Interface
// Contract. Named types are looked up through imports; interfaces merge the
// properties of their bases first. Object literal types, intersections,
// unions and the Partial, Required, Pick and Omit utilities are understood.
// ok is false when the type cannot be resolved to an object shape.
func (p *Program) ResolveContract(file string, ref *TypeRef) (*ir.Contract, bool) {
	r := &contractResolver{prog: p, visiting: make(map[string]bool)}
	fields, ok := r.resolve(path.Clean(file), ref)
	if !ok {
		return nil, false
	}
	name := ref.Name
	if ref.Kind != TypeNamed {
		name = ref.Text
	}
	c := &ir.Contract{Name: name, Fields: fields}
	if f, err := p.Load(file); err == nil {
		c.Pos = f.PosOf(ref)
	}
	return c, true
}

type contractResolver struct {
	prog     *Program
	visiting map[string]bool
}

func (r *contractResolver) resolve(file string, ref *TypeRef) ([]ir.ContractField, bool) {
	if ref == nil {
		return nil, false
	}
	switch ref.Kind {
	case TypeObject:
		return membersToFields(ref.Members), true

	case TypeIntersection:
		var out []ir.ContractField
		for _, part := range ref.Parts {
			fields, ok := r.resolve(file, part)
			if !ok {
				return nil, false
			}
			out = mergeFields(out, fields)
		}
		return out, true

	case TypeUnion:
		return r.resolveUnion(file, ref.Parts)

	case TypeNamed:
		return r.resolveNamed(file, ref)
	}
	return nil, false
}

// resolveUnion keeps every property of every member; a property is required
// only when each member requires it.
func (r *contractResolver) resolveUnion(file string, parts []*TypeRef) ([]ir.ContractField, bool) {
	var all [][]ir.ContractField
	for _, part := range parts {
		if part.Kind == TypeNamed && (part.Name == "undefined" || part.Name == "null") {
			continue
		}
		fields, ok := r.resolve(file, part)
		if !ok {
			return nil, false
		}
		all = append(all, fields)
	}
	if len(all) == 0 {
		return nil, false
	}

	var out []ir.ContractField
	for _, fields := range all {
		for _, f := range fields {
			if slices.ContainsFunc(out, func(o ir.ContractField) bool { return o.Name == f.Name }) {
				continue
			}
			f.Required = requiredInAll(all, f.Name)
			out = append(out, f)
		}
	}
	return out, true
}

func requiredInAll(all [][]ir.ContractField, name string) bool {
	for _, fields := range all {
		i := slices.IndexFunc(fields, func(f ir.ContractField) bool { return f.Name == name })
		if i < 0 || !fields[i].Required {
			return false
		}
	}
	return true
}

func (r *contractResolver) resolveNamed(file string, ref *TypeRef) ([]ir.ContractField, bool) {
	switch ref.Name {
	case "Partial", "Required", "Readonly":
		if len(ref.Args) != 1 {
			return nil, false
		}
		fields, ok := r.resolve(file, ref.Args[0])
		if !ok || ref.Name == "Readonly" {
			return fields, ok
		}
		for i := range fields {
			fields[i].Required = ref.Name == "Required"
		}
		return fields, true

	case "Pick", "Omit":
		if len(ref.Args) != 2 {
			return nil, false
		}
		fields, ok := r.resolve(file, ref.Args[0])
		if !ok {
			return nil, false
		}
		keys := literalKeys(ref.Args[1])
		keep := ref.Name == "Pick"
		return slices.DeleteFunc(fields, func(f ir.ContractField) bool {
			return slices.Contains(keys, f.Name) != keep
		}), true
	}

	key := file + "#" + ref.Name
	if r.visiting[key] {
		return nil, false
	}
	r.visiting[key] = true
	defer delete(r.visiting, key)

	b, ok := r.prog.Lookup(file, ref.Name)
	if !ok {
		return nil, false
	}
	switch d := b.Decl.(type) {
	case *InterfaceDecl:
		var out []ir.ContractField
		for _, base := range d.Extends {
			fields, ok := r.resolve(b.File.Path, base)
			if !ok {
				return nil, false
			}
			out = mergeFields(out, fields)
		}
		return mergeFields(out, membersToFields(d.Fields)), true
	case *TypeAlias:
		return r.resolve(b.File.Path, d.Type)
	}
	return nil, false
}

// literalKeys extracts "a" | "b" string literal keys.
func literalKeys(t *TypeRef) []string {
	var parts []*TypeRef
	if t.Kind == TypeUnion {
		parts = t.Parts
	} else {
		parts = []*TypeRef{t}
	}
	var keys []string
	for _, p := range parts {
		if p.Kind == TypeLiteral && len(p.Text) >= 2 {
			keys = append(keys, p.Text[1:len(p.Text)-1])
		}
	}
	return keys
}

func membersToFields(members []*Field) []ir.ContractField {
	out := make([]ir.ContractField, 0, len(members))
	for _, m := range members {
		f := ir.ContractField{Name: m.Name, Required: !m.Optional}
		if m.Type != nil {
			f.Type = m.Type.Text
		}
		out = append(out, f)
	}
	return out
}

// mergeFields appends extra to base. A property redeclared in extra replaces
// the base declaration in place.
func mergeFields(base, extra []ir.ContractField) []ir.ContractField {
	out := slices.Clone(base)
	for _, f := range extra {
		if i := slices.IndexFunc(out, func(o ir.ContractField) bool { return o.Name == f.Name }); i >= 0 {
			out[i] = f
			continue
		}
		out = append(out, f)
	}
	return out
}
