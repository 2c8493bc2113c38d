package transform

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/roach88/promptc/internal/cond"
	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/source"
)

//go:embed schema/*.json
var schemaFS embed.FS

var compileSchemas = sync.OnceValues(func() (map[ir.DocumentKind]*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	out := make(map[ir.DocumentKind]*jsonschema.Schema)
	for kind := range ir.ValidDocumentKinds {
		name := "schema/" + string(kind) + ".json"
		data, err := schemaFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", name, err)
		}
		if err := c.AddResource(name, doc); err != nil {
			return nil, fmt.Errorf("add schema resource: %w", err)
		}
		sch, err := c.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile schema: %w", err)
		}
		out[kind] = sch
	}
	return out, nil
})

// frontMatter collects the root element's attributes as front-matter entries
// in source order, with camelCase names converted to kebab-case. A
// frontmatter={{...}} attribute contributes its properties verbatim. It also
// returns the document name when one is given.
func (s *state) frontMatter(ctx cond.Context, root *source.JSXElement, kind ir.DocumentKind) ([]ir.FrontMatterEntry, string, error) {
	var entries []ir.FrontMatterEntry
	index := make(map[string]int)
	put := func(key string, v ir.Value) {
		if i, ok := index[key]; ok {
			entries[i].Value = v
			return
		}
		index[key] = len(entries)
		entries = append(entries, ir.FrontMatterEntry{Key: key, Value: v})
	}

	for _, a := range root.Attrs {
		if a.Spread {
			return nil, "", ir.Unsupported(ctx.File.PosOf(a), ctx.File.Text(a), "spread attributes on the root element")
		}
		if a.Name == "frontmatter" {
			entries, ok, err := cond.ResolveObject(ctx, a.Value)
			if err != nil {
				return nil, "", err
			}
			if !ok {
				return nil, "", ir.Unsupported(ctx.File.PosOf(a.Value), ctx.File.Text(a.Value),
					"frontmatter must be an object literal")
			}
			for _, e := range entries {
				v, err := staticValue(e.Ctx, e.Expr)
				if err != nil {
					return nil, "", err
				}
				put(e.Key, v)
			}
			continue
		}
		v, err := staticValue(ctx, a.Value)
		if err != nil {
			return nil, "", err
		}
		put(kebab(a.Name), v)
	}

	if err := validateFrontMatter(kind, entries); err != nil {
		return nil, "", ir.Errorf(ir.ErrStructuralViolation, ctx.File.PosOf(root),
			"invalid %s front-matter: %s", kind, err)
	}

	name := ""
	if i, ok := index["name"]; ok {
		name = ir.TextOf(entries[i].Value)
	}
	return entries, name, nil
}

func staticValue(ctx cond.Context, e source.Expr) (ir.Value, error) {
	v, ok, err := cond.Static(ctx, e)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ir.Unsupported(ctx.File.PosOf(e), ctx.File.Text(e),
			"front-matter values must be known at compile time")
	}
	return v, nil
}

// validateFrontMatter checks entries against the embedded schema of kind.
func validateFrontMatter(kind ir.DocumentKind, entries []ir.FrontMatterEntry) error {
	schemas, err := compileSchemas()
	if err != nil {
		return err
	}
	obj := make(ir.Object, len(entries))
	for _, e := range entries {
		obj[e.Key] = e.Value
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return err
	}
	if err := schemas[kind].Validate(inst); err != nil {
		return flattenSchemaError(err)
	}
	return nil
}

// flattenSchemaError joins a multi-line validation report onto one line.
func flattenSchemaError(err error) error {
	var parts []string
	for _, line := range strings.Split(err.Error(), "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if line == "" || strings.HasPrefix(line, "jsonschema validation failed") {
			continue
		}
		parts = append(parts, line)
	}
	if len(parts) == 0 {
		return err
	}
	return fmt.Errorf("%s", strings.Join(parts, "; "))
}

// kebab converts a camelCase attribute name to a kebab-case key.
func kebab(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
