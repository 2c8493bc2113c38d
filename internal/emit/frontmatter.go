package emit

import (
	"bytes"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/roach88/promptc/internal/ir"
)

// frontMatter renders entries as a YAML block between --- fences. Keys keep
// entry order; nested object keys are sorted.
func frontMatter(entries []ir.FrontMatterEntry) (string, error) {
	if len(entries) == 0 {
		return "---\n---", nil
	}
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range entries {
		root.Content = append(root.Content, scalar(e.Key), valueNode(e.Value))
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return "", fmt.Errorf("encode front-matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encode front-matter: %w", err)
	}
	return "---\n" + buf.String() + "---", nil
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func valueNode(v ir.Value) *yaml.Node {
	switch val := v.(type) {
	case ir.String:
		return scalar(string(val))
	case ir.Int:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(int64(val), 10)}
	case ir.Bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(bool(val))}
	case ir.Array:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range val {
			n.Content = append(n.Content, valueNode(item))
		}
		return n
	case ir.Object:
		n := &yaml.Node{Kind: yaml.MappingNode}
		for _, k := range val.SortedKeys() {
			n.Content = append(n.Content, scalar(k), valueNode(val[k]))
		}
		return n
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}
