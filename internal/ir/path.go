package ir

import (
	"strconv"
	"strings"
)

// Segment is one step of an Expression Path: a field name, or a
// non-negative numeric index when Index is true.
type Segment struct {
	Value string
	Index bool
}

// Field returns a field-name segment.
func Field(name string) Segment {
	return Segment{Value: name}
}

// Index returns a numeric index segment. Negative indices are invalid and
// must be rejected before construction.
func Index(n int) Segment {
	return Segment{Value: strconv.Itoa(n), Index: true}
}

// IsValidIndex reports whether s is a non-negative base-10 integer.
func IsValidIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Path is an ordered list of segments describing how to read a value from a
// runtime JSON object.
type Path []Segment

// Append returns a new path with segs appended. The receiver is not modified.
func (p Path) Append(segs ...Segment) Path {
	out := make(Path, 0, len(p)+len(segs))
	out = append(out, p...)
	return append(out, segs...)
}

// Fragment renders the jq query fragment of the path relative to the value
// root, e.g. ".items[0].name". An empty path renders ".".
func (p Path) Fragment() string {
	return p.Render("")
}

// Render folds the segments onto root. Field segments append ".name" (or
// ."quoted" for non-identifiers); index segments append "[n]" directly to
// the accumulated text, never after a separator. With an empty root a
// leading index renders ".[n]" and an empty path renders ".".
//
// Folding matters: joining segments with "." and patching brackets in
// afterwards yields ".items.[0]", which jq rejects.
func (p Path) Render(root string) string {
	acc := root
	for _, seg := range p {
		if seg.Index {
			if acc == "" {
				acc = "."
			}
			acc += "[" + seg.Value + "]"
			continue
		}
		acc += "." + fieldText(seg.Value)
	}
	if acc == "" {
		return "."
	}
	return acc
}

func fieldText(name string) string {
	if isIdentifier(name) {
		return name
	}
	return strconv.Quote(name)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// Ref names a runtime variable and a path into its JSON value.
type Ref struct {
	Var  string // runtime name, e.g. "CTX"
	Path Path
}

// Expr renders the reference as a jq expression over a variable bound with
// --argjson, e.g. "$CTX.items[0]". The same text is the documentation form.
func (r Ref) Expr() string {
	return r.Path.Render("$" + r.Var)
}

// String returns the documentation form.
func (r Ref) String() string {
	return r.Expr()
}

// Root returns the reference without its path.
func (r Ref) Root() Ref {
	return Ref{Var: r.Var}
}

// SegmentsString renders the path segments for diagnostics, e.g. "items.0".
func (p Path) SegmentsString() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.Value
	}
	return strings.Join(parts, ".")
}
