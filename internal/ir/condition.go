package ir

// Condition is a sealed boolean-expression tree. It is built once per
// condition-bearing node and rendered twice: as a human-readable description
// and as an executable jq test.
//
// Condition types:
//   - CondRef: truthiness of a runtime reference
//   - CondLiteral: a literal value (truthiness when used alone)
//   - Not: negation
//   - And, Or: n-ary conjunction / disjunction
//   - Compare: eq, neq, gt, gte, lt, lte over two operands
type Condition interface {
	Node
	conditionNode()
}

// CondRef tests a runtime reference. Alone it means "present, non-empty and
// not literal false, 0 or the empty string"; as a Compare operand it is the
// referenced value.
type CondRef struct {
	Ref Ref
}

// CondLiteral is a literal operand.
type CondLiteral struct {
	Value Value
}

// Not negates X.
type Not struct {
	X Condition
}

// And is true when every term is true. Terms has at least two entries.
type And struct {
	Terms []Condition
}

// Or is true when any term is true. Terms has at least two entries.
type Or struct {
	Terms []Condition
}

// CompareOp is a comparison operator.
type CompareOp string

// Comparison operators, spelled as in jq.
const (
	OpEq  CompareOp = "=="
	OpNeq CompareOp = "!="
	OpGt  CompareOp = ">"
	OpGte CompareOp = ">="
	OpLt  CompareOp = "<"
	OpLte CompareOp = "<="
)

// Compare compares two operands. X and Y are CondRef or CondLiteral.
type Compare struct {
	Op CompareOp
	X  Condition
	Y  Condition
}

func (*CondRef) Kind() Kind     { return KindCondRef }
func (*CondLiteral) Kind() Kind { return KindCondLiteral }
func (*Not) Kind() Kind         { return KindNot }
func (*And) Kind() Kind         { return KindAnd }
func (*Or) Kind() Kind          { return KindOr }

// Kind maps the operator onto its condition kind.
func (c *Compare) Kind() Kind {
	switch c.Op {
	case OpNeq:
		return KindNeq
	case OpGt:
		return KindGt
	case OpGte:
		return KindGte
	case OpLt:
		return KindLt
	case OpLte:
		return KindLte
	default:
		return KindEq
	}
}

func (*CondRef) irNode()     {}
func (*CondLiteral) irNode() {}
func (*Not) irNode()         {}
func (*And) irNode()         {}
func (*Or) irNode()          {}
func (*Compare) irNode()     {}

func (*CondRef) conditionNode()     {}
func (*CondLiteral) conditionNode() {}
func (*Not) conditionNode()         {}
func (*And) conditionNode()         {}
func (*Or) conditionNode()          {}
func (*Compare) conditionNode()     {}

// CondRefs returns every runtime reference in c, depth first.
func CondRefs(c Condition) []Ref {
	var refs []Ref
	var walk func(Condition)
	walk = func(c Condition) {
		switch n := c.(type) {
		case *CondRef:
			refs = append(refs, n.Ref)
		case *Not:
			walk(n.X)
		case *And:
			for _, t := range n.Terms {
				walk(t)
			}
		case *Or:
			for _, t := range n.Terms {
				walk(t)
			}
		case *Compare:
			walk(n.X)
			walk(n.Y)
		}
	}
	walk(c)
	return refs
}

// CondDepth returns the height of the condition tree (a leaf is 1).
func CondDepth(c Condition) int {
	switch n := c.(type) {
	case *Not:
		return 1 + CondDepth(n.X)
	case *And:
		return 1 + maxDepth(n.Terms)
	case *Or:
		return 1 + maxDepth(n.Terms)
	case *Compare:
		return 1 + max(CondDepth(n.X), CondDepth(n.Y))
	default:
		return 1
	}
}

func maxDepth(terms []Condition) int {
	d := 0
	for _, t := range terms {
		d = max(d, CondDepth(t))
	}
	return d
}
