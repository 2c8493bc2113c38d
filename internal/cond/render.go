package cond

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/promptc/internal/ir"
)

// truthy is the jq filter for "present, non-empty and not false, 0 or the
// empty string" applied to the piped value.
const truthy = `. != null and . != false and . != 0 and . != "" and . != [] and . != {}`

// Compile renders a condition as a jq boolean expression over variables bound
// with --argjson.
//
// CRITICAL: paths are rendered by folding segments (Path.Render), so
// ctx.items[0] becomes $CTX.items[0] and never $CTX.items.[0].
func Compile(c ir.Condition) (string, error) {
	if c == nil {
		return "", fmt.Errorf("cannot compile nil condition")
	}
	switch n := c.(type) {
	case *ir.CondRef:
		return fmt.Sprintf("(%s | %s)", n.Ref.Expr(), truthy), nil
	case *ir.CondLiteral:
		if ir.Truthy(n.Value) {
			return "true", nil
		}
		return "false", nil
	case *ir.Not:
		x, err := Compile(n.X)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s | not)", x), nil
	case *ir.And:
		return compileTerms(" and ", n.Terms)
	case *ir.Or:
		return compileTerms(" or ", n.Terms)
	case *ir.Compare:
		x, err := compileOperand(n.X)
		if err != nil {
			return "", err
		}
		y, err := compileOperand(n.Y)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", x, n.Op, y), nil
	default:
		return "", fmt.Errorf("unsupported condition type: %T", c)
	}
}

func compileTerms(sep string, terms []ir.Condition) (string, error) {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		s, err := Compile(t)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func compileOperand(c ir.Condition) (string, error) {
	switch n := c.(type) {
	case *ir.CondRef:
		return n.Ref.Expr(), nil
	case *ir.CondLiteral:
		b, err := ir.MarshalCanonical(n.Value)
		if err != nil {
			return "", fmt.Errorf("compile literal: %w", err)
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("unsupported comparison operand: %T", c)
	}
}

// Vars returns the sorted, de-duplicated runtime variables c reads.
func Vars(c ir.Condition) []string {
	var vars []string
	for _, r := range ir.CondRefs(c) {
		vars = append(vars, r.Var)
	}
	slices.Sort(vars)
	return slices.Compact(vars)
}

// Test renders c as a shell command whose exit status is the condition:
//
//	jq -n -e --argjson CTX "$CTX" '(...)' >/dev/null
func Test(c ir.Condition) (string, error) {
	expr, err := Compile(c)
	if err != nil {
		return "", err
	}
	return "jq -n -e" + ArgJSON(Vars(c)) + " " + ShellQuote(expr) + " >/dev/null", nil
}

// ChoiceShell renders a value-position ternary as a command substitution
// printing the selected string.
func ChoiceShell(ch *ir.Choice) (string, error) {
	expr, err := Compile(ch.Test)
	if err != nil {
		return "", err
	}
	then, err := ir.MarshalCanonical(ir.String(ch.Then))
	if err != nil {
		return "", err
	}
	els, err := ir.MarshalCanonical(ir.String(ch.Else))
	if err != nil {
		return "", err
	}
	prog := fmt.Sprintf("if %s then %s else %s end", expr, then, els)
	return "$(jq -n -r" + ArgJSON(Vars(ch.Test)) + " " + ShellQuote(prog) + ")", nil
}

// ArgJSON renders one --argjson option per variable, in the given order.
func ArgJSON(vars []string) string {
	var b strings.Builder
	for _, v := range vars {
		fmt.Fprintf(&b, ` --argjson %s "$%s"`, v, v)
	}
	return b.String()
}

// ShellQuote wraps s in single quotes for POSIX shells.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Describe renders c as prose for the human reading the prompt, e.g.
// "$CTX.ready is set and $CTX.mode equals \"fast\"".
func Describe(c ir.Condition) string {
	switch n := c.(type) {
	case *ir.CondRef:
		return n.Ref.Expr() + " is set"
	case *ir.CondLiteral:
		return ir.TextOf(n.Value)
	case *ir.Not:
		if r, ok := n.X.(*ir.CondRef); ok {
			return r.Ref.Expr() + " is not set"
		}
		return "not (" + Describe(n.X) + ")"
	case *ir.And:
		return describeTerms(" and ", n.Terms)
	case *ir.Or:
		return describeTerms(" or ", n.Terms)
	case *ir.Compare:
		return describeOperand(n.X) + " " + verbs[n.Op] + " " + describeOperand(n.Y)
	}
	return ""
}

var verbs = map[ir.CompareOp]string{
	ir.OpEq:  "equals",
	ir.OpNeq: "does not equal",
	ir.OpGt:  "is greater than",
	ir.OpGte: "is at least",
	ir.OpLt:  "is less than",
	ir.OpLte: "is at most",
}

func describeTerms(sep string, terms []ir.Condition) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		switch t.(type) {
		case *ir.And, *ir.Or:
			parts[i] = "(" + Describe(t) + ")"
		default:
			parts[i] = Describe(t)
		}
	}
	return strings.Join(parts, sep)
}

func describeOperand(c ir.Condition) string {
	switch n := c.(type) {
	case *ir.CondRef:
		return n.Ref.Expr()
	case *ir.CondLiteral:
		b, err := ir.MarshalCanonical(n.Value)
		if err != nil {
			return "null"
		}
		return string(b)
	}
	return Describe(c)
}
