package cond

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/roach88/promptc/internal/ir"
)

func genCondition(depth int) gopter.Gen {
	leaf := gen.OneGenOf(
		gen.Identifier().Map(func(s string) ir.Condition {
			return &ir.CondRef{Ref: ir.Ref{Var: "CTX", Path: ir.Path{ir.Field(s)}}}
		}),
		gen.IntRange(0, 9).Map(func(n int) ir.Condition {
			return &ir.CondRef{Ref: ir.Ref{Var: "CTX", Path: ir.Path{ir.Field("items"), ir.Index(n)}}}
		}),
		gen.IntRange(-5, 5).Map(func(n int) ir.Condition {
			return &ir.Compare{
				Op: ir.OpGte,
				X:  &ir.CondRef{Ref: ir.Ref{Var: "N"}},
				Y:  &ir.CondLiteral{Value: ir.Int(n)},
			}
		}),
	)
	if depth == 0 {
		return leaf
	}
	sub := genCondition(depth - 1)
	return gen.OneGenOf(
		leaf,
		sub.Map(func(c ir.Condition) ir.Condition { return &ir.Not{X: c} }),
		gopter.CombineGens(sub, sub).Map(func(v []any) ir.Condition {
			return &ir.And{Terms: []ir.Condition{v[0].(ir.Condition), v[1].(ir.Condition)}}
		}),
		gopter.CombineGens(sub, sub).Map(func(v []any) ir.Condition {
			return &ir.Or{Terms: []ir.Condition{v[0].(ir.Condition), v[1].(ir.Condition)}}
		}),
	)
}

func TestRenderProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	properties.Property("generated trees validate", prop.ForAll(
		func(c ir.Condition) bool {
			return Validate(c).Valid
		},
		genCondition(3),
	))

	properties.Property("jq text has balanced parentheses and no .[", prop.ForAll(
		func(c ir.Condition) bool {
			jq, err := Compile(c)
			if err != nil {
				return false
			}
			return strings.Count(jq, "(") == strings.Count(jq, ")") && !strings.Contains(jq, ".[")
		},
		genCondition(3),
	))

	properties.Property("rendering is deterministic", prop.ForAll(
		func(c ir.Condition) bool {
			a, errA := Test(c)
			b, errB := Test(c)
			return errA == nil && errB == nil && a == b && Describe(c) == Describe(c)
		},
		genCondition(3),
	))

	properties.TestingRun(t)
}
