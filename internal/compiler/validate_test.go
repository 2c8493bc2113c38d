package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/promptc/internal/ir"
)

func errCodes(errs []ValidationError) []string {
	var out []string
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func TestValidateDocument(t *testing.T) {
	ref := &ir.CondRef{Ref: ir.Ref{Var: "CTX", Path: ir.Path{ir.Field("ok")}}}
	tests := []struct {
		name string
		doc  *ir.Document
		want []string
	}{
		{
			name: "valid",
			doc: &ir.Document{Kind: ir.DocCommand, Body: []ir.Block{
				&ir.Loop{Max: ir.Bound{Static: 2}, Children: []ir.Block{&ir.If{Test: ref}}},
			}},
		},
		{
			name: "unknown kind",
			doc:  &ir.Document{Kind: "skill"},
			want: []string{ErrUnknownDocumentKind},
		},
		{
			name: "unbounded loop",
			doc:  &ir.Document{Kind: ir.DocCommand, Body: []ir.Block{&ir.Loop{}}},
			want: []string{ErrLoopUnbounded},
		},
		{
			name: "heading level",
			doc: &ir.Document{Kind: ir.DocAgent, Body: []ir.Block{
				&ir.Heading{Level: 7}, &ir.Heading{Level: 0},
			}},
			want: []string{ErrHeadingLevel, ErrHeadingLevel},
		},
		{
			name: "single-term and",
			doc: &ir.Document{Kind: ir.DocCommand, Body: []ir.Block{
				&ir.If{Test: &ir.And{Terms: []ir.Condition{ref}}},
			}},
			want: []string{ErrInvalidCondition},
		},
		{
			name: "duplicate variable",
			doc: &ir.Document{Kind: ir.DocCommand, Variables: []ir.RuntimeVar{
				{Name: "CTX"}, {Name: "CTX"},
			}},
			want: []string{ErrDuplicateVariable},
		},
		{
			name: "runtime call without output",
			doc: &ir.Document{Kind: ir.DocCommand, Body: []ir.Block{
				&ir.RuntimeCall{Function: "f"},
			}},
			want: []string{ErrIncompleteCall},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errCodes(ValidateDocument(tt.doc)))
		})
	}
}
