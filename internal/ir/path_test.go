package ir

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestPathRender(t *testing.T) {
	tests := []struct {
		name     string
		path     Path
		fragment string
		doc      string
	}{
		{"root", nil, ".", "$CTX"},
		{"field", Path{Field("name")}, ".name", "$CTX.name"},
		{"index after field", Path{Field("items"), Index(0)}, ".items[0]", "$CTX.items[0]"},
		{"leading index", Path{Index(2)}, ".[2]", "$CTX[2]"},
		{"nested indices", Path{Field("m"), Index(1), Index(3), Field("x")}, ".m[1][3].x", "$CTX.m[1][3].x"},
		{"quoted field", Path{Field("a-b")}, `."a-b"`, `$CTX."a-b"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fragment, tt.path.Fragment())
			assert.Equal(t, tt.doc, Ref{Var: "CTX", Path: tt.path}.Expr())
		})
	}
}

func TestPathAppendDoesNotAlias(t *testing.T) {
	base := make(Path, 1, 4)
	base[0] = Field("a")
	x := base.Append(Field("x"))
	y := base.Append(Field("y"))
	assert.Equal(t, ".a.x", x.Fragment())
	assert.Equal(t, ".a.y", y.Fragment())
}

func TestIsValidIndex(t *testing.T) {
	assert.True(t, IsValidIndex("0"))
	assert.True(t, IsValidIndex("12"))
	assert.False(t, IsValidIndex(""))
	assert.False(t, IsValidIndex("-1"))
	assert.False(t, IsValidIndex("1.0"))
}

// A rendered fragment never puts a separator directly before a bracketed
// index.
func TestPathNoSeparatorBeforeIndex(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	segment := gen.OneGenOf(
		gen.Identifier().Map(func(s string) Segment { return Field(s) }),
		gen.IntRange(0, 99).Map(func(n int) Segment { return Index(n) }),
	)

	properties.Property("no .[ after a field", prop.ForAll(
		func(segs []Segment) bool {
			p := Path(segs)
			doc := Ref{Var: "CTX", Path: p}.Expr()
			frag := p.Fragment()
			if strings.Contains(doc, ".[") {
				return false
			}
			// Only a leading index may render ".[" in a bare fragment.
			if i := strings.Index(frag, ".["); i > 0 {
				return false
			}
			return true
		},
		gen.SliceOf(segment),
	))

	properties.TestingRun(t)
}
