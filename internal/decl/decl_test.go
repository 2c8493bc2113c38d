package decl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/promptc/internal/source"
)

func scan(t *testing.T, src string) *Table {
	t.Helper()
	f, err := source.Parse("doc.tsx", src)
	require.NoError(t, err)
	return Scan(f)
}

func TestUpperSnake(t *testing.T) {
	tests := map[string]string{
		"ctx":          "CTX",
		"reviewResult": "REVIEW_RESULT",
		"myHTTPValue":  "MY_HTTP_VALUE",
		"item2Count":   "ITEM2_COUNT",
		"ALREADY":      "ALREADY",
	}
	for in, want := range tests {
		assert.Equal(t, want, UpperSnake(in), in)
	}
}

func TestScanRecognizesDeclarators(t *testing.T) {
	table := scan(t, `
const ctx = useRuntimeVar<Ctx>("CONTEXT");
const plan = useRuntimeVar<Plan>();
const reviewResult = useOutput<Result>();
const Card = defineComponent<CardProps>(({ title }) => <H2>{title}</H2>);
const plain = 3;
`)

	ctx, ok := table.Module.Lookup("ctx")
	require.True(t, ok)
	assert.Equal(t, KindVariable, ctx.Kind)
	assert.Equal(t, "CONTEXT", ctx.RuntimeName)
	assert.Equal(t, "Ctx", ctx.TypeName())
	assert.Equal(t, 2, ctx.Pos.Line)

	plan, _ := table.Module.Lookup("plan")
	assert.Equal(t, "PLAN", plan.RuntimeName)

	out, ok := table.Module.LookupKind(KindOutput, "reviewResult")
	require.True(t, ok)
	assert.Equal(t, "REVIEW_RESULT", out.RuntimeName)

	card, ok := table.Module.LookupKind(KindComponent, "Card")
	require.True(t, ok)
	assert.Equal(t, "CardProps", card.TypeName())
	require.NotNil(t, card.Component)

	_, ok = table.Module.Lookup("plain")
	assert.False(t, ok)

	assert.Len(t, table.Runtime(), 3)
	assert.Len(t, table.Records(), 4)
}

func TestScanHoisting(t *testing.T) {
	// The reference precedes the declaration textually.
	table := scan(t, `
export default <Command><If condition={late.ready}>x</If></Command>;
const late = useRuntimeVar<L>("LATE");
`)
	r, ok := table.Module.Lookup("late")
	require.True(t, ok)
	assert.Equal(t, "LATE", r.RuntimeName)
}

func TestScanNestedScopes(t *testing.T) {
	table := scan(t, `
const outer = useRuntimeVar("OUTER");
const Box = defineComponent(({ outer: shadow }) => {
  const inner = useOutput();
  return <P>{inner.status}</P>;
});
const Shadow = defineComponent(({ outer }) => <P>{outer}</P>);
`)
	box, _ := table.Module.Lookup("Box")
	boxScope := table.Scope(box.Component)
	require.NotSame(t, table.Module, boxScope)

	inner, ok := boxScope.Lookup("inner")
	require.True(t, ok)
	assert.Equal(t, "INNER", inner.RuntimeName)
	_, ok = table.Module.Lookup("inner")
	assert.False(t, ok, "inner is local to Box")

	r, ok := boxScope.Lookup("outer")
	require.True(t, ok, "outer is visible through the parent scope")
	assert.Equal(t, "OUTER", r.RuntimeName)

	sh, _ := table.Module.Lookup("Shadow")
	shScope := table.Scope(sh.Component)
	_, ok = shScope.Lookup("outer")
	assert.False(t, ok, "a parameter shadows the module declaration")
	assert.True(t, shScope.Shadowed("outer"))
}

func TestScanRedeclaration(t *testing.T) {
	table := scan(t, `
const a = useRuntimeVar<A>("A");
const a = useRuntimeVar<A>("A");
const b = useRuntimeVar<B>("B");
const b = useRuntimeVar<Other>("B");
const c = useRuntimeVar("C");
const c = useOutput();
`)
	require.Len(t, table.Conflicts, 2)
	assert.Equal(t, "b", table.Conflicts[0].Existing.Name)
	assert.Equal(t, "Other", table.Conflicts[0].Redeclared.TypeName())
	assert.Equal(t, "c", table.Conflicts[1].Existing.Name)
	assert.Equal(t, KindOutput, table.Conflicts[1].Redeclared.Kind)
	assert.Len(t, table.Records(), 3, "same kind and type is recorded once")
}

func TestIsDeclarator(t *testing.T) {
	assert.True(t, IsDeclarator("useRuntimeVar"))
	assert.True(t, IsDeclarator("defineComponent"))
	assert.False(t, IsDeclarator("useState"))
}
