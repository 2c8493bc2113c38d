package transform

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/source"
)

// compileFS loads name from fsys and transforms it with a Program serving as
// both the contract and the component resolver.
func compileFS(t *testing.T, fsys fstest.MapFS, name string) (*ir.Document, error) {
	t.Helper()
	prog := source.NewProgram(fsys)
	f, err := prog.Load(name)
	require.NoError(t, err)
	return New(Options{Contracts: prog, Components: prog}).Transform(f)
}

func compile(t *testing.T, src string) (*ir.Document, error) {
	t.Helper()
	return compileFS(t, fstest.MapFS{"commands/doc.tsx": {Data: []byte(src)}}, "commands/doc.tsx")
}

func mustCompile(t *testing.T, src string) *ir.Document {
	t.Helper()
	doc, err := compile(t, src)
	require.NoError(t, err)
	require.NotNil(t, doc)
	return doc
}

func requireCode(t *testing.T, err error, code ir.ErrorCode) *ir.CompileError {
	t.Helper()
	require.Error(t, err)
	var ce *ir.CompileError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, code, ce.Code, ce.Error())
	return ce
}

func TestInlineContentMergesIntoOneParagraph(t *testing.T) {
	doc := mustCompile(t, `
export default (
  <Command>
    Hello <Bold>world</Bold>!
  </Command>
);
`)
	assert.Equal(t, ir.DocCommand, doc.Kind)
	assert.Equal(t, "doc", doc.Name)
	require.Len(t, doc.Body, 1)
	assert.Equal(t, &ir.Paragraph{Content: []ir.Inline{
		&ir.Text{Value: "Hello "},
		&ir.Bold{Content: []ir.Inline{&ir.Text{Value: "world"}}},
		&ir.Text{Value: "!"},
	}}, doc.Body[0])
}

func TestListItemMergesInlineContent(t *testing.T) {
	doc := mustCompile(t, `export default <Command><List><Item><Bold>a</Bold> b</Item></List></Command>;`)
	require.Len(t, doc.Body, 1)
	list, ok := doc.Body[0].(*ir.List)
	require.True(t, ok)
	require.Len(t, list.Items, 1)
	assert.Equal(t, []ir.Block{&ir.Paragraph{Content: []ir.Inline{
		&ir.Bold{Content: []ir.Inline{&ir.Text{Value: "a"}}},
		&ir.Text{Value: " b"},
	}}}, list.Items[0].Children)
}

func TestExplicitParagraphStandsAlone(t *testing.T) {
	doc := mustCompile(t, `
export default (
  <Command>
    before
    <P>inside</P>
    after
  </Command>
);
`)
	require.Len(t, doc.Body, 3)
	for _, b := range doc.Body {
		assert.Equal(t, ir.KindParagraph, b.Kind())
	}
	assert.Equal(t, &ir.Paragraph{Content: []ir.Inline{&ir.Text{Value: "inside"}}}, doc.Body[1])
}

func TestRuntimeReferenceInline(t *testing.T) {
	doc := mustCompile(t, `
const ctx = useRuntimeVar<Ctx>("CTX");
export default <Command>First: {ctx.items[0]}</Command>;
`)
	require.Len(t, doc.Body, 1)
	p := doc.Body[0].(*ir.Paragraph)
	require.Len(t, p.Content, 2)
	assert.Equal(t, &ir.Text{Value: "First: "}, p.Content[0])
	ref := p.Content[1].(*ir.VarRef)
	assert.Equal(t, "$CTX.items[0]", ref.Ref.Expr())

	require.Len(t, doc.Variables, 1)
	v := doc.Variables[0]
	assert.Equal(t, "CTX", v.Name)
	assert.Equal(t, "ctx", v.Binding)
	assert.Equal(t, ir.VarVariable, v.Kind)
	assert.Equal(t, "Ctx", v.Type)
}

func TestRuntimeNameRedeclaredInComponent(t *testing.T) {
	doc := mustCompile(t, `
const ctx = useRuntimeVar("CTX");
const Box = defineComponent(() => {
  const inner = useRuntimeVar<Ctx>("CTX");
  return <P>{inner.status}</P>;
});
export default <Command><Box />{ctx.branch}</Command>;
`)
	require.Len(t, doc.Variables, 1)
	assert.Equal(t, "CTX", doc.Variables[0].Name)
	assert.Equal(t, "ctx", doc.Variables[0].Binding)
	assert.Equal(t, "Ctx", doc.Variables[0].Type, "the typed declaration fills in the type")

	_, err := compile(t, `
const ctx = useRuntimeVar<A>("CTX");
const Box = defineComponent(() => {
  const inner = useRuntimeVar<B>("CTX");
  return <P>{inner.status}</P>;
});
export default <Command><Box /></Command>;
`)
	ce := requireCode(t, err, ir.ErrStructuralViolation)
	assert.Contains(t, ce.Message, "runtime name $CTX redeclared as variable B")
}

func TestStaticValuesFoldIntoText(t *testing.T) {
	doc := mustCompile(t, `
const LIMIT = 3;
const MODES = { fast: "quick" };
export default <Command>Try {LIMIT} times, {MODES.fast}.</Command>;
`)
	assert.Equal(t, &ir.Paragraph{Content: []ir.Inline{
		&ir.Text{Value: "Try 3 times, quick."},
	}}, doc.Body[0])
}

func TestContractViolation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		missing []string
	}{
		{"one missing", `{{ a: "x" }}`, []string{"b"}},
		{"all missing", `{{}}`, []string{"a", "b"}},
		{"optional omitted", `{{ a: "x", b: "y" }}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compile(t, `
interface Input { a: string; b: string; c?: string }
export default (
  <Command>
    <SpawnAgent<Input> agent="helper" input=`+tt.input+` />
  </Command>
);
`)
			if tt.missing == nil {
				require.NoError(t, err)
				return
			}
			ce := requireCode(t, err, ir.ErrContractViolation)
			assert.Equal(t, tt.missing, ce.Missing)
			assert.Contains(t, ce.Message, "<SpawnAgent> does not satisfy Input")
		})
	}
}

func TestSpawnAgentInputRef(t *testing.T) {
	doc := mustCompile(t, `
interface Input { a: string }
const ctx = useRuntimeVar<Input>("CTX");
const answer = useOutput<Input>();
export default (
  <Command>
    <SpawnAgent<Input> agent="helper" model="sonnet" input={ctx} output={answer}>
      Do the thing.
    </SpawnAgent>
  </Command>
);
`)
	require.Len(t, doc.Body, 1)
	sp := doc.Body[0].(*ir.AgentSpawn)
	assert.Equal(t, "helper", sp.Agent)
	assert.Equal(t, "sonnet", sp.Model)
	assert.Equal(t, "Input", sp.Contract)
	require.NotNil(t, sp.InputRef)
	assert.Equal(t, "$CTX", sp.InputRef.Expr())
	assert.Equal(t, "ANSWER", sp.Output)
	require.Len(t, sp.Prompt, 1)
}

func TestUnresolvedContract(t *testing.T) {
	_, err := compile(t, `export default <Command><SpawnAgent<Nope> agent="x" /></Command>;`)
	ce := requireCode(t, err, ir.ErrUnresolvedReference)
	assert.Contains(t, ce.Message, "Nope")
}

func TestElseMustFollowConditional(t *testing.T) {
	_, err := compile(t, `export default <Command><Else>x</Else></Command>;`)
	ce := requireCode(t, err, ir.ErrStructuralViolation)
	assert.Equal(t, "else must follow conditional", ce.Message)
}

func TestIfElsePairing(t *testing.T) {
	doc := mustCompile(t, `
const ctx = useRuntimeVar("CTX");
export default (
  <Command>
    <If condition={ctx.ready && ctx.count > 2}>
      Go.
    </If>
    <Else>
      Wait.
    </Else>
  </Command>
);
`)
	require.Len(t, doc.Body, 1)
	node := doc.Body[0].(*ir.If)
	assert.True(t, node.HasElse)
	assert.Equal(t, ir.KindAnd, node.Test.Kind())
	assert.Len(t, node.Then, 1)
	assert.Len(t, node.Else, 1)
}

func TestConditionalMarkup(t *testing.T) {
	doc := mustCompile(t, `
const ctx = useRuntimeVar("CTX");
export default (
  <Command>
    {ctx.verbose && <P>Loud.</P>}
    {ctx.quiet ? null : <P>Not quiet.</P>}
  </Command>
);
`)
	require.Len(t, doc.Body, 2)
	first := doc.Body[0].(*ir.If)
	assert.False(t, first.HasElse)
	second := doc.Body[1].(*ir.If)
	assert.Empty(t, second.Then)
	assert.True(t, second.HasElse)
}

func TestLoopRequiresMax(t *testing.T) {
	_, err := compile(t, `export default <Command><Loop>again</Loop></Command>;`)
	ce := requireCode(t, err, ir.ErrStructuralViolation)
	assert.Contains(t, ce.Message, "<Loop> requires max")
}

func TestLoopBounds(t *testing.T) {
	doc := mustCompile(t, `
const ctx = useRuntimeVar("CTX");
const TRIES = 3;
export default (
  <Command>
    <Loop max={TRIES}>
      <If condition={ctx.done}><Break message="finished" /></If>
    </Loop>
    <Loop max={ctx.limit}>again</Loop>
  </Command>
);
`)
	require.Len(t, doc.Body, 2)
	assert.Equal(t, 3, doc.Body[0].(*ir.Loop).Max.Static)
	second := doc.Body[1].(*ir.Loop)
	require.NotNil(t, second.Max.Ref)
	assert.Equal(t, "$CTX.limit", second.Max.Ref.Expr())
}

func TestLoopRejectsNonPositiveMax(t *testing.T) {
	_, err := compile(t, `export default <Command><Loop max={0}>x</Loop></Command>;`)
	requireCode(t, err, ir.ErrStructuralViolation)
}

func TestBreakOutsideLoop(t *testing.T) {
	_, err := compile(t, `export default <Command><Break /></Command>;`)
	ce := requireCode(t, err, ir.ErrStructuralViolation)
	assert.Contains(t, ce.Message, "<Break> must be inside <Loop>")
}

func TestUnknownComponent(t *testing.T) {
	_, err := compile(t, `export default <Command><Mystery /></Command>;`)
	ce := requireCode(t, err, ir.ErrUnknownComponent)
	assert.Equal(t, "Mystery", ce.Construct)
}

func TestDefaultExportMustBeRoot(t *testing.T) {
	_, err := compile(t, `export default <P>nope</P>;`)
	requireCode(t, err, ir.ErrStructuralViolation)

	_, err = compile(t, `const x = 1;`)
	requireCode(t, err, ir.ErrStructuralViolation)
}

func TestLocalComponentExpansion(t *testing.T) {
	doc := mustCompile(t, `
export default (
  <Command>
    <Greeting name="Ada">!</Greeting>
  </Command>
);

interface GreetingProps { name: string; children?: any }
const Greeting = defineComponent<GreetingProps>(({ name, children }) => (
  <P>Hello {name}{children}</P>
));
`)
	require.Len(t, doc.Body, 1)
	assert.Equal(t, &ir.Paragraph{Content: []ir.Inline{&ir.Text{Value: "Hello Ada!"}}}, doc.Body[0])
}

func TestComponentPropDefaults(t *testing.T) {
	doc := mustCompile(t, `
const Title = defineComponent(({ text = "Untitled" }) => <H2>{text}</H2>);
export default <Command><Title /><Title text="Named" /></Command>;
`)
	require.Len(t, doc.Body, 2)
	assert.Equal(t, &ir.Heading{Level: 2, Content: []ir.Inline{&ir.Text{Value: "Untitled"}}}, doc.Body[0])
	assert.Equal(t, &ir.Heading{Level: 2, Content: []ir.Inline{&ir.Text{Value: "Named"}}}, doc.Body[1])
}

func TestComponentContractViolation(t *testing.T) {
	_, err := compile(t, `
interface Props { name: string; role: string }
const Card = defineComponent<Props>(({ name, role }) => <P>{name} {role}</P>);
export default <Command><Card /></Command>;
`)
	ce := requireCode(t, err, ir.ErrContractViolation)
	assert.Equal(t, []string{"name", "role"}, ce.Missing)
	assert.Contains(t, ce.Message, "<Card>")
}

func TestImportedComponent(t *testing.T) {
	fsys := fstest.MapFS{
		"commands/review.tsx": {Data: []byte(`
import { Banner } from "../components/banner";
export default <Command><Banner label="Review" /></Command>;
`)},
		"components/banner.tsx": {Data: []byte(`
export const Banner = defineComponent(({ label }) => <H1>{label}</H1>);
`)},
	}
	doc, err := compileFS(t, fsys, "commands/review.tsx")
	require.NoError(t, err)
	assert.Equal(t, []ir.Block{&ir.Heading{Level: 1, Content: []ir.Inline{&ir.Text{Value: "Review"}}}}, doc.Body)
}

func TestUnresolvedImportReportsElement(t *testing.T) {
	fsys := fstest.MapFS{
		"commands/review.tsx": {Data: []byte(`
import { Banner } from "../components/banner";
export default <Command><Banner label="Review" /></Command>;
`)},
		"components/banner.tsx": {Data: []byte(`export const Other = 1;`)},
	}
	_, err := compileFS(t, fsys, "commands/review.tsx")
	ce := requireCode(t, err, ir.ErrUnresolvedReference)
	assert.Contains(t, ce.Message, `cannot resolve imported component "Banner"`)
	assert.Equal(t, ir.Pos{File: "commands/review.tsx", Line: 3, Column: 26}, ce.Pos)
}

func TestRecursiveComponent(t *testing.T) {
	_, err := compile(t, `
const A = defineComponent(() => <B />);
const B = defineComponent(() => <A />);
export default <Command><A /></Command>;
`)
	ce := requireCode(t, err, ir.ErrStructuralViolation)
	assert.Contains(t, ce.Message, "recursive component")
}

func TestSelfRecursiveComponent(t *testing.T) {
	_, err := compile(t, `
const Again = defineComponent(() => <P><Again /></P>);
export default <Command><Again /></Command>;
`)
	ce := requireCode(t, err, ir.ErrStructuralViolation)
	assert.Contains(t, ce.Message, "recursive component")
}

func TestAgentForbidsInvocations(t *testing.T) {
	for _, el := range []string{
		`<SpawnAgent agent="x" />`,
		`<AskUser question="Sure?" />`,
	} {
		t.Run(el, func(t *testing.T) {
			_, err := compile(t, `export default <Agent name="helper" description="Helps">`+el+`</Agent>;`)
			ce := requireCode(t, err, ir.ErrStructuralViolation)
			assert.Contains(t, ce.Message, "not allowed in agent documents")
		})
	}
}

func TestAgentOutputContract(t *testing.T) {
	doc := mustCompile(t, `
interface Report { status: string; summary?: string }
export default <Agent<Report> name="reviewer" description="Reviews code">Review.</Agent>;
`)
	assert.Equal(t, ir.DocAgent, doc.Kind)
	assert.Equal(t, "reviewer", doc.Name)
	require.NotNil(t, doc.Output)
	assert.Equal(t, "Report", doc.Output.Name)
	assert.Equal(t, []string{"status"}, doc.Output.Required())
}

func TestFrontMatter(t *testing.T) {
	doc := mustCompile(t, `
const TOOLS = ["Read", "Grep"];
export default (
  <Command
    description="Review a file"
    argumentHint="[path]"
    allowedTools={TOOLS}
    frontmatter={{ "disable-model-invocation": true, description: "Review one file" }}
  >
    Body.
  </Command>
);
`)
	assert.Equal(t, []ir.FrontMatterEntry{
		{Key: "description", Value: ir.String("Review one file")},
		{Key: "argument-hint", Value: ir.String("[path]")},
		{Key: "allowed-tools", Value: ir.Array{ir.String("Read"), ir.String("Grep")}},
		{Key: "disable-model-invocation", Value: ir.Bool(true)},
	}, doc.FrontMatter)
}

func TestFrontMatterValidation(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"agent without description", `export default <Agent name="helper">x</Agent>;`},
		{"bad command name", `export default <Command name="Bad Name">x</Command>;`},
		{"wrong type", `export default <Command allowedTools={3}>x</Command>;`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compile(t, tt.src)
			ce := requireCode(t, err, ir.ErrStructuralViolation)
			assert.Contains(t, ce.Message, "front-matter")
		})
	}
}

func TestFrontMatterMustBeStatic(t *testing.T) {
	_, err := compile(t, `
const ctx = useRuntimeVar("CTX");
export default <Command description={ctx.text}>x</Command>;
`)
	requireCode(t, err, ir.ErrUnsupportedExpression)
}

func TestKebab(t *testing.T) {
	assert.Equal(t, "allowed-tools", kebab("allowedTools"))
	assert.Equal(t, "description", kebab("description"))
	assert.Equal(t, "disable-model-invocation", kebab("disableModelInvocation"))
}

func TestListRequiresItems(t *testing.T) {
	doc := mustCompile(t, `
export default (
  <Command>
    <List ordered>
      <Item>one</Item>
      <Item>two</Item>
    </List>
  </Command>
);
`)
	l := doc.Body[0].(*ir.List)
	assert.True(t, l.Ordered)
	assert.Len(t, l.Items, 2)

	_, err := compile(t, `export default <Command><List><P>x</P></List></Command>;`)
	requireCode(t, err, ir.ErrStructuralViolation)

	_, err = compile(t, `export default <Command><Item>x</Item></Command>;`)
	requireCode(t, err, ir.ErrStructuralViolation)
}

func TestHeadingAcceptsInlineOnly(t *testing.T) {
	_, err := compile(t, `export default <Command><H1><P>x</P></H1></Command>;`)
	ce := requireCode(t, err, ir.ErrStructuralViolation)
	assert.Contains(t, ce.Message, "<H1> accepts inline content only")
}

func TestInlineElementsRejectExplicitParagraph(t *testing.T) {
	for _, name := range []string{"H1", "Bold", "Italic"} {
		t.Run(name, func(t *testing.T) {
			_, err := compile(t, "export default <Command><"+name+"><P>y</P></"+name+"></Command>;")
			ce := requireCode(t, err, ir.ErrStructuralViolation)
			assert.Contains(t, ce.Message, "<"+name+"> accepts inline content only")
		})
	}
}

func TestAssignSources(t *testing.T) {
	doc := mustCompile(t, `
const ctx = useRuntimeVar("CTX");
const branch = useRuntimeVar("BRANCH");
export default (
  <Command>
    <Assign var={branch} bash="git branch --show-current" />
    <Assign var={branch} value="main" />
    <Assign var={branch} from={ctx.branch} />
  </Command>
);
`)
	require.Len(t, doc.Body, 3)
	assert.Equal(t, ir.AssignShell, doc.Body[0].(*ir.Assign).Source)
	assert.Equal(t, ir.AssignLiteral, doc.Body[1].(*ir.Assign).Source)
	assert.Equal(t, ir.AssignRef, doc.Body[2].(*ir.Assign).Source)

	_, err := compile(t, `
const branch = useRuntimeVar("BRANCH");
export default <Command><Assign var={branch} value="a" bash="b" /></Command>;
`)
	requireCode(t, err, ir.ErrStructuralViolation)
}

func TestRuntimeCall(t *testing.T) {
	doc := mustCompile(t, `
const ctx = useRuntimeVar("CTX");
const files = useRuntimeVar("FILES");
export default (
  <Command>
    <RuntimeCall fn="listFiles" args={{ root: ctx.root, depth: 2 }} output={files} />
  </Command>
);
`)
	rc := doc.Body[0].(*ir.RuntimeCall)
	assert.Equal(t, "listFiles", rc.Function)
	assert.Equal(t, "FILES", rc.Output)
	require.Len(t, rc.Args, 2)
	assert.Equal(t, "root", rc.Args[0].Name)
	require.NotNil(t, rc.Args[0].Ref)
	assert.Equal(t, ir.Int(2), rc.Args[1].Literal)
	assert.Len(t, doc.RuntimeCalls(), 1)
}

func TestStepNumbering(t *testing.T) {
	doc := mustCompile(t, `
export default (
  <Command>
    <Step name="Read">a</Step>
    <Step name="Write">b</Step>
  </Command>
);
`)
	require.Len(t, doc.Body, 2)
	assert.Equal(t, 1, doc.Body[0].(*ir.Step).Number)
	assert.Equal(t, 2, doc.Body[1].(*ir.Step).Number)
}

func TestRedeclarationConflict(t *testing.T) {
	_, err := compile(t, `
const ctx = useRuntimeVar<A>("CTX");
const ctx = useOutput<B>();
export default <Command>x</Command>;
`)
	requireCode(t, err, ir.ErrStructuralViolation)
}
