package compiler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/promptc/internal/bundler"
	"github.com/roach88/promptc/internal/emit"
	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/store"
	"github.com/roach88/promptc/internal/testutil"
)

const callsSrc = `
const files = useRuntimeVar("FILES");
export default <Command><RuntimeCall fn="listFiles" args={{ depth: 2 }} output={files} /></Command>;
`

func openCache(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sources(rs []*Result) []string {
	var out []string
	for _, r := range rs {
		out = append(out, r.Source)
	}
	return out
}

func TestBuild(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{
		"src/uses.tsx":       bannerUserSrc,
		"src/review.tsx":     reviewSrc,
		"src/broken.tsx":     `export default <Command>`,
		"src/lib/banner.tsx": bannerSrc,
	})
	c := newCompiler(t, root)
	paths, err := c.Discover("src")
	require.NoError(t, err)

	res, err := c.Build(context.Background(), paths, BuildOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"src/review.tsx", "src/uses.tsx"}, sources(res.Results))
	require.Len(t, res.Errors, 1)
	assert.True(t, ir.IsCode(res.Errors[0], ir.ErrSyntax))
	assert.Equal(t, 2, res.Written)
	assert.Equal(t, 2, res.Compiled())
	assert.Zero(t, res.Seq, "no cache")

	data, err := os.ReadFile(filepath.Join(root, ".claude", "commands", "uses.md"))
	require.NoError(t, err)
	assert.Equal(t, "---\n---\n\n# Hi\n", string(data))
}

func TestBuild_Incremental(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{
		"src/uses.tsx":       bannerUserSrc,
		"src/review.tsx":     reviewSrc,
		"src/lib/banner.tsx": bannerSrc,
	})
	cache := openCache(t)
	paths := []string{"src/review.tsx", "src/uses.tsx"}
	build := func() *BuildResult {
		t.Helper()
		res, err := newCompiler(t, root, withCache(cache)).Build(context.Background(), paths, BuildOptions{Incremental: true})
		require.NoError(t, err)
		require.Empty(t, res.Errors)
		return res
	}

	first := build()
	assert.Equal(t, 2, first.Compiled())
	assert.Equal(t, int64(1), first.Seq)

	second := build()
	assert.Zero(t, second.Compiled(), "nothing changed")
	assert.Zero(t, second.Written)
	for i, r := range second.Results {
		assert.True(t, r.Cached)
		assert.Nil(t, r.Document)
		assert.Equal(t, first.Results[i].Text, r.Text, "cached text is read back from %s", r.OutputPath)
	}

	testutil.WriteFile(t, root, "src/lib/banner.tsx", `export const Banner = defineComponent(({ label }) => <H2>{label}</H2>);`)
	third := build()
	assert.Equal(t, 1, third.Compiled(), "only the importer of the changed file")
	assert.False(t, third.Results[1].Cached)
	data, err := os.ReadFile(third.Results[1].OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "---\n---\n\n## Hi\n", string(data))

	require.NoError(t, os.Remove(third.Results[0].OutputPath))
	fourth := build()
	assert.Equal(t, 1, fourth.Compiled(), "missing output is rebuilt")
	assert.FileExists(t, fourth.Results[0].OutputPath)

	last, ok, err := cache.LastBuild(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, store.Build{Seq: 4, CompilerVersion: ir.CompilerVersion, Documents: 2, Compiled: 1}, last)
}

func TestBuild_NonIncrementalIgnoresCache(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{"src/review.tsx": reviewSrc})
	cache := openCache(t)

	for range 2 {
		res, err := newCompiler(t, root, withCache(cache)).Build(context.Background(), []string{"src/review.tsx"}, BuildOptions{})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Compiled())
	}
}

func TestBuild_Prune(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{
		"src/review.tsx": reviewSrc,
		"src/uses.tsx":   `export default <Command>x</Command>;`,
	})
	cache := openCache(t)
	ctx := context.Background()

	_, err := newCompiler(t, root, withCache(cache)).Build(ctx, []string{"src/review.tsx", "src/uses.tsx"}, BuildOptions{})
	require.NoError(t, err)

	res, err := newCompiler(t, root, withCache(cache)).Build(ctx, []string{"src/review.tsx"}, BuildOptions{Prune: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pruned)

	all, err := cache.Artifacts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "src/review.tsx", all[0].SourcePath)
}

func TestBuild_RuntimeCalls(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{
		"src/calls.tsx":   callsSrc,
		"src/unknown.tsx": `const out = useRuntimeVar("OUT");` + "\n" + `export default <Command><RuntimeCall fn="nope" args={{}} output={out} /></Command>;`,
	})
	cache := openCache(t)
	ctx := context.Background()

	b := bundler.New([]string{"listFiles"})
	res, err := newCompiler(t, root, withCache(cache), withBundler(b)).
		Build(ctx, []string{"src/calls.tsx", "src/unknown.tsx"}, BuildOptions{Incremental: true})
	require.NoError(t, err)

	require.Len(t, res.Results, 1)
	assert.Contains(t, res.Results[0].Text, `FILES=$(node .claude/runtime/runtime.js listFiles '{"depth":2}')`)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], emit.ErrNotBundled)

	want := []ir.RuntimeCallRequest{{Function: "listFiles", Args: `'{"depth":2}'`, Output: "FILES", Source: "src/calls.tsx"}}
	assert.Equal(t, want, b.Manifest().Calls)

	// A cached document still reports its calls to a fresh bundler.
	b2 := bundler.New([]string{"listFiles"})
	res, err = newCompiler(t, root, withCache(cache), withBundler(b2)).
		Build(ctx, []string{"src/calls.tsx"}, BuildOptions{Incremental: true})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.True(t, res.Results[0].Cached)
	assert.Equal(t, want, b2.Manifest().Calls)
}

func TestBuild_OutputConflict(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{
		"src/a.tsx": `export default <Command name="dup">a</Command>;`,
		"src/b.tsx": `export default <Command name="dup">b</Command>;`,
	})
	_, err := newCompiler(t, root).Build(context.Background(), []string{"src/a.tsx", "src/b.tsx"}, BuildOptions{})
	assert.ErrorIs(t, err, ErrOutputConflict)
	assert.NoFileExists(t, filepath.Join(root, ".claude", "commands", "dup.md"))
}

func TestBuild_Cancelled(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{"src/review.tsx": reviewSrc})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newCompiler(t, root).Build(ctx, []string{"src/review.tsx"}, BuildOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheck(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{
		"src/a.tsx":      `export default <Command><Frobnicate /></Command>;`,
		"src/b.tsx":      `export default <Command>`,
		"src/review.tsx": reviewSrc,
	})
	report, err := newCompiler(t, root).Check(context.Background(), []string{"src/review.tsx", "src/b.tsx", "src/a.tsx"})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Checked)
	require.Len(t, report.Errors, 2)
	assert.True(t, ir.IsCode(report.Errors[0], ir.ErrUnknownComponent))
	assert.True(t, ir.IsCode(report.Errors[1], ir.ErrSyntax))
	assert.NoDirExists(t, filepath.Join(root, ".claude"), "check writes nothing")
}
