package compiler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/promptc/internal/bundler"
	"github.com/roach88/promptc/internal/config"
	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/store"
	"github.com/roach88/promptc/internal/testutil"
)

const reviewSrc = `export default <Command description="Review a file">Hello <Bold>world</Bold>!</Command>;`

const bannerUserSrc = `
import { Banner } from "./lib/banner";
export default <Command><Banner label="Hi" /></Command>;
`

const bannerSrc = `export const Banner = defineComponent(({ label }) => <H1>{label}</H1>);`

type testOption func(*Options)

func withCache(s *store.Store) testOption {
	return func(o *Options) { o.Cache = s }
}

func withBundler(b *bundler.Bundler) testOption {
	return func(o *Options) { o.Bundler = b }
}

// newCompiler creates a Compiler over root with default configuration.
func newCompiler(t *testing.T, root string, opts ...testOption) *Compiler {
	t.Helper()
	cfg, err := config.Default(root)
	require.NoError(t, err)
	o := Options{Config: cfg, Bundler: bundler.New(nil)}
	for _, fn := range opts {
		fn(&o)
	}
	return New(os.DirFS(root), o)
}

func TestCompile(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{"src/review.tsx": reviewSrc})
	c := newCompiler(t, root)

	r, err := c.Compile(context.Background(), "src/review.tsx")
	require.NoError(t, err)

	assert.Equal(t, "---\ndescription: Review a file\n---\n\nHello **world**!\n", r.Text)
	assert.Equal(t, ir.DocCommand, r.Kind)
	assert.Equal(t, "review", r.Name)
	assert.Equal(t, filepath.Join(root, ".claude", "commands", "review.md"), r.OutputPath)
	assert.Equal(t, ir.ArtifactHash(r.Text), r.ArtifactHash)
	assert.NotEmpty(t, r.SourceHash)
	assert.NotEmpty(t, r.DocumentHash)
	assert.False(t, r.Cached)

	again, err := newCompiler(t, root).Compile(context.Background(), "src/review.tsx")
	require.NoError(t, err)
	assert.Equal(t, r.Text, again.Text, "compilation is deterministic")
	assert.Equal(t, r.DocumentHash, again.DocumentHash)
}

func TestCompile_Errors(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{
		"src/broken.tsx":  `export default <Command>`,
		"src/unknown.tsx": `export default <Command><Frobnicate /></Command>;`,
	})
	c := newCompiler(t, root)

	_, err := c.Compile(context.Background(), "src/broken.tsx")
	assert.True(t, ir.IsCode(err, ir.ErrSyntax), "got %v", err)
	assert.True(t, IsDocumentError(err))

	_, err = c.Compile(context.Background(), "src/unknown.tsx")
	assert.True(t, ir.IsCode(err, ir.ErrUnknownComponent), "got %v", err)

	_, err = c.Compile(context.Background(), "src/missing.tsx")
	require.Error(t, err)
	assert.True(t, IsDocumentError(err))
}

func TestTransform(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{
		"src/uses.tsx":       bannerUserSrc,
		"src/lib/banner.tsx": bannerSrc,
	})
	doc, err := newCompiler(t, root).Transform(context.Background(), "src/uses.tsx")
	require.NoError(t, err)
	assert.Equal(t, []ir.Block{&ir.Heading{Level: 1, Content: []ir.Inline{&ir.Text{Value: "Hi"}}}}, doc.Body)
}

func TestSourceHash_FollowsImports(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{
		"src/uses.tsx":       bannerUserSrc,
		"src/review.tsx":     reviewSrc,
		"src/lib/banner.tsx": bannerSrc,
	})

	before := newCompiler(t, root)
	usesBefore, err := before.SourceHash("src/uses.tsx")
	require.NoError(t, err)
	reviewBefore, err := before.SourceHash("src/review.tsx")
	require.NoError(t, err)

	testutil.WriteFile(t, root, "src/lib/banner.tsx", bannerSrc+"\n// changed\n")

	after := newCompiler(t, root)
	usesAfter, err := after.SourceHash("src/uses.tsx")
	require.NoError(t, err)
	reviewAfter, err := after.SourceHash("src/review.tsx")
	require.NoError(t, err)

	assert.NotEqual(t, usesBefore, usesAfter, "imported file changed")
	assert.Equal(t, reviewBefore, reviewAfter)
}

func TestDiscover(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{
		"src/review.tsx":         reviewSrc,
		"src/uses.tsx":           bannerUserSrc,
		"src/lib/banner.tsx":     bannerSrc,
		"src/broken.tsx":         `export default <Command>`,
		"src/notes.md":           "# notes",
		"src/.drafts/draft.tsx":  reviewSrc,
		"src/node_modules/x.tsx": reviewSrc,
	})

	docs, err := newCompiler(t, root).Discover("src")
	require.NoError(t, err)
	assert.Equal(t, []string{"src/broken.tsx", "src/review.tsx", "src/uses.tsx"}, docs)
}
