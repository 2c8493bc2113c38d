package source

import (
	"io/fs"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/promptc/internal/ir"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"types/base.ts": {Data: []byte(`
export interface Base {
  id: string;
  note?: string;
}
`)},
		"types/index.ts": {Data: []byte(`
import { Base } from "./base";
export interface Review extends Base {
  path: string;
  depth?: number;
  note: string;
}
export type Loose = Partial<Review>;
export type Named = Pick<Review, "id" | "path">;
export type Either = { a: string; b: string } | { a: string };
export { Base as Root };
`)},
		"commands/review.tsx": {Data: []byte(`
import { Review, Root } from "../types";
import { Section } from "../components/section";
export default <Section title="x" />;
`)},
		"components/section.tsx": {Data: []byte(`
export const Section = defineComponent(({ title }) => <H2>{title}</H2>);
`)},
	}
}

func TestResolveContractExtends(t *testing.T) {
	prog := NewProgram(testFS())

	c, ok := prog.ResolveContract("commands/review.tsx", &TypeRef{Kind: TypeNamed, Name: "Review"})
	require.True(t, ok)
	assert.Equal(t, "Review", c.Name)
	assert.Equal(t, []ir.ContractField{
		{Name: "id", Required: true, Type: "string"},
		{Name: "note", Required: true, Type: "string"},
		{Name: "path", Required: true, Type: "string"},
		{Name: "depth", Required: false, Type: "number"},
	}, c.Fields)
	assert.Equal(t, []string{"id", "note", "path"}, c.Required())
}

func TestResolveContractUtilities(t *testing.T) {
	prog := NewProgram(testFS())

	loose, ok := prog.ResolveContract("types/index.ts", &TypeRef{Kind: TypeNamed, Name: "Loose"})
	require.True(t, ok)
	assert.Empty(t, loose.Required())

	named, ok := prog.ResolveContract("types/index.ts", &TypeRef{Kind: TypeNamed, Name: "Named"})
	require.True(t, ok)
	assert.Equal(t, []string{"id", "path"}, named.Required())

	either, ok := prog.ResolveContract("types/index.ts", &TypeRef{Kind: TypeNamed, Name: "Either"})
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, either.Required())
	assert.True(t, either.Has("b"))
}

func TestResolveContractThroughReexport(t *testing.T) {
	prog := NewProgram(testFS())
	c, ok := prog.ResolveContract("commands/review.tsx", &TypeRef{Kind: TypeNamed, Name: "Root"})
	require.True(t, ok)
	assert.Equal(t, []string{"id"}, c.Required())
}

func TestResolveContractNotFound(t *testing.T) {
	prog := NewProgram(testFS())
	_, ok := prog.ResolveContract("commands/review.tsx", &TypeRef{Kind: TypeNamed, Name: "Missing"})
	assert.False(t, ok)

	_, ok = prog.ResolveContract("commands/review.tsx", &TypeRef{Kind: TypeNamed, Name: "string"})
	assert.False(t, ok)
}

func TestLookupFollowsImports(t *testing.T) {
	prog := NewProgram(testFS())
	b, ok := prog.Lookup("commands/review.tsx", "Section")
	require.True(t, ok)
	assert.Equal(t, "components/section.tsx", b.File.Path)
	assert.Equal(t, "Section", b.Decl.(*VarDecl).Name)
}

func TestClosureOrder(t *testing.T) {
	prog := NewProgram(testFS())
	files, err := prog.Closure("commands/review.tsx")
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, f.Path)
	}
	assert.Equal(t, []string{
		"commands/review.tsx",
		"types/index.ts",
		"types/base.ts",
		"components/section.tsx",
	}, names)
}

func TestClosureUnresolvedImport(t *testing.T) {
	fsys := fstest.MapFS{"a.tsx": {Data: []byte(`import { X } from "./nope";`)}}
	_, err := NewProgram(fsys).Closure("a.tsx")
	assert.True(t, ir.IsCode(err, ir.ErrUnresolvedReference))
}

type countingFS struct {
	fs.FS
	reads atomic.Int32
}

func (c *countingFS) Open(name string) (fs.File, error) {
	c.reads.Add(1)
	return c.FS.Open(name)
}

func TestLoadParsesOncePerPath(t *testing.T) {
	cfs := &countingFS{FS: testFS()}
	prog := NewProgram(cfs)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, err := prog.Load("types/base.ts")
			assert.NoError(t, err)
			assert.NotNil(t, f)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), cfs.reads.Load())
}

func TestLoadMissing(t *testing.T) {
	_, err := NewProgram(testFS()).Load("nope.tsx")
	assert.ErrorIs(t, err, ErrNotFound)
}
