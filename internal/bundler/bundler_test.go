package bundler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/promptc/internal/ir"
)

func req(fn, source string) ir.RuntimeCallRequest {
	return ir.RuntimeCallRequest{Function: fn, Args: "'{}'", Output: "OUT", Source: source}
}

func TestBundleReturnsSortedNames(t *testing.T) {
	b := New(nil)
	names, err := b.Bundle(context.Background(), []ir.RuntimeCallRequest{
		req("zeta", "a.tsx"), req("alpha", "a.tsx"), req("zeta", "a.tsx"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, names)
}

func TestBundleFiltersUnavailable(t *testing.T) {
	b := New([]string{"known"})
	names, err := b.Bundle(context.Background(), []ir.RuntimeCallRequest{req("known", "a.tsx"), req("missing", "a.tsx")})
	require.NoError(t, err)
	assert.Equal(t, []string{"known"}, names)
	assert.Equal(t, []string{"known"}, b.Manifest().Functions)
}

func TestBundleHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(nil).Bundle(ctx, []ir.RuntimeCallRequest{req("f", "a.tsx")})
	require.ErrorIs(t, err, context.Canceled)
}

func TestManifestIsOrderedAndDeduplicated(t *testing.T) {
	b := New(nil)
	var wg sync.WaitGroup
	for _, src := range []string{"c.tsx", "a.tsx", "b.tsx", "a.tsx"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Bundle(context.Background(), []ir.RuntimeCallRequest{req("g", src), req("f", src)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	m := b.Manifest()
	assert.Equal(t, []string{"f", "g"}, m.Functions)
	require.Len(t, m.Calls, 6)
	assert.Equal(t, req("f", "a.tsx"), m.Calls[0])
	assert.Equal(t, req("g", "c.tsx"), m.Calls[5])
}

func TestWriteManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runtime", "manifest.json")

	empty := New(nil)
	require.NoError(t, empty.WriteManifest(path))
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))

	b := New(nil)
	_, err = b.Bundle(context.Background(), []ir.RuntimeCallRequest{req("f", "a.tsx")})
	require.NoError(t, err)
	require.NoError(t, b.WriteManifest(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		`{"calls":[{"args":"'{}'","function":"f","output":"OUT","source":"a.tsx"}],"functions":["f"],"version":1}`+"\n",
		string(data))
}
