package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/promptc/internal/ir"
)

func TestArtifactID_Stable(t *testing.T) {
	a := ArtifactID("src/review.tsx")
	assert.Equal(t, a, ArtifactID("src/review.tsx"))
	assert.NotEqual(t, a, ArtifactID("src/other.tsx"))
	assert.Len(t, a, 36)
	assert.Equal(t, byte('5'), a[14], "name-based SHA-1 UUID")
}

func TestBuilds(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, ok, err := s.LastBuild(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	first, err := s.BeginBuild(ctx)
	require.NoError(t, err)
	second, err := s.BeginBuild(ctx)
	require.NoError(t, err)
	assert.Greater(t, second, first)

	require.NoError(t, s.FinishBuild(ctx, second, 3, 1))
	b, ok, err := s.LastBuild(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Build{Seq: second, CompilerVersion: ir.CompilerVersion, Documents: 3, Compiled: 1}, b)
}

func TestPutArtifact_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	seq, err := s.BeginBuild(ctx)
	require.NoError(t, err)

	a := createTestArtifact("src/a.tsx", "h1", seq)
	a.Calls = []ir.RuntimeCallRequest{
		{Function: "scan", Args: `'{}'`, Output: "TREE", Source: "src/a.tsx"},
		{Function: "score", Args: `'{"n":1}'`, Output: "SCORE", Source: "src/a.tsx"},
	}
	require.NoError(t, s.PutArtifact(ctx, a))

	got, ok, err := s.Artifact(ctx, "src/a.tsx")
	require.NoError(t, err)
	require.True(t, ok)
	a.ID = ArtifactID("src/a.tsx")
	assert.Equal(t, a, got)
}

func TestPutArtifact_Replaces(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	seq, err := s.BeginBuild(ctx)
	require.NoError(t, err)

	a := createTestArtifact("src/a.tsx", "h1", seq)
	a.Calls = []ir.RuntimeCallRequest{{Function: "scan", Args: `'{}'`, Output: "T"}}
	require.NoError(t, s.PutArtifact(ctx, a))

	a.SourceHash = "h2"
	a.Calls = nil
	require.NoError(t, s.PutArtifact(ctx, a))

	got, ok, err := s.Artifact(ctx, "src/a.tsx")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "h2", got.SourceHash)
	assert.Empty(t, got.Calls)

	all, err := s.Artifacts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFresh(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	seq, err := s.BeginBuild(ctx)
	require.NoError(t, err)

	_, ok, err := s.Fresh(ctx, "src/a.tsx", "h1")
	require.NoError(t, err)
	assert.False(t, ok, "nothing cached yet")

	require.NoError(t, s.PutArtifact(ctx, createTestArtifact("src/a.tsx", "h1", seq)))

	_, ok, err = s.Fresh(ctx, "src/a.tsx", "h1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = s.Fresh(ctx, "src/a.tsx", "h2")
	require.NoError(t, err)
	assert.False(t, ok, "source changed")

	old := createTestArtifact("src/b.tsx", "h1", seq)
	old.CompilerVersion = "0.0.0"
	require.NoError(t, s.PutArtifact(ctx, old))
	_, ok, err = s.Fresh(ctx, "src/b.tsx", "h1")
	require.NoError(t, err)
	assert.False(t, ok, "built by another compiler version")
}

func TestArtifacts_OrderedByPath(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	seq, err := s.BeginBuild(ctx)
	require.NoError(t, err)

	for _, p := range []string{"src/b.tsx", "src/B.tsx", "src/a.tsx"} {
		require.NoError(t, s.PutArtifact(ctx, createTestArtifact(p, "h", seq)))
	}

	all, err := s.Artifacts(ctx)
	require.NoError(t, err)
	var paths []string
	for _, a := range all {
		paths = append(paths, a.SourcePath)
	}
	assert.Equal(t, []string{"src/B.tsx", "src/a.tsx", "src/b.tsx"}, paths)
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	seq, err := s.BeginBuild(ctx)
	require.NoError(t, err)

	gone := createTestArtifact("src/gone.tsx", "h", seq)
	gone.Calls = []ir.RuntimeCallRequest{{Function: "f", Args: `'{}'`, Output: "X"}}
	require.NoError(t, s.PutArtifact(ctx, gone))
	require.NoError(t, s.PutArtifact(ctx, createTestArtifact("src/kept.tsx", "h", seq)))

	n, err := s.Prune(ctx, []string{"src/kept.tsx"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, err := s.Artifacts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "src/kept.tsx", all[0].SourcePath)

	var calls int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM runtime_calls`).Scan(&calls))
	assert.Zero(t, calls, "calls cascade with their artifact")
}
