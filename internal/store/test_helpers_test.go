package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/promptc/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestArtifact creates an artifact with minimal required fields.
func createTestArtifact(source, sourceHash string, seq int64) Artifact {
	return Artifact{
		SourcePath:      source,
		SourceHash:      sourceHash,
		Kind:            "command",
		Name:            "doc",
		OutputPath:      ".claude/commands/doc.md",
		ArtifactHash:    "artifact-hash",
		DocumentHash:    "document-hash",
		CompilerVersion: ir.CompilerVersion,
		IRVersion:       ir.IRVersion,
		BuildSeq:        seq,
	}
}
