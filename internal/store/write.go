package store

import (
	"context"
	"fmt"

	"github.com/roach88/promptc/internal/ir"
)

// BeginBuild records a new build and returns its seq.
func (s *Store) BeginBuild(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (compiler_version) VALUES (?)`, ir.CompilerVersion)
	if err != nil {
		return 0, fmt.Errorf("begin build: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("begin build: %w", err)
	}
	return seq, nil
}

// FinishBuild stores the document counters of build seq.
func (s *Store) FinishBuild(ctx context.Context, seq int64, documents, compiled int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE builds SET documents = ?, compiled = ? WHERE seq = ?`, documents, compiled, seq)
	if err != nil {
		return fmt.Errorf("finish build: %w", err)
	}
	return nil
}

// PutArtifact inserts or replaces the artifact for a.SourcePath together
// with its runtime calls. An empty ID is derived from the source path.
func (s *Store) PutArtifact(ctx context.Context, a Artifact) error {
	if a.ID == "" {
		a.ID = ArtifactID(a.SourcePath)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put artifact: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO artifacts (`+artifactColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_path) DO UPDATE SET
			source_hash = excluded.source_hash,
			kind = excluded.kind,
			name = excluded.name,
			output_path = excluded.output_path,
			artifact_hash = excluded.artifact_hash,
			document_hash = excluded.document_hash,
			compiler_version = excluded.compiler_version,
			ir_version = excluded.ir_version,
			build_seq = excluded.build_seq
	`,
		a.ID,
		a.SourcePath,
		a.SourceHash,
		a.Kind,
		a.Name,
		a.OutputPath,
		a.ArtifactHash,
		a.DocumentHash,
		a.CompilerVersion,
		a.IRVersion,
		a.BuildSeq,
	)
	if err != nil {
		return fmt.Errorf("put artifact %s: %w", a.SourcePath, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM runtime_calls WHERE artifact_id = ?`, a.ID); err != nil {
		return fmt.Errorf("put artifact %s: clear calls: %w", a.SourcePath, err)
	}
	for i, c := range a.Calls {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO runtime_calls (artifact_id, ord, function, args, output)
			VALUES (?, ?, ?, ?, ?)
		`, a.ID, i, c.Function, c.Args, c.Output)
		if err != nil {
			return fmt.Errorf("put artifact %s: call %d: %w", a.SourcePath, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put artifact %s: commit: %w", a.SourcePath, err)
	}
	return nil
}

// Prune deletes the artifacts of every source path not in keep and
// returns how many were removed.
func (s *Store) Prune(ctx context.Context, keep []string) (int, error) {
	known, err := s.Artifacts(ctx)
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	live := make(map[string]bool, len(keep))
	for _, p := range keep {
		live[p] = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("prune: begin tx: %w", err)
	}
	defer tx.Rollback()

	removed := 0
	for _, a := range known {
		if live[a.SourcePath] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM artifacts WHERE id = ?`, a.ID); err != nil {
			return 0, fmt.Errorf("prune %s: %w", a.SourcePath, err)
		}
		removed++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("prune: commit: %w", err)
	}
	return removed, nil
}
