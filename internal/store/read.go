package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/promptc/internal/ir"
)

// Artifact is the cached result of compiling one source document.
type Artifact struct {
	ID              string
	SourcePath      string
	SourceHash      string // hash of the source closure and compiler version
	Kind            string
	Name            string
	OutputPath      string
	ArtifactHash    string
	DocumentHash    string
	CompilerVersion string
	IRVersion       string
	BuildSeq        int64
	Calls           []ir.RuntimeCallRequest
}

// Build is one recorded build.
type Build struct {
	Seq             int64
	CompilerVersion string
	Documents       int
	Compiled        int
}

// Artifact returns the cached artifact for sourcePath, with ok=false when
// none exists.
func (s *Store) Artifact(ctx context.Context, sourcePath string) (Artifact, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+artifactColumns+` FROM artifacts WHERE source_path = ?`, sourcePath)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Artifact{}, false, nil
	}
	if err != nil {
		return Artifact{}, false, err
	}
	a.Calls, err = s.calls(ctx, a.ID, a.SourcePath)
	if err != nil {
		return Artifact{}, false, err
	}
	return a, true, nil
}

// Fresh returns the cached artifact for sourcePath when it was built from
// sourceHash by the running compiler version.
func (s *Store) Fresh(ctx context.Context, sourcePath, sourceHash string) (Artifact, bool, error) {
	a, ok, err := s.Artifact(ctx, sourcePath)
	if err != nil || !ok {
		return Artifact{}, false, err
	}
	if a.SourceHash != sourceHash || a.CompilerVersion != ir.CompilerVersion || a.IRVersion != ir.IRVersion {
		return Artifact{}, false, nil
	}
	return a, true, nil
}

// Artifacts returns every cached artifact ordered by source path. Runtime
// calls are not loaded.
func (s *Store) Artifacts(ctx context.Context) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+artifactColumns+` FROM artifacts ORDER BY source_path COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := []Artifact{}
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return artifacts, nil
}

// calls returns the runtime calls of an artifact in recorded order.
func (s *Store) calls(ctx context.Context, id, source string) ([]ir.RuntimeCallRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT function, args, output
		FROM runtime_calls
		WHERE artifact_id = ?
		ORDER BY ord ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query runtime calls: %w", err)
	}
	defer rows.Close()

	var calls []ir.RuntimeCallRequest
	for rows.Next() {
		c := ir.RuntimeCallRequest{Source: source}
		if err := rows.Scan(&c.Function, &c.Args, &c.Output); err != nil {
			return nil, fmt.Errorf("scan runtime call: %w", err)
		}
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runtime calls: %w", err)
	}
	return calls, nil
}

// LastBuild returns the most recent build, with ok=false before the first.
func (s *Store) LastBuild(ctx context.Context) (Build, bool, error) {
	var b Build
	err := s.db.QueryRowContext(ctx, `
		SELECT seq, compiler_version, documents, compiled
		FROM builds
		ORDER BY seq DESC
		LIMIT 1
	`).Scan(&b.Seq, &b.CompilerVersion, &b.Documents, &b.Compiled)
	if errors.Is(err, sql.ErrNoRows) {
		return Build{}, false, nil
	}
	if err != nil {
		return Build{}, false, fmt.Errorf("last build: %w", err)
	}
	return b, true, nil
}
