package store

import (
	"fmt"

	"github.com/google/uuid"
)

// artifactNamespace scopes artifact IDs to promptc.
var artifactNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/roach88/promptc/artifact"))

// ArtifactID returns the stable ID of the artifact built from sourcePath.
func ArtifactID(sourcePath string) string {
	return uuid.NewSHA1(artifactNamespace, []byte(sourcePath)).String()
}

type scanner interface {
	Scan(dest ...any) error
}

// scanArtifact reads the artifact columns in the order of artifactColumns.
func scanArtifact(row scanner) (Artifact, error) {
	var a Artifact
	err := row.Scan(
		&a.ID,
		&a.SourcePath,
		&a.SourceHash,
		&a.Kind,
		&a.Name,
		&a.OutputPath,
		&a.ArtifactHash,
		&a.DocumentHash,
		&a.CompilerVersion,
		&a.IRVersion,
		&a.BuildSeq,
	)
	if err != nil {
		return Artifact{}, fmt.Errorf("scan artifact: %w", err)
	}
	return a, nil
}

const artifactColumns = `id, source_path, source_hash, kind, name, output_path,
	artifact_hash, document_hash, compiler_version, ir_version, build_seq`
