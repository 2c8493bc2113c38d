package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainSource   = "promptc/source/v1"
	DomainArtifact = "promptc/artifact/v1"
	DomainDocument = "promptc/document/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SourceHash hashes the concatenated source of a document and every file it
// transitively imports, in the order given. The compiler version is mixed in
// so a compiler upgrade invalidates cached builds.
func SourceHash(files ...[]byte) string {
	h := sha256.New()
	h.Write([]byte(DomainSource))
	h.Write([]byte{0x00})
	h.Write([]byte(CompilerVersion))
	for _, f := range files {
		h.Write([]byte{0x00})
		fmt.Fprintf(h, "%d:", len(f))
		h.Write(f)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ArtifactHash hashes rendered output text.
func ArtifactHash(text string) string {
	return hashWithDomain(DomainArtifact, []byte(text))
}

// DocumentHash computes the content hash of a Document's canonical JSON.
func DocumentHash(doc *Document) (string, error) {
	canonical, err := MarshalDocument(doc)
	if err != nil {
		return "", fmt.Errorf("DocumentHash: %w", err)
	}
	return hashWithDomain(DomainDocument, canonical), nil
}
