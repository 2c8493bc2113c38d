// Package store provides the SQLite-backed incremental build cache.
//
// The cache records, per source document, the hash of its source closure
// and the artifact that was written for it:
//   - Builds: one row per build, numbered by a logical seq
//   - Artifacts: the last successful compile of each source path
//   - Runtime calls: the runtime-call requests of each artifact, so a build
//     that skips a document can still hand them to the bundler
//
// # Identity
//
// Artifact IDs are name-based UUIDs (SHA-1, version 5) of the source path,
// so the same document always maps to the same row.
//
// # Ordering
//
// All queries order by source path with BINARY collation, or by build seq.
// Wall-clock time is never stored.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
