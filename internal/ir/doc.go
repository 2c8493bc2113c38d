// Package ir provides the intermediate representation produced by the
// transform engine and consumed by the emission engine.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// IR the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - The node set is closed: every Node is one of the kinds listed in
//     node.go and consumers switch over them exhaustively
//   - Nodes are tree shaped and owned by their parent; nothing is shared
//   - NO float types in literal values - use int64 for numbers
//   - Documents are immutable once the transform returns them
//   - Canonical JSON (RFC 8785 ordering, NFC strings) is the only
//     serialization used for hashing
package ir
