// Package compiler drives promptc: it discovers documents, transforms each
// into an IR Document, emits the rendered artifact and writes it, keeping
// the incremental build cache current.
//
// One document compiles single-threaded. Build compiles documents in
// parallel, bounded by the configured concurrency, and returns results in
// source path order so output never depends on scheduling.
package compiler
