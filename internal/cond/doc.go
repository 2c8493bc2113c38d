// Package cond resolves source expressions against declarations and
// component bindings. It produces runtime references, static literals and
// condition trees, and renders conditions as jq tests and as prose.
package cond
