// Package transform turns a parsed source document into an IR Document.
//
// The transform walks the default-exported <Command> or <Agent> element,
// dispatching each JSX element either to a local component, which is
// expanded inline with its props bound, or to the closed table of built-in
// elements. Expressions are resolved through package cond. The first error
// aborts the document; no partial Document is ever returned.
package transform
