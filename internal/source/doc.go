// Package source reads promptc documents: a TSX subset made of imports,
// interfaces and type aliases, const declarations, arrow functions and JSX.
//
// Parse turns one file into an AST whose nodes carry byte spans, so every
// later error can point at file:line:col. Program loads files from an fs.FS,
// caches parsed ASTs for concurrent readers, follows relative imports and
// resolves generic type arguments to Interface Contracts.
package source
