// Package emit renders IR Documents as markdown artifacts: a YAML
// front-matter block, an optional <runtime-variables> block, then the body.
//
// Rendering threads a small state value through every block: the stack of
// open lists and the heading offset added by enclosing sections. Runtime
// variables referenced while rendering are recorded so the variable block
// lists only what the body reads. Text is NFC normalized and the result is
// byte-identical across runs.
package emit
