package ir

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode identifies a compile error category (E200-E299).
type ErrorCode string

// Compile error codes. Every code is fatal for the document being compiled.
const (
	ErrSyntax                ErrorCode = "E200" // source could not be parsed
	ErrUnresolvedReference   ErrorCode = "E201" // name used but never declared
	ErrStructuralViolation   ErrorCode = "E202" // nesting or placement constraint breached
	ErrUnsupportedExpression ErrorCode = "E203" // expression shape cannot be translated
	ErrContractViolation     ErrorCode = "E204" // typed invocation missing required properties
	ErrUnknownComponent      ErrorCode = "E205" // tag outside the dispatch table
)

var errorCodeNames = map[ErrorCode]string{
	ErrSyntax:                "SyntaxError",
	ErrUnresolvedReference:   "UnresolvedReference",
	ErrStructuralViolation:   "StructuralViolation",
	ErrUnsupportedExpression: "UnsupportedExpression",
	ErrContractViolation:     "ContractViolation",
	ErrUnknownComponent:      "UnknownComponent",
}

// Name returns the taxonomy name of the code, e.g. "ContractViolation".
func (c ErrorCode) Name() string {
	if n, ok := errorCodeNames[c]; ok {
		return n
	}
	return "CompileError"
}

// CompileError is the single error type raised by the compilation core.
// Any CompileError aborts the document; no partial Document is produced.
type CompileError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Pos     Pos       `json:"pos"`

	// Construct is the verbatim source text of the offending expression
	// (UnsupportedExpression) or tag (UnknownComponent).
	Construct string `json:"construct,omitempty"`

	// Missing lists every missing required property (ContractViolation),
	// in contract order.
	Missing []string `json:"missing,omitempty"`
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Pos.IsValid() || e.Pos.File != "" {
		return fmt.Sprintf("%s: %s [%s]: %s", e.Pos, e.Code.Name(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Code.Name(), e.Code, e.Message)
}

// Errorf builds a CompileError with a formatted message.
func Errorf(code ErrorCode, pos Pos, format string, args ...any) *CompileError {
	return &CompileError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
	}
}

// Unsupported builds an UnsupportedExpression error naming the construct.
func Unsupported(pos Pos, construct, reason string) *CompileError {
	return &CompileError{
		Code:      ErrUnsupportedExpression,
		Message:   fmt.Sprintf("unsupported expression %q: %s", construct, reason),
		Pos:       pos,
		Construct: construct,
	}
}

// ContractViolation builds a ContractViolation listing every missing property.
func ContractViolation(pos Pos, invocation, contract string, missing []string) *CompileError {
	return &CompileError{
		Code: ErrContractViolation,
		Message: fmt.Sprintf("%s does not satisfy %s: missing required %s %s",
			invocation, contract, plural(len(missing), "property", "properties"), strings.Join(missing, ", ")),
		Pos:     pos,
		Missing: missing,
	}
}

// CodeOf returns the ErrorCode of err, or "" if err is not a CompileError.
func CodeOf(err error) ErrorCode {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsCode reports whether err is a CompileError with the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
