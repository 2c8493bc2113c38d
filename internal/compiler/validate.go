package compiler

import (
	"fmt"

	"github.com/roach88/promptc/internal/cond"
	"github.com/roach88/promptc/internal/ir"
)

// Document validation error codes (E120-E129). These guard the emitter
// against IR the transform should never have produced.
const (
	ErrUnknownDocumentKind = "E120" // kind is neither command nor agent
	ErrInvalidCondition    = "E121" // condition tree breaks a structural rule
	ErrLoopUnbounded       = "E122" // loop without a positive bound
	ErrHeadingLevel        = "E123" // heading level outside 1-6
	ErrDuplicateVariable   = "E124" // runtime name declared twice
	ErrIncompleteCall      = "E125" // runtime call without function or output
)

// ValidationError represents a document validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidateDocument checks the structural rules the emitter relies on.
// Returns all errors found (does not fail-fast).
func ValidateDocument(doc *ir.Document) []ValidationError {
	var errs []ValidationError
	add := func(code, field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code})
	}

	if !ir.ValidDocumentKinds[doc.Kind] {
		add(ErrUnknownDocumentKind, "kind", "unknown document kind %q", doc.Kind)
	}

	seen := make(map[string]bool, len(doc.Variables))
	for _, v := range doc.Variables {
		if seen[v.Name] {
			add(ErrDuplicateVariable, "variables", "runtime name $%s declared more than once", v.Name)
		}
		seen[v.Name] = true
	}

	for i, b := range doc.Body {
		field := fmt.Sprintf("body[%d]", i)
		ir.Walk(b, func(n ir.Node) bool {
			switch v := n.(type) {
			case ir.Condition:
				for _, msg := range cond.Validate(v).Errors {
					add(ErrInvalidCondition, field, "%s", msg)
				}
				return false
			case *ir.Loop:
				if v.Max.Ref == nil && v.Max.Static <= 0 {
					add(ErrLoopUnbounded, field, "loop has no positive bound")
				}
			case *ir.Heading:
				if v.Level < 1 || v.Level > 6 {
					add(ErrHeadingLevel, field, "heading level %d outside 1-6", v.Level)
				}
			case *ir.RuntimeCall:
				if v.Function == "" || v.Output == "" {
					add(ErrIncompleteCall, field, "runtime call needs a function and an output")
				}
			}
			return true
		})
	}
	return errs
}
