package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Document string
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Document != "" {
		fmt.Fprintf(&buf, " (%s)", e.Document)
	}
	fmt.Fprintf(&buf, "\n  Expected: %s\n  Actual: %s\n", e.Expected, e.Actual)
	return buf.String()
}

// output returns the artifact of a document, or an error naming why there
// is none.
func output(result *Result, a Assertion) (string, error) {
	text, ok := result.Outputs[a.Document]
	if ok {
		return text, nil
	}
	actual := "no output"
	if code, failed := result.Failures[a.Document]; failed {
		actual = "document failed with " + code
	}
	return "", &AssertionError{Type: a.Type, Document: a.Document, Expected: "a rendered artifact", Actual: actual}
}

func assertOutput(result *Result, a Assertion) error {
	text, err := output(result, a)
	if err != nil {
		return err
	}
	switch a.Type {
	case AssertOutputContains:
		if !strings.Contains(text, a.Text) {
			return &AssertionError{Type: a.Type, Document: a.Document, Expected: fmt.Sprintf("output containing %q", a.Text), Actual: fmt.Sprintf("%q", text)}
		}
	case AssertOutputNotContains:
		if strings.Contains(text, a.Text) {
			return &AssertionError{Type: a.Type, Document: a.Document, Expected: fmt.Sprintf("output without %q", a.Text), Actual: fmt.Sprintf("%q", text)}
		}
	case AssertOutputEquals:
		if text != a.Text {
			return &AssertionError{Type: a.Type, Document: a.Document, Expected: fmt.Sprintf("%q", a.Text), Actual: fmt.Sprintf("%q", text)}
		}
	}
	return nil
}

func assertErrorCode(result *Result, a Assertion) error {
	code, ok := result.Failures[a.Document]
	if !ok {
		return &AssertionError{Type: a.Type, Document: a.Document, Expected: "failure with " + a.Code, Actual: "document compiled"}
	}
	if code != a.Code {
		return &AssertionError{Type: a.Type, Document: a.Document, Expected: a.Code, Actual: code}
	}
	return nil
}

func assertManifestContains(result *Result, a Assertion) error {
	if !slices.Contains(result.Functions, a.Function) {
		return &AssertionError{Type: a.Type, Expected: "call of " + a.Function, Actual: fmt.Sprintf("functions %v", result.Functions)}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertOutputContains, AssertOutputNotContains, AssertOutputEquals:
			err = assertOutput(result, assertion)
		case AssertErrorCode:
			err = assertErrorCode(result, assertion)
		case AssertManifestContains:
			err = assertManifestContains(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
