package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Outputs["src/a.tsx"] = "# Title\n"
	result.Failures["src/b.tsx"] = "E205"
	result.Functions = []string{"listFiles"}

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"contains", Assertion{Type: AssertOutputContains, Document: "src/a.tsx", Text: "Title"}, ""},
		{"contains miss", Assertion{Type: AssertOutputContains, Document: "src/a.tsx", Text: "Other"}, `output containing "Other"`},
		{"not contains", Assertion{Type: AssertOutputNotContains, Document: "src/a.tsx", Text: "Other"}, ""},
		{"equals", Assertion{Type: AssertOutputEquals, Document: "src/a.tsx", Text: "# Title\n"}, ""},
		{"output of failed document", Assertion{Type: AssertOutputContains, Document: "src/b.tsx", Text: "x"}, "document failed with E205"},
		{"output of unknown document", Assertion{Type: AssertOutputEquals, Document: "src/c.tsx"}, "no output"},
		{"error code", Assertion{Type: AssertErrorCode, Document: "src/b.tsx", Code: "E205"}, ""},
		{"error code mismatch", Assertion{Type: AssertErrorCode, Document: "src/b.tsx", Code: "E200"}, "Actual: E205"},
		{"manifest", Assertion{Type: AssertManifestContains, Function: "listFiles"}, ""},
		{"manifest miss", Assertion{Type: AssertManifestContains, Function: "readFile"}, "call of readFile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(result, []Assertion{tt.assertion})
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestAssertionError_Error(t *testing.T) {
	err := &AssertionError{Type: AssertErrorCode, Document: "src/a.tsx", Expected: "E200", Actual: "E205"}
	assert.Equal(t, "Assertion failed: error_code (src/a.tsx)\n  Expected: E200\n  Actual: E205\n", err.Error())
}
