package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/promptc/internal/ir"
)

// Snapshot renders a result as canonical JSON for golden comparison.
func Snapshot(name string, result *Result) ([]byte, error) {
	builds := make([]any, len(result.Builds))
	for i, b := range result.Builds {
		builds[i] = map[string]any{
			"step":     int64(b.Step),
			"compiled": b.Compiled,
			"cached":   b.Cached,
			"failed":   b.Failed,
		}
	}
	outputs := make(map[string]any, len(result.Outputs))
	for k, v := range result.Outputs {
		outputs[k] = v
	}
	failures := make(map[string]any, len(result.Failures))
	for k, v := range result.Failures {
		failures[k] = v
	}
	functions := result.Functions
	if functions == nil {
		functions = []string{}
	}
	return ir.MarshalCanonical(map[string]any{
		"scenario":  name,
		"pass":      result.Pass,
		"builds":    builds,
		"outputs":   outputs,
		"failures":  failures,
		"functions": functions,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
