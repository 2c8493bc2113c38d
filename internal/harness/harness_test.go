package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"basic_build", "incremental"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_RuntimeCalls(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/runtime_calls.yaml")
	require.NoError(t, err)

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, []string{"listFiles"}, result.Functions)
	require.Len(t, result.Builds, 2)
	assert.Equal(t, []string{"src/calls.tsx"}, result.Builds[1].Cached)
}

func TestRun_ReportsFailedExpectations(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: wrong
description: expectations that do not hold
files:
  src/review.tsx: |
    export default <Command>Hi</Command>;
flow:
  - build: {}
    expect:
      compiled: 2
assertions:
  - type: output_contains
    document: src/review.tsx
    text: "Bye"
  - type: error_code
    document: src/review.tsx
    code: E200
`))
	require.NoError(t, err)

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "expected 2 compiled, got 1")
	assert.Contains(t, result.Errors[1], "output_contains")
	assert.Contains(t, result.Errors[2], "document compiled")
}

func TestRun_InvalidConfig(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: bad_config
description: configuration outside the schema
config: |
  concurrency: 0
files:
  src/review.tsx: |
    export default <Command>Hi</Command>;
flow:
  - build: {}
assertions:
  - type: manifest_contains
    function: listFiles
`))
	require.NoError(t, err)

	_, err = Run(context.Background(), scenario)
	assert.ErrorContains(t, err, "bad_config")
}

func TestLoadScenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)

	var names []string
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"basic_build", "incremental", "runtime_calls"}, names)
}
