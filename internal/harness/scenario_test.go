package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: smallest valid scenario
files:
  src/a.tsx: "export default <Command>a</Command>;"
flow:
  - build: {}
assertions:
  - type: output_contains
    document: src/a.tsx
    text: a
`

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)
	require.Len(t, s.Flow, 1)
	assert.False(t, s.Flow[0].Build.Incremental)
	assert.Nil(t, s.Flow[0].Expect)
}

func TestParseScenario_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: minimalScenario + "assertion: []\n",
			want: "failed to parse YAML",
		},
		{
			name: "missing name",
			yaml: "description: d\n",
			want: "name is required",
		},
		{
			name: "empty flow",
			yaml: "name: n\ndescription: d\nfiles: {a.tsx: x}\nassertions: [{type: manifest_contains, function: f}]\n",
			want: "flow list is required",
		},
		{
			name: "escaping path",
			yaml: "name: n\ndescription: d\nfiles: {../a.tsx: x}\nflow: [{build: {}}]\nassertions: [{type: manifest_contains, function: f}]\n",
			want: "escapes the project",
		},
		{
			name: "absolute remove",
			yaml: "name: n\ndescription: d\nfiles: {a.tsx: x}\nflow: [{remove: [/etc/passwd], build: {}}]\nassertions: [{type: manifest_contains, function: f}]\n",
			want: "flow[0].remove",
		},
		{
			name: "unknown assertion",
			yaml: "name: n\ndescription: d\nfiles: {a.tsx: x}\nflow: [{build: {}}]\nassertions: [{type: trace_contains}]\n",
			want: `unknown assertion type "trace_contains"`,
		},
		{
			name: "error_code without code",
			yaml: "name: n\ndescription: d\nfiles: {a.tsx: x}\nflow: [{build: {}}]\nassertions: [{type: error_code, document: a.tsx}]\n",
			want: "document and code are required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadScenario_Missing(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/does_not_exist.yaml")
	assert.ErrorContains(t, err, "failed to read scenario file")
}
