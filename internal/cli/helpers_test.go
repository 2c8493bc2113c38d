package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/promptc/internal/testutil"
)

const reviewSrc = `export default <Command description="Review a file">Hello <Bold>world</Bold>!</Command>;`

const reviewMD = "---\ndescription: Review a file\n---\n\nHello **world**!\n"

const callsSrc = `
const files = useRuntimeVar("FILES");
export default <Command><RuntimeCall fn="listFiles" args={{ depth: 2 }} output={files} /></Command>;
`

// newProject writes a project with an empty promptc.cue plus files and
// returns its root.
func newProject(t *testing.T, files map[string]string) string {
	t.Helper()
	all := map[string]string{"promptc.cue": ""}
	for k, v := range files {
		all[k] = v
	}
	return testutil.WriteProject(t, all)
}

// execute runs the root command against the project at root.
func execute(t *testing.T, root string, args ...string) (string, string, error) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if root != "" {
		args = append(args, "--config", filepath.Join(root, "promptc.cue"))
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// decode parses a JSON response envelope with a map payload.
func decode(t *testing.T, out string) (CLIResponse, map[string]any) {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	data, _ := resp.Data.(map[string]any)
	return resp, data
}
