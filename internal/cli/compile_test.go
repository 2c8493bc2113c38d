package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/promptc/internal/testutil"
)

func TestCompile(t *testing.T) {
	root := newProject(t, map[string]string{"src/review.tsx": reviewSrc})

	out, _, err := execute(t, root, "compile", filepath.Join(root, "src", "review.tsx"))
	require.NoError(t, err)
	assert.Equal(t, reviewMD, out)
	assert.NoDirExists(t, filepath.Join(root, ".claude"), "compile writes nothing by default")
}

func TestCompile_OutputFile(t *testing.T) {
	root := newProject(t, map[string]string{"src/review.tsx": reviewSrc})
	dest := filepath.Join(root, "out", "review.md")

	out, _, err := execute(t, root, "compile", filepath.Join(root, "src", "review.tsx"), "-o", dest)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, reviewMD, testutil.ReadFile(t, root, "out/review.md"))
}

func TestCompile_JSON(t *testing.T) {
	root := newProject(t, map[string]string{"src/review.tsx": reviewSrc})

	out, _, err := execute(t, root, "compile", filepath.Join(root, "src", "review.tsx"), "--format", "json")
	require.NoError(t, err)

	resp, data := decode(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "review", data["name"])
	assert.Equal(t, "command", data["kind"])
	assert.Equal(t, reviewMD, data["text"])
}

func TestCompile_Errors(t *testing.T) {
	root := newProject(t, map[string]string{
		"src/a.tsx": `export default <Command><Frobnicate /></Command>;`,
	})

	_, errOut, err := execute(t, root, "compile", filepath.Join(root, "src", "a.tsx"))
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, errOut, "E205")

	_, errOut, err = execute(t, root, "compile", filepath.Join(root, "src", "missing.tsx"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, errOut, ErrCodeNotFound)

	outside := filepath.Join(t.TempDir(), "x.tsx")
	_, errOut, err = execute(t, root, "compile", outside)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, errOut, "outside the project")
}

func TestIR(t *testing.T) {
	root := newProject(t, map[string]string{"src/review.tsx": reviewSrc})
	path := filepath.Join(root, "src", "review.tsx")

	first, _, err := execute(t, root, "ir", path)
	require.NoError(t, err)
	assert.Contains(t, first, `"kind":"command"`)
	assert.Contains(t, first, `"source":"src/review.tsx"`)
	assert.Contains(t, first, "\nhash: ")

	second, _, err := execute(t, root, "ir", path)
	require.NoError(t, err)
	assert.Equal(t, first, second, "canonical IR is stable across runs")

	out, _, err := execute(t, root, "ir", path, "--format", "json")
	require.NoError(t, err)
	_, data := decode(t, out)
	assert.NotEmpty(t, data["hash"])
	assert.Equal(t, "review", data["ir"].(map[string]any)["name"])
}

func TestCheck(t *testing.T) {
	root := newProject(t, map[string]string{
		"src/a.tsx":      `export default <Command><Frobnicate /></Command>;`,
		"src/b.tsx":      `export default <Command>`,
		"src/review.tsx": reviewSrc,
	})

	out, errOut, err := execute(t, root, "check")
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ 2 of 3 document(s) have errors")
	assert.Contains(t, errOut, "E205")
	assert.Contains(t, errOut, "E200")
	assert.NoDirExists(t, filepath.Join(root, ".claude"))

	out, _, err = execute(t, root, "check", filepath.Join(root, "src", "review.tsx"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 1 document(s) valid")
}

func TestCheck_JSON(t *testing.T) {
	root := newProject(t, map[string]string{"src/a.tsx": `export default <Command><Frobnicate /></Command>;`})

	out, _, err := execute(t, root, "check", "--format", "json")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp, data := decode(t, out)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E205", resp.Error.Code)
	assert.Equal(t, "src/a.tsx", resp.Error.Source)
	assert.Equal(t, float64(1), data["failed"])
}
