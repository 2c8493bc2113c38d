package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteProject(t *testing.T) {
	root := WriteProject(t, map[string]string{
		"promptc.cue":        "concurrency: 2\n",
		"src/lib/banner.tsx": "export const Banner = 1;\n",
	})

	assert.FileExists(t, filepath.Join(root, "promptc.cue"))
	assert.Equal(t, "export const Banner = 1;\n", ReadFile(t, root, "src/lib/banner.tsx"))
}

func TestWriteFile_Overwrites(t *testing.T) {
	root := t.TempDir()
	WriteFile(t, root, "a/b.txt", "one")
	WriteFile(t, root, "a/b.txt", "two")
	assert.Equal(t, "two", ReadFile(t, root, "a/b.txt"))
}
