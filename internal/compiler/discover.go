package compiler

import (
	"io/fs"
	"path"
	"slices"
	"strings"
)

// Discover returns every document below dir, sorted: .tsx files with a
// default export. Files without one are component libraries and are only
// compiled through the documents that import them. A file that fails to
// parse is returned so the error surfaces when it is compiled.
func (c *Compiler) Discover(dir string) ([]string, error) {
	var docs []string
	err := fs.WalkDir(c.fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != dir && (strings.HasPrefix(d.Name(), ".") || d.Name() == "node_modules") {
				return fs.SkipDir
			}
			return nil
		}
		if path.Ext(p) != ".tsx" {
			return nil
		}
		f, err := c.program.Load(p)
		if err != nil || f.Default() != nil {
			docs = append(docs, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(docs)
	return docs, nil
}
