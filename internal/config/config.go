// Package config loads promptc project configuration from CUE.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// FileName is the configuration file looked up in the project root.
const FileName = "promptc.cue"

//go:embed schema.cue
var schemaCUE string

// Config is the resolved project configuration. Relative paths are
// relative to Root.
type Config struct {
	Root string `json:"-"`

	SourceDir         string   `json:"sourceDir"`
	OutDir            string   `json:"outDir"`
	CommandsDir       string   `json:"commandsDir"`
	AgentsDir         string   `json:"agentsDir"`
	RuntimePath       string   `json:"runtimePath"`
	RuntimeFunctions  []string `json:"runtimeFunctions"`
	Manifest          string   `json:"manifest"`
	MaxExpansionDepth int      `json:"maxExpansionDepth"`
	Concurrency       int      `json:"concurrency"`
	Cache             string   `json:"cache"`
}

// Error is a configuration error with the CUE position that caused it.
type Error struct {
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Default returns the configuration used when no promptc.cue exists.
func Default(root string) (*Config, error) {
	return Parse(root, FileName, nil)
}

// Load reads path, or root/promptc.cue when path is empty. A missing
// default file yields the defaults; a missing explicit file is an error.
func Load(root, path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = filepath.Join(root, FileName)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(root)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(root, path, data)
}

// Parse unifies src with the embedded schema and decodes the result.
func Parse(root, filename string, src []byte) (*Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("config schema: %w", err)
	}

	v := schema
	if len(src) > 0 {
		user := ctx.CompileBytes(src, cue.Filename(filename))
		if err := user.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		v = schema.Unify(user)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	cfg := &Config{}
	if err := v.Decode(cfg); err != nil {
		return nil, formatCUEError(err)
	}
	cfg.Root = root
	return cfg, nil
}

// Path resolves a configured relative path against Root.
func (c *Config) Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.Root, rel)
}

// OutputPath returns where a document named name of the given kind is
// written.
func (c *Config) OutputPath(kind, name string) string {
	dir := c.CommandsDir
	if kind == "agent" {
		dir = c.AgentsDir
	}
	return c.Path(filepath.Join(c.OutDir, dir, name+".md"))
}

// formatCUEError keeps the first error and its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	e := &Error{Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}
