package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/promptc/internal/bundler"
	"github.com/roach88/promptc/internal/compiler"
	"github.com/roach88/promptc/internal/config"
	"github.com/roach88/promptc/internal/store"
)

// Project is a loaded promptc project: its configuration and a compiler
// over its root.
type Project struct {
	Config   *config.Config
	Compiler *compiler.Compiler
	Bundler  *bundler.Bundler
	Cache    *store.Store // nil unless opened with a cache
	Logger   *slog.Logger
}

// Close releases the build cache.
func (p *Project) Close() error {
	if p.Cache == nil {
		return nil
	}
	return p.Cache.Close()
}

// LoadProject loads the configuration named by --config, or promptc.cue in
// the working directory. The project root is the directory holding the
// configuration file. With withCache the build cache is opened.
func LoadProject(opts *RootOptions, cmd *cobra.Command, withCache bool) (*Project, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	if opts.Config != "" {
		abs, err := filepath.Abs(opts.Config)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		root = filepath.Dir(abs)
	}

	cfg, err := config.Load(root, opts.Config)
	if err != nil {
		return nil, err
	}

	logger := newLogger(opts, cmd.ErrOrStderr())
	p := &Project{
		Config:  cfg,
		Bundler: bundler.New(cfg.RuntimeFunctions),
		Logger:  logger,
	}
	if withCache {
		p.Cache, err = store.Open(cfg.Path(cfg.Cache))
		if err != nil {
			return nil, fmt.Errorf("open build cache: %w", err)
		}
	}
	p.Compiler = compiler.New(os.DirFS(root), compiler.Options{
		Config:  cfg,
		Bundler: p.Bundler,
		Cache:   p.Cache,
		Logger:  logger,
	})
	logger.Debug("project loaded", "root", root, "source_dir", cfg.SourceDir)
	return p, nil
}

// Documents resolves command-line paths to project-relative slash paths.
// Without arguments it discovers every document below the source
// directory.
func (p *Project) Documents(args []string) ([]string, error) {
	if len(args) == 0 {
		docs, err := p.Compiler.Discover(filepath.ToSlash(filepath.Clean(p.Config.SourceDir)))
		if err != nil {
			return nil, fmt.Errorf("discover documents: %w", err)
		}
		return docs, nil
	}
	docs := make([]string, 0, len(args))
	for _, arg := range args {
		rel, err := p.Rel(arg)
		if err != nil {
			return nil, err
		}
		docs = append(docs, rel)
	}
	return docs, nil
}

// Rel converts a path given on the command line, relative to the working
// directory or absolute, to a slash path relative to the project root.
func (p *Project) Rel(arg string) (string, error) {
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(p.Config.Root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &PathError{Path: arg, Message: "outside the project " + p.Config.Root}
	}
	if _, err := os.Stat(abs); err != nil {
		return "", &PathError{Path: arg, Message: "document not found"}
	}
	return filepath.ToSlash(rel), nil
}

// PathError reports a command-line path that names no project document.
type PathError struct {
	Path    string
	Message string
}

func (e *PathError) Error() string { return e.Path + ": " + e.Message }

// formatterFor builds the output formatter of a command.
func formatterFor(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// commandError reports err and converts it to an ExitError. Errors that
// already carry an exit code keep it.
func commandError(f *OutputFormatter, err error) error {
	desc := describeError(err)
	_ = f.Error(desc)
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	return WrapExitError(ExitCommandError, desc.Code, err)
}
