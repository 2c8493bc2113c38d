package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/promptc/internal/compiler"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	Incremental bool
}

// BuildArtifact describes one rendered document.
type BuildArtifact struct {
	Source string `json:"source"`
	Kind   string `json:"kind"`
	Output string `json:"output"`
	Hash   string `json:"hash"`
	Cached bool   `json:"cached"`
}

// BuildSummary is the JSON payload of the build command.
type BuildSummary struct {
	Seq       int64           `json:"seq"`
	Documents int             `json:"documents"`
	Compiled  int             `json:"compiled"`
	Cached    int             `json:"cached"`
	Pruned    int             `json:"pruned"`
	Manifest  string          `json:"manifest,omitempty"`
	Artifacts []BuildArtifact `json:"artifacts"`
	Errors    []CLIError      `json:"errors,omitempty"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build [documents...]",
		Short: "Compile documents and write their artifacts",
		Long: `Compile every document below the source directory, or the named
documents, and write the rendered Markdown plus the runtime manifest.

A document that fails does not stop the others. With --incremental,
documents whose sources, imports and compiler version are unchanged are
taken from the build cache.

Exit codes:
  0 - Every document built
  1 - One or more documents failed
  2 - Command error (bad config, I/O failure, output conflict)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Incremental, "incremental", "i", false, "reuse cached artifacts of unchanged documents")

	return cmd
}

func runBuild(opts *BuildOptions, args []string, cmd *cobra.Command) error {
	formatter := formatterFor(opts.RootOptions, cmd)

	project, err := LoadProject(opts.RootOptions, cmd, true)
	if err != nil {
		return commandError(formatter, err)
	}
	defer project.Close()

	paths, err := project.Documents(args)
	if err != nil {
		return commandError(formatter, err)
	}
	if len(paths) == 0 {
		_ = formatter.Error(CLIError{Code: ErrCodeNoDocuments, Message: fmt.Sprintf("no documents found in %s", project.Config.SourceDir)})
		return NewExitError(ExitCommandError, "no documents found")
	}
	formatter.VerboseLog("Building %d document(s)", len(paths))

	// Pruning follows a full build only; a partial build says nothing
	// about the documents it did not name.
	res, err := project.Compiler.Build(cmd.Context(), paths, compiler.BuildOptions{
		Incremental: opts.Incremental,
		Prune:       len(args) == 0,
	})
	if err != nil {
		return commandError(formatter, err)
	}

	manifest := project.Config.Path(project.Config.Manifest)
	if err := project.Bundler.WriteManifest(manifest); err != nil {
		_ = formatter.Error(CLIError{Code: ErrCodeWriteFailed, Message: err.Error()})
		return WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
	}
	if len(project.Bundler.Manifest().Calls) == 0 {
		manifest = ""
	}

	summary := summarize(res, len(paths), manifest)
	if opts.Format == "json" {
		if len(summary.Errors) > 0 {
			_ = formatter.Failures(summary.Errors, summary)
		} else if err := formatter.Success(summary); err != nil {
			return err
		}
	} else {
		outputBuildText(formatter, summary)
	}

	if len(res.Errors) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d document(s) failed", len(res.Errors)))
	}
	return nil
}

func summarize(res *compiler.BuildResult, documents int, manifest string) BuildSummary {
	s := BuildSummary{
		Seq:       res.Seq,
		Documents: documents,
		Compiled:  res.Compiled(),
		Cached:    len(res.Results) - res.Compiled(),
		Pruned:    res.Pruned,
		Manifest:  manifest,
		Artifacts: make([]BuildArtifact, 0, len(res.Results)),
		Errors:    documentErrors(res.Errors),
	}
	for _, r := range res.Results {
		s.Artifacts = append(s.Artifacts, BuildArtifact{
			Source: r.Source,
			Kind:   string(r.Kind),
			Output: r.OutputPath,
			Hash:   r.ArtifactHash,
			Cached: r.Cached,
		})
	}
	return s
}

func outputBuildText(f *OutputFormatter, s BuildSummary) {
	for _, a := range s.Artifacts {
		if a.Cached {
			f.VerboseLog("  %s (cached)", a.Source)
			continue
		}
		f.VerboseLog("  %s -> %s", a.Source, a.Output)
	}
	for _, e := range s.Errors {
		f.writeError(e)
	}
	mark := "✓"
	if len(s.Errors) > 0 {
		mark = "✗"
	}
	fmt.Fprintf(f.Writer, "%s Built %d of %d document(s): %d compiled, %d cached, %d failed\n",
		mark, len(s.Artifacts), s.Documents, s.Compiled, s.Cached, len(s.Errors))
	if s.Manifest != "" {
		fmt.Fprintf(f.Writer, "Wrote runtime manifest to %s\n", s.Manifest)
	}
}
