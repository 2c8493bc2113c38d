package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompileResult is the JSON payload of the compile command.
type CompileResult struct {
	Source    string   `json:"source"`
	Kind      string   `json:"kind"`
	Name      string   `json:"name"`
	Hash      string   `json:"hash"`
	Functions []string `json:"functions,omitempty"`
	Text      string   `json:"text"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <document>",
		Short: "Compile one document and print its Markdown",
		Long: `Compile a single TSX document and print the rendered Markdown to
stdout, or to the file named by --output. Nothing else is written.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, arg string, cmd *cobra.Command) error {
	formatter := formatterFor(opts.RootOptions, cmd)

	project, err := LoadProject(opts.RootOptions, cmd, false)
	if err != nil {
		return commandError(formatter, err)
	}

	path, err := project.Rel(arg)
	if err != nil {
		return commandError(formatter, err)
	}

	r, err := project.Compiler.Compile(cmd.Context(), path)
	if err != nil {
		_ = formatter.Failures([]CLIError{describeError(err)}, nil)
		return WrapExitError(ExitFailure, "compilation failed", err)
	}

	if opts.Output != "" {
		if err := writeOutput(opts.Output, r.Text); err != nil {
			_ = formatter.Error(CLIError{Code: ErrCodeWriteFailed, Message: err.Error()})
			return WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
		}
		formatter.VerboseLog("Wrote %s", opts.Output)
	}

	if opts.Format == "json" {
		return formatter.Success(CompileResult{
			Source:    r.Source,
			Kind:      string(r.Kind),
			Name:      r.Name,
			Hash:      r.ArtifactHash,
			Functions: project.Bundler.Manifest().Functions,
			Text:      r.Text,
		})
	}
	if opts.Output == "" {
		fmt.Fprint(formatter.Writer, r.Text)
	}
	return nil
}

func writeOutput(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
