package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/promptc/internal/ir"
)

// NewIRCommand creates the ir command.
func NewIRCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ir <document>",
		Short: "Print the canonical IR of a document",
		Long: `Transform a document and print its IR as canonical JSON (sorted keys,
no insignificant whitespace) followed by the IR hash. The hash is stable
across runs and machines for the same sources and compiler version.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIR(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runIR(opts *RootOptions, arg string, cmd *cobra.Command) error {
	formatter := formatterFor(opts, cmd)

	project, err := LoadProject(opts, cmd, false)
	if err != nil {
		return commandError(formatter, err)
	}
	path, err := project.Rel(arg)
	if err != nil {
		return commandError(formatter, err)
	}

	doc, err := project.Compiler.Transform(cmd.Context(), path)
	if err != nil {
		_ = formatter.Failures([]CLIError{describeError(err)}, nil)
		return WrapExitError(ExitFailure, "transform failed", err)
	}

	data, err := ir.MarshalDocument(doc)
	if err != nil {
		return commandError(formatter, err)
	}
	hash, err := ir.DocumentHash(doc)
	if err != nil {
		return commandError(formatter, err)
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]any{
			"source": path,
			"hash":   hash,
			"ir":     json.RawMessage(data),
		})
	}
	fmt.Fprintln(formatter.Writer, string(data))
	fmt.Fprintf(formatter.Writer, "hash: %s\n", hash)
	return nil
}
