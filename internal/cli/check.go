package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CheckSummary is the JSON payload of the check command.
type CheckSummary struct {
	Checked int        `json:"checked"`
	Failed  int        `json:"failed"`
	Errors  []CLIError `json:"errors,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [documents...]",
		Short: "Validate documents without writing anything",
		Long: `Transform and validate every document below the source directory, or
the named documents, and report every error found. Nothing is written.

Exit codes:
  0 - Every document is valid
  1 - One or more documents have errors
  2 - Command error`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runCheck(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := formatterFor(opts, cmd)

	project, err := LoadProject(opts, cmd, false)
	if err != nil {
		return commandError(formatter, err)
	}
	paths, err := project.Documents(args)
	if err != nil {
		return commandError(formatter, err)
	}

	report, err := project.Compiler.Check(cmd.Context(), paths)
	if err != nil {
		return commandError(formatter, err)
	}

	summary := CheckSummary{
		Checked: report.Checked,
		Failed:  len(report.Errors),
		Errors:  documentErrors(report.Errors),
	}

	if opts.Format == "json" {
		if summary.Failed > 0 {
			_ = formatter.Failures(summary.Errors, summary)
		} else if err := formatter.Success(summary); err != nil {
			return err
		}
	} else {
		for _, e := range summary.Errors {
			formatter.writeError(e)
		}
		if summary.Failed == 0 {
			fmt.Fprintf(formatter.Writer, "✓ %d document(s) valid\n", summary.Checked)
		} else {
			fmt.Fprintf(formatter.Writer, "✗ %d of %d document(s) have errors\n", summary.Failed, summary.Checked)
		}
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", summary.Failed))
	}
	return nil
}
