package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/promptc/internal/harness"
)

type testFlags struct {
	*RootOptions
	update bool
	filter string
}

// ScenarioOutcome is the verdict on one scenario file.
type ScenarioOutcome struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestSummary tallies a test run.
type TestSummary struct {
	Scenarios []ScenarioOutcome `json:"scenarios"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
	Total     int               `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &testFlags{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run build scenarios",
		Long: `Run end-to-end build scenarios.

Each scenario file describes a project, a sequence of edits and builds,
and assertions on the final build. When golden/<name>.golden exists next
to the scenarios directory the build snapshot must match it.

Exit codes:
  0 - every scenario passed
  1 - a scenario failed
  2 - the scenarios directory or filter is unusable

Examples:
  promptc test ./testdata/scenarios
  promptc test ./testdata/scenarios --filter "incremental*"
  promptc test ./testdata/scenarios --update
  promptc test ./testdata/scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd, flags, args[0])
		},
	}

	cmd.Flags().BoolVar(&flags.update, "update", false, "rewrite golden files from the current snapshots")
	cmd.Flags().StringVar(&flags.filter, "filter", "", "only run scenarios whose file name matches this glob")
	return cmd
}

func runTests(cmd *cobra.Command, flags *testFlags, dir string) error {
	formatter := formatterFor(flags.RootOptions, cmd)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return commandError(formatter, &PathError{Path: dir, Message: "scenarios directory not found"})
	}

	files, err := scenarioFiles(dir, flags.filter)
	if err != nil {
		return commandError(formatter, err)
	}

	// Progress lines go to stdout in text mode only.
	progress := io.Discard
	if flags.Format != "json" {
		progress = cmd.OutOrStdout()
	}

	h := harness.New(newLogger(flags.RootOptions, cmd.ErrOrStderr()))
	summary := TestSummary{Scenarios: []ScenarioOutcome{}, Total: len(files)}
	for _, file := range files {
		o := runScenarioFile(cmd, h, flags.update, dir, file)
		report(progress, o, flags.update)
		summary.Scenarios = append(summary.Scenarios, o)
		if o.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}

	var failure error
	if summary.Failed > 0 {
		failure = NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", summary.Failed))
	}

	if flags.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: summary}
		if failure != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeScenarioFailed, Message: failure.Error()}
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
		return failure
	}

	w := cmd.OutOrStdout()
	if len(files) == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}
	fmt.Fprintf(w, "\nTest Summary: %d passed, %d failed, %d total\n", summary.Passed, summary.Failed, summary.Total)
	if failure == nil {
		fmt.Fprintln(w, "✓ All scenarios passed")
	}
	return failure
}

func report(w io.Writer, o ScenarioOutcome, updated bool) {
	switch {
	case !o.Pass:
		fmt.Fprintf(w, "✗ %s\n", o.Name)
		for _, e := range o.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	case updated:
		fmt.Fprintf(w, "✓ %s (golden updated)\n", o.Name)
	default:
		fmt.Fprintf(w, "✓ %s\n", o.Name)
	}
}

// scenarioFiles lists the .yaml and .yml files directly in dir, sorted by
// name. filter is matched against the name without its extension.
func scenarioFiles(dir, filter string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		if filter != "" {
			ok, err := filepath.Match(filter, strings.TrimSuffix(e.Name(), ext))
			if err != nil {
				return nil, fmt.Errorf("bad --filter pattern %q: %w", filter, err)
			}
			if !ok {
				continue
			}
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// runScenarioFile loads, runs and snapshots one scenario. With update the
// snapshot replaces the golden file; otherwise an existing golden file must
// match it byte for byte.
func runScenarioFile(cmd *cobra.Command, h *harness.Harness, update bool, dir, file string) ScenarioOutcome {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return failed(filepath.Base(file), "load: "+err.Error())
	}
	result, err := h.Run(cmd.Context(), scenario)
	if err != nil {
		return failed(scenario.Name, "run: "+err.Error())
	}
	snapshot, err := harness.Snapshot(scenario.Name, result)
	if err != nil {
		return failed(scenario.Name, "snapshot: "+err.Error())
	}

	golden := goldenPath(dir, scenario.Name)
	if update {
		if err := os.MkdirAll(filepath.Dir(golden), 0o755); err != nil {
			return failed(scenario.Name, "update golden: "+err.Error())
		}
		if err := os.WriteFile(golden, snapshot, 0o644); err != nil {
			return failed(scenario.Name, "update golden: "+err.Error())
		}
		return ScenarioOutcome{Name: scenario.Name, Pass: true}
	}

	errs := result.Errors
	switch want, err := os.ReadFile(golden); {
	case err == nil:
		if !bytes.Equal(want, snapshot) {
			errs = append(errs, "build snapshot does not match golden file (run with --update to regenerate)")
		}
	case !os.IsNotExist(err):
		errs = append(errs, "read golden: "+err.Error())
	}
	if len(errs) > 0 {
		return failed(scenario.Name, errs...)
	}
	return ScenarioOutcome{Name: scenario.Name, Pass: true}
}

func failed(name string, errs ...string) ScenarioOutcome {
	return ScenarioOutcome{Name: name, Errors: errs}
}

// goldenPath is golden/<name>.golden beside the scenarios directory.
func goldenPath(dir, name string) string {
	return filepath.Join(filepath.Dir(filepath.Clean(dir)), "golden", name+".golden")
}
