package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/flowlog/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	Rows   int      `json:"rows"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario-file|scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run YAML conformance scenarios. Each scenario renders one relation
of a CUE program and checks the rows against its expectations.

When golden/<file>.golden exists next to a scenario file, the sorted
rows must also match it byte for byte. --update rewrites golden files.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  flowlog test ./scenarios
  flowlog test ./scenarios --filter "reach*"
  flowlog test ./scenarios/reachability.yaml --update
  flowlog test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, path string, cmd *cobra.Command) error {
	w := cmd.OutOrStdout()

	files, err := harness.FindScenarios(path, opts.Filter)
	if err != nil {
		code := ErrCodeScanError
		var nf *harness.ScenarioNotFoundError
		if errors.As(err, &nf) {
			code = ErrCodeNotFound
		}
		return reportError(w, opts.Format, ExitCommandError, &LoadError{Code: code, Message: err.Error()})
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}

	if len(files) == 0 {
		if opts.Format == "json" {
			return writeOK(w, result)
		}
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}

	for _, outcome := range harness.RunFiles(files) {
		sr := checkOutcome(outcome, opts.Update)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		if opts.Format != "json" {
			printScenario(w, sr, opts.Update)
		}
	}

	if opts.Format == "json" {
		if result.Failed > 0 {
			return writeFailure(w, ExitFailure, "E_TEST_FAILED", fmt.Sprintf("%d scenario(s) failed", result.Failed), result)
		}
		return writeOK(w, result)
	}
	return outputTestText(w, result)
}

// checkOutcome folds the golden file comparison (or update) into the
// harness outcome.
func checkOutcome(o harness.Outcome, update bool) ScenarioResult {
	sr := ScenarioResult{Name: o.Name(), Path: o.Path}

	if o.Err != nil {
		sr.Errors = []string{o.Err.Error()}
		return sr
	}
	sr.Rows = len(o.Result.Rows)
	sr.Errors = append(sr.Errors, o.Result.Errors...)

	snapshot, err := harness.Snapshot(o.Scenario, o.Result)
	if err != nil {
		sr.Errors = append(sr.Errors, fmt.Sprintf("snapshot failed: %v", err))
		return sr
	}

	goldenPath := goldenFilePath(o.Path)
	if update {
		if err := writeGolden(goldenPath, snapshot); err != nil {
			sr.Errors = append(sr.Errors, err.Error())
		}
	} else if golden, err := os.ReadFile(goldenPath); err == nil {
		if !bytes.Equal(golden, snapshot) {
			sr.Errors = append(sr.Errors, "rows do not match golden file (run with --update to regenerate)")
		}
	} else if !os.IsNotExist(err) {
		sr.Errors = append(sr.Errors, fmt.Sprintf("failed to read golden file: %v", err))
	}

	sr.Pass = len(sr.Errors) == 0
	return sr
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

func printScenario(w io.Writer, sr ScenarioResult, update bool) {
	if !sr.Pass {
		fmt.Fprintf(w, "%s %s\n", markFail, sr.Name)
		for _, e := range sr.Errors {
			for _, line := range strings.Split(strings.TrimRight(e, "\n"), "\n") {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
		return
	}
	if update {
		fmt.Fprintf(w, "%s %s (golden updated)\n", markPass, sr.Name)
		return
	}
	fmt.Fprintf(w, "%s %s\n", markPass, sr.Name)
}

func outputTestText(w io.Writer, result TestResult) error {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintf(w, "%s All scenarios passed\n", markPass)
	return nil
}
