package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/flowlog/internal/compiler"
)

// CheckResult holds the outcome of checking a program.
type CheckResult struct {
	Valid     bool                       `json:"valid"`
	Relations []string                   `json:"relations"`
	Errors    []compiler.ValidationError `json:"errors,omitempty"`
	Recursion []compiler.RecursiveGroup  `json:"recursion"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <program-dir>",
		Short: "Validate a program without evaluating it",
		Long: `Load a CUE program and report every structural problem: arity
mismatches, relations used without facts or rules, unsafe clauses and
empty names. Recursive relations are listed for information.

Exit codes:
  0 - Program is valid
  1 - Program has errors
  2 - Command error (directory not found, no CUE files)

Examples:
  flowlog check ./reachability
  flowlog check ./reachability --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runCheck(opts *RootOptions, dir string, cmd *cobra.Command) error {
	w := cmd.OutOrStdout()

	p, err := LoadProgram(dir)
	if err != nil {
		return reportError(w, opts.Format, loadExitCode(err), err)
	}

	result := CheckResult{
		Relations: p.Relations(),
		Errors:    compiler.Validate(p),
		Recursion: compiler.AnalyzeRecursion(p),
	}
	result.Valid = len(result.Errors) == 0

	if opts.Format == "json" {
		if result.Valid {
			return writeOK(w, result)
		}
		first := result.Errors[0]
		return writeFailure(w, ExitFailure, first.Code,
			fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)), result)
	}

	return outputCheckText(w, result)
}

func outputCheckText(w io.Writer, result CheckResult) error {
	if !result.Valid {
		fmt.Fprintf(w, "%s Validation failed\n\n", markFail)
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  %s\n", e.Error())
		}
		fmt.Fprintln(w)
	} else {
		fmt.Fprintf(w, "%s Program valid (%d relations)\n", markPass, len(result.Relations))
	}

	for _, g := range result.Recursion {
		fmt.Fprintf(w, "  recursive: %s\n", g.Message)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}
	return nil
}

// loadExitCode maps a LoadProgram error to an exit code: problems in the
// program text are failures, missing or empty directories are command
// errors.
func loadExitCode(err error) int {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		switch loadErr.Code {
		case ErrCodeLoadFailed, ErrCodeDecode:
			return ExitFailure
		}
	}
	return ExitCommandError
}
