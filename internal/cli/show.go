package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/flowlog/internal/ir"
	"github.com/roach88/flowlog/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - one run only
	Relation string // optional - requires RunID
}

// ShowRun is one stored run in show output.
type ShowRun struct {
	ID            string                  `json:"id"`
	ProgramHash   string                  `json:"program_hash"`
	EngineVersion string                  `json:"engine_version"`
	FormatVersion string                  `json:"format_version"`
	Steps         int                     `json:"steps"`
	Relations     []store.RelationSummary `json:"relations"`
	Rows          map[string][][]any      `json:"rows,omitempty"`

	rows map[string][]ir.Row
}

// ShowResult is the JSON payload of the show command.
type ShowResult struct {
	Runs []ShowRun `json:"runs"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show stored runs and rows",
		Long: `List the runs stored by "flowlog eval --db", or print the rows of
one stored run.

Without --run every run is listed with its relation summaries. With
--run the run's rows are printed in derivation order; --relation limits
the output to one relation.

Examples:
  flowlog show --db ./runs.db
  flowlog show --db ./runs.db --run 0190a0b2-...
  flowlog show --db ./runs.db --run 0190a0b2-... --relation reachable --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to print rows for")
	cmd.Flags().StringVar(&opts.Relation, "relation", "", "only print this relation (requires --run)")

	return cmd
}

func runShow(ctx context.Context, opts *ShowOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	w := cmd.OutOrStdout()

	if opts.Relation != "" && opts.RunID == "" {
		return NewExitError(ExitCommandError, "--relation requires --run")
	}

	st, err := openExisting(opts.Database)
	if err != nil {
		return reportError(w, opts.Format, ExitCommandError, err)
	}
	defer st.Close()

	var result ShowResult
	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return reportError(w, opts.Format, ExitCommandError, storeError(err))
		}
		result.Runs = make([]ShowRun, len(runs))
		for i, r := range runs {
			result.Runs[i] = showRun(r)
		}
	} else {
		run, err := loadRunRows(ctx, st, opts.RunID, opts.Relation)
		if err != nil {
			return reportError(w, opts.Format, ExitCommandError, err)
		}
		result.Runs = []ShowRun{run}
	}

	if opts.Format == "json" {
		return writeOK(w, result)
	}
	return outputShowText(w, result, opts.Verbose)
}

// openExisting opens the database at path, refusing to create a new one.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("database not found: %s", path)}
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, storeError(err)
	}
	return st, nil
}

func storeError(err error) *LoadError {
	return &LoadError{Code: ErrCodeStore, Message: err.Error()}
}

func showRun(r store.Run) ShowRun {
	return ShowRun{
		ID:            r.ID,
		ProgramHash:   r.ProgramHash,
		EngineVersion: r.EngineVersion,
		FormatVersion: r.FormatVersion,
		Steps:         r.Steps,
		Relations:     r.Relations,
	}
}

// loadRunRows reads one run and the rows of relation, or of every
// relation when relation is empty.
func loadRunRows(ctx context.Context, st *store.Store, runID, relation string) (ShowRun, error) {
	r, err := st.ReadRun(ctx, runID)
	if errors.Is(err, store.ErrRunNotFound) {
		return ShowRun{}, &LoadError{Code: ErrCodeNotFound, Message: err.Error()}
	}
	if err != nil {
		return ShowRun{}, storeError(err)
	}

	run := showRun(r)
	run.Rows = make(map[string][][]any)
	run.rows = make(map[string][]ir.Row)
	found := false
	for _, rs := range r.Relations {
		if relation != "" && rs.Relation != relation {
			continue
		}
		found = true
		rows, err := st.ReadRows(ctx, runID, rs.Relation)
		if err != nil {
			return ShowRun{}, storeError(err)
		}
		run.Rows[rs.Relation] = rowsJSON(rows)
		run.rows[rs.Relation] = rows
	}
	if relation != "" && !found {
		return ShowRun{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("relation %q not stored in run %s", relation, runID)}
	}
	return run, nil
}

func outputShowText(w io.Writer, result ShowResult, verbose bool) error {
	if len(result.Runs) == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}

	for _, run := range result.Runs {
		fmt.Fprintf(w, "Run: %s\n", run.ID)
		fmt.Fprintf(w, "  program %s, %d steps\n", shortHash(run.ProgramHash, verbose), run.Steps)
		if verbose {
			fmt.Fprintf(w, "  engine %s, format %s\n", run.EngineVersion, run.FormatVersion)
		}
		for _, rs := range run.Relations {
			rows, printed := run.rows[rs.Relation]
			if run.rows != nil && !printed {
				continue
			}
			fmt.Fprintf(w, "  %s: %d rows, digest %s\n", rs.Relation, rs.RowCount, shortHash(rs.Digest, verbose))
			for _, row := range rows {
				fmt.Fprintf(w, "    %s%s\n", rs.Relation, row)
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}

func shortHash(h string, full bool) string {
	if full || len(h) <= 12 {
		return h
	}
	return h[:12]
}
