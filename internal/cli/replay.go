package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/flowlog/internal/compiler"
	"github.com/roach88/flowlog/internal/ir"
	"github.com/roach88/flowlog/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	FactsDB  string
	RunID    string // optional - specific run only
}

// ReplayRelation compares one stored relation with its re-evaluation.
type ReplayRelation struct {
	Relation     string `json:"relation"`
	StoredRows   int    `json:"stored_rows"`
	RenderedRows int    `json:"rendered_rows"`
	StoredDigest string `json:"stored_digest"`
	Digest       string `json:"digest"`
	Match        bool   `json:"match"`
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID         string           `json:"run_id"`
	ProgramMatch  bool             `json:"program_match"`
	Relations     []ReplayRelation `json:"relations"`
	Deterministic bool             `json:"deterministic"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	ProgramHash      string            `json:"program_hash"`
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <program-dir>",
		Short: "Re-evaluate stored runs and verify determinism",
		Long: `Re-evaluate a program and compare the result with runs stored by
"flowlog eval --db". Every stored relation is rendered again and its
digest compared with the stored digest.

A run whose program hash differs from the current program is reported,
but its relations are still compared.

Exit codes:
  0 - Every relation matches
  1 - At least one relation differs
  2 - Command error (database not found, bad program, etc.)

Examples:
  flowlog replay ./reachability --db ./runs.db
  flowlog replay ./reachability --db ./runs.db --run 0190a0b2-...
  flowlog replay ./graph --db ./runs.db --facts-db ./facts.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.FactsDB, "facts-db", "", "SQLite database to import facts from")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")

	return cmd
}

func runReplay(ctx context.Context, opts *ReplayOptions, dir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	w := cmd.OutOrStdout()

	p, err := LoadProgram(dir)
	if err != nil {
		return reportError(w, opts.Format, ExitCommandError, err)
	}
	if opts.FactsDB != "" {
		if err := importFacts(ctx, p, opts.FactsDB); err != nil {
			return reportError(w, opts.Format, ExitCommandError, err)
		}
	}
	hash, err := p.Hash()
	if err != nil {
		return reportError(w, opts.Format, ExitCommandError, err)
	}

	st, err := openExisting(opts.Database)
	if err != nil {
		return reportError(w, opts.Format, ExitCommandError, err)
	}
	defer st.Close()

	var runs []store.Run
	if opts.RunID != "" {
		run, err := st.ReadRun(ctx, opts.RunID)
		if errors.Is(err, store.ErrRunNotFound) {
			return reportError(w, opts.Format, ExitCommandError, &LoadError{Code: ErrCodeNotFound, Message: err.Error()})
		}
		if err != nil {
			return reportError(w, opts.Format, ExitCommandError, storeError(err))
		}
		runs = []store.Run{run}
	} else {
		runs, err = st.ListRuns(ctx)
		if err != nil {
			return reportError(w, opts.Format, ExitCommandError, storeError(err))
		}
	}

	result := ReplayResult{
		ProgramHash:      hash,
		Runs:             make([]ReplayRunResult, 0, len(runs)),
		TotalRuns:        len(runs),
		AllDeterministic: true,
	}
	for _, run := range runs {
		runResult, err := replayRun(p, hash, run)
		if err != nil {
			return reportError(w, opts.Format, ExitCommandError, convertCompileError(err))
		}
		result.Runs = append(result.Runs, runResult)
		if !runResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		if result.AllDeterministic {
			return writeOK(w, result)
		}
		return writeFailure(w, ExitFailure, "E_DETERMINISM", "determinism verification failed", result)
	}
	return outputReplayText(w, result, opts.Verbose)
}

// replayRun renders every relation stored for run and compares digests.
// Each run gets its own compilation so runs are independent.
func replayRun(p *compiler.Program, hash string, run store.Run) (ReplayRunResult, error) {
	names := make([]string, len(run.Relations))
	for i, rs := range run.Relations {
		names[i] = rs.Relation
	}

	rendered, err := p.RenderAll(names...)
	if err != nil {
		return ReplayRunResult{}, err
	}

	result := ReplayRunResult{
		RunID:         run.ID,
		ProgramMatch:  run.ProgramHash == hash,
		Relations:     make([]ReplayRelation, 0, len(run.Relations)),
		Deterministic: true,
	}
	for _, rs := range run.Relations {
		rows := rendered[rs.Relation]
		digest, err := ir.RelationDigest(rs.Relation, rows)
		if err != nil {
			return ReplayRunResult{}, err
		}
		rel := ReplayRelation{
			Relation:     rs.Relation,
			StoredRows:   rs.RowCount,
			RenderedRows: len(rows),
			StoredDigest: rs.Digest,
			Digest:       digest,
			Match:        digest == rs.Digest && len(rows) == rs.RowCount,
		}
		if !rel.Match {
			result.Deterministic = false
		}
		result.Relations = append(result.Relations, rel)
	}
	return result, nil
}

func outputReplayText(w io.Writer, result ReplayResult, verbose bool) error {
	if result.TotalRuns == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n\n", result.TotalRuns)

	for _, run := range result.Runs {
		status := markPass
		if !run.Deterministic {
			status = markFail
		}
		fmt.Fprintf(w, "%s Run: %s\n", status, run.RunID)
		if !run.ProgramMatch {
			fmt.Fprintln(w, "  Note: program changed since this run was stored")
		}

		for _, rel := range run.Relations {
			switch {
			case !rel.Match:
				fmt.Fprintf(w, "  %s %s: stored %d rows, rendered %d rows\n", markFail, rel.Relation, rel.StoredRows, rel.RenderedRows)
				if verbose {
					fmt.Fprintf(w, "    stored digest:   %s\n", rel.StoredDigest)
					fmt.Fprintf(w, "    rendered digest: %s\n", rel.Digest)
				}
			case verbose:
				fmt.Fprintf(w, "  %s %s: %d rows\n", markPass, rel.Relation, rel.RenderedRows)
			}
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintf(w, "%s All runs verified deterministic\n", markPass)
		return nil
	}

	fmt.Fprintf(w, "%s Determinism verification failed\n", markFail)
	return NewExitError(ExitFailure, "determinism verification failed")
}
