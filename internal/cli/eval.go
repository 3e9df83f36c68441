package cli

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/flowlog/internal/compiler"
	"github.com/roach88/flowlog/internal/dataflow"
	"github.com/roach88/flowlog/internal/ir"
	"github.com/roach88/flowlog/internal/store"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	Outputs  []string
	FactsDB  string
	Database string

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	RunIDs store.IDGenerator
}

// EvalResult is the JSON payload of the eval command.
type EvalResult struct {
	RunID     string             `json:"run_id,omitempty"`
	Relations map[string][][]any `json:"relations"`
	Stats     dataflow.Stats     `json:"stats"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	return newEvalCommand(&EvalOptions{RootOptions: rootOpts})
}

func newEvalCommand(opts *EvalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <program-dir>",
		Short: "Evaluate a program to fixpoint",
		Long: `Load a CUE program, evaluate it to fixpoint and print the rows of
the requested relations, sorted.

With --facts-db, facts imported into that database are added to the
program first. With --db, the run and its rendered rows are stored.

Examples:
  flowlog eval ./reachability --output reachable
  flowlog eval ./graph -o path,edge --format json
  flowlog eval ./graph -o path --facts-db ./facts.db --db ./runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Outputs, "output", "o", nil, "relations to render (required)")
	_ = cmd.MarkFlagRequired("output")
	cmd.Flags().StringVar(&opts.FactsDB, "facts-db", "", "SQLite database to import facts from")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database to store the run in")

	return cmd
}

func runEval(ctx context.Context, opts *EvalOptions, dir string, cmd *cobra.Command) error {
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

	outputs := dedupe(opts.Outputs)
	plan, err := compiler.Compile(p, outputs)
	if err != nil {
		return reportError(w, opts.Format, ExitCommandError, convertCompileError(err))
	}
	res := plan.Run()

	result := EvalResult{
		Relations: make(map[string][][]any, len(outputs)),
		Stats:     res.Stats,
	}
	for _, name := range outputs {
		ir.SortRows(res.Relations[name])
		result.Relations[name] = rowsJSON(res.Relations[name])
	}

	if opts.Database != "" {
		runID, err := storeRun(ctx, opts, p, res)
		if err != nil {
			return reportError(w, opts.Format, ExitCommandError, err)
		}
		result.RunID = runID
	}

	if opts.Format == "json" {
		return writeOK(w, result)
	}

	for _, name := range outputs {
		printRows(w, name, res.Relations[name])
	}
	if result.RunID != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "stored run %s\n", result.RunID)
	}
	return nil
}

// importFacts adds every fact stored in the database at path to p.
func importFacts(ctx context.Context, p *compiler.Program, path string) error {
	st, err := store.Open(path)
	if err != nil {
		return &LoadError{Code: ErrCodeStore, Message: fmt.Sprintf("failed to open facts database: %v", err)}
	}
	defer st.Close()

	facts, err := st.ReadFacts(ctx)
	if err != nil {
		return &LoadError{Code: ErrCodeStore, Message: err.Error()}
	}
	for _, f := range facts {
		p.Fact(f.Relation, f.Row...)
	}
	slog.Info("imported facts", "path", path, "count", len(facts))
	return nil
}

// storeRun writes the evaluated relations as a new run and returns its id.
func storeRun(ctx context.Context, opts *EvalOptions, p *compiler.Program, res *compiler.Result) (string, error) {
	hash, err := p.Hash()
	if err != nil {
		return "", &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("hashing program: %v", err)}
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return "", &LoadError{Code: ErrCodeStore, Message: fmt.Sprintf("failed to open database: %v", err)}
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	ids := opts.RunIDs
	if ids == nil {
		ids = store.UUIDv7Generator{}
	}
	run := store.Run{
		ID:            ids.Generate(),
		ProgramHash:   hash,
		EngineVersion: ir.EngineVersion,
		FormatVersion: ir.FormatVersion,
		Steps:         res.Stats.Steps,
	}
	if err := st.WriteRun(ctx, run, res.Relations); err != nil {
		return "", &LoadError{Code: ErrCodeStore, Message: err.Error()}
	}
	slog.Info("stored run", "id", run.ID, "relations", len(res.Relations))
	return run.ID, nil
}

// dedupe drops repeated names, keeping first occurrences in order.
func dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}
