package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/flowlog/internal/ir"
)

// Fact is one imported ground row.
type Fact struct {
	Relation string
	Row      ir.Row
}

// ReadFacts returns every imported fact ordered by relation, then import
// order.
//
// Returns an empty slice (not nil) if there are no facts.
func (s *Store) ReadFacts(ctx context.Context) ([]Fact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT relation, row_json
		FROM facts
		ORDER BY relation COLLATE BINARY ASC, seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	facts := []Fact{}
	for rows.Next() {
		var f Fact
		var rowJSON string
		if err := rows.Scan(&f.Relation, &rowJSON); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		f.Row, err = ir.UnmarshalRow([]byte(rowJSON))
		if err != nil {
			return nil, fmt.Errorf("fact %s: %w", f.Relation, err)
		}
		facts = append(facts, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facts: %w", err)
	}
	return facts, nil
}

// ReadRows returns the stored rows of relation for run, in derivation
// order.
//
// Returns an empty slice (not nil) if nothing was stored.
func (s *Store) ReadRows(ctx context.Context, runID, relation string) ([]ir.Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT row_json
		FROM rows
		WHERE run_id = ? AND relation = ?
		ORDER BY seq ASC, row_hash COLLATE BINARY ASC
	`, runID, relation)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	out := []ir.Row{}
	for rows.Next() {
		var rowJSON string
		if err := rows.Scan(&rowJSON); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row, err := ir.UnmarshalRow([]byte(rowJSON))
		if err != nil {
			return nil, fmt.Errorf("row of %s: %w", relation, err)
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// ListRuns returns every stored run with its relation summaries, ordered
// by id.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, program_hash, engine_version, format_version, steps
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.ProgramHash, &r.EngineVersion, &r.FormatVersion, &r.Steps); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range runs {
		summaries, err := s.readSummaries(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Relations = summaries
	}
	return runs, nil
}

// ErrRunNotFound is returned by ReadRun for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// ReadRun returns one stored run with its relation summaries.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, program_hash, engine_version, format_version, steps
		FROM runs
		WHERE id = ?
	`, id).Scan(&r.ID, &r.ProgramHash, &r.EngineVersion, &r.FormatVersion, &r.Steps)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("query run: %w", err)
	}

	r.Relations, err = s.readSummaries(ctx, id)
	if err != nil {
		return Run{}, err
	}
	return r, nil
}

func (s *Store) readSummaries(ctx context.Context, runID string) ([]RelationSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT relation, row_count, digest
		FROM run_relations
		WHERE run_id = ?
		ORDER BY relation COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run relations: %w", err)
	}
	defer rows.Close()

	summaries := []RelationSummary{}
	for rows.Next() {
		var rs RelationSummary
		if err := rows.Scan(&rs.Relation, &rs.RowCount, &rs.Digest); err != nil {
			return nil, fmt.Errorf("scan run relation: %w", err)
		}
		summaries = append(summaries, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run relations: %w", err)
	}
	return summaries, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
