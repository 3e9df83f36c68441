package store

import (
	"context"
	"fmt"

	"github.com/roach88/flowlog/internal/ir"
)

// Run describes one exported evaluation.
type Run struct {
	ID            string
	ProgramHash   string
	EngineVersion string
	FormatVersion string
	Steps         int

	// Relations is filled by ListRuns; WriteRun derives it from the rows.
	Relations []RelationSummary
}

// RelationSummary is the per-relation record of a run.
type RelationSummary struct {
	Relation string
	RowCount int
	Digest   string
}

// WriteFacts inserts ground rows for relation.
// Uses ON CONFLICT DO NOTHING: a row already present for the relation is
// silently skipped, so importing the same facts twice is a no-op.
func (s *Store) WriteFacts(ctx context.Context, relation string, rows []ir.Row) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write facts: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO facts (relation, row_json)
		VALUES (?, ?)
		ON CONFLICT(relation, row_json) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write facts: prepare: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		rowJSON, err := ir.MarshalCanonical(row)
		if err != nil {
			return fmt.Errorf("write facts: %s row %d: %w", relation, i, err)
		}
		if _, err := stmt.ExecContext(ctx, relation, string(rowJSON)); err != nil {
			return fmt.Errorf("write facts: %s row %d: %w", relation, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write facts: commit: %w", err)
	}
	return nil
}

// WriteRun stores run and the rendered rows of each relation in one
// transaction. Rows keep their slice order as seq. A row is identified by
// ir.RowHash, so duplicate rows within a relation and rewrites of the same
// run are ignored.
func (s *Store) WriteRun(ctx context.Context, run Run, relations map[string][]ir.Row) error {
	if run.ID == "" {
		return fmt.Errorf("write run: id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, program_hash, engine_version, format_version, steps)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.ProgramHash, run.EngineVersion, run.FormatVersion, run.Steps)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO rows (run_id, relation, seq, row_hash, row_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, relation, row_hash) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write run: prepare: %w", err)
	}
	defer stmt.Close()

	for _, relation := range sortedKeys(relations) {
		rows := relations[relation]
		for i, row := range rows {
			hash, err := ir.RowHash(relation, row)
			if err != nil {
				return fmt.Errorf("write run: %s row %d: %w", relation, i, err)
			}
			rowJSON, err := ir.MarshalCanonical(row)
			if err != nil {
				return fmt.Errorf("write run: %s row %d: %w", relation, i, err)
			}
			if _, err := stmt.ExecContext(ctx, run.ID, relation, i, hash, string(rowJSON)); err != nil {
				return fmt.Errorf("write run: %s row %d: %w", relation, i, err)
			}
		}

		digest, err := ir.RelationDigest(relation, rows)
		if err != nil {
			return fmt.Errorf("write run: digest %s: %w", relation, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_relations (run_id, relation, row_count, digest)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(run_id, relation) DO NOTHING
		`, run.ID, relation, len(rows), digest)
		if err != nil {
			return fmt.Errorf("write run: summary %s: %w", relation, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}
