package store

import (
	"context"
	"testing"

	"github.com/roach88/flowlog/internal/ir"
)

func TestWriteFacts_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rows := []ir.Row{ir.Ints(1, 2), ir.Ints(2, 3)}
	if err := s.WriteFacts(ctx, "edge", rows); err != nil {
		t.Fatalf("WriteFacts() failed: %v", err)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM facts WHERE relation = 'edge'").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 facts, got %d", count)
	}

	var rowJSON string
	if err := s.db.QueryRow("SELECT row_json FROM facts ORDER BY seq LIMIT 1").Scan(&rowJSON); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if rowJSON != "[1,2]" {
		t.Errorf("row_json = %q, want canonical [1,2]", rowJSON)
	}
}

func TestWriteFacts_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rows := []ir.Row{ir.Ints(1, 2), ir.Ints(1, 2)}
	for i := 0; i < 2; i++ {
		if err := s.WriteFacts(ctx, "edge", rows); err != nil {
			t.Fatalf("WriteFacts() #%d failed: %v", i, err)
		}
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM facts").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("duplicate facts should be ignored, got %d rows", count)
	}
}

func TestWriteFacts_SameRowDifferentRelation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteFacts(ctx, "a", []ir.Row{ir.Ints(1)}); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteFacts(ctx, "b", []ir.Row{ir.Ints(1)}); err != nil {
		t.Fatal(err)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM facts").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected one fact per relation, got %d", count)
	}
}

func TestWriteRun_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := Run{ID: "run-1", ProgramHash: "p", EngineVersion: ir.EngineVersion, FormatVersion: ir.FormatVersion, Steps: 12}
	relations := map[string][]ir.Row{
		"reachable": {ir.Ints(1), ir.Ints(2), ir.Ints(3)},
		"empty":     {},
	}
	if err := s.WriteRun(ctx, run, relations); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM rows WHERE run_id = 'run-1'").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 rows, got %d", count)
	}

	var digest string
	var rowCount int
	err := s.db.QueryRow(
		"SELECT digest, row_count FROM run_relations WHERE run_id = 'run-1' AND relation = 'reachable'",
	).Scan(&digest, &rowCount)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	want, _ := ir.RelationDigest("reachable", relations["reachable"])
	if digest != want {
		t.Errorf("digest = %s, want %s", digest, want)
	}
	if rowCount != 3 {
		t.Errorf("row_count = %d, want 3", rowCount)
	}
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := Run{ID: "run-1", ProgramHash: "p", Steps: 1}
	relations := map[string][]ir.Row{"r": {ir.Ints(1), ir.Ints(1), ir.Ints(2)}}

	for i := 0; i < 2; i++ {
		if err := s.WriteRun(ctx, run, relations); err != nil {
			t.Fatalf("WriteRun() #%d failed: %v", i, err)
		}
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM rows").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("rows are keyed by hash, expected 2, got %d", count)
	}
}

func TestWriteRun_RequiresID(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteRun(context.Background(), Run{}, nil)
	if err == nil {
		t.Fatal("expected error for run without id")
	}
}

func TestWriteRun_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// A nil datum cannot be encoded, which fails the second relation.
	relations := map[string][]ir.Row{
		"a": {ir.Ints(1)},
		"b": {{nil}},
	}
	if err := s.WriteRun(ctx, Run{ID: "run-x"}, relations); err == nil {
		t.Fatal("expected error for unencodable row")
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("failed write must not leave a run behind, got %d", count)
	}
}

func TestUUIDv7Generator(t *testing.T) {
	var gen IDGenerator = UUIDv7Generator{}

	a := gen.Generate()
	b := gen.Generate()
	if len(a) != 36 {
		t.Errorf("expected 36-character id, got %q", a)
	}
	if a == b {
		t.Error("ids must be unique")
	}
	if a[14] != '7' {
		t.Errorf("expected version 7 id, got %q", a)
	}
}
