package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowlog/internal/ir"
)

func TestReadFacts_OrderedByRelationThenImport(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteFacts(ctx, "edge", []ir.Row{ir.Ints(2, 3), ir.Ints(1, 2)}))
	require.NoError(t, s.WriteFacts(ctx, "city", []ir.Row{{ir.String("oslo"), ir.Bool(true)}}))

	facts, err := s.ReadFacts(ctx)
	require.NoError(t, err)

	assert.Equal(t, []Fact{
		{Relation: "city", Row: ir.Row{ir.String("oslo"), ir.Bool(true)}},
		{Relation: "edge", Row: ir.Ints(2, 3)},
		{Relation: "edge", Row: ir.Ints(1, 2)},
	}, facts)
}

func TestReadFacts_Empty(t *testing.T) {
	s := createTestStore(t)

	facts, err := s.ReadFacts(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, facts)
	assert.Empty(t, facts)
}

func TestReadRows_DerivationOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rows := []ir.Row{ir.Ints(3), ir.Ints(1), ir.Ints(2)}
	require.NoError(t, s.WriteRun(ctx, Run{ID: "r1"}, map[string][]ir.Row{"reachable": rows}))

	got, err := s.ReadRows(ctx, "r1", "reachable")
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	missing, err := s.ReadRows(ctx, "r1", "nope")
	require.NoError(t, err)
	assert.NotNil(t, missing)
	assert.Empty(t, missing)
}

func TestListRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteRun(ctx, Run{ID: "b", ProgramHash: "h2", Steps: 4},
		map[string][]ir.Row{"x": {ir.Ints(1)}}))
	require.NoError(t, s.WriteRun(ctx, Run{ID: "a", ProgramHash: "h1", EngineVersion: "0.1.0", FormatVersion: "1", Steps: 9},
		map[string][]ir.Row{"y": {ir.Ints(1), ir.Ints(2)}, "x": {}}))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "a", runs[0].ID)
	assert.Equal(t, "h1", runs[0].ProgramHash)
	assert.Equal(t, 9, runs[0].Steps)
	require.Len(t, runs[0].Relations, 2)
	assert.Equal(t, "x", runs[0].Relations[0].Relation)
	assert.Equal(t, 0, runs[0].Relations[0].RowCount)
	assert.Equal(t, "y", runs[0].Relations[1].Relation)
	assert.Equal(t, 2, runs[0].Relations[1].RowCount)

	assert.Equal(t, "b", runs[1].ID)
	assert.Len(t, runs[1].Relations, 1)
}

func TestReadRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rows := []ir.Row{ir.Ints(1), ir.Ints(2)}
	require.NoError(t, s.WriteRun(ctx, Run{ID: "r1", ProgramHash: "h", Steps: 3},
		map[string][]ir.Row{"reachable": rows}))

	run, err := s.ReadRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "h", run.ProgramHash)
	assert.Equal(t, 3, run.Steps)
	require.Len(t, run.Relations, 1)

	digest, err := ir.RelationDigest("reachable", rows)
	require.NoError(t, err)
	assert.Equal(t, digest, run.Relations[0].Digest)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.Contains(t, err.Error(), "missing")
}

func TestListRuns_Empty(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRoundTrip_ReopenedStore(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir + "/flow.db")
	require.NoError(t, err)
	require.NoError(t, s.WriteFacts(ctx, "edge", []ir.Row{{ir.String("a"), ir.String("b")}}))
	require.NoError(t, s.Close())

	s, err = Open(dir + "/flow.db")
	require.NoError(t, err)
	defer s.Close()

	facts, err := s.ReadFacts(ctx)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.True(t, facts[0].Row.Equal(ir.Row{ir.String("a"), ir.String("b")}))
}
