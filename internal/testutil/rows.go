package testutil

import (
	"testing"

	"github.com/roach88/flowlog/internal/ir"
)

// Rows parses each argument as a JSON array into a row, failing the test
// on malformed input.
//
//	testutil.Rows(t, `[1, 2]`, `["a", true]`)
func Rows(t testing.TB, encoded ...string) []ir.Row {
	t.Helper()
	rows := make([]ir.Row, 0, len(encoded))
	for _, e := range encoded {
		row, err := ir.UnmarshalRow([]byte(e))
		if err != nil {
			t.Fatalf("testutil.Rows(%q): %v", e, err)
		}
		rows = append(rows, row)
	}
	return rows
}

// Sorted returns a sorted copy of rows, for order-insensitive comparison.
func Sorted(rows []ir.Row) []ir.Row {
	out := make([]ir.Row, len(rows))
	copy(out, rows)
	ir.SortRows(out)
	return out
}

// Strings formats rows with Row.String, in the given order.
func Strings(rows []ir.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.String()
	}
	return out
}
