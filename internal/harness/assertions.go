package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/flowlog/internal/ir"
)

// Expectation kinds, used as AssertionError.Type.
const (
	ExpectRows     = "rows"
	ExpectContains = "contains"
	ExpectAbsent   = "absent"
	ExpectCount    = "count"
)

// AssertionError is returned when an expectation fails. It carries the
// rendered rows to help debug the failure.
type AssertionError struct {
	Type     string
	Relation string
	Expected string
	Actual   string
	Rows     []ir.Row
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s %s\n", e.Relation, e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nRendered %s (%d rows):\n", e.Relation, len(e.Rows))
	for _, row := range e.Rows {
		fmt.Fprintf(&buf, "  %s%s\n", e.Relation, row)
	}

	return buf.String()
}

// EvaluateExpect checks the rendered rows of relation against expect and
// returns one message per failed check. The expectation rows must already
// be valid; LoadScenario guarantees that.
func EvaluateExpect(relation string, rows []ir.Row, expect Expect) []string {
	var errors []string
	fail := func(typ, expected, actual string) {
		err := &AssertionError{
			Type:     typ,
			Relation: relation,
			Expected: expected,
			Actual:   actual,
			Rows:     rows,
		}
		errors = append(errors, err.Error())
	}

	got := rowSet(rows)

	if expect.Rows != nil {
		want, err := toRows(expect.Rows)
		if err != nil {
			return []string{fmt.Sprintf("expect.rows: %v", err)}
		}
		missing, extra := diffRows(want, got)
		if len(missing) > 0 || len(extra) > 0 {
			fail(ExpectRows,
				fmt.Sprintf("exactly %d rows", len(rowSet(want))),
				fmt.Sprintf("missing %s, unexpected %s", formatRows(missing), formatRows(extra)))
		}
	}

	if len(expect.Contains) > 0 {
		want, err := toRows(expect.Contains)
		if err != nil {
			return []string{fmt.Sprintf("expect.contains: %v", err)}
		}
		var missing []ir.Row
		for _, row := range want {
			if _, ok := got[row.Key()]; !ok {
				missing = append(missing, row)
			}
		}
		if len(missing) > 0 {
			fail(ExpectContains, "rows "+formatRows(want), "missing "+formatRows(missing))
		}
	}

	if len(expect.Absent) > 0 {
		unwanted, err := toRows(expect.Absent)
		if err != nil {
			return []string{fmt.Sprintf("expect.absent: %v", err)}
		}
		var present []ir.Row
		for _, row := range unwanted {
			if _, ok := got[row.Key()]; ok {
				present = append(present, row)
			}
		}
		if len(present) > 0 {
			fail(ExpectAbsent, "no rows "+formatRows(unwanted), "found "+formatRows(present))
		}
	}

	if expect.Count != nil && len(got) != *expect.Count {
		fail(ExpectCount, fmt.Sprintf("%d rows", *expect.Count), fmt.Sprintf("%d rows", len(got)))
	}

	return errors
}

// toRows converts YAML row literals into rows.
func toRows(raw [][]any) ([]ir.Row, error) {
	rows := make([]ir.Row, 0, len(raw))
	for i, cells := range raw {
		row := make(ir.Row, len(cells))
		for j, cell := range cells {
			d, err := ir.FromAny(cell)
			if err != nil {
				return nil, fmt.Errorf("row[%d][%d]: %w", i, j, err)
			}
			row[j] = d
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func rowSet(rows []ir.Row) map[string]ir.Row {
	set := make(map[string]ir.Row, len(rows))
	for _, row := range rows {
		set[row.Key()] = row
	}
	return set
}

// diffRows returns the rows of want missing from got and the rows of got
// not in want, both sorted.
func diffRows(want []ir.Row, got map[string]ir.Row) (missing, extra []ir.Row) {
	wantSet := rowSet(want)
	for k, row := range wantSet {
		if _, ok := got[k]; !ok {
			missing = append(missing, row)
		}
	}
	for k, row := range got {
		if _, ok := wantSet[k]; !ok {
			extra = append(extra, row)
		}
	}
	ir.SortRows(missing)
	ir.SortRows(extra)
	return missing, extra
}

func formatRows(rows []ir.Row) string {
	if len(rows) == 0 {
		return "none"
	}
	parts := make([]string, len(rows))
	for i, row := range rows {
		parts[i] = row.String()
	}
	return strings.Join(parts, " ")
}
