package harness

import (
	"slices"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/flowlog/internal/ir"
)

// Snapshot returns the canonical JSON form of a scenario's rendered rows:
//
//	{"relation":"reachable","rows":[[1],[2]],"scenario":"reachability"}
//
// Rows are sorted, so equal fixpoints give byte-identical snapshots.
func Snapshot(scenario *Scenario, result *Result) ([]byte, error) {
	rows := slices.Clone(result.Rows)
	ir.SortRows(rows)

	return ir.MarshalCanonical(map[string]any{
		"scenario": scenario.Name,
		"relation": result.Relation,
		"rows":     rows,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	data, err := Snapshot(scenario, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return result, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
