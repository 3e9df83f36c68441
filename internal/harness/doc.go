// Package harness provides conformance testing for flowlog programs.
//
// A scenario names a CUE program directory, optionally adds facts, renders
// one relation to fixpoint and checks the rows.
//
// # Scenario Format
//
//	name: reachability
//	description: "nodes reachable from 1"
//	program: programs/reachability
//	facts:
//	  edge:
//	    - [5, 6]
//	render: reachable
//	expect:
//	  rows: [[1], [2], [3]]
//	  contains: [[2]]
//	  absent: [[7]]
//	  count: 3
//
// The program path is relative to the scenario file. Every expectation
// that is present is evaluated:
//
//   - rows: the rendered set equals these rows, order ignored
//   - contains: each row is present
//   - absent: no row is present
//   - count: number of distinct rows
//
// # Determinism
//
// Rendered rows are sorted before they are checked or snapshotted, so a
// scenario yields byte-identical golden files across runs.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/reachability.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
