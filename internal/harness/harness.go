package harness

import (
	"fmt"
	"log/slog"

	"github.com/roach88/flowlog/internal/compiler"
	"github.com/roach88/flowlog/internal/ir"
)

// Run executes a scenario:
//
// 1. Load and decode the CUE program directory
// 2. Add the scenario's extra facts
// 3. Compile and run to fixpoint, rendering scenario.Render
// 4. Evaluate the expectations on the sorted rows
//
// Load, compile and validation problems are returned as errors; failed
// expectations are reported through Result.Pass and Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	p, err := compiler.LoadDir(scenario.Program)
	if err != nil {
		return nil, fmt.Errorf("failed to load program: %w", err)
	}

	if err := addFacts(p, scenario.Facts); err != nil {
		return nil, err
	}

	plan, err := compiler.Compile(p, []string{scenario.Render})
	if err != nil {
		return nil, fmt.Errorf("failed to compile program: %w", err)
	}
	out := plan.Run()

	result := NewResult(scenario.Render)
	result.Rows = append(result.Rows, out.Relations[scenario.Render]...)
	ir.SortRows(result.Rows)
	result.Stats = out.Stats

	for _, msg := range EvaluateExpect(scenario.Render, result.Rows, scenario.Expect) {
		result.AddError(msg)
	}

	slog.Debug("scenario finished",
		"scenario", scenario.Name,
		"relation", scenario.Render,
		"rows", len(result.Rows),
		"pass", result.Pass)
	return result, nil
}

// addFacts appends rows to p in relation name order so that interning,
// and with it the compiled graph, does not depend on map iteration.
func addFacts(p *compiler.Program, facts map[string][][]any) error {
	for _, rel := range sortedKeys(facts) {
		rows, err := toRows(facts[rel])
		if err != nil {
			return fmt.Errorf("facts.%s: %w", rel, err)
		}
		for _, row := range rows {
			p.Fact(rel, row...)
		}
	}
	return nil
}
