package harness

import (
	"github.com/roach88/flowlog/internal/dataflow"
	"github.com/roach88/flowlog/internal/ir"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation holds.
	Pass bool `json:"pass"`

	// Relation is the rendered relation.
	Relation string `json:"relation"`

	// Rows are the rendered rows, sorted.
	Rows []ir.Row `json:"rows"`

	// Errors contains failed expectation messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Stats are the run counters of the evaluated graph.
	Stats dataflow.Stats `json:"stats"`
}

// NewResult creates a new passing result.
func NewResult(relation string) *Result {
	return &Result{
		Pass:     true,
		Relation: relation,
		Rows:     []ir.Row{},
		Errors:   []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
