package compiler

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/flowlog/internal/dataflow"
	"github.com/roach88/flowlog/internal/ir"
)

// Option configures compilation.
type Option func(*options)

type options struct {
	graph []dataflow.Option
}

// WithObserver installs fn on the compiled graph; it is called after every
// operator invocation during Run.
func WithObserver(fn func(dataflow.Step)) Option {
	return func(o *options) {
		o.graph = append(o.graph, dataflow.WithObserver(fn))
	}
}

// Plan is a program compiled into a dataflow graph, ready to run once.
type Plan struct {
	graph   *dataflow.Graph
	outputs []string
	rows    map[string]*[]ir.Row
	result  *Result
}

// Result is the outcome of running a plan.
type Result struct {
	// Relations maps every requested output to its rows in derivation
	// order, without duplicates.
	Relations map[string][]ir.Row
	Stats     dataflow.Stats
}

// relationNode is the pre-declared materialization of one relation:
// clauses feed Feedback, readers consume Rows.
type relationNode struct {
	feedback dataflow.InputPort[ir.Row]
	rows     dataflow.Stream[ir.Row]
}

// Compile validates p and builds its dataflow graph. Each name in outputs
// must be a relation of p; its rows are collected by Run.
//
// The build is two-phase so that relations may refer to themselves and to
// each other: every relation first gets a merge node feeding a distinct
// node, then every clause body is compiled against those nodes and its
// projection is wired back into the head relation's merge.
func Compile(p *Program, outputs []string, opts ...Option) (*Plan, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if errs := Validate(p); len(errs) > 0 {
		return nil, newValidationFailure(errs)
	}
	for _, name := range outputs {
		if _, ok := p.Relation(name); !ok {
			return nil, &CompileError{
				Code:     ErrUnknownOutput,
				Relation: name,
				Message:  fmt.Sprintf("output %q is not a relation of the program", name),
			}
		}
	}

	g := dataflow.New(o.graph...)
	relations := p.sortedRelations()

	// Phase 1: declare every relation.
	nodes := make(map[int]relationNode, len(relations))
	for _, rel := range relations {
		in, merged := dataflow.Merge[ir.Row](g)
		merged.Label("merge " + rel.Name)
		rows := dataflow.DistinctBy(merged, ir.Row.Key).Label("distinct " + rel.Name)
		nodes[rel.ID] = relationNode{feedback: in, rows: rows}
	}

	// Phase 2: compile clauses.
	clauses := 0
	for _, rel := range relations {
		target := nodes[rel.ID].feedback

		var facts []ir.Row
		for _, c := range rel.Clauses {
			clauses++
			if c.IsFact() {
				facts = append(facts, project(c.Head, nil)(nil))
				continue
			}
			compileClause(g, p, rel, c, nodes).Into(target)
		}
		if len(facts) > 0 {
			dataflow.Values(g, facts...).Label("facts " + rel.Name).Into(target)
		}
	}

	plan := &Plan{
		graph:   g,
		outputs: slices.Clone(outputs),
		rows:    make(map[string]*[]ir.Row, len(outputs)),
	}
	for _, name := range outputs {
		if _, dup := plan.rows[name]; dup {
			continue
		}
		rel, _ := p.Relation(name)
		collected := &[]ir.Row{}
		nodes[rel.ID].rows.Sink(func(r ir.Row) {
			*collected = append(*collected, r)
		})
		g.SetLabel(g.Len()-1, "output "+name)
		plan.rows[name] = collected
	}

	slog.Debug("compiled program",
		"relations", len(relations),
		"clauses", clauses,
		"nodes", g.Len(),
		"outputs", outputs,
	)
	return plan, nil
}

// compileClause builds the body chain of c and returns the stream of head
// rows it derives.
func compileClause(g *dataflow.Graph, p *Program, rel *Relation, c Clause, nodes map[int]relationNode) dataflow.Stream[ir.Row] {
	label := fmt.Sprintf("%s#%d", rel.Name, c.Index)

	// The chain starts from a single empty row so the first body predicate
	// joins against it like any other.
	acc := dataflow.Values(g, ir.Row{}).Label("seed " + label)
	bound := make(map[int]int) // variable -> column of the accumulated row
	offset := 0

	for i, pred := range c.Body {
		stepLabel := fmt.Sprintf("%s/%d", label, i)
		input := nodes[pred.Name].rows

		if len(pred.Constants) > 0 {
			input = input.Filter(matchConstants(pred.Constants)).
				Label("select " + p.Atom(pred).String())
		}

		// First position of each variable in this predicate; a repeat
		// within the predicate is an equality filter, a variable bound by
		// an earlier predicate is a join key.
		local := make(map[int]int)
		var eqs [][2]int
		var leftKey, rightKey []int
		for _, v := range sortedVariables(pred) {
			if first, seen := local[v.Var]; seen {
				eqs = append(eqs, [2]int{first, v.Pos})
				continue
			}
			local[v.Var] = v.Pos
			if col, ok := bound[v.Var]; ok {
				leftKey = append(leftKey, col)
				rightKey = append(rightKey, v.Pos)
			}
		}
		if len(eqs) > 0 {
			input = input.Filter(matchColumns(eqs)).Label("eqcol " + p.Atom(pred).String())
		}

		left := dataflow.Map(acc, keyBy(leftKey)).Label("key " + stepLabel + " left")
		right := dataflow.Map(input, keyBy(rightKey)).Label("key " + stepLabel + " right")
		joined := dataflow.Join(left, right).Label("join " + stepLabel)
		acc = dataflow.Map(joined, func(j dataflow.Joined[string, ir.Row, ir.Row]) ir.Row {
			return j.Left.Concat(j.Right)
		}).Label("concat " + stepLabel)

		for v, pos := range local {
			if _, ok := bound[v]; !ok {
				bound[v] = offset + pos
			}
		}
		offset += pred.Arity
	}

	return dataflow.Map(acc, project(c.Head, bound)).Label("project " + label)
}

func sortedVariables(pred Predicate) []Variable {
	vars := slices.Clone(pred.Variables)
	slices.SortFunc(vars, func(a, b Variable) int { return a.Pos - b.Pos })
	return vars
}

func matchConstants(cs []Constant) func(ir.Row) bool {
	return func(r ir.Row) bool {
		for _, c := range cs {
			if ir.CompareDatum(r[c.Pos], c.Value) != 0 {
				return false
			}
		}
		return true
	}
}

func matchColumns(eqs [][2]int) func(ir.Row) bool {
	return func(r ir.Row) bool {
		for _, eq := range eqs {
			if ir.CompareDatum(r[eq[0]], r[eq[1]]) != 0 {
				return false
			}
		}
		return true
	}
}

func keyBy(cols []int) func(ir.Row) dataflow.Pair[string, ir.Row] {
	return func(r ir.Row) dataflow.Pair[string, ir.Row] {
		return dataflow.KV(r.KeyOf(cols), r)
	}
}

// project maps an accumulated body row onto the head's positions.
func project(head Predicate, bound map[int]int) func(ir.Row) ir.Row {
	return func(r ir.Row) ir.Row {
		out := make(ir.Row, head.Arity)
		for _, c := range head.Constants {
			out[c.Pos] = c.Value
		}
		for _, v := range head.Variables {
			out[v.Pos] = r[bound[v.Var]]
		}
		return out
	}
}

// Run evaluates the plan to fixpoint and returns the requested relations.
// The first call does the work; later calls return the same result.
func (pl *Plan) Run() *Result {
	if pl.result != nil {
		return pl.result
	}

	stats := pl.graph.Run()
	res := &Result{
		Relations: make(map[string][]ir.Row, len(pl.rows)),
		Stats:     stats,
	}
	for name, rows := range pl.rows {
		res.Relations[name] = slices.Clone(*rows)
	}
	pl.result = res
	return res
}

// Outputs returns the requested output relations in request order.
func (pl *Plan) Outputs() []string {
	return slices.Clone(pl.outputs)
}

// Describe lists the nodes of the compiled graph.
func (pl *Plan) Describe() []dataflow.NodeInfo {
	return pl.graph.Describe()
}

// RenderAll compiles p, runs it to fixpoint and returns the rows of every
// named relation.
func (p *Program) RenderAll(names ...string) (map[string][]ir.Row, error) {
	plan, err := Compile(p, names)
	if err != nil {
		return nil, err
	}
	return plan.Run().Relations, nil
}

// Render returns the full extension of one relation after evaluation to
// fixpoint, in derivation order and without duplicates.
func (p *Program) Render(name string) ([]ir.Row, error) {
	rels, err := p.RenderAll(name)
	if err != nil {
		return nil, err
	}
	return rels[name], nil
}
