package dataflow

import "fmt"

// InputPort addresses input queue Port of node Node in a graph.
// The zero value belongs to no graph and is rejected by AddEdge.
type InputPort[T any] struct {
	g    *Graph
	node int
	port int
}

// Node returns the arena index of the owning node.
func (p InputPort[T]) Node() int { return p.node }

// Index returns the port index on the owning node.
func (p InputPort[T]) Index() int { return p.port }

// OutputPort addresses the output of a node. Every value the node pushes
// is delivered to all input ports connected to it.
type OutputPort[T any] struct {
	g    *Graph
	node int
}

// Node returns the arena index of the owning node.
func (p OutputPort[T]) Node() int { return p.node }

// Recv is the receive handle for one input port during a single
// invocation. It must not be retained after the body returns.
type Recv[T any] struct {
	inv  *invocation
	port int
}

// Pull removes and returns the next queued value in FIFO order.
// Returns (zero, false) once the port is drained for this invocation.
func (r Recv[T]) Pull() (T, bool) {
	var zero T
	q := r.inv.inputs[r.port]
	head := r.inv.heads[r.port]
	if head >= len(q) {
		return zero, false
	}
	raw := q[head]
	q[head] = nil
	r.inv.heads[r.port] = head + 1

	v, ok := raw.(T)
	if !ok {
		panic(newGraphError(ErrCodeTypeMismatch, r.inv.node,
			"port %d expects %T, got %T", r.port, zero, raw))
	}
	return v, true
}

// Len returns the number of values not yet pulled in this invocation.
func (r Recv[T]) Len() int {
	return len(r.inv.inputs[r.port]) - r.inv.heads[r.port]
}

// Send is the send handle for a node's output during a single invocation.
type Send[T any] struct {
	inv *invocation
}

// Push appends v to the output buffer. Values are delivered after the body
// returns, in push order.
func (s Send[T]) Push(v T) {
	s.inv.sent = append(s.inv.sent, v)
}

// invocation carries the swapped-out input queues and the output buffer
// for one body call.
type invocation struct {
	node   int
	inputs [][]any
	heads  []int
	sent   []any
}

func (p InputPort[T]) String() string {
	return fmt.Sprintf("%d.in%d", p.node, p.port)
}

func (p OutputPort[T]) String() string {
	return fmt.Sprintf("%d.out", p.node)
}
