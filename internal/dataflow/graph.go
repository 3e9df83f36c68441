package dataflow

import (
	"log/slog"
)

// Kind identifies what a node does. It is informational only: the runtime
// treats every node the same way.
type Kind int

const (
	KindOp Kind = iota
	KindOp2
	KindSource
	KindSink
	KindMap
	KindFilter
	KindUnion
	KindDistinct
	KindJoin
	KindMerge
)

var kindNames = [...]string{
	KindOp:       "op",
	KindOp2:      "op2",
	KindSource:   "source",
	KindSink:     "sink",
	KindMap:      "map",
	KindFilter:   "filter",
	KindUnion:    "union",
	KindDistinct: "distinct",
	KindJoin:     "join",
	KindMerge:    "merge",
}

// String returns the lower-case kind name.
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// PortRef names input port Port of node Node.
type PortRef struct {
	Node int
	Port int
}

type node struct {
	kind        Kind
	label       string
	inputs      [][]any
	subscribers []PortRef
	body        func(*invocation)
	invocations int
}

// Step describes one completed node invocation. It is passed to the
// observer installed with WithObserver.
type Step struct {
	Seq      int // 1-based invocation number within the graph
	Node     int
	Kind     Kind
	Label    string
	Received int // values pulled by the body
	Sent     int // values pushed by the body
}

// Stats summarizes the work done by Run calls on a graph.
type Stats struct {
	Nodes     int
	Steps     int // node invocations
	Sent      int // values pushed by bodies
	Delivered int // values appended to input queues (Sent times fan-out)
}

// NodeInfo is a read-only description of one node.
type NodeInfo struct {
	ID          int
	Kind        Kind
	Label       string
	Inputs      int
	Subscribers []PortRef
	Invocations int
}

// Option configures a Graph.
type Option func(*Graph)

// WithObserver installs fn to be called after every node invocation.
func WithObserver(fn func(Step)) Option {
	return func(g *Graph) {
		g.observer = fn
	}
}

// Graph is an arena of dataflow nodes plus the work-list that drives them.
//
// Construction and Run must happen on the same goroutine. Once Run has
// been called the graph is sealed: adding nodes or edges panics with
// ErrCodeGraphSealed.
type Graph struct {
	nodes    []*node
	schedule *Schedule
	sealed   bool
	observer func(Step)
	stats    Stats
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{schedule: NewSchedule()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// addNode appends a node and schedules it so it runs at least once.
func (g *Graph) addNode(kind Kind, label string, inputs int, body func(*invocation)) int {
	if g.sealed {
		panic(newGraphError(ErrCodeGraphSealed, -1, "cannot add %s node after Run", kind))
	}
	if label == "" {
		label = kind.String()
	}
	id := len(g.nodes)
	g.nodes = append(g.nodes, &node{
		kind:   kind,
		label:  label,
		inputs: make([][]any, inputs),
		body:   body,
	})
	g.schedule.Insert(id)
	return id
}

// SetLabel replaces the label of node id. Labels appear in Describe, in
// observer steps and in debug logs.
func (g *Graph) SetLabel(id int, label string) {
	if id < 0 || id >= len(g.nodes) {
		panic(newGraphError(ErrCodeBadPort, id, "no such node"))
	}
	g.nodes[id].label = label
}

func (g *Graph) checkOwned(owner *Graph, node int, what string) {
	if owner != g {
		panic(newGraphError(ErrCodeForeignPort, node, "%s does not belong to this graph", what))
	}
}

// AddSource adds a node with no inputs. f is called with the send handle
// each time the node runs. Nothing can feed a source, so it runs once per
// Run unless it was never drained.
func AddSource[T any](g *Graph, label string, f func(Send[T])) OutputPort[T] {
	return addSource(g, KindSource, label, f)
}

func addSource[T any](g *Graph, kind Kind, label string, f func(Send[T])) OutputPort[T] {
	id := g.addNode(kind, label, 0, func(inv *invocation) {
		f(Send[T]{inv: inv})
	})
	return OutputPort[T]{g: g, node: id}
}

// AddSink adds a node with one input and no output.
func AddSink[T any](g *Graph, label string, f func(Recv[T])) InputPort[T] {
	id := g.addNode(KindSink, label, 1, func(inv *invocation) {
		f(Recv[T]{inv: inv, port: 0})
	})
	return InputPort[T]{g: g, node: id, port: 0}
}

// AddOp adds a node with one input and one output.
func AddOp[I, O any](g *Graph, label string, f func(Recv[I], Send[O])) (InputPort[I], OutputPort[O]) {
	return addOp(g, KindOp, label, f)
}

func addOp[I, O any](g *Graph, kind Kind, label string, f func(Recv[I], Send[O])) (InputPort[I], OutputPort[O]) {
	id := g.addNode(kind, label, 1, func(inv *invocation) {
		f(Recv[I]{inv: inv, port: 0}, Send[O]{inv: inv})
	})
	return InputPort[I]{g: g, node: id, port: 0}, OutputPort[O]{g: g, node: id}
}

// AddOp2 adds a node with two inputs and one output.
func AddOp2[I1, I2, O any](g *Graph, label string, f func(Recv[I1], Recv[I2], Send[O])) (InputPort[I1], InputPort[I2], OutputPort[O]) {
	return addOp2(g, KindOp2, label, f)
}

func addOp2[I1, I2, O any](g *Graph, kind Kind, label string, f func(Recv[I1], Recv[I2], Send[O])) (InputPort[I1], InputPort[I2], OutputPort[O]) {
	id := g.addNode(kind, label, 2, func(inv *invocation) {
		f(Recv[I1]{inv: inv, port: 0}, Recv[I2]{inv: inv, port: 1}, Send[O]{inv: inv})
	})
	return InputPort[I1]{g: g, node: id, port: 0},
		InputPort[I2]{g: g, node: id, port: 1},
		OutputPort[O]{g: g, node: id}
}

// AddEdge subscribes in to out. The same pair may be connected more than
// once; each edge delivers its own copy of every value.
func AddEdge[T any](g *Graph, out OutputPort[T], in InputPort[T]) {
	if g.sealed {
		panic(newGraphError(ErrCodeGraphSealed, out.node, "cannot add edge after Run"))
	}
	g.checkOwned(out.g, out.node, "output port")
	g.checkOwned(in.g, in.node, "input port")
	target := g.nodes[in.node]
	if in.port < 0 || in.port >= len(target.inputs) {
		panic(newGraphError(ErrCodeBadPort, in.node, "node has %d inputs, got port %d", len(target.inputs), in.port))
	}
	src := g.nodes[out.node]
	src.subscribers = append(src.subscribers, PortRef{Node: in.node, Port: in.port})
}

// Run drives the graph until the work-list is empty and returns the
// cumulative statistics. Run may be called again; it resumes with whatever
// is still scheduled (normally nothing).
func (g *Graph) Run() Stats {
	g.sealed = true
	g.stats.Nodes = len(g.nodes)

	for {
		id, ok := g.schedule.Pop()
		if !ok {
			break
		}
		g.step(id)
	}

	slog.Debug("dataflow quiescent",
		"nodes", g.stats.Nodes,
		"steps", g.stats.Steps,
		"sent", g.stats.Sent,
		"delivered", g.stats.Delivered,
	)
	return g.stats
}

func (g *Graph) step(id int) {
	n := g.nodes[id]
	inv := &invocation{
		node:   id,
		inputs: make([][]any, len(n.inputs)),
		heads:  make([]int, len(n.inputs)),
	}

	for p := range n.inputs {
		inv.inputs[p], n.inputs[p] = n.inputs[p], nil
	}

	n.body(inv)
	n.invocations++

	// Undrained values go back in front of anything that arrived since.
	// They do not reschedule the node.
	received := 0
	for p := range n.inputs {
		received += inv.heads[p]
		rest := inv.inputs[p][inv.heads[p]:]
		if len(rest) > 0 {
			n.inputs[p] = append(rest, n.inputs[p]...)
		}
	}

	for _, v := range inv.sent {
		g.deliver(n, v)
	}

	g.stats.Steps++
	g.stats.Sent += len(inv.sent)

	if g.observer != nil {
		g.observer(Step{
			Seq:      g.stats.Steps,
			Node:     id,
			Kind:     n.kind,
			Label:    n.label,
			Received: received,
			Sent:     len(inv.sent),
		})
	}
}

func (g *Graph) deliver(n *node, v any) {
	for _, sub := range n.subscribers {
		target := g.nodes[sub.Node]
		target.inputs[sub.Port] = append(target.inputs[sub.Port], v)
		g.schedule.Insert(sub.Node)
		g.stats.Delivered++
	}
}

// Describe returns one NodeInfo per node in arena order.
func (g *Graph) Describe() []NodeInfo {
	out := make([]NodeInfo, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = NodeInfo{
			ID:          i,
			Kind:        n.kind,
			Label:       n.label,
			Inputs:      len(n.inputs),
			Subscribers: append([]PortRef(nil), n.subscribers...),
			Invocations: n.invocations,
		}
	}
	return out
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Scheduled reports whether node id is waiting in the work-list.
func (g *Graph) Scheduled(id int) bool {
	return g.schedule.Pending(id)
}
