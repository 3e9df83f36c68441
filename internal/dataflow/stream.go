package dataflow

// Stream is a typed handle to a node's output. Combinators consume one or
// more streams and return a new stream backed by a freshly added node.
// A stream may be consumed any number of times; each consumer gets every
// value.
type Stream[T any] struct {
	g   *Graph
	out OutputPort[T]
}

// StreamOf wraps an existing output port.
func StreamOf[T any](out OutputPort[T]) Stream[T] {
	return Stream[T]{g: out.g, out: out}
}

// Graph returns the graph the stream belongs to.
func (s Stream[T]) Graph() *Graph { return s.g }

// Port returns the underlying output port.
func (s Stream[T]) Port() OutputPort[T] { return s.out }

// Label names the node that produces s and returns s.
func (s Stream[T]) Label(name string) Stream[T] {
	s.g.SetLabel(s.out.node, name)
	return s
}

// Source adds a source node. f is called with the send handle when the
// node runs.
func Source[T any](g *Graph, f func(Send[T])) Stream[T] {
	return StreamOf(addSource(g, KindSource, "", f))
}

// Values adds a source that emits vs, in order, on its first invocation
// and nothing afterwards.
func Values[T any](g *Graph, vs ...T) Stream[T] {
	done := false
	return Source(g, func(out Send[T]) {
		if done {
			return
		}
		done = true
		for _, v := range vs {
			out.Push(v)
		}
	})
}

// Sink terminates s, calling f for every value in arrival order.
func (s Stream[T]) Sink(f func(T)) {
	in := AddSink(s.g, "", func(r Recv[T]) {
		for {
			v, ok := r.Pull()
			if !ok {
				return
			}
			f(v)
		}
	})
	AddEdge(s.g, s.out, in)
}

// Into connects s to an existing input port, typically one returned by
// Merge.
func (s Stream[T]) Into(in InputPort[T]) {
	AddEdge(s.g, s.out, in)
}

// Map applies f to every value of s.
func Map[T, U any](s Stream[T], f func(T) U) Stream[U] {
	in, out := addOp(s.g, KindMap, "", func(r Recv[T], w Send[U]) {
		for {
			v, ok := r.Pull()
			if !ok {
				return
			}
			w.Push(f(v))
		}
	})
	AddEdge(s.g, s.out, in)
	return StreamOf(out)
}

// FlatMap applies f to every value of s and emits every result.
func FlatMap[T, U any](s Stream[T], f func(T) []U) Stream[U] {
	in, out := addOp(s.g, KindMap, "", func(r Recv[T], w Send[U]) {
		for {
			v, ok := r.Pull()
			if !ok {
				return
			}
			for _, u := range f(v) {
				w.Push(u)
			}
		}
	})
	AddEdge(s.g, s.out, in)
	return StreamOf(out)
}

// Filter keeps the values of s for which pred returns true.
func (s Stream[T]) Filter(pred func(T) bool) Stream[T] {
	in, out := addOp(s.g, KindFilter, "", func(r Recv[T], w Send[T]) {
		for {
			v, ok := r.Pull()
			if !ok {
				return
			}
			if pred(v) {
				w.Push(v)
			}
		}
	})
	AddEdge(s.g, s.out, in)
	return StreamOf(out)
}

// Union emits every value of s and of rhs. It is a multiset union: nothing
// is deduplicated. Within one invocation the left input is drained before
// the right one.
func (s Stream[T]) Union(rhs Stream[T]) Stream[T] {
	l, r, out := addOp2(s.g, KindUnion, "", func(l Recv[T], r Recv[T], w Send[T]) {
		for {
			v, ok := l.Pull()
			if !ok {
				break
			}
			w.Push(v)
		}
		for {
			v, ok := r.Pull()
			if !ok {
				break
			}
			w.Push(v)
		}
	})
	AddEdge(s.g, s.out, l)
	AddEdge(s.g, rhs.out, r)
	return StreamOf(out)
}

// Distinct emits each value the first time it is seen and drops every
// later copy. The set of seen values lives for the lifetime of the graph
// and is the materialized relation of the stream.
func Distinct[T comparable](s Stream[T]) Stream[T] {
	return DistinctBy(s, func(v T) T { return v })
}

// DistinctBy is Distinct for values that are not comparable: key maps a
// value to its identity. Two values with equal keys are the same value.
func DistinctBy[T any, K comparable](s Stream[T], key func(T) K) Stream[T] {
	seen := make(map[K]struct{})
	in, out := addOp(s.g, KindDistinct, "", func(r Recv[T], w Send[T]) {
		for {
			v, ok := r.Pull()
			if !ok {
				return
			}
			k := key(v)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			w.Push(v)
		}
	})
	AddEdge(s.g, s.out, in)
	return StreamOf(out)
}

// Merge adds an identity node whose input can be connected after the fact.
// It is the building block for recursion: create the merge, derive
// streams from its output, then feed those streams back with Into.
func Merge[T any](g *Graph) (InputPort[T], Stream[T]) {
	in, out := addOp(g, KindMerge, "", func(r Recv[T], w Send[T]) {
		for {
			v, ok := r.Pull()
			if !ok {
				return
			}
			w.Push(v)
		}
	})
	return in, StreamOf(out)
}
