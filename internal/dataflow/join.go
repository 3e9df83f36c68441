package dataflow

// Pair is a keyed value, the input element of Join.
type Pair[K comparable, V any] struct {
	Key   K
	Value V
}

// KV builds a Pair.
func KV[K comparable, V any](k K, v V) Pair[K, V] {
	return Pair[K, V]{Key: k, Value: v}
}

// Joined is one match produced by Join.
type Joined[K comparable, V, V2 any] struct {
	Key   K
	Left  V
	Right V2
}

// Join is an incremental symmetric hash join. Each side keeps every value
// it has ever received, indexed by key. A new left value is matched
// against everything the right side has stored and is then stored itself;
// the right side mirrors this.
//
// Within one invocation all pending left values are processed before any
// pending right value. Since every value probes the other side before it
// is stored, each (left, right) combination is emitted exactly once, even
// when both inputs are fed by the same stream.
//
// The tables are never pruned, so memory grows with the total input.
func Join[K comparable, V, V2 any](l Stream[Pair[K, V]], r Stream[Pair[K, V2]]) Stream[Joined[K, V, V2]] {
	left := make(map[K][]V)
	right := make(map[K][]V2)

	lin, rin, out := addOp2(l.g, KindJoin, "",
		func(lr Recv[Pair[K, V]], rr Recv[Pair[K, V2]], w Send[Joined[K, V, V2]]) {
			for {
				p, ok := lr.Pull()
				if !ok {
					break
				}
				for _, rv := range right[p.Key] {
					w.Push(Joined[K, V, V2]{Key: p.Key, Left: p.Value, Right: rv})
				}
				left[p.Key] = append(left[p.Key], p.Value)
			}
			for {
				p, ok := rr.Pull()
				if !ok {
					break
				}
				for _, lv := range left[p.Key] {
					w.Push(Joined[K, V, V2]{Key: p.Key, Left: lv, Right: p.Value})
				}
				right[p.Key] = append(right[p.Key], p.Value)
			}
		})
	AddEdge(l.g, l.out, lin)
	AddEdge(l.g, r.out, rin)
	return StreamOf(out)
}
