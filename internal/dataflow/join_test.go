package dataflow

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type match struct {
	key   int
	left  string
	right string
}

func joinAll(s Stream[Joined[int, string, string]]) *[]match {
	return collect(Map(s, func(j Joined[int, string, string]) match {
		return match{key: j.Key, left: j.Left, right: j.Right}
	}))
}

func nestedLoop(left, right []Pair[int, string]) []match {
	var out []match
	for _, l := range left {
		for _, r := range right {
			if l.Key == r.Key {
				out = append(out, match{key: l.Key, left: l.Value, right: r.Value})
			}
		}
	}
	return out
}

func TestJoin_Complete(t *testing.T) {
	left := []Pair[int, string]{KV(1, "a"), KV(2, "b"), KV(1, "c"), KV(3, "d")}
	right := []Pair[int, string]{KV(1, "x"), KV(1, "y"), KV(2, "z"), KV(4, "w")}

	g := New()
	got := joinAll(Join(Values(g, left...), Values(g, right...)))
	g.Run()

	assert.ElementsMatch(t, nestedLoop(left, right), *got)
}

func TestJoin_AcrossInvocations(t *testing.T) {
	left := []Pair[int, string]{KV(1, "a"), KV(2, "b")}
	right := []Pair[int, string]{KV(1, "x"), KV(2, "y"), KV(2, "z")}

	g := New()
	rin, rs := Merge[Pair[int, string]](g)
	joined := Join(Values(g, left...), rs)
	got := joinAll(joined)

	// Created after the join, so the right side arrives in a later step.
	Values(g, right...).Into(rin)
	g.Run()

	assert.ElementsMatch(t, nestedLoop(left, right), *got)
	assert.Equal(t, 2, g.Describe()[joined.Port().Node()].Invocations)
}

func TestJoin_NoDuplicatesWithDuplicateInputs(t *testing.T) {
	g := New()
	left := []Pair[int, string]{KV(1, "a"), KV(1, "a")}
	right := []Pair[int, string]{KV(1, "x")}
	got := joinAll(Join(Values(g, left...), Values(g, right...)))
	g.Run()

	// Multiset semantics: one output per (left copy, right copy).
	assert.Len(t, *got, 2)
}

func TestJoin_SameStreamBothSides(t *testing.T) {
	g := New()
	s := Values(g, KV(1, "p"), KV(2, "q"), KV(1, "r"))
	got := joinAll(Join(s, s))
	g.Run()

	want := []match{
		{1, "p", "p"}, {1, "p", "r"}, {1, "r", "p"}, {1, "r", "r"},
		{2, "q", "q"},
	}
	assert.ElementsMatch(t, want, *got)
}

// path(x, z) :- edge(x, z).
// path(x, z) :- path(x, y), path(y, z).
// The distinct path stream feeds both sides of the join through a merge
// that is also the join's own downstream.
func TestJoin_SelfReferentialClosure(t *testing.T) {
	edges := [][2]int{{1, 2}, {2, 3}, {3, 4}, {4, 5}}

	g := New()
	in, merged := Merge[[2]int](g)
	path := Distinct(merged)

	byTo := Map(path, func(p [2]int) Pair[int, int] { return KV(p[1], p[0]) })
	byFrom := Map(path, func(p [2]int) Pair[int, int] { return KV(p[0], p[1]) })
	joined := Join(byTo, byFrom)

	seen := make(map[string]int)
	derived := Map(joined, func(j Joined[int, int, int]) [2]int {
		seen[fmt.Sprintf("%d-%d-%d", j.Left, j.Key, j.Right)]++
		return [2]int{j.Left, j.Right}
	})
	derived.Into(in)
	Values(g, edges...).Into(in)

	got := collect(path)
	g.Run()

	var want [][2]int
	for x := 1; x <= 5; x++ {
		for z := x + 1; z <= 5; z++ {
			want = append(want, [2]int{x, z})
		}
	}
	assert.ElementsMatch(t, want, *got)

	for combo, n := range seen {
		require.Equal(t, 1, n, "join emitted %s more than once", combo)
	}
	// Every (x, y, z) with x < y < z over five nodes is one derivation.
	assert.Len(t, seen, 10)
}

func TestJoin_Empty(t *testing.T) {
	g := New()
	got := joinAll(Join(Values[Pair[int, string]](g), Values(g, KV(1, "x"))))
	stats := g.Run()

	assert.Empty(t, *got)
	assert.Equal(t, 1, stats.Sent, "only the right source sent anything")
}
