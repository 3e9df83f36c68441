package dataflow

import "testing"

const (
	benchOps  = 20
	benchInts = 100_000
)

func benchSource(g *Graph) Stream[int] {
	return Source(g, func(out Send[int]) {
		for i := 0; i < benchInts; i++ {
			out.Push(i)
		}
	})
}

// BenchmarkIdentity pushes every value through a chain of identity maps.
func BenchmarkIdentity(b *testing.B) {
	for i := 0; i < b.N; i++ {
		g := New()
		s := benchSource(g)
		for j := 0; j < benchOps; j++ {
			s = Map(s, func(v int) int { return v })
		}
		sum := 0
		s.Sink(func(v int) { sum += v })
		g.Run()
	}
}

// BenchmarkForkJoin splits the stream by parity and unions it back at
// every stage.
func BenchmarkForkJoin(b *testing.B) {
	for i := 0; i < b.N; i++ {
		g := New()
		s := benchSource(g)
		for j := 0; j < benchOps; j++ {
			even := s.Filter(func(v int) bool { return v%2 == 0 })
			odd := s.Filter(func(v int) bool { return v%2 == 1 })
			s = even.Union(odd)
		}
		n := 0
		s.Sink(func(int) { n++ })
		g.Run()
		if n != benchInts {
			b.Fatalf("fork-join lost values: got %d, want %d", n, benchInts)
		}
	}
}

func BenchmarkReachability(b *testing.B) {
	edges := make([][2]int, 0, 2000)
	for i := 0; i < 2000; i++ {
		edges = append(edges, [2]int{i, i + 1})
	}
	for i := 0; i < b.N; i++ {
		g := New()
		got := reachability(g, edges, 0)
		g.Run()
		if len(*got) != 2001 {
			b.Fatalf("got %d nodes", len(*got))
		}
	}
}
