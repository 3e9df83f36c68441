package compiler

import (
	"fmt"
	"slices"
	"strings"
)

// RecursiveGroup is a set of relations that depend on each other, directly
// or through other members of the group.
//
// Recursion is supported, so groups are informational: they tell the user
// which relations are evaluated by fixpoint iteration rather than in a
// single pass.
type RecursiveGroup struct {
	Relations []string `json:"relations"` // members in definition order
	Path      []string `json:"path"`      // one cycle through the group: ["a", "b", "a"]
	Message   string   `json:"message"`
}

// AnalyzeRecursion finds the recursive relations of p.
//
// The algorithm:
//  1. Build the relation dependency graph: head -> every body relation
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1, or a single self-referencing relation
//
// A non-recursive program returns an empty list. Groups are ordered by the
// definition order of their first member.
func AnalyzeRecursion(p *Program) []RecursiveGroup {
	graph := buildDependencyGraph(p)
	if len(graph.nodes) == 0 {
		return []RecursiveGroup{}
	}

	groups := []RecursiveGroup{}
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			groups = append(groups, sccToGroup(p, scc, graph))
		}
	}

	rank := make(map[string]int)
	for i, name := range p.Relations() {
		rank[name] = i
	}
	slices.SortFunc(groups, func(a, b RecursiveGroup) int {
		return rank[a.Relations[0]] - rank[b.Relations[0]]
	})
	return groups
}

// dependencyGraph maps relation id -> relation ids used in its bodies.
// nodes preserves definition order so the traversal is deterministic.
type dependencyGraph struct {
	nodes []int
	edges map[int][]int
}

func buildDependencyGraph(p *Program) dependencyGraph {
	g := dependencyGraph{edges: make(map[int][]int)}
	for _, id := range p.order {
		g.nodes = append(g.nodes, id)
		var deps []int
		for _, c := range p.relations[id].Clauses {
			for _, pred := range c.Body {
				if !slices.Contains(deps, pred.Name) {
					deps = append(deps, pred.Name)
				}
			}
		}
		g.edges[id] = deps
	}
	return g
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node int, g dependencyGraph) bool {
	return slices.Contains(g.edges[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Single-node SCCs without self-loops are not recursive.
func tarjanSCC(g dependencyGraph) [][]int {
	var (
		index   = 0
		stack   []int
		indices = make(map[int]int)
		lowlink = make(map[int]int)
		onStack = make(map[int]bool)
		sccs    [][]int
	)

	var strongConnect func(int)
	strongConnect = func(v int) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root: pop its component
		if lowlink[v] == indices[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range g.nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

func sccToGroup(p *Program, scc []int, g dependencyGraph) RecursiveGroup {
	// Members in definition order.
	var members []int
	for _, id := range g.nodes {
		if slices.Contains(scc, id) {
			members = append(members, id)
		}
	}
	names := make([]string, len(members))
	for i, id := range members {
		names[i] = p.Name(id)
	}

	if len(members) == 1 {
		return RecursiveGroup{
			Relations: names,
			Path:      []string{names[0], names[0]},
			Message:   fmt.Sprintf("self-recursive relation: %s", names[0]),
		}
	}

	path := reconstructCyclePath(members, g)
	pathNames := make([]string, len(path))
	for i, id := range path {
		pathNames[i] = p.Name(id)
	}
	return RecursiveGroup{
		Relations: names,
		Path:      pathNames,
		Message:   fmt.Sprintf("mutually recursive relations: %s", strings.Join(pathNames, " -> ")),
	}
}

// reconstructCyclePath walks from the first member along edges that stay
// inside the component until it returns to the start.
func reconstructCyclePath(scc []int, g dependencyGraph) []int {
	if len(scc) == 0 {
		return []int{}
	}

	start := scc[0]
	current := start
	path := []int{current}
	visited := make(map[int]bool)

	for {
		visited[current] = true

		next := -1
		for _, neighbor := range g.edges[current] {
			if slices.Contains(scc, neighbor) && (!visited[neighbor] || neighbor == start) && neighbor != current {
				next = neighbor
				break
			}
		}
		if next == -1 {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
