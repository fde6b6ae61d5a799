package engine

import (
	"context"
	"slices"
)

// ReferenceGraph is the directed multigraph of resolved cross-references
// of one family, keyed by clause ID. Parallel edges are kept; traversal
// visits each node once.
type ReferenceGraph struct {
	nodes []string            // In family structural order
	adj   map[string][]string // source clause -> target clauses, one entry per reference
}

func newReferenceGraph() *ReferenceGraph {
	return &ReferenceGraph{adj: make(map[string][]string)}
}

func (g *ReferenceGraph) addNode(id string) {
	if _, ok := g.adj[id]; ok {
		return
	}
	g.adj[id] = nil
	g.nodes = append(g.nodes, id)
}

func (g *ReferenceGraph) addEdge(from, to string) {
	g.addNode(from)
	g.addNode(to)
	g.adj[from] = append(g.adj[from], to)
}

// Has reports whether the clause is a node of the graph.
func (g *ReferenceGraph) Has(id string) bool {
	_, ok := g.adj[id]
	return ok
}

// Edges returns the number of references in the graph.
func (g *ReferenceGraph) Edges() int {
	n := 0
	for _, targets := range g.adj {
		n += len(targets)
	}
	return n
}

// Successors returns the distinct targets of a clause in reference order.
func (g *ReferenceGraph) Successors(id string) []string {
	var out []string
	for _, t := range g.adj[id] {
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// ReachableClause is one clause reachable from a traversal start.
type ReachableClause struct {
	ClauseID string `json:"clause_id"`
	Depth    int    `json:"depth"`    // Fewest references from the start
	InCycle  bool   `json:"in_cycle"` // Member of a reference cycle
}

// Reachable returns every clause reachable from start, start included,
// each exactly once, in breadth-first order. The visited set guards
// against cycles; the context is checked at every node visit.
func (g *ReferenceGraph) Reachable(ctx context.Context, start string) ([]ReachableClause, error) {
	if !g.Has(start) {
		return []ReachableClause{{ClauseID: start}}, nil
	}
	cyclic, err := g.cycleMembers(ctx)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{start: true}
	out := []ReachableClause{}
	queue := []ReachableClause{{ClauseID: start, InCycle: cyclic[start]}}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur)
		for _, next := range g.Successors(cur.ClauseID) {
			if visited[next] {
				continue
			}
			visited[next] = true
			queue = append(queue, ReachableClause{ClauseID: next, Depth: cur.Depth + 1, InCycle: cyclic[next]})
		}
	}
	return out, nil
}

// Cycles returns the strongly connected components that form cycles:
// components with more than one clause, or one clause referring to itself.
// Components and their members follow graph order. The context is checked
// at every node visit.
func (g *ReferenceGraph) Cycles(ctx context.Context) ([][]string, error) {
	sccs, err := g.stronglyConnected(ctx)
	if err != nil {
		return nil, err
	}
	var cycles [][]string
	pos := make(map[string]int, len(g.nodes))
	for i, n := range g.nodes {
		pos[n] = i
	}
	for _, scc := range sccs {
		if len(scc) > 1 || slices.Contains(g.adj[scc[0]], scc[0]) {
			slices.SortFunc(scc, func(a, b string) int { return pos[a] - pos[b] })
			cycles = append(cycles, scc)
		}
	}
	slices.SortFunc(cycles, func(a, b []string) int { return pos[a[0]] - pos[b[0]] })
	return cycles, nil
}

func (g *ReferenceGraph) cycleMembers(ctx context.Context) (map[string]bool, error) {
	cycles, err := g.Cycles(ctx)
	if err != nil {
		return nil, err
	}
	members := make(map[string]bool)
	for _, c := range cycles {
		for _, id := range c {
			members[id] = true
		}
	}
	return members, nil
}

// stronglyConnected runs Tarjan's algorithm with an explicit frame stack,
// so graph depth never turns into call depth. The context is checked each
// time a node is pushed.
func (g *ReferenceGraph) stronglyConnected(ctx context.Context) ([][]string, error) {
	type frame struct {
		node string
		next int // Index of the next successor to examine
	}

	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	for _, root := range g.nodes {
		if _, visited := indices[root]; visited {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frames := []frame{{node: root}}
		indices[root], lowlink[root] = index, index
		index++
		stack = append(stack, root)
		onStack[root] = true

		for len(frames) > 0 {
			top := &frames[len(frames)-1]
			v := top.node
			succ := g.adj[v]

			if top.next < len(succ) {
				w := succ[top.next]
				top.next++
				if _, visited := indices[w]; !visited {
					if err := ctx.Err(); err != nil {
						return nil, err
					}
					indices[w], lowlink[w] = index, index
					index++
					stack = append(stack, w)
					onStack[w] = true
					frames = append(frames, frame{node: w})
				} else if onStack[w] {
					lowlink[v] = min(lowlink[v], indices[w])
				}
				continue
			}

			// All successors done: v is a root when its lowlink is its own index.
			if lowlink[v] == indices[v] {
				var scc []string
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
			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := frames[len(frames)-1].node
				lowlink[parent] = min(lowlink[parent], lowlink[v])
			}
		}
	}
	return sccs, nil
}
