package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGraph(nodes []string, edges [][2]string) *ReferenceGraph {
	g := newReferenceGraph()
	for _, n := range nodes {
		g.addNode(n)
	}
	for _, e := range edges {
		g.addEdge(e[0], e[1])
	}
	return g
}

func TestReferenceGraph_TwoNodeCycle(t *testing.T) {
	g := buildGraph([]string{"A", "B"}, [][2]string{{"A", "B"}, {"B", "A"}})

	reach, err := g.Reachable(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, []ReachableClause{
		{ClauseID: "A", Depth: 0, InCycle: true},
		{ClauseID: "B", Depth: 1, InCycle: true},
	}, reach)

	cycles, err := g.Cycles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", "B"}}, cycles)
}

func TestReferenceGraph_SelfLoopAndAcyclic(t *testing.T) {
	g := buildGraph([]string{"A", "B", "C", "D"}, [][2]string{
		{"A", "B"},
		{"B", "C"},
		{"C", "C"},
		{"A", "C"},
	})

	cycles, err := g.Cycles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"C"}}, cycles)

	reach, err := g.Reachable(context.Background(), "A")
	require.NoError(t, err)
	require.Len(t, reach, 3)
	assert.Equal(t, ReachableClause{ClauseID: "C", Depth: 1, InCycle: true}, reach[2])
	assert.False(t, reach[0].InCycle)
	assert.False(t, reach[1].InCycle)
}

func TestReferenceGraph_ParallelEdgesVisitedOnce(t *testing.T) {
	g := buildGraph(nil, [][2]string{{"A", "B"}, {"A", "B"}, {"B", "A"}})

	assert.Equal(t, 3, g.Edges())
	assert.Equal(t, []string{"B"}, g.Successors("A"))

	reach, err := g.Reachable(context.Background(), "A")
	require.NoError(t, err)
	assert.Len(t, reach, 2)
}

func TestReferenceGraph_LongChainDoesNotRecurse(t *testing.T) {
	g := newReferenceGraph()
	const n = 50000
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("c%d", i)
	}
	for i := 0; i+1 < n; i++ {
		g.addEdge(names[i], names[i+1])
	}
	g.addEdge(names[n-1], names[0])

	cycles, err := g.Cycles(context.Background())
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.Len(t, cycles[0], n)
}

func TestReferenceGraph_UnknownStart(t *testing.T) {
	g := newReferenceGraph()
	reach, err := g.Reachable(context.Background(), "X")
	require.NoError(t, err)
	assert.Equal(t, []ReachableClause{{ClauseID: "X"}}, reach)
}

func TestReferenceGraph_Cancelled(t *testing.T) {
	g := buildGraph(nil, [][2]string{{"A", "B"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Reachable(ctx, "A")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReferenceGraph_CyclesCancelled(t *testing.T) {
	g := newReferenceGraph()
	for i := 0; i < 100; i++ {
		g.addEdge(fmt.Sprintf("c%d", i), fmt.Sprintf("c%d", (i+1)%100))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Cycles(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
