package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/truthgraph/internal/testutil"
)

func TestExportGraph_NodesAndEdges(t *testing.T) {
	ctx := context.Background()
	e := setupTestEngine(t, WithSlotSchema(contractSchema))
	a, b := seedCycle(t, e)
	_, err := e.ResolveReferences(ctx, "acme")
	require.NoError(t, err)

	ingestFacts(t, e, "msa", testutil.Definition("msa", "Notice", "written notice", 300))
	_, err = e.DeriveBindings(ctx, "msa")
	require.NoError(t, err)

	g, err := e.ExportGraph(ctx, "acme")
	require.NoError(t, err)

	count := func(kind NodeKind) int {
		n := 0
		for _, node := range g.Nodes {
			if node.Kind == kind {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 1, count(NodeContract))
	assert.Equal(t, 2, count(NodeClause))
	assert.Equal(t, 4, count(NodeFact))
	assert.Equal(t, 1, count(NodeBinding))

	assert.Contains(t, g.Edges, GraphEdge{From: a.ID, To: b.ID, Kind: EdgeReferences})
	assert.Contains(t, g.Edges, GraphEdge{From: b.ID, To: a.ID, Kind: EdgeReferences})
	assert.Contains(t, g.Edges, GraphEdge{From: "msa", To: a.ID, Kind: EdgeContains})

	summary := g.Summary()
	assert.Contains(t, summary, "Nodes: 8")
	assert.Contains(t, summary, "  references 2")
	assert.Contains(t, summary, "  defines    1")

	again, err := e.ExportGraph(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, g, again, "export is deterministic")

	var dot strings.Builder
	require.NoError(t, g.WriteDOT(&dot))
	assert.True(t, strings.HasPrefix(dot.String(), `digraph "acme" {`))
	assert.Contains(t, dot.String(), `[label="references"]`)
}

func TestExportGraph_UnknownFamily(t *testing.T) {
	e := setupTestEngine(t)
	_, err := e.ExportGraph(context.Background(), "nobody")
	assert.True(t, IsNotFound(err))
}
