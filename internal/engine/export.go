package engine

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/roach88/truthgraph/internal/ir"
	"github.com/roach88/truthgraph/internal/metrics"
	"github.com/roach88/truthgraph/internal/query"
)

// NodeKind classifies graph export nodes.
type NodeKind string

const (
	NodeContract NodeKind = "contract"
	NodeClause   NodeKind = "clause"
	NodeFact     NodeKind = "fact"
	NodeBinding  NodeKind = "binding"
)

// EdgeKind classifies graph export edges.
type EdgeKind string

const (
	EdgeContains   EdgeKind = "contains"   // contract -> clause, clause -> fact, contract -> unclaused fact
	EdgeDefines    EdgeKind = "defines"    // fact -> binding
	EdgeReferences EdgeKind = "references" // clause -> clause, one per resolved reference
	EdgeSupports   EdgeKind = "supports"   // fact -> clause it fills a slot of
)

// GraphNode is one node of a graph export.
type GraphNode struct {
	ID         string   `json:"id"`
	Kind       NodeKind `json:"kind"`
	Label      string   `json:"label"`
	DocumentID string   `json:"document_id,omitempty"`
}

// GraphEdge is one directed edge of a graph export.
type GraphEdge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Kind EdgeKind `json:"kind"`
}

// GraphExport is the node/edge view of one family for visualization.
// Nodes follow family order: documents by registration, then clauses,
// facts and bindings in structural order. Edges follow their source nodes.
type GraphExport struct {
	FamilyID string      `json:"family_id"`
	Nodes    []GraphNode `json:"nodes"`
	Edges    []GraphEdge `json:"edges"`
}

// ExportGraph builds the graph export of a family.
func (e *Engine) ExportGraph(ctx context.Context, familyID string) (GraphExport, error) {
	defer metrics.ObserveDuration("export", time.Now())

	g := GraphExport{FamilyID: familyID, Nodes: []GraphNode{}, Edges: []GraphEdge{}}

	docs, err := e.store.FamilyDocuments(ctx, familyID)
	if err != nil {
		return g, err
	}
	if len(docs) == 0 {
		return g, newError(ErrCodeNotFound, "", fmt.Sprintf("family %s has no documents", familyID), familyID)
	}
	clauses, err := e.store.FamilyClauses(ctx, familyID)
	if err != nil {
		return g, err
	}
	facts, err := e.store.CollectFacts(ctx, query.All(query.FamilyIs{FamilyID: familyID}))
	if err != nil {
		return g, err
	}
	bindings, err := e.store.FamilyBindings(ctx, familyID)
	if err != nil {
		return g, err
	}
	refs, err := e.store.FamilyCrossReferences(ctx, familyID, false)
	if err != nil {
		return g, err
	}

	claimed := make(map[string]bool)
	for _, d := range docs {
		label := d.Title
		if label == "" {
			label = d.ID
		}
		g.Nodes = append(g.Nodes, GraphNode{ID: d.ID, Kind: NodeContract, Label: label, DocumentID: d.ID})
	}
	for _, c := range clauses {
		if err := ctx.Err(); err != nil {
			return g, err
		}
		g.Nodes = append(g.Nodes, GraphNode{ID: c.ID, Kind: NodeClause, Label: clauseLabel(c), DocumentID: c.DocumentID})
		g.Edges = append(g.Edges, GraphEdge{From: c.DocumentID, To: c.ID, Kind: EdgeContains})
		for _, fid := range c.FactIDs {
			g.Edges = append(g.Edges, GraphEdge{From: c.ID, To: fid, Kind: EdgeContains})
			claimed[fid] = true
		}
	}
	for _, f := range facts {
		g.Nodes = append(g.Nodes, GraphNode{ID: f.ID, Kind: NodeFact, Label: factLabel(f), DocumentID: f.DocumentID})
		if !claimed[f.ID] {
			g.Edges = append(g.Edges, GraphEdge{From: f.DocumentID, To: f.ID, Kind: EdgeContains})
		}
	}
	for _, b := range bindings {
		g.Nodes = append(g.Nodes, GraphNode{ID: b.ID, Kind: NodeBinding, Label: b.Term, DocumentID: b.DocumentID})
		g.Edges = append(g.Edges, GraphEdge{From: b.FactID, To: b.ID, Kind: EdgeDefines})
	}
	for _, x := range refs {
		if x.Resolved && x.TargetClauseID != "" {
			g.Edges = append(g.Edges, GraphEdge{From: x.SourceClauseID, To: x.TargetClauseID, Kind: EdgeReferences})
		}
	}
	for _, d := range docs {
		slots, err := e.store.DocumentSlots(ctx, d.ID)
		if err != nil {
			return g, err
		}
		for _, s := range slots {
			if s.Status == ir.SlotFilled && s.FactID != "" {
				g.Edges = append(g.Edges, GraphEdge{From: s.FactID, To: s.ClauseID, Kind: EdgeSupports})
			}
		}
	}
	return g, nil
}

// Summary renders node and edge counts by kind, one per line, in a fixed
// kind order.
func (g GraphExport) Summary() string {
	nodes := make(map[NodeKind]int)
	for _, n := range g.Nodes {
		nodes[n.Kind]++
	}
	edges := make(map[EdgeKind]int)
	for _, e := range g.Edges {
		edges[e.Kind]++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Graph for family %s\n", g.FamilyID)
	fmt.Fprintf(&b, "Nodes: %d\n", len(g.Nodes))
	for _, k := range []NodeKind{NodeContract, NodeClause, NodeFact, NodeBinding} {
		fmt.Fprintf(&b, "  %-10s %d\n", k, nodes[k])
	}
	fmt.Fprintf(&b, "Edges: %d\n", len(g.Edges))
	for _, k := range []EdgeKind{EdgeContains, EdgeDefines, EdgeReferences, EdgeSupports} {
		fmt.Fprintf(&b, "  %-10s %d\n", k, edges[k])
	}
	return b.String()
}

// WriteDOT writes the export in Graphviz DOT form.
func (g GraphExport) WriteDOT(w io.Writer) error {
	shapes := map[NodeKind]string{
		NodeContract: "folder",
		NodeClause:   "box",
		NodeFact:     "note",
		NodeBinding:  "ellipse",
	}
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", g.FamilyID)
	for _, n := range g.Nodes {
		fmt.Fprintf(&b, "  %q [label=%q shape=%s];\n", n.ID, n.Label, shapes[n.Kind])
	}
	for _, e := range g.Edges {
		fmt.Fprintf(&b, "  %q -> %q [label=%q];\n", e.From, e.To, e.Kind)
	}
	b.WriteString("}\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func clauseLabel(c ir.Clause) string {
	parts := make([]string, 0, 2)
	if c.SectionNumber != "" {
		parts = append(parts, c.SectionNumber)
	}
	if c.Heading != "" {
		parts = append(parts, c.Heading)
	}
	if len(parts) == 0 {
		return c.ClauseType
	}
	return strings.Join(parts, " ")
}

func factLabel(f ir.Fact) string {
	v := f.Value
	if v == "" {
		v = f.SourceText
	}
	if r := []rune(v); len(r) > 40 {
		v = string(r[:37]) + "..."
	}
	if f.EntityType != "" {
		return f.EntityType + ": " + v
	}
	return string(f.Kind) + ": " + v
}
