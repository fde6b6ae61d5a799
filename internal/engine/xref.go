package engine

import (
	"context"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/truthgraph/internal/ir"
	"github.com/roach88/truthgraph/internal/metrics"
	"github.com/roach88/truthgraph/internal/store"
)

// ReferenceReport summarizes one resolution pass over a family.
type ReferenceReport struct {
	FamilyID   string   `json:"family_id"`
	Examined   int      `json:"examined"`
	Resolved   int      `json:"resolved"`
	Unresolved []string `json:"unresolved"` // Cross-reference IDs left dangling
}

var (
	refQualifier = regexp.MustCompile(`^(?:sections|section|sec|clauses|clause|articles|article|paragraph|para)\b\.?\s*`)
	refNoise     = regexp.MustCompile(`[^\p{L}\p{N}.()\s]+`)
	refSpaces    = regexp.MustCompile(`\s+`)
)

// normalizeRef reduces a reference, section number or heading to a
// comparable key: NFKC, case folded, leading qualifier dropped, punctuation
// other than dots and parentheses removed.
func normalizeRef(s string) string {
	s = cases.Fold().String(norm.NFKC.String(s))
	s = refNoise.ReplaceAllString(s, " ")
	s = refSpaces.ReplaceAllString(strings.TrimSpace(s), " ")
	s = refQualifier.ReplaceAllString(s, "")
	s = strings.TrimRight(s, ". ")
	// "12 (a)" and "12(a)" name the same clause.
	return strings.ReplaceAll(s, " (", "(")
}

// ResolveReferences matches every unresolved cross-reference of a family
// against the family's clauses. A reference matches a clause by section
// number first and heading second; among matches the source's own document
// wins, then family structural order. References without a match stay
// unresolved. Resolved references are never revisited.
func (e *Engine) ResolveReferences(ctx context.Context, familyID string) (ReferenceReport, error) {
	defer metrics.ObserveDuration("resolve_references", time.Now())

	report := ReferenceReport{FamilyID: familyID, Unresolved: []string{}}

	docs, err := e.store.FamilyDocuments(ctx, familyID)
	if err != nil {
		return report, err
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	release := e.locks.lockAll(ids)
	defer release()

	err = e.store.InTx(ctx, func(tx *store.Tx) error {
		clauses, err := tx.FamilyClauses(ctx, familyID)
		if err != nil {
			return err
		}
		refs, err := tx.FamilyCrossReferences(ctx, familyID, true)
		if err != nil {
			return err
		}
		idx := newClauseIndex(clauses)

		for _, x := range refs {
			if err := ctx.Err(); err != nil {
				return err
			}
			report.Examined++
			target, ok := idx.match(x)
			if !ok {
				report.Unresolved = append(report.Unresolved, x.ID)
				metrics.ReferencesResolved.WithLabelValues("unresolved").Inc()
				continue
			}
			updated, err := tx.ResolveCrossReference(ctx, x.ID, target)
			if err != nil {
				return err
			}
			if updated {
				report.Resolved++
				metrics.ReferencesResolved.WithLabelValues("resolved").Inc()
			}
		}
		return nil
	})
	if err != nil {
		return ReferenceReport{FamilyID: familyID, Unresolved: []string{}}, mapStoreError(err, "")
	}

	e.logger.Info("cross-references resolved",
		"family_id", familyID,
		"examined", report.Examined,
		"resolved", report.Resolved,
		"unresolved", len(report.Unresolved))
	return report, nil
}

// clauseIndex maps normalized section numbers and headings to clauses in
// family structural order.
type clauseIndex struct {
	docOf     map[string]string // clause -> document
	bySection map[string][]ir.Clause
	byHeading map[string][]ir.Clause
}

func newClauseIndex(clauses []ir.Clause) *clauseIndex {
	idx := &clauseIndex{
		docOf:     make(map[string]string, len(clauses)),
		bySection: make(map[string][]ir.Clause),
		byHeading: make(map[string][]ir.Clause),
	}
	for _, c := range clauses {
		idx.docOf[c.ID] = c.DocumentID
		if k := normalizeRef(c.SectionNumber); k != "" {
			idx.bySection[k] = append(idx.bySection[k], c)
		}
		if k := normalizeRef(c.Heading); k != "" {
			idx.byHeading[k] = append(idx.byHeading[k], c)
		}
	}
	return idx
}

func (idx *clauseIndex) match(x ir.CrossReference) (string, bool) {
	key := normalizeRef(x.TargetRef)
	if key == "" {
		return "", false
	}
	source := idx.docOf[x.SourceClauseID]
	for _, candidates := range [][]ir.Clause{idx.bySection[key], idx.byHeading[key]} {
		if len(candidates) == 0 {
			continue
		}
		for _, c := range candidates {
			if c.DocumentID == source {
				return c.ID, true
			}
		}
		return candidates[0].ID, true
	}
	return "", false
}

// ReferenceGraph loads the resolved cross-references of a family as a
// graph over clause IDs. Every clause of the family is a node.
func (e *Engine) ReferenceGraph(ctx context.Context, familyID string) (*ReferenceGraph, error) {
	clauses, err := e.store.FamilyClauses(ctx, familyID)
	if err != nil {
		return nil, err
	}
	refs, err := e.store.FamilyCrossReferences(ctx, familyID, false)
	if err != nil {
		return nil, err
	}
	g := newReferenceGraph()
	for _, c := range clauses {
		g.addNode(c.ID)
	}
	for _, x := range refs {
		if x.Resolved && x.TargetClauseID != "" {
			g.addEdge(x.SourceClauseID, x.TargetClauseID)
		}
	}
	return g, nil
}

// Reachable returns every clause reachable from a clause by following
// resolved cross-references, the start clause included. Each clause
// appears once even when references form cycles.
func (e *Engine) Reachable(ctx context.Context, clauseID string) ([]ReachableClause, error) {
	defer metrics.ObserveDuration("reachable", time.Now())

	clause, err := e.store.GetClause(ctx, clauseID)
	if err != nil {
		return nil, mapStoreError(err, "")
	}
	doc, err := e.store.GetDocument(ctx, clause.DocumentID)
	if err != nil {
		return nil, mapStoreError(err, clause.DocumentID)
	}
	g, err := e.ReferenceGraph(ctx, doc.FamilyID)
	if err != nil {
		return nil, err
	}
	return g.Reachable(ctx, clauseID)
}
