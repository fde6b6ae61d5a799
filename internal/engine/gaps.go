package engine

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/truthgraph/internal/ir"
)

// Gap lists the required fact slots of one clause that are not filled.
type Gap struct {
	DocumentID    string   `json:"document_id"`
	ClauseID      string   `json:"clause_id"`
	ClauseType    string   `json:"clause_type"`
	Heading       string   `json:"heading"`
	SectionNumber string   `json:"section_number,omitempty"`
	Missing       []string `json:"missing"`
	Partial       []string `json:"partial"`
}

// GapReport is the set of clauses with unfilled required slots.
type GapReport struct {
	Scope   Scope `json:"scope"`
	Clauses int   `json:"clauses"` // Clauses examined
	Gaps    []Gap `json:"gaps"`
}

// MissingCount returns the number of missing required slots.
func (r GapReport) MissingCount() int {
	n := 0
	for _, g := range r.Gaps {
		n += len(g.Missing)
	}
	return n
}

// GapReport builds the gap report of one document from its stored slots.
func (e *Engine) GapReport(ctx context.Context, documentID string) (GapReport, error) {
	if _, err := e.Document(ctx, documentID); err != nil {
		return GapReport{}, err
	}
	gaps, clauses, err := e.documentGaps(ctx, documentID)
	if err != nil {
		return GapReport{}, err
	}
	return GapReport{Scope: Scope{DocumentID: documentID}, Clauses: clauses, Gaps: gaps}, nil
}

// FamilyGapReport builds the gap report of every document of a family.
// Documents are analysed concurrently up to the engine's gap concurrency;
// the report lists them in family registration order.
func (e *Engine) FamilyGapReport(ctx context.Context, familyID string) (GapReport, error) {
	order, err := e.FamilyOrder(ctx, familyID)
	if err != nil {
		return GapReport{}, err
	}
	docs := order.Documents()

	perDoc := make([][]Gap, len(docs))
	counts := make([]int, len(docs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.gapConcurrency)
	for i, doc := range docs {
		g.Go(func() error {
			gaps, n, err := e.documentGaps(gCtx, doc.ID)
			if err != nil {
				return fmt.Errorf("gap report %s: %w", doc.ID, err)
			}
			perDoc[i] = gaps
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return GapReport{}, err
	}

	report := GapReport{Scope: Scope{FamilyID: familyID}, Gaps: []Gap{}}
	for i := range docs {
		report.Clauses += counts[i]
		report.Gaps = append(report.Gaps, perDoc[i]...)
	}
	return report, nil
}

func (e *Engine) documentGaps(ctx context.Context, documentID string) ([]Gap, int, error) {
	clauses, err := e.store.DocumentClauses(ctx, documentID)
	if err != nil {
		return nil, 0, err
	}
	slots, err := e.store.DocumentSlots(ctx, documentID)
	if err != nil {
		return nil, 0, err
	}
	byClause := make(map[string][]ir.ClauseFactSlot)
	for _, s := range slots {
		byClause[s.ClauseID] = append(byClause[s.ClauseID], s)
	}

	gaps := []Gap{}
	for _, c := range clauses {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		gap := Gap{
			DocumentID:    documentID,
			ClauseID:      c.ID,
			ClauseType:    c.ClauseType,
			Heading:       c.Heading,
			SectionNumber: c.SectionNumber,
			Missing:       []string{},
			Partial:       []string{},
		}
		for _, s := range byClause[c.ID] {
			if !s.Required {
				continue
			}
			switch s.Status {
			case ir.SlotMissing:
				gap.Missing = append(gap.Missing, s.SpecName)
			case ir.SlotPartial:
				gap.Partial = append(gap.Partial, s.SpecName)
			}
		}
		if len(gap.Missing) > 0 || len(gap.Partial) > 0 {
			gaps = append(gaps, gap)
		}
	}
	return gaps, len(clauses), nil
}

// Render writes the report in the operator text form.
func (r GapReport) Render(w io.Writer) error {
	scope := "document " + r.Scope.DocumentID
	if r.Scope.DocumentID == "" {
		scope = "family " + r.Scope.FamilyID
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Gap report for %s\n", scope)
	fmt.Fprintf(&b, "Clauses examined: %d\n", r.Clauses)
	fmt.Fprintf(&b, "Clauses with gaps: %d\n", len(r.Gaps))
	for _, g := range r.Gaps {
		label := g.Heading
		if g.SectionNumber != "" {
			label = g.SectionNumber + " " + g.Heading
		}
		fmt.Fprintf(&b, "\n[%s] %s (%s)\n", g.DocumentID, strings.TrimSpace(label), g.ClauseType)
		for _, m := range g.Missing {
			fmt.Fprintf(&b, "  missing  %s\n", m)
		}
		for _, p := range g.Partial {
			fmt.Fprintf(&b, "  partial  %s\n", p)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
