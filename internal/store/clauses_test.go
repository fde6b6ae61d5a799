package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/truthgraph/internal/ir"
)

func seedClause(t *testing.T, s *Store, id, documentID, section string, span ir.Span, factIDs ...string) ir.Clause {
	t.Helper()
	c := ir.Clause{
		ID:                   id,
		DocumentID:           documentID,
		ClauseType:           "termination",
		Heading:              "Termination",
		SectionNumber:        section,
		Span:                 span,
		FactIDs:              factIDs,
		ClassificationMethod: "test",
	}
	_, err := s.InsertClause(context.Background(), c)
	require.NoError(t, err)
	return c
}

func TestInsertClause_LinksFactsInOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedDocument(t, s, "msa", "fam", ir.RoleBase)
	late := seedFact(t, s, createTestFact("msa", 50, 60, "notice_period", "30 days"))
	early := seedFact(t, s, createTestFact("msa", 10, 20, "party", "Acme"))

	confidence := 0.8
	c := ir.Clause{
		ID: "c1", DocumentID: "msa", ClauseType: "termination", Heading: "Termination",
		SectionNumber: "12", Span: ir.Span{Start: 0, End: 100},
		FactIDs: []string{late.ID, early.ID}, ClassificationMethod: "rules", Confidence: &confidence,
	}
	inserted, err := s.InsertClause(ctx, c)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.InsertClause(ctx, c)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := s.GetClause(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{early.ID, late.ID}, got.FactIDs)
	require.NotNil(t, got.Confidence)
	assert.InDelta(t, 0.8, *got.Confidence, 1e-9)
	assert.Empty(t, got.CrossReferenceIDs)
}

func TestInsertClause_ReplacesLinksOfExistingClause(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedDocument(t, s, "msa", "fam", ir.RoleBase)
	body := seedFact(t, s, createTestFact("msa", 0, 100, "heading", "Termination."))
	moved := seedFact(t, s, createTestFact("msa", 50, 60, "notice_period", "30 days"))

	c := seedClause(t, s, "c1", "msa", "12", ir.Span{Start: 0, End: 100}, body.ID, moved.ID)

	c.FactIDs = []string{body.ID}
	c.BodyFactID = body.ID
	inserted, err := s.InsertClause(ctx, c)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := s.GetClause(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{body.ID}, got.FactIDs)
	assert.Equal(t, body.ID, got.BodyFactID)
}

func TestCrossReference_ResolvedAtMostOnce(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedDocument(t, s, "msa", "fam", ir.RoleBase)
	ref := seedFact(t, s, createTestFact("msa", 5, 15, "cross_reference", "Section 14"))
	a := seedClause(t, s, "a", "msa", "12", ir.Span{Start: 0, End: 100}, ref.ID)
	b := seedClause(t, s, "b", "msa", "14", ir.Span{Start: 200, End: 300})
	c := seedClause(t, s, "c", "msa", "15", ir.Span{Start: 300, End: 400})

	x := ir.CrossReference{ID: "x1", SourceClauseID: a.ID, TargetRef: "Section 14", ReferenceType: "see", FactID: ref.ID}
	_, err := s.InsertCrossReference(ctx, x)
	require.NoError(t, err)

	ok, err := s.ResolveCrossReference(ctx, "x1", b.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ResolveCrossReference(ctx, "x1", c.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.GetCrossReference(ctx, "x1")
	require.NoError(t, err)
	assert.True(t, got.Resolved)
	assert.Equal(t, b.ID, got.TargetClauseID)

	clause, err := s.GetClause(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"x1"}, clause.CrossReferenceIDs)
}

func TestPruneCrossReferences_KeepsListedOnly(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedDocument(t, s, "msa", "fam", ir.RoleBase)
	seedDocument(t, s, "sched", "fam", ir.RoleSchedule)
	r1 := seedFact(t, s, createTestFact("msa", 5, 15, "cross_reference", "Section 14"))
	r2 := seedFact(t, s, createTestFact("msa", 20, 30, "cross_reference", "Section 15"))
	r3 := seedFact(t, s, createTestFact("sched", 5, 15, "cross_reference", "Section 1"))
	a := seedClause(t, s, "a", "msa", "12", ir.Span{Start: 0, End: 100}, r1.ID, r2.ID)
	other := seedClause(t, s, "o", "sched", "1", ir.Span{Start: 0, End: 100}, r3.ID)

	for _, x := range []ir.CrossReference{
		{ID: "x1", SourceClauseID: a.ID, TargetRef: "Section 14", FactID: r1.ID},
		{ID: "x2", SourceClauseID: a.ID, TargetRef: "Section 15", FactID: r2.ID},
		{ID: "x3", SourceClauseID: other.ID, TargetRef: "Section 1", FactID: r3.ID},
	} {
		_, err := s.InsertCrossReference(ctx, x)
		require.NoError(t, err)
	}

	n, err := s.PruneCrossReferences(ctx, "msa", []string{"x1"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	refs, err := s.FamilyCrossReferences(ctx, "fam", false)
	require.NoError(t, err)
	var got []string
	for _, x := range refs {
		got = append(got, x.ID)
	}
	assert.ElementsMatch(t, []string{"x1", "x3"}, got)
}

func TestCrossReference_TargetDocumentDeletedBecomesUnresolved(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedDocument(t, s, "msa", "fam", ir.RoleBase)
	seedDocument(t, s, "sched", "fam", ir.RoleSchedule)
	ref := seedFact(t, s, createTestFact("msa", 5, 15, "cross_reference", "Schedule 1"))
	a := seedClause(t, s, "a", "msa", "2", ir.Span{Start: 0, End: 100}, ref.ID)
	target := seedClause(t, s, "t", "sched", "1", ir.Span{Start: 0, End: 100})

	_, err := s.InsertCrossReference(ctx, ir.CrossReference{ID: "x1", SourceClauseID: a.ID, TargetRef: "Schedule 1", FactID: ref.ID})
	require.NoError(t, err)
	_, err = s.ResolveCrossReference(ctx, "x1", target.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteDocument(ctx, "sched"))

	got, err := s.GetCrossReference(ctx, "x1")
	require.NoError(t, err)
	assert.False(t, got.Resolved)
	assert.Empty(t, got.TargetClauseID)

	unresolved, err := s.FamilyCrossReferences(ctx, "fam", true)
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
}

func TestReplaceClauseSlots(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedDocument(t, s, "msa", "fam", ir.RoleBase)
	f := seedFact(t, s, createTestFact("msa", 5, 15, "notice_period", "30 days"))
	seedClause(t, s, "c1", "msa", "12", ir.Span{Start: 0, End: 100}, f.ID)

	require.NoError(t, s.ReplaceClauseSlots(ctx, "c1", []ir.ClauseFactSlot{
		{ClauseID: "c1", SpecName: "notice_period", Status: ir.SlotFilled, FactID: f.ID, Required: true},
		{ClauseID: "c1", SpecName: "cure_period", Status: ir.SlotMissing, Required: true},
	}))
	require.NoError(t, s.ReplaceClauseSlots(ctx, "c1", []ir.ClauseFactSlot{
		{ClauseID: "c1", SpecName: "notice_period", Status: ir.SlotPartial, FactID: f.ID, Required: true},
	}))

	slots, err := s.ClauseSlots(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, ir.SlotPartial, slots[0].Status)

	doc, err := s.DocumentSlots(ctx, "msa")
	require.NoError(t, err)
	assert.Equal(t, slots, doc)

	err = s.ReplaceClauseSlots(ctx, "c1", []ir.ClauseFactSlot{{ClauseID: "other", SpecName: "x", Status: ir.SlotMissing}})
	assert.Error(t, err)
}
