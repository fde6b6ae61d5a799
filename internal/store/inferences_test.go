package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/truthgraph/internal/ir"
)

func createTestInference(id, documentID string, confidence float64, factIDs ...string) ir.Inference {
	return ir.Inference{
		ID:              id,
		DocumentID:      documentID,
		Kind:            ir.InferenceAnswer,
		Claim:           "notice period is 30 days",
		FactIDs:         factIDs,
		DomainSources:   []ir.DomainSource{{SourceID: "doc", Origin: ir.OriginDocument}},
		Reasoning:       "read from clause 12.2",
		Confidence:      confidence,
		ConfidenceBasis: "explicit statement",
		NeedsReview:     ir.NeedsReviewAt(confidence),
		ProducerID:      "test",
		CreatedAt:       testTime,
	}
}

func TestInsertInference_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedDocument(t, s, "msa", "fam", ir.RoleBase)
	f := seedFact(t, s, createTestFact("msa", 0, 10, "notice_period", "30 days"))

	inf := createTestInference("inf-1", "msa", 0.9, f.ID)
	inf.QueryID = "q-1"
	require.NoError(t, s.InsertInference(ctx, inf))

	got, err := s.GetInference(ctx, "inf-1")
	require.NoError(t, err)
	assert.Equal(t, []string{f.ID}, got.FactIDs)
	assert.Equal(t, []string{}, got.BindingIDs)
	assert.Equal(t, inf.DomainSources, got.DomainSources)
	assert.Equal(t, "q-1", got.QueryID)
	assert.False(t, got.NeedsReview)
	assert.True(t, testTime.Equal(got.CreatedAt))
}

func TestInsertInference_ReviewFlagEnforcedBySchema(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedDocument(t, s, "msa", "fam", ir.RoleBase)

	inf := createTestInference("inf-1", "msa", 0.3, "f")
	inf.NeedsReview = false
	assert.Error(t, s.InsertInference(ctx, inf))

	inf.NeedsReview = true
	assert.NoError(t, s.InsertInference(ctx, inf))
}

func TestInsertInference_ExactlyOneOwner(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedDocument(t, s, "msa", "fam", ir.RoleBase)

	both := createTestInference("inf-1", "msa", 0.9, "f")
	both.FamilyID = "fam"
	assert.Error(t, s.InsertInference(ctx, both))

	neither := createTestInference("inf-2", "", 0.9, "f")
	assert.Error(t, s.InsertInference(ctx, neither))
}

func TestInvalidate_OnlyOnce(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedDocument(t, s, "msa", "fam", ir.RoleBase)

	require.NoError(t, s.InsertInference(ctx, createTestInference("old", "msa", 0.9, "f")))
	require.NoError(t, s.InsertInference(ctx, createTestInference("new", "msa", 0.8, "f")))
	require.NoError(t, s.InsertInference(ctx, createTestInference("newer", "msa", 0.7, "f")))

	ok, err := s.Invalidate(ctx, "old", "new")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Invalidate(ctx, "old", "newer")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.GetInference(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, "new", got.InvalidatedBy)

	_, err = s.Invalidate(ctx, "missing", "new")
	assert.ErrorIs(t, err, ErrNotFound)

	live, err := s.ScopeInferences(ctx, "msa", "", false)
	require.NoError(t, err)
	require.Len(t, live, 2)
	assert.Equal(t, "new", live[0].ID)

	all, err := s.ScopeInferences(ctx, "msa", "", true)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestInferences_ConfidenceImmutable(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedDocument(t, s, "msa", "fam", ir.RoleBase)
	require.NoError(t, s.InsertInference(ctx, createTestInference("inf", "msa", 0.9, "f")))

	_, err := s.DB().Exec(`UPDATE inferences SET confidence = 0.95 WHERE id = 'inf'`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "immutable")
}
