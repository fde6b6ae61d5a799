package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFactKind(t *testing.T) {
	for _, k := range FactKinds {
		got, err := ParseFactKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseFactKind("opinion")
	assert.Error(t, err)
}

func TestParseClosedVariants(t *testing.T) {
	_, err := ParseBindingKind("synonym")
	assert.Error(t, err)
	_, err = ParseBindingScope("global")
	assert.Error(t, err)
	_, err = ParseInferenceKind("")
	assert.Error(t, err)
	_, err = ParseDocumentRole("annex")
	assert.Error(t, err)
	_, err = ParseSlotStatus("unknown")
	assert.Error(t, err)
	_, err = ParseKnowledgeOrigin("web")
	assert.Error(t, err)

	role, err := ParseDocumentRole("amendment")
	require.NoError(t, err)
	assert.Equal(t, RoleAmendment, role)
}

func TestNeedsReviewAt(t *testing.T) {
	assert.True(t, NeedsReviewAt(0.42))
	assert.True(t, NeedsReviewAt(0.0))
	assert.False(t, NeedsReviewAt(0.5))
	assert.False(t, NeedsReviewAt(0.91))
}

func TestResultLayers(t *testing.T) {
	results := []Result{
		FactResult{},
		BindingResult{},
		InferenceResult{},
		OpinionResult{},
	}
	want := []TruthLayer{LayerFact, LayerBinding, LayerInference, LayerOpinion}
	for i, r := range results {
		assert.Equal(t, want[i], r.Layer())
	}
	assert.True(t, LayerFact.Below(LayerBinding))
	assert.False(t, LayerInference.Below(LayerBinding))
}

func TestSpanContains(t *testing.T) {
	outer := Span{Start: 10, End: 100}
	assert.True(t, outer.Contains(Span{Start: 10, End: 100}))
	assert.True(t, outer.Contains(Span{Start: 20, End: 30}))
	assert.False(t, outer.Contains(Span{Start: 5, End: 30}))
	assert.False(t, outer.Contains(Span{Start: 90, End: 101}))
}
