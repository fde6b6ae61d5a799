package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/truthgraph/internal/ir"
)

func TestChainFor_OrdersLayersAndDeduplicates(t *testing.T) {
	ctx := context.Background()
	e := setupTestEngine(t)
	factID, binding := seedEvidence(t, e)

	req := noticeRequest(factID)
	req.BindingIDs = []string{binding.ID}
	first, err := e.Infer(ctx, req, FixedScore{Confidence: 0.8})
	require.NoError(t, err)
	second, err := e.Infer(ctx, noticeRequest(factID), FixedScore{Confidence: 0.7})
	require.NoError(t, err)

	chain, err := e.ChainFor(ctx, Answer{
		ID:           "answer-1",
		InferenceIDs: []string{first.Inference.ID, second.Inference.ID, first.Inference.ID},
		FactIDs:      []string{factID},
	})
	require.NoError(t, err)
	assert.Equal(t, "answer-1", chain.AnswerID)

	var layers []ir.TruthLayer
	var linkIDs []string
	for _, l := range chain.Links {
		layers = append(layers, l.Layer)
		linkIDs = append(linkIDs, l.ID)
	}
	assert.Equal(t, []ir.TruthLayer{
		ir.LayerFact, ir.LayerFact, ir.LayerBinding, ir.LayerInference, ir.LayerInference,
	}, layers)
	assert.Equal(t, []string{factID, binding.FactID, binding.ID, first.Inference.ID, second.Inference.ID}, linkIDs)
	assert.Equal(t, "Notice = written notice delivered by hand", chain.Links[2].Value)
}

func TestChainFor_GeneratesAnswerID(t *testing.T) {
	e := setupTestEngine(t)
	factID, _ := seedEvidence(t, e)

	chain, err := e.ChainFor(context.Background(), Answer{FactIDs: []string{factID}})
	require.NoError(t, err)
	assert.Equal(t, "inf-0001", chain.AnswerID)
	require.Len(t, chain.Links, 1)
	assert.Equal(t, "30 days", chain.Links[0].Value)
}

func TestChainFor_BrokenProvenance(t *testing.T) {
	ctx := context.Background()
	e := setupTestEngine(t)
	factID, _ := seedEvidence(t, e)

	tests := map[string]Answer{
		"unknown inference": {ID: "a", InferenceIDs: []string{"ghost"}, FactIDs: []string{factID}},
		"unknown binding":   {ID: "a", BindingIDs: []string{"ghost"}},
		"unknown fact":      {ID: "a", FactIDs: []string{factID, "ghost"}},
		"no evidence":       {ID: "a"},
	}
	for name, answer := range tests {
		t.Run(name, func(t *testing.T) {
			chain, err := e.ChainFor(ctx, answer)
			require.Error(t, err)
			assert.True(t, IsBrokenProvenance(err))
			assert.Empty(t, chain.Links, "answer is withheld")
		})
	}
}

func TestChainFor_MarksInvalidatedInference(t *testing.T) {
	ctx := context.Background()
	e := setupTestEngine(t)
	factID, _ := seedEvidence(t, e)

	old, err := e.Infer(ctx, noticeRequest(factID), FixedScore{Confidence: 0.3})
	require.NoError(t, err)
	_, err = e.Revise(ctx, old.Inference.ID, noticeRequest(factID), FixedScore{Confidence: 0.9})
	require.NoError(t, err)

	chain, err := e.ChainFor(ctx, Answer{ID: "a", InferenceIDs: []string{old.Inference.ID}})
	require.NoError(t, err)
	last := chain.Links[len(chain.Links)-1]
	assert.Equal(t, ir.LayerInference, last.Layer)
	assert.True(t, last.Invalidated)
}
