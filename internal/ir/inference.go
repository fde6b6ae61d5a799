package ir

import "time"

// ReviewThreshold is the confidence below which an inference must be
// reviewed by a human.
const ReviewThreshold = 0.5

// DomainSource declares a knowledge source that contributed to an inference.
type DomainSource struct {
	SourceID string          `json:"source_id" validate:"required"`
	Origin   KnowledgeOrigin `json:"origin" validate:"required,oneof=document external"`
	Label    string          `json:"label,omitempty"`
}

// Inference is a derived, probabilistic claim.
//
// Confidence is never edited after creation. A revised belief is a new
// Inference; the old one gets InvalidatedBy set and is kept for history.
type Inference struct {
	ID              string         `json:"id"`
	DocumentID      string         `json:"document_id,omitempty"` // Exactly one of DocumentID or FamilyID
	FamilyID        string         `json:"family_id,omitempty"`
	Kind            InferenceKind  `json:"kind"`
	Claim           string         `json:"claim"`
	FactIDs         []string       `json:"fact_ids"`
	BindingIDs      []string       `json:"binding_ids"`
	DomainSources   []DomainSource `json:"domain_sources"`
	Reasoning       string         `json:"reasoning"`
	Confidence      float64        `json:"confidence"`
	ConfidenceBasis string         `json:"confidence_basis"`
	NeedsReview     bool           `json:"needs_review"`
	ProducerID      string         `json:"producer_id"`
	CreatedAt       time.Time      `json:"created_at"`
	QueryID         string         `json:"query_id,omitempty"`
	InvalidatedBy   string         `json:"invalidated_by,omitempty"`
}

// Invalidated reports whether a later inference superseded this one.
func (i Inference) Invalidated() bool {
	return i.InvalidatedBy != ""
}

// UsesExternalKnowledge reports whether any declared source is external.
func (i Inference) UsesExternalKnowledge() bool {
	for _, s := range i.DomainSources {
		if s.Origin == OriginExternal {
			return true
		}
	}
	return false
}

// NeedsReviewAt applies the review threshold rule to a confidence value.
func NeedsReviewAt(confidence float64) bool {
	return confidence < ReviewThreshold
}

// Opinion is a role- and policy-dependent judgment over inferences.
// Opinions are never persisted.
type Opinion struct {
	Role         string    `json:"role"`
	Policy       string    `json:"policy"`
	Verdict      string    `json:"verdict"`
	Rationale    string    `json:"rationale"`
	InferenceIDs []string  `json:"inference_ids"`
	FormedAt     time.Time `json:"formed_at"`
}
