package ir

// Clause is a classified structural unit of a document.
type Clause struct {
	ID                   string   `json:"id"`
	DocumentID           string   `json:"document_id"`
	ClauseType           string   `json:"clause_type"`
	Heading              string   `json:"heading"`
	SectionNumber        string   `json:"section_number,omitempty"`
	BodyFactID           string   `json:"body_fact_id,omitempty"`
	Span                 Span     `json:"span"`
	FactIDs              []string `json:"fact_ids"`
	CrossReferenceIDs    []string `json:"cross_reference_ids"`
	ClassificationMethod string   `json:"classification_method"`
	Confidence           *float64 `json:"confidence,omitempty"`
}

// ClauseSignal is one classification signal produced by the external
// clause classifier. Facts whose spans lie inside Span belong to the clause.
type ClauseSignal struct {
	ClauseType    string   `json:"clause_type" yaml:"clause_type" validate:"required"`
	Heading       string   `json:"heading" yaml:"heading"`
	SectionNumber string   `json:"section_number,omitempty" yaml:"section_number"`
	Span          Span     `json:"span" yaml:"span"`
	Method        string   `json:"method" yaml:"method" validate:"required"`
	Confidence    *float64 `json:"confidence,omitempty" yaml:"confidence" validate:"omitempty,gte=0,lte=1"`
}

// CrossReference is a directed edge from a clause to a named target.
// It is created unresolved and mutated at most once by the resolution pass.
type CrossReference struct {
	ID             string `json:"id"`
	SourceClauseID string `json:"source_clause_id"`
	TargetRef      string `json:"target_ref"`
	TargetClauseID string `json:"target_clause_id,omitempty"`
	ReferenceType  string `json:"reference_type"`
	Effect         string `json:"effect,omitempty"`
	Context        string `json:"context,omitempty"`
	Resolved       bool   `json:"resolved"`
	FactID         string `json:"fact_id"`
}

// ClauseFactSlot records whether a required fact for a clause type was found.
// Identity is the pair (ClauseID, SpecName).
type ClauseFactSlot struct {
	ClauseID string     `json:"clause_id"`
	SpecName string     `json:"spec_name"`
	Status   SlotStatus `json:"status"`
	FactID   string     `json:"fact_id,omitempty"`
	Required bool       `json:"required"`
}

// FactSpec describes one required (or optional) fact for a clause type.
type FactSpec struct {
	Name       string   `json:"name" yaml:"name" validate:"required"`
	EntityType string   `json:"entity_type,omitempty" yaml:"entity_type"`
	Kind       FactKind `json:"kind,omitempty" yaml:"kind"`
	Pattern    string   `json:"pattern,omitempty" yaml:"pattern"` // Value must match to be complete
	Required   bool     `json:"required" yaml:"required"`
}
