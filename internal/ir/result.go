package ir

// TruthLayer is one of the four epistemic layers.
type TruthLayer string

const (
	LayerFact      TruthLayer = "fact"
	LayerBinding   TruthLayer = "binding"
	LayerInference TruthLayer = "inference"
	LayerOpinion   TruthLayer = "opinion"
)

// layerOrder ranks layers from ground truth upward.
var layerOrder = map[TruthLayer]int{
	LayerFact:      0,
	LayerBinding:   1,
	LayerInference: 2,
	LayerOpinion:   3,
}

// Below reports whether l sits strictly below other in the hierarchy.
func (l TruthLayer) Below(other TruthLayer) bool {
	return layerOrder[l] < layerOrder[other]
}

// Result is a typed query result.
//
// This is a sealed interface - only types in this package implement it.
// Every result carries exactly one truth layer; there is no untagged variant.
type Result interface {
	Layer() TruthLayer
	resultNode()
}

// FactResult wraps a fact returned to a caller.
type FactResult struct {
	Fact Fact `json:"fact"`
}

// Layer implements Result.
func (FactResult) Layer() TruthLayer { return LayerFact }
func (FactResult) resultNode()       {}

// BindingStatus is the outcome of resolving a term.
type BindingStatus string

const (
	BindingResolved  BindingStatus = "resolved"
	BindingAmbiguous BindingStatus = "ambiguous"
	BindingUnbound   BindingStatus = "unbound"
)

// BindingResult is the outcome of resolving a term within a scope.
// When Status is BindingAmbiguous, Candidates names every tied binding
// and Binding is nil.
type BindingResult struct {
	Term       string        `json:"term"`
	Status     BindingStatus `json:"status"`
	Tier       string        `json:"tier,omitempty"` // Search step that produced the hit
	Binding    *Binding      `json:"binding,omitempty"`
	Candidates []Binding     `json:"candidates,omitempty"`
}

// Layer implements Result.
func (BindingResult) Layer() TruthLayer { return LayerBinding }
func (BindingResult) resultNode()       {}

// InferenceResult carries an inference together with its provenance chain.
type InferenceResult struct {
	Inference Inference       `json:"inference"`
	Chain     ProvenanceChain `json:"chain"`
}

// Layer implements Result.
func (InferenceResult) Layer() TruthLayer { return LayerInference }
func (InferenceResult) resultNode()       {}

// OpinionResult carries a freshly formed opinion.
type OpinionResult struct {
	Opinion Opinion `json:"opinion"`
}

// Layer implements Result.
func (OpinionResult) Layer() TruthLayer { return LayerOpinion }
func (OpinionResult) resultNode()       {}

// ProvenanceLink is one evidence record in a provenance chain.
type ProvenanceLink struct {
	Layer       TruthLayer `json:"layer"`
	ID          string     `json:"id"`
	Value       string     `json:"value"`
	SourceText  string     `json:"source_text,omitempty"`
	Span        *Span      `json:"span,omitempty"`
	Location    string     `json:"location,omitempty"`
	DocumentID  string     `json:"document_id,omitempty"`
	Invalidated bool       `json:"invalidated,omitempty"`
}

// ProvenanceChain is the ordered evidence trail behind an answer,
// from source facts up through bindings and inferences.
type ProvenanceChain struct {
	AnswerID string           `json:"answer_id"`
	Links    []ProvenanceLink `json:"links"`
}

// Facts returns the fact-layer links of the chain.
func (c ProvenanceChain) Facts() []ProvenanceLink {
	var out []ProvenanceLink
	for _, l := range c.Links {
		if l.Layer == LayerFact {
			out = append(out, l)
		}
	}
	return out
}
