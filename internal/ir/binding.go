package ir

// Binding maps a defined term to its resolved meaning inside a scope.
//
// A binding is immutable once stored except for OverriddenBy, which is set
// when a later, higher-precedence binding for the same term is registered.
// The override chain is acyclic; resolution follows it to its head.
type Binding struct {
	ID           string       `json:"id"`
	DocumentID   string       `json:"document_id" validate:"required"`
	Kind         BindingKind  `json:"kind" validate:"required,oneof=definition alias"`
	Term         string       `json:"term" validate:"required"`
	Value        string       `json:"value" validate:"required"`
	FactID       string       `json:"fact_id" validate:"required"`
	Scope        BindingScope `json:"scope" validate:"required,oneof=document family"`
	OverriddenBy string       `json:"overridden_by,omitempty"`
}

// Overridden reports whether a later binding supersedes this one.
func (b Binding) Overridden() bool {
	return b.OverriddenBy != ""
}
