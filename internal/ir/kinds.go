package ir

import "fmt"

// FactKind is the closed set of fact variants.
type FactKind string

const (
	FactEntity         FactKind = "entity"
	FactTextSpan       FactKind = "text_span"
	FactTableCell      FactKind = "table_cell"
	FactClauseText     FactKind = "clause_text"
	FactCrossReference FactKind = "cross_reference"
)

// FactKinds lists every fact kind in declaration order.
var FactKinds = []FactKind{FactEntity, FactTextSpan, FactTableCell, FactClauseText, FactCrossReference}

// ParseFactKind converts a stored tag into a FactKind.
func ParseFactKind(s string) (FactKind, error) {
	switch k := FactKind(s); k {
	case FactEntity, FactTextSpan, FactTableCell, FactClauseText, FactCrossReference:
		return k, nil
	default:
		return "", fmt.Errorf("unknown fact kind %q", s)
	}
}

// BindingKind is the closed set of binding variants.
type BindingKind string

const (
	BindingDefinition BindingKind = "definition"
	BindingAlias      BindingKind = "alias"
)

// ParseBindingKind converts a stored tag into a BindingKind.
func ParseBindingKind(s string) (BindingKind, error) {
	switch k := BindingKind(s); k {
	case BindingDefinition, BindingAlias:
		return k, nil
	default:
		return "", fmt.Errorf("unknown binding kind %q", s)
	}
}

// BindingScope controls where a binding is visible.
//   - ScopeDocument: only inside the defining document, never overridden
//   - ScopeFamily: visible across the document family, participates in overrides
type BindingScope string

const (
	ScopeDocument BindingScope = "document"
	ScopeFamily   BindingScope = "family"
)

// ParseBindingScope converts a stored tag into a BindingScope.
func ParseBindingScope(s string) (BindingScope, error) {
	switch k := BindingScope(s); k {
	case ScopeDocument, ScopeFamily:
		return k, nil
	default:
		return "", fmt.Errorf("unknown binding scope %q", s)
	}
}

// InferenceKind is the closed set of inference variants.
type InferenceKind string

const (
	InferenceAnswer         InferenceKind = "answer"
	InferenceGap            InferenceKind = "gap"
	InferenceClassification InferenceKind = "classification"
	InferenceObligation     InferenceKind = "obligation"
	InferenceRisk           InferenceKind = "risk"
)

// ParseInferenceKind converts a stored tag into an InferenceKind.
func ParseInferenceKind(s string) (InferenceKind, error) {
	switch k := InferenceKind(s); k {
	case InferenceAnswer, InferenceGap, InferenceClassification, InferenceObligation, InferenceRisk:
		return k, nil
	default:
		return "", fmt.Errorf("unknown inference kind %q", s)
	}
}

// DocumentRole positions a document inside its family.
type DocumentRole string

const (
	RoleBase      DocumentRole = "base"
	RoleAmendment DocumentRole = "amendment"
	RoleSchedule  DocumentRole = "schedule"
)

// ParseDocumentRole converts a stored tag into a DocumentRole.
func ParseDocumentRole(s string) (DocumentRole, error) {
	switch r := DocumentRole(s); r {
	case RoleBase, RoleAmendment, RoleSchedule:
		return r, nil
	default:
		return "", fmt.Errorf("unknown document role %q", s)
	}
}

// SlotStatus is the completeness state of a clause fact slot.
type SlotStatus string

const (
	SlotFilled  SlotStatus = "filled"
	SlotPartial SlotStatus = "partial"
	SlotMissing SlotStatus = "missing"
)

// ParseSlotStatus converts a stored tag into a SlotStatus.
func ParseSlotStatus(s string) (SlotStatus, error) {
	switch st := SlotStatus(s); st {
	case SlotFilled, SlotPartial, SlotMissing:
		return st, nil
	default:
		return "", fmt.Errorf("unknown slot status %q", s)
	}
}

// KnowledgeOrigin distinguishes document evidence from outside knowledge.
type KnowledgeOrigin string

const (
	OriginDocument KnowledgeOrigin = "document"
	OriginExternal KnowledgeOrigin = "external"
)

// ParseKnowledgeOrigin converts a stored tag into a KnowledgeOrigin.
func ParseKnowledgeOrigin(s string) (KnowledgeOrigin, error) {
	switch o := KnowledgeOrigin(s); o {
	case OriginDocument, OriginExternal:
		return o, nil
	default:
		return "", fmt.Errorf("unknown knowledge origin %q", s)
	}
}
