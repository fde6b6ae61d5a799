package ir

import "time"

// Document is a contract document and its position inside a family.
// A family is a base agreement plus its amendments and schedules.
type Document struct {
	ID            string       `json:"id" validate:"required"`
	FamilyID      string       `json:"family_id" validate:"required"`
	Title         string       `json:"title"`
	Role          DocumentRole `json:"role" validate:"required,oneof=base amendment schedule"`
	AmendmentSeq  int          `json:"amendment_seq" validate:"gte=0"` // Only meaningful for amendments
	EffectiveDate *time.Time   `json:"effective_date,omitempty"`
	Governing     bool         `json:"governing"` // Designated governing document of the family
}
