package testutil

import (
	"fmt"

	"github.com/roach88/truthgraph/internal/ir"
)

// Base returns a base-agreement document of a family.
func Base(id, familyID string) ir.Document {
	return ir.Document{ID: id, FamilyID: familyID, Title: id, Role: ir.RoleBase}
}

// Amendment returns the seq-th amendment of a family.
func Amendment(id, familyID string, seq int) ir.Document {
	return ir.Document{ID: id, FamilyID: familyID, Title: id, Role: ir.RoleAmendment, AmendmentSeq: seq}
}

// Schedule returns a schedule document of a family.
func Schedule(id, familyID string) ir.Document {
	return ir.Document{ID: id, FamilyID: familyID, Title: id, Role: ir.RoleSchedule}
}

// Entity returns an entity fact spanning [start, start+len(value)).
// The identity is left empty for the engine to derive.
func Entity(documentID, entityType, value string, start int) ir.Fact {
	return ir.Fact{
		DocumentID: documentID,
		Kind:       ir.FactEntity,
		EntityType: entityType,
		Value:      value,
		SourceText: value,
		Span:       ir.Span{Start: start, End: start + len(value)},
		Location:   fmt.Sprintf("offset %d", start),
		Method:     "fixture",
	}
}

// Definition returns a defined_term fact reading `"term" means value.`
func Definition(documentID, term, value string, start int) ir.Fact {
	text := fmt.Sprintf("%q means %s.", term, value)
	f := Entity(documentID, "defined_term", term, start)
	f.SourceText = text
	f.Span.End = start + len(text)
	return f
}

// ClauseText returns the clause_text fact covering a whole clause body.
func ClauseText(documentID, text string, start int) ir.Fact {
	return ir.Fact{
		DocumentID: documentID,
		Kind:       ir.FactClauseText,
		Value:      text,
		SourceText: text,
		Span:       ir.Span{Start: start, End: start + len(text)},
		Method:     "fixture",
	}
}

// Reference returns a cross_reference fact pointing at target.
func Reference(documentID, target, context string, start int) ir.Fact {
	return ir.Fact{
		DocumentID: documentID,
		Kind:       ir.FactCrossReference,
		Value:      target,
		SourceText: context,
		Span:       ir.Span{Start: start, End: start + len(context)},
		Method:     "fixture",
	}
}

// Signal returns a clause classification signal over [start, end).
func Signal(clauseType, section, heading string, start, end int) ir.ClauseSignal {
	return ir.ClauseSignal{
		ClauseType:    clauseType,
		Heading:       heading,
		SectionNumber: section,
		Span:          ir.Span{Start: start, End: end},
		Method:        "fixture",
	}
}
