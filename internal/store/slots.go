package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/truthgraph/internal/ir"
)

// ReplaceClauseSlots replaces every slot of a clause with the given set.
// Call inside InTx so readers never observe a half-replaced set.
func (q queries) ReplaceClauseSlots(ctx context.Context, clauseID string, slots []ir.ClauseFactSlot) error {
	if _, err := q.q.ExecContext(ctx, `DELETE FROM clause_fact_slots WHERE clause_id = ?`, clauseID); err != nil {
		return fmt.Errorf("clear slots: %w", err)
	}
	for _, s := range slots {
		if s.ClauseID != clauseID {
			return fmt.Errorf("replace slots: slot %q belongs to clause %q, not %q", s.SpecName, s.ClauseID, clauseID)
		}
		if _, err := q.q.ExecContext(ctx, `
			INSERT INTO clause_fact_slots (clause_id, spec_name, status, fact_id, required)
			VALUES (?, ?, ?, ?, ?)
		`, s.ClauseID, s.SpecName, string(s.Status), nullableString(s.FactID), boolToInt(s.Required)); err != nil {
			return fmt.Errorf("insert slot %q: %w", s.SpecName, err)
		}
	}
	return nil
}

// ClauseSlots returns the slots of one clause ordered by spec name.
func (q queries) ClauseSlots(ctx context.Context, clauseID string) ([]ir.ClauseFactSlot, error) {
	return q.listSlots(ctx, `
		SELECT clause_id, spec_name, status, fact_id, required
		FROM clause_fact_slots
		WHERE clause_id = ?
		ORDER BY spec_name COLLATE BINARY ASC
	`, clauseID)
}

// DocumentSlots returns the slots of every clause of a document, ordered
// by clause position then spec name.
func (q queries) DocumentSlots(ctx context.Context, documentID string) ([]ir.ClauseFactSlot, error) {
	return q.listSlots(ctx, `
		SELECT s.clause_id, s.spec_name, s.status, s.fact_id, s.required
		FROM clause_fact_slots s
		JOIN clauses c ON c.id = s.clause_id
		WHERE c.document_id = ?
		ORDER BY c.start_offset ASC, c.id COLLATE BINARY ASC, s.spec_name COLLATE BINARY ASC
	`, documentID)
}

func (q queries) listSlots(ctx context.Context, sqlText string, args ...any) ([]ir.ClauseFactSlot, error) {
	rows, err := q.q.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}
	defer rows.Close()

	slots := []ir.ClauseFactSlot{}
	for rows.Next() {
		var s ir.ClauseFactSlot
		var status string
		var factID sql.NullString
		var required int
		if err := rows.Scan(&s.ClauseID, &s.SpecName, &status, &factID, &required); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		st, err := ir.ParseSlotStatus(status)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		s.Status = st
		s.FactID = factID.String
		s.Required = required != 0
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}
	return slots, nil
}
