package query

import (
	"fmt"
	"strings"
)

// FactColumns is the column list every compiled statement selects, in the
// order a scanner must read them.
const FactColumns = "id, document_id, kind, entity_type, value, source_text, " +
	"start_offset, end_offset, location, path, page, method, extracted_at"

// OrderByPosition is the structural ordering of facts. COLLATE BINARY keeps
// text ordering identical across SQLite builds.
const OrderByPosition = "document_id COLLATE BINARY ASC, start_offset ASC, end_offset ASC, id COLLATE BINARY ASC"

// Compile converts a filter into one keyset page of SQL. The page starts
// strictly after the cursor.
func Compile(f Filter, after Cursor) (string, []any, error) {
	if err := Validate(f); err != nil {
		return "", nil, err
	}

	var conds []string
	var params []any

	if f.Where != nil {
		sql, p := compilePredicate(f.Where)
		if sql != "" {
			conds = append(conds, sql)
			params = append(params, p...)
		}
	}

	if !after.IsZero() {
		conds = append(conds, "(document_id, start_offset, end_offset, id) > (?, ?, ?, ?)")
		params = append(params, after.DocumentID, after.Start, after.End, after.FactID)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(FactColumns)
	b.WriteString(" FROM facts")
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(OrderByPosition)
	b.WriteString(" LIMIT ?")
	params = append(params, f.PageSizeOrDefault())

	return b.String(), params, nil
}

// compilePredicate returns an SQL fragment and its parameters. An empty
// fragment means "no constraint".
func compilePredicate(p Predicate) (string, []any) {
	switch pred := p.(type) {
	case DocumentIs:
		return "document_id = ?", []any{pred.DocumentID}
	case FamilyIs:
		return "document_id IN (SELECT id FROM contracts WHERE family_id = ?)", []any{pred.FamilyID}
	case KindIs:
		return "kind = ?", []any{string(pred.Kind)}
	case EntityTypeIs:
		return "entity_type = ?", []any{pred.EntityType}
	case TextContains:
		return "(instr(value, ?) > 0 OR instr(source_text, ?) > 0)", []any{pred.Text, pred.Text}
	case IDIn:
		if len(pred.IDs) == 0 {
			return "0 = 1", nil
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(pred.IDs)), ", ")
		params := make([]any, len(pred.IDs))
		for i, id := range pred.IDs {
			params[i] = id
		}
		return fmt.Sprintf("id IN (%s)", marks), params
	case And:
		var parts []string
		var params []any
		for _, child := range pred.Predicates {
			sql, p := compilePredicate(child)
			if sql == "" {
				continue
			}
			parts = append(parts, sql)
			params = append(params, p...)
		}
		if len(parts) == 0 {
			return "", nil
		}
		if len(parts) == 1 {
			return parts[0], params
		}
		return "(" + strings.Join(parts, " AND ") + ")", params
	}
	return "", nil
}
