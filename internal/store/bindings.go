package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/truthgraph/internal/ir"
)

// InsertBinding stores a binding with an assigned ID under its family and
// normalized term key. Re-inserting an existing ID is a no-op and reports
// inserted=false.
func (q queries) InsertBinding(ctx context.Context, b ir.Binding, familyID string) (bool, error) {
	if b.ID == "" {
		return false, fmt.Errorf("insert binding: empty id")
	}
	result, err := q.q.ExecContext(ctx, `
		INSERT INTO bindings
		(id, document_id, family_id, kind, term, term_key, value, fact_id, scope, overridden_by, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM bindings))
		ON CONFLICT(id) DO NOTHING
	`,
		b.ID,
		b.DocumentID,
		familyID,
		string(b.Kind),
		b.Term,
		ir.NormalizeTerm(b.Term),
		b.Value,
		b.FactID,
		string(b.Scope),
		nullableString(b.OverriddenBy),
	)
	if err != nil {
		return false, fmt.Errorf("insert binding: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert binding: rows affected: %w", err)
	}
	return n == 1, nil
}

// SetOverriddenBy points a binding at the binding that supersedes it.
// An empty by clears the pointer.
func (q queries) SetOverriddenBy(ctx context.Context, id, by string) error {
	result, err := q.q.ExecContext(ctx,
		`UPDATE bindings SET overridden_by = ? WHERE id = ?`,
		nullableString(by), id)
	if err != nil {
		return fmt.Errorf("set overridden_by: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set overridden_by: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("binding %q: %w", id, ErrNotFound)
	}
	return nil
}

const bindingColumns = `id, document_id, kind, term, value, fact_id, scope, overridden_by`

// GetBinding retrieves a single binding by ID.
// Returns a wrapped ErrNotFound if absent.
func (q queries) GetBinding(ctx context.Context, id string) (ir.Binding, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+bindingColumns+` FROM bindings WHERE id = ?`, id)
	b, err := scanBinding(row)
	if err != nil {
		return ir.Binding{}, notFound(err, "binding", id)
	}
	return b, nil
}

// GetBindings retrieves the bindings with the given IDs, keyed by ID.
func (q queries) GetBindings(ctx context.Context, ids []string) (map[string]ir.Binding, error) {
	out := make(map[string]ir.Binding, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	bindings, err := q.listBindings(ctx,
		`SELECT `+bindingColumns+` FROM bindings WHERE id IN (`+placeholders(len(ids))+`)`,
		stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	for _, b := range bindings {
		out[b.ID] = b
	}
	return out, nil
}

// BindingsForTerm returns every binding of a family for a normalized term
// key, in registration order.
func (q queries) BindingsForTerm(ctx context.Context, familyID, termKey string) ([]ir.Binding, error) {
	return q.listBindings(ctx, `
		SELECT `+bindingColumns+`
		FROM bindings
		WHERE family_id = ? AND term_key = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, familyID, termKey)
}

// FamilyBindings returns every binding of a family, in registration order.
func (q queries) FamilyBindings(ctx context.Context, familyID string) ([]ir.Binding, error) {
	return q.listBindings(ctx, `
		SELECT `+bindingColumns+`
		FROM bindings
		WHERE family_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, familyID)
}

// DocumentTermKeys returns the distinct term keys defined in a document.
func (q queries) DocumentTermKeys(ctx context.Context, documentID string) ([]string, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT DISTINCT term_key FROM bindings
		WHERE document_id = ?
		ORDER BY term_key COLLATE BINARY ASC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("query term keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan term key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate term keys: %w", err)
	}
	return keys, nil
}

func (q queries) listBindings(ctx context.Context, sqlText string, args ...any) ([]ir.Binding, error) {
	rows, err := q.q.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query bindings: %w", err)
	}
	defer rows.Close()

	bindings := []ir.Binding{}
	for rows.Next() {
		b, err := scanBinding(rows)
		if err != nil {
			return nil, fmt.Errorf("scan binding: %w", err)
		}
		bindings = append(bindings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bindings: %w", err)
	}
	return bindings, nil
}

func scanBinding(row rowScanner) (ir.Binding, error) {
	var b ir.Binding
	var kind, scope string
	var overriddenBy sql.NullString

	if err := row.Scan(&b.ID, &b.DocumentID, &kind, &b.Term, &b.Value, &b.FactID, &scope, &overriddenBy); err != nil {
		return ir.Binding{}, err
	}

	k, err := ir.ParseBindingKind(kind)
	if err != nil {
		return ir.Binding{}, err
	}
	b.Kind = k

	s, err := ir.ParseBindingScope(scope)
	if err != nil {
		return ir.Binding{}, err
	}
	b.Scope = s
	b.OverriddenBy = overriddenBy.String
	return b, nil
}
