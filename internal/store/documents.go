package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/truthgraph/internal/ir"
)

// PutDocument inserts a document or updates its family-position metadata.
// Moving an existing document to a different family is rejected: every
// binding and precedence decision already made for it assumed the old family.
func (q queries) PutDocument(ctx context.Context, doc ir.Document) error {
	existing, err := q.GetDocument(ctx, doc.ID)
	switch {
	case err == nil && existing.FamilyID != doc.FamilyID:
		return fmt.Errorf("put document %q: cannot move from family %q to %q: %w", doc.ID, existing.FamilyID, doc.FamilyID, ErrFamilyChange)
	case err != nil && !errors.Is(err, ErrNotFound):
		return fmt.Errorf("put document: %w", err)
	}

	_, err = q.q.ExecContext(ctx, `
		INSERT INTO contracts
		(id, family_id, title, role, amendment_seq, effective_date, governing, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM contracts))
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			role = excluded.role,
			amendment_seq = excluded.amendment_seq,
			effective_date = excluded.effective_date,
			governing = excluded.governing
	`,
		doc.ID,
		doc.FamilyID,
		doc.Title,
		string(doc.Role),
		doc.AmendmentSeq,
		nullableTime(doc.EffectiveDate),
		boolToInt(doc.Governing),
	)
	if err != nil {
		return fmt.Errorf("put document: %w", err)
	}
	return nil
}

// GetDocument retrieves a single document by ID.
// Returns a wrapped ErrNotFound if absent.
func (q queries) GetDocument(ctx context.Context, id string) (ir.Document, error) {
	row := q.q.QueryRowContext(ctx, `
		SELECT id, family_id, title, role, amendment_seq, effective_date, governing
		FROM contracts
		WHERE id = ?
	`, id)
	doc, err := scanDocument(row)
	if err != nil {
		return ir.Document{}, notFound(err, "document", id)
	}
	return doc, nil
}

// FamilyDocuments returns every document in a family in registration order.
// Returns an empty slice (not nil) for an unknown family.
func (q queries) FamilyDocuments(ctx context.Context, familyID string) ([]ir.Document, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT id, family_id, title, role, amendment_seq, effective_date, governing
		FROM contracts
		WHERE family_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, familyID)
	if err != nil {
		return nil, fmt.Errorf("query family documents: %w", err)
	}
	defer rows.Close()

	docs := []ir.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate family documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes a document; every dependent row cascades.
// References from other documents into its clauses become unresolved.
// Returns a wrapped ErrNotFound if the document does not exist.
func (q queries) DeleteDocument(ctx context.Context, id string) error {
	if _, err := q.q.ExecContext(ctx, `
		UPDATE cross_references
		SET target_clause_id = NULL, resolved = 0
		WHERE target_clause_id IN (SELECT id FROM clauses WHERE document_id = ?)
	`, id); err != nil {
		return fmt.Errorf("delete document: unresolve references: %w", err)
	}

	result, err := q.q.ExecContext(ctx, `DELETE FROM contracts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete document %q: %w", id, ErrNotFound)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (ir.Document, error) {
	var doc ir.Document
	var role string
	var effective sql.NullString
	var governing int

	if err := row.Scan(&doc.ID, &doc.FamilyID, &doc.Title, &role, &doc.AmendmentSeq, &effective, &governing); err != nil {
		return ir.Document{}, err
	}

	r, err := ir.ParseDocumentRole(role)
	if err != nil {
		return ir.Document{}, err
	}
	doc.Role = r

	doc.EffectiveDate, err = scanNullableTime(effective)
	if err != nil {
		return ir.Document{}, err
	}
	doc.Governing = governing != 0
	return doc, nil
}
