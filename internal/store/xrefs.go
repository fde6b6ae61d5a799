package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/truthgraph/internal/ir"
)

// InsertCrossReference stores an unresolved cross-reference. Re-inserting
// an existing ID is a no-op and reports inserted=false.
func (q queries) InsertCrossReference(ctx context.Context, x ir.CrossReference) (bool, error) {
	result, err := q.q.ExecContext(ctx, `
		INSERT INTO cross_references
		(id, source_clause_id, target_ref, target_clause_id, reference_type, effect, context, resolved, fact_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		x.ID,
		x.SourceClauseID,
		x.TargetRef,
		nullableString(x.TargetClauseID),
		x.ReferenceType,
		x.Effect,
		x.Context,
		boolToInt(x.Resolved),
		x.FactID,
	)
	if err != nil {
		return false, fmt.Errorf("insert cross reference: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert cross reference: rows affected: %w", err)
	}
	return n == 1, nil
}

// PruneCrossReferences removes the cross-references sourced in a document's
// clauses whose IDs are not in keep. Returns the number removed.
func (q queries) PruneCrossReferences(ctx context.Context, documentID string, keep []string) (int64, error) {
	cond := "source_clause_id IN (SELECT id FROM clauses WHERE document_id = ?)"
	args := []any{documentID}
	if len(keep) > 0 {
		cond += " AND id NOT IN (" + placeholders(len(keep)) + ")"
		args = append(args, stringArgs(keep)...)
	}
	result, err := q.q.ExecContext(ctx, `DELETE FROM cross_references WHERE `+cond, args...)
	if err != nil {
		return 0, fmt.Errorf("prune cross references: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune cross references: rows affected: %w", err)
	}
	return n, nil
}

// ResolveCrossReference records the target of an unresolved reference.
// It reports false when the reference was already resolved, so a reference
// is mutated at most once.
func (q queries) ResolveCrossReference(ctx context.Context, id, targetClauseID string) (bool, error) {
	result, err := q.q.ExecContext(ctx, `
		UPDATE cross_references
		SET target_clause_id = ?, resolved = 1
		WHERE id = ? AND resolved = 0
	`, targetClauseID, id)
	if err != nil {
		return false, fmt.Errorf("resolve cross reference: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve cross reference: rows affected: %w", err)
	}
	return n == 1, nil
}

const xrefColumns = `x.id, x.source_clause_id, x.target_ref, x.target_clause_id, x.reference_type,
	x.effect, x.context, x.resolved, x.fact_id`

// GetCrossReference retrieves a single cross-reference by ID.
// Returns a wrapped ErrNotFound if absent.
func (q queries) GetCrossReference(ctx context.Context, id string) (ir.CrossReference, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+xrefColumns+` FROM cross_references x WHERE x.id = ?`, id)
	x, err := scanCrossReference(row)
	if err != nil {
		return ir.CrossReference{}, notFound(err, "cross reference", id)
	}
	return x, nil
}

// FamilyCrossReferences returns every cross-reference whose source clause
// belongs to a family document, ordered by document then position.
// With unresolvedOnly set, resolved references are skipped.
func (q queries) FamilyCrossReferences(ctx context.Context, familyID string, unresolvedOnly bool) ([]ir.CrossReference, error) {
	filter := ""
	if unresolvedOnly {
		filter = " AND x.resolved = 0"
	}
	return q.listCrossReferences(ctx, `
		SELECT `+xrefColumns+`
		FROM cross_references x
		JOIN clauses c ON c.id = x.source_clause_id
		JOIN contracts d ON d.id = c.document_id
		JOIN facts f ON f.id = x.fact_id
		WHERE d.family_id = ?`+filter+`
		ORDER BY d.seq ASC, f.start_offset ASC, x.id COLLATE BINARY ASC
	`, familyID)
}

// ClauseCrossReferences returns the outgoing references of one clause.
func (q queries) ClauseCrossReferences(ctx context.Context, clauseID string) ([]ir.CrossReference, error) {
	return q.listCrossReferences(ctx, `
		SELECT `+xrefColumns+`
		FROM cross_references x
		JOIN facts f ON f.id = x.fact_id
		WHERE x.source_clause_id = ?
		ORDER BY f.start_offset ASC, x.id COLLATE BINARY ASC
	`, clauseID)
}

func (q queries) listCrossReferences(ctx context.Context, sqlText string, args ...any) ([]ir.CrossReference, error) {
	rows, err := q.q.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query cross references: %w", err)
	}
	defer rows.Close()

	xrefs := []ir.CrossReference{}
	for rows.Next() {
		x, err := scanCrossReference(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cross reference: %w", err)
		}
		xrefs = append(xrefs, x)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cross references: %w", err)
	}
	return xrefs, nil
}

func scanCrossReference(row rowScanner) (ir.CrossReference, error) {
	var x ir.CrossReference
	var target sql.NullString
	var resolved int

	if err := row.Scan(
		&x.ID,
		&x.SourceClauseID,
		&x.TargetRef,
		&target,
		&x.ReferenceType,
		&x.Effect,
		&x.Context,
		&resolved,
		&x.FactID,
	); err != nil {
		return ir.CrossReference{}, err
	}
	x.TargetClauseID = target.String
	x.Resolved = resolved != 0
	return x, nil
}
