package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/truthgraph/internal/ir"
)

// InsertClause stores a clause and replaces its contained fact links. An
// existing clause keeps its identity columns; its body fact, classification
// and fact links are overwritten. Reports inserted=true only for a new ID.
func (q queries) InsertClause(ctx context.Context, c ir.Clause) (bool, error) {
	var confidence any
	if c.Confidence != nil {
		confidence = *c.Confidence
	}

	var exists bool
	if err := q.q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM clauses WHERE id = ?)`, c.ID).Scan(&exists); err != nil {
		return false, fmt.Errorf("insert clause: %w", err)
	}

	if _, err := q.q.ExecContext(ctx, `
		INSERT INTO clauses
		(id, document_id, clause_type, heading, section_number, body_fact_id,
		 start_offset, end_offset, classification_method, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			body_fact_id = excluded.body_fact_id,
			classification_method = excluded.classification_method,
			confidence = excluded.confidence
	`,
		c.ID,
		c.DocumentID,
		c.ClauseType,
		c.Heading,
		c.SectionNumber,
		nullableString(c.BodyFactID),
		c.Span.Start,
		c.Span.End,
		c.ClassificationMethod,
		confidence,
	); err != nil {
		return false, fmt.Errorf("insert clause: %w", err)
	}

	if _, err := q.q.ExecContext(ctx, `DELETE FROM clause_facts WHERE clause_id = ?`, c.ID); err != nil {
		return false, fmt.Errorf("insert clause: clear fact links: %w", err)
	}
	for _, factID := range c.FactIDs {
		if _, err := q.q.ExecContext(ctx,
			`INSERT OR IGNORE INTO clause_facts (clause_id, fact_id) VALUES (?, ?)`,
			c.ID, factID); err != nil {
			return false, fmt.Errorf("insert clause fact: %w", err)
		}
	}
	return !exists, nil
}

const clauseColumns = `id, document_id, clause_type, heading, section_number, body_fact_id,
	start_offset, end_offset, classification_method, confidence`

// GetClause retrieves a clause with its fact and cross-reference IDs.
// Returns a wrapped ErrNotFound if absent.
func (q queries) GetClause(ctx context.Context, id string) (ir.Clause, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+clauseColumns+` FROM clauses WHERE id = ?`, id)
	c, err := scanClause(row)
	if err != nil {
		return ir.Clause{}, notFound(err, "clause", id)
	}
	if err := q.attachClauseLinks(ctx, &c); err != nil {
		return ir.Clause{}, err
	}
	return c, nil
}

// DocumentClauses returns the clauses of a document in structural order,
// with their fact and cross-reference IDs.
func (q queries) DocumentClauses(ctx context.Context, documentID string) ([]ir.Clause, error) {
	return q.listClauses(ctx, `
		SELECT `+clauseColumns+`
		FROM clauses
		WHERE document_id = ?
		ORDER BY start_offset ASC, end_offset ASC, id COLLATE BINARY ASC
	`, documentID)
}

// FamilyClauses returns the clauses of every document of a family, ordered
// by document registration then structural position.
func (q queries) FamilyClauses(ctx context.Context, familyID string) ([]ir.Clause, error) {
	return q.listClauses(ctx, `
		SELECT c.id, c.document_id, c.clause_type, c.heading, c.section_number, c.body_fact_id,
		       c.start_offset, c.end_offset, c.classification_method, c.confidence
		FROM clauses c
		JOIN contracts d ON d.id = c.document_id
		WHERE d.family_id = ?
		ORDER BY d.seq ASC, c.start_offset ASC, c.end_offset ASC, c.id COLLATE BINARY ASC
	`, familyID)
}

// listClauses reads every row before attaching links so that no result
// set is open while the link queries run.
func (q queries) listClauses(ctx context.Context, sqlText string, args ...any) ([]ir.Clause, error) {
	rows, err := q.q.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query clauses: %w", err)
	}
	clauses := []ir.Clause{}
	for rows.Next() {
		c, err := scanClause(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan clause: %w", err)
		}
		clauses = append(clauses, c)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterate clauses: %w", err)
	}

	for i := range clauses {
		if err := q.attachClauseLinks(ctx, &clauses[i]); err != nil {
			return nil, err
		}
	}
	return clauses, nil
}

func (q queries) attachClauseLinks(ctx context.Context, c *ir.Clause) error {
	var err error
	c.FactIDs, err = q.idList(ctx, `
		SELECT cf.fact_id
		FROM clause_facts cf
		JOIN facts f ON f.id = cf.fact_id
		WHERE cf.clause_id = ?
		ORDER BY f.start_offset ASC, f.end_offset ASC, f.id COLLATE BINARY ASC
	`, c.ID)
	if err != nil {
		return fmt.Errorf("clause facts: %w", err)
	}
	c.CrossReferenceIDs, err = q.idList(ctx, `
		SELECT x.id
		FROM cross_references x
		JOIN facts f ON f.id = x.fact_id
		WHERE x.source_clause_id = ?
		ORDER BY f.start_offset ASC, x.id COLLATE BINARY ASC
	`, c.ID)
	if err != nil {
		return fmt.Errorf("clause cross references: %w", err)
	}
	return nil
}

func (q queries) idList(ctx context.Context, sqlText string, args ...any) ([]string, error) {
	rows, err := q.q.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanClause(row rowScanner) (ir.Clause, error) {
	var c ir.Clause
	var bodyFactID sql.NullString
	var confidence sql.NullFloat64

	if err := row.Scan(
		&c.ID,
		&c.DocumentID,
		&c.ClauseType,
		&c.Heading,
		&c.SectionNumber,
		&bodyFactID,
		&c.Span.Start,
		&c.Span.End,
		&c.ClassificationMethod,
		&confidence,
	); err != nil {
		return ir.Clause{}, err
	}
	c.BodyFactID = bodyFactID.String
	if confidence.Valid {
		v := confidence.Float64
		c.Confidence = &v
	}
	return c, nil
}

// PruneClauses removes the clauses of a document whose IDs are not in keep,
// along with their links, references and slots. References from elsewhere
// into a removed clause become unresolved. Returns the number removed.
func (q queries) PruneClauses(ctx context.Context, documentID string, keep []string) (int64, error) {
	cond := "document_id = ?"
	args := []any{documentID}
	if len(keep) > 0 {
		cond += " AND id NOT IN (" + placeholders(len(keep)) + ")"
		args = append(args, stringArgs(keep)...)
	}

	if _, err := q.q.ExecContext(ctx, `
		UPDATE cross_references
		SET target_clause_id = NULL, resolved = 0
		WHERE target_clause_id IN (SELECT id FROM clauses WHERE `+cond+`)
	`, args...); err != nil {
		return 0, fmt.Errorf("prune clauses: unresolve references: %w", err)
	}
	result, err := q.q.ExecContext(ctx, `DELETE FROM clauses WHERE `+cond, args...)
	if err != nil {
		return 0, fmt.Errorf("prune clauses: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune clauses: rows affected: %w", err)
	}
	return n, nil
}
