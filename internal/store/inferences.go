package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/truthgraph/internal/ir"
)

// InsertInference stores a new inference. The needs_review column is
// checked against the confidence by the schema.
func (q queries) InsertInference(ctx context.Context, inf ir.Inference) error {
	factIDs, err := marshalIDs(inf.FactIDs)
	if err != nil {
		return fmt.Errorf("insert inference: %w", err)
	}
	bindingIDs, err := marshalIDs(inf.BindingIDs)
	if err != nil {
		return fmt.Errorf("insert inference: %w", err)
	}
	sources, err := marshalDomainSources(inf.DomainSources)
	if err != nil {
		return fmt.Errorf("insert inference: %w", err)
	}

	_, err = q.q.ExecContext(ctx, `
		INSERT INTO inferences
		(id, document_id, family_id, kind, claim, fact_ids, binding_ids, domain_sources,
		 reasoning, confidence, confidence_basis, needs_review, producer_id, created_at,
		 query_id, invalidated_by, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
		        (SELECT COALESCE(MAX(seq), 0) + 1 FROM inferences))
	`,
		inf.ID,
		nullableString(inf.DocumentID),
		nullableString(inf.FamilyID),
		string(inf.Kind),
		inf.Claim,
		factIDs,
		bindingIDs,
		sources,
		inf.Reasoning,
		inf.Confidence,
		inf.ConfidenceBasis,
		boolToInt(inf.NeedsReview),
		inf.ProducerID,
		formatTime(inf.CreatedAt),
		nullableString(inf.QueryID),
		nullableString(inf.InvalidatedBy),
	)
	if err != nil {
		return fmt.Errorf("insert inference: %w", err)
	}
	return nil
}

// Invalidate sets invalidated_by on an inference that has not been
// invalidated yet. It reports false when the inference was already
// invalidated, and returns a wrapped ErrNotFound when it does not exist.
func (q queries) Invalidate(ctx context.Context, id, by string) (bool, error) {
	result, err := q.q.ExecContext(ctx,
		`UPDATE inferences SET invalidated_by = ? WHERE id = ? AND invalidated_by IS NULL`,
		by, id)
	if err != nil {
		return false, fmt.Errorf("invalidate inference: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("invalidate inference: rows affected: %w", err)
	}
	if n == 1 {
		return true, nil
	}
	if _, err := q.GetInference(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

const inferenceColumns = `id, document_id, family_id, kind, claim, fact_ids, binding_ids,
	domain_sources, reasoning, confidence, confidence_basis, needs_review, producer_id,
	created_at, query_id, invalidated_by`

// GetInference retrieves a single inference by ID.
// Returns a wrapped ErrNotFound if absent.
func (q queries) GetInference(ctx context.Context, id string) (ir.Inference, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+inferenceColumns+` FROM inferences WHERE id = ?`, id)
	inf, err := scanInference(row)
	if err != nil {
		return ir.Inference{}, notFound(err, "inference", id)
	}
	return inf, nil
}

// GetInferences retrieves the inferences with the given IDs, keyed by ID.
func (q queries) GetInferences(ctx context.Context, ids []string) (map[string]ir.Inference, error) {
	out := make(map[string]ir.Inference, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	infs, err := q.listInferences(ctx,
		`SELECT `+inferenceColumns+` FROM inferences WHERE id IN (`+placeholders(len(ids))+`)`,
		stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	for _, inf := range infs {
		out[inf.ID] = inf
	}
	return out, nil
}

// ScopeInferences returns the inferences owned by a document or family in
// creation order. Invalidated inferences are included only when requested.
func (q queries) ScopeInferences(ctx context.Context, documentID, familyID string, includeInvalidated bool) ([]ir.Inference, error) {
	cond := "document_id = ?"
	arg := documentID
	if documentID == "" {
		cond = "family_id = ?"
		arg = familyID
	}
	if !includeInvalidated {
		cond += " AND invalidated_by IS NULL"
	}
	return q.listInferences(ctx, `
		SELECT `+inferenceColumns+`
		FROM inferences
		WHERE `+cond+`
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, arg)
}

func (q queries) listInferences(ctx context.Context, sqlText string, args ...any) ([]ir.Inference, error) {
	rows, err := q.q.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query inferences: %w", err)
	}
	defer rows.Close()

	infs := []ir.Inference{}
	for rows.Next() {
		inf, err := scanInference(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inference: %w", err)
		}
		infs = append(infs, inf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inferences: %w", err)
	}
	return infs, nil
}

func scanInference(row rowScanner) (ir.Inference, error) {
	var inf ir.Inference
	var documentID, familyID, queryID, invalidatedBy sql.NullString
	var kind, factIDs, bindingIDs, sources, createdAt string
	var needsReview int

	if err := row.Scan(
		&inf.ID,
		&documentID,
		&familyID,
		&kind,
		&inf.Claim,
		&factIDs,
		&bindingIDs,
		&sources,
		&inf.Reasoning,
		&inf.Confidence,
		&inf.ConfidenceBasis,
		&needsReview,
		&inf.ProducerID,
		&createdAt,
		&queryID,
		&invalidatedBy,
	); err != nil {
		return ir.Inference{}, err
	}

	k, err := ir.ParseInferenceKind(kind)
	if err != nil {
		return ir.Inference{}, err
	}
	inf.Kind = k
	inf.DocumentID = documentID.String
	inf.FamilyID = familyID.String
	inf.QueryID = queryID.String
	inf.InvalidatedBy = invalidatedBy.String
	inf.NeedsReview = needsReview != 0

	if inf.FactIDs, err = unmarshalIDs(factIDs); err != nil {
		return ir.Inference{}, err
	}
	if inf.BindingIDs, err = unmarshalIDs(bindingIDs); err != nil {
		return ir.Inference{}, err
	}
	if inf.DomainSources, err = unmarshalDomainSources(sources); err != nil {
		return ir.Inference{}, err
	}
	if inf.CreatedAt, err = parseTime(createdAt); err != nil {
		return ir.Inference{}, err
	}
	return inf, nil
}
