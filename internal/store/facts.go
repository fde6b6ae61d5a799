package store

import (
	"context"
	"database/sql"
	"fmt"
	"iter"

	"github.com/roach88/truthgraph/internal/ir"
	"github.com/roach88/truthgraph/internal/query"
)

// InsertFact stores a fact whose ID is already assigned.
//
// Re-inserting a fact with identical content is a no-op and reports
// inserted=false. Re-inserting an ID with different content returns a
// *DuplicateFactError and leaves the stored fact untouched.
func (q queries) InsertFact(ctx context.Context, f ir.Fact) (bool, error) {
	if f.ID == "" {
		return false, fmt.Errorf("insert fact: empty id")
	}
	hash, err := ir.FactContentHash(f)
	if err != nil {
		return false, fmt.Errorf("insert fact: %w", err)
	}

	var page any
	if f.Page != nil {
		page = *f.Page
	}

	result, err := q.q.ExecContext(ctx, `
		INSERT INTO facts
		(id, document_id, kind, entity_type, value, source_text, start_offset, end_offset,
		 location, path, page, method, extracted_at, content_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		f.ID,
		f.DocumentID,
		string(f.Kind),
		f.EntityType,
		f.Value,
		f.SourceText,
		f.Span.Start,
		f.Span.End,
		f.Location,
		f.Path,
		page,
		f.Method,
		formatTime(f.ExtractedAt),
		hash,
	)
	if err != nil {
		return false, fmt.Errorf("insert fact: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert fact: rows affected: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	var stored string
	if err := q.q.QueryRowContext(ctx, `SELECT content_hash FROM facts WHERE id = ?`, f.ID).Scan(&stored); err != nil {
		return false, fmt.Errorf("insert fact: read existing: %w", err)
	}
	if stored != hash {
		return false, &DuplicateFactError{FactID: f.ID, StoredHash: stored, IncomingHash: hash}
	}
	return false, nil
}

// GetFact retrieves a single fact by ID.
// Returns a wrapped ErrNotFound if absent.
func (q queries) GetFact(ctx context.Context, id string) (ir.Fact, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+query.FactColumns+` FROM facts WHERE id = ?`, id)
	f, err := scanFact(row)
	if err != nil {
		return ir.Fact{}, notFound(err, "fact", id)
	}
	return f, nil
}

// GetFacts retrieves the facts with the given IDs, keyed by ID.
// Unknown IDs are absent from the map; callers decide whether that is an error.
func (q queries) GetFacts(ctx context.Context, ids []string) (map[string]ir.Fact, error) {
	out := make(map[string]ir.Fact, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := q.q.QueryContext(ctx,
		`SELECT `+query.FactColumns+` FROM facts WHERE id IN (`+placeholders(len(ids))+`)`,
		stringArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		out[f.ID] = f
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facts: %w", err)
	}
	return out, nil
}

// FactPage returns up to one page of facts matching the filter, starting
// strictly after the cursor, in structural order.
func (q queries) FactPage(ctx context.Context, f query.Filter, after query.Cursor) ([]ir.Fact, error) {
	sqlText, params, err := query.Compile(f, after)
	if err != nil {
		return nil, err
	}
	rows, err := q.q.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	facts := []ir.Fact{}
	for rows.Next() {
		fact, err := scanFact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		facts = append(facts, fact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facts: %w", err)
	}
	return facts, nil
}

// Facts returns a lazy sequence of facts matching the filter.
//
// The sequence is finite and restartable: each range over it runs the
// query again from the start. Rows are fetched a page at a time and no
// connection is held between yields. Iteration stops at the first error,
// which is yielded once.
func (q queries) Facts(ctx context.Context, f query.Filter) iter.Seq2[ir.Fact, error] {
	return func(yield func(ir.Fact, error) bool) {
		var after query.Cursor
		for {
			if err := ctx.Err(); err != nil {
				yield(ir.Fact{}, err)
				return
			}
			page, err := q.FactPage(ctx, f, after)
			if err != nil {
				yield(ir.Fact{}, err)
				return
			}
			for _, fact := range page {
				if !yield(fact, nil) {
					return
				}
			}
			if len(page) < f.PageSizeOrDefault() {
				return
			}
			after = query.CursorFor(page[len(page)-1])
		}
	}
}

// CollectFacts drains Facts into a slice.
func (q queries) CollectFacts(ctx context.Context, f query.Filter) ([]ir.Fact, error) {
	facts := []ir.Fact{}
	for fact, err := range q.Facts(ctx, f) {
		if err != nil {
			return nil, err
		}
		facts = append(facts, fact)
	}
	return facts, nil
}

func scanFact(row rowScanner) (ir.Fact, error) {
	var f ir.Fact
	var kind, extractedAt string
	var page sql.NullInt64

	if err := row.Scan(
		&f.ID,
		&f.DocumentID,
		&kind,
		&f.EntityType,
		&f.Value,
		&f.SourceText,
		&f.Span.Start,
		&f.Span.End,
		&f.Location,
		&f.Path,
		&page,
		&f.Method,
		&extractedAt,
	); err != nil {
		return ir.Fact{}, err
	}

	k, err := ir.ParseFactKind(kind)
	if err != nil {
		return ir.Fact{}, err
	}
	f.Kind = k

	if page.Valid {
		p := int(page.Int64)
		f.Page = &p
	}

	f.ExtractedAt, err = parseTime(extractedAt)
	if err != nil {
		return ir.Fact{}, err
	}
	return f, nil
}
