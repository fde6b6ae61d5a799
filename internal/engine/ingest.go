package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/truthgraph/internal/ir"
	"github.com/roach88/truthgraph/internal/metrics"
	"github.com/roach88/truthgraph/internal/store"
)

// IngestResult summarizes one ingestion batch.
type IngestResult struct {
	DocumentID string   `json:"document_id"`
	Inserted   int      `json:"inserted"`
	Unchanged  int      `json:"unchanged"`
	FactIDs    []string `json:"fact_ids"` // In input order
}

// Ingest stores a batch of facts for a document.
//
// Facts without an ID get their content-addressed ID. A fact whose ID is
// already stored with identical content is a no-op; one stored with
// different content rejects the whole batch with DUPLICATE_FACT and nothing
// from the batch is committed.
func (e *Engine) Ingest(ctx context.Context, documentID string, facts []ir.Fact) (IngestResult, error) {
	defer metrics.ObserveDuration("ingest", time.Now())

	prepared, err := e.prepareFacts(documentID, facts)
	if err != nil {
		e.reject(err)
		return IngestResult{}, err
	}

	release := e.locks.lock(documentID)
	defer release()

	result := IngestResult{DocumentID: documentID, FactIDs: make([]string, 0, len(prepared))}
	err = e.store.InTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.GetDocument(ctx, documentID); err != nil {
			return err
		}
		for _, f := range prepared {
			if err := ctx.Err(); err != nil {
				return err
			}
			inserted, err := tx.InsertFact(ctx, f)
			if err != nil {
				return err
			}
			if inserted {
				result.Inserted++
			} else {
				result.Unchanged++
			}
			result.FactIDs = append(result.FactIDs, f.ID)
		}
		return nil
	})
	if err != nil {
		err = mapStoreError(err, documentID)
		metrics.RecordIngest(0, 0, len(prepared))
		e.reject(err)
		return IngestResult{}, err
	}

	metrics.RecordIngest(result.Inserted, result.Unchanged, 0)
	e.logger.Info("facts ingested",
		"document_id", documentID,
		"inserted", result.Inserted,
		"unchanged", result.Unchanged)
	return result, nil
}

// prepareFacts validates a batch and assigns owner, timestamp and identity.
func (e *Engine) prepareFacts(documentID string, facts []ir.Fact) ([]ir.Fact, error) {
	now := e.clock.Now()
	out := make([]ir.Fact, 0, len(facts))
	for i, f := range facts {
		if f.DocumentID == "" {
			f.DocumentID = documentID
		}
		if f.DocumentID != documentID {
			return nil, newError(ErrCodeInvalidInput, documentID,
				fmt.Sprintf("fact %d belongs to document %q", i, f.DocumentID))
		}
		if err := e.validateRecord(documentID, fmt.Sprintf("fact %d", i), f); err != nil {
			return nil, err
		}
		if f.ExtractedAt.IsZero() {
			f.ExtractedAt = now
		}
		if f.ID == "" {
			id, err := ir.FactID(f)
			if err != nil {
				return nil, wrapError(ErrCodeInvalidInput, documentID, err, fmt.Sprintf("fact %d: identity", i))
			}
			f.ID = id
		}
		out = append(out, f)
	}
	return out, nil
}

// reject counts a boundary rejection by error code.
func (e *Engine) reject(err error) {
	if code := CodeOf(err); code != "" {
		metrics.Rejections.WithLabelValues(string(code)).Inc()
	}
}
