package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/truthgraph/internal/ir"
	"github.com/roach88/truthgraph/internal/store"
)

// RegisterDocument adds a document to its family or updates its position
// metadata. A family has at most one governing document. Override chains
// for the terms the document defines are rebuilt, since its rank may have
// changed.
func (e *Engine) RegisterDocument(ctx context.Context, doc ir.Document) error {
	if err := e.validateRecord(doc.ID, "document", doc); err != nil {
		return err
	}
	release := e.locks.lock(doc.ID)
	defer release()

	err := e.store.InTx(ctx, func(tx *store.Tx) error {
		if doc.Governing {
			docs, err := tx.FamilyDocuments(ctx, doc.FamilyID)
			if err != nil {
				return err
			}
			for _, d := range docs {
				if d.Governing && d.ID != doc.ID {
					return newError(ErrCodeInvalidInput, doc.ID,
						fmt.Sprintf("family %q already has governing document %q", doc.FamilyID, d.ID))
				}
			}
		}
		if err := tx.PutDocument(ctx, doc); err != nil {
			return err
		}
		keys, err := tx.DocumentTermKeys(ctx, doc.ID)
		if err != nil {
			return err
		}
		return e.rebuildOverrides(ctx, tx, doc.FamilyID, keys)
	})
	if err != nil {
		return mapStoreError(err, doc.ID)
	}
	e.cache.flush()
	e.logger.Info("document registered",
		"document_id", doc.ID,
		"family_id", doc.FamilyID,
		"role", doc.Role)
	return nil
}

// Document returns a registered document.
func (e *Engine) Document(ctx context.Context, id string) (ir.Document, error) {
	doc, err := e.store.GetDocument(ctx, id)
	if err != nil {
		return ir.Document{}, mapStoreError(err, id)
	}
	return doc, nil
}

// DeleteDocument removes a document and, by cascade, every fact, binding,
// clause, reference and slot derived from it. Bindings in other documents
// that were overridden by a removed binding are re-linked to the next
// higher-ranked surviving binding. References into its clauses become
// unresolved.
func (e *Engine) DeleteDocument(ctx context.Context, id string) error {
	release := e.locks.lock(id)
	defer release()

	err := e.store.InTx(ctx, func(tx *store.Tx) error {
		doc, err := tx.GetDocument(ctx, id)
		if err != nil {
			return err
		}
		keys, err := tx.DocumentTermKeys(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteDocument(ctx, id); err != nil {
			return err
		}
		return e.rebuildOverrides(ctx, tx, doc.FamilyID, keys)
	})
	if err != nil {
		return mapStoreError(err, id)
	}
	e.cache.flush()
	e.logger.Info("document deleted", "document_id", id)
	return nil
}

// FamilyOrder returns the precedence ordering of a family.
func (e *Engine) FamilyOrder(ctx context.Context, familyID string) (FamilyOrder, error) {
	docs, err := e.store.FamilyDocuments(ctx, familyID)
	if err != nil {
		return FamilyOrder{}, err
	}
	return NewFamilyOrder(familyID, docs), nil
}

// mapStoreError converts store sentinel errors into the engine taxonomy.
func mapStoreError(err error, documentID string) error {
	var dup *store.DuplicateFactError
	switch {
	case err == nil:
		return nil
	case CodeOf(err) != "":
		return err
	case errors.As(err, &dup):
		e := wrapError(ErrCodeDuplicateFact, documentID, err, "fact identity already stored with different content", dup.FactID)
		e.Details = map[string]string{"stored_hash": dup.StoredHash, "incoming_hash": dup.IncomingHash}
		return e
	case errors.Is(err, store.ErrNotFound):
		return wrapError(ErrCodeNotFound, documentID, err, err.Error())
	case errors.Is(err, store.ErrFamilyChange):
		return wrapError(ErrCodeInvalidInput, documentID, err, err.Error())
	default:
		return err
	}
}
