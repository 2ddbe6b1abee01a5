package orchestrator

import (
	"context"
	"errors"

	"docsense/client/internal/analysis"
	"docsense/client/internal/model"
)

// Hydrate materializes a previously analyzed document into the session
// store. Pull-based: called when the user opens an item the store does
// not have. Hydration is idempotent; an existing entry wins and is
// returned as-is. The cache is consulted first; it is best-effort and a
// miss just means a service fetch.
func (o *Orchestrator) Hydrate(ctx context.Context, id string) (model.Document, error) {
	if doc, ok := o.docs.Get(id); ok {
		return doc, nil
	}

	rec, fresh := o.cache.Get(ctx, id)
	if !fresh {
		var err error
		rec, err = o.client.GetDocument(ctx, id)
		if err != nil {
			var svcErr *analysis.ServiceError
			if errors.As(err, &svcErr) && svcErr.Code == analysis.CodeUnauthorized {
				o.SignOut(ctx)
			}
			return model.Document{}, err
		}
		o.cache.Set(ctx, rec)
	}

	return o.insertRecord(rec, id), nil
}

// HydrateCollection fetches a historical collection with its members and
// materializes all of them. Members already in the store are left alone.
func (o *Orchestrator) HydrateCollection(ctx context.Context, id string) (model.Collection, error) {
	detail, err := o.client.GetCollection(ctx, id)
	if err != nil {
		var svcErr *analysis.ServiceError
		if errors.As(err, &svcErr) && svcErr.Code == analysis.CodeUnauthorized {
			o.SignOut(ctx)
		}
		return model.Collection{}, err
	}

	collectionID := detail.ID
	if collectionID == "" {
		collectionID = id
	}
	o.cols.Ensure(collectionID, detail.Name)
	for _, rec := range detail.Documents {
		if rec.CollectionID == "" {
			rec.CollectionID = collectionID
		}
		o.cache.Set(ctx, rec)
		o.insertRecord(rec, "")
	}
	o.bus.emit(Event{Type: EventCollectionUpdated, CollectionID: collectionID})

	col, ok := o.cols.Get(collectionID)
	if !ok {
		return model.Collection{}, ErrCollectionNotFound
	}
	return col, nil
}

// insertRecord turns a server record into a completed historical document
// and inserts it if absent. A record referencing an unknown collection
// materializes a local shell first so the membership invariant holds from
// the moment the document exists.
func (o *Orchestrator) insertRecord(rec analysis.DocumentRecord, fallbackID string) model.Document {
	id := rec.ID
	if id == "" {
		id = fallbackID
	}
	if rec.CollectionID != "" {
		o.cols.Ensure(rec.CollectionID, "")
	}

	results := resultsFromRecord(rec)
	storedID, created := o.docs.Add(model.Document{
		ID:           id,
		Filename:     rec.Filename,
		Status:       model.StatusCompleted,
		InputMode:    model.InputHistorical,
		CollectionID: rec.CollectionID,
		Results:      &results,
		UploadDate:   rec.CreatedAt,
	})
	if created {
		if rec.CollectionID != "" {
			_ = o.cols.AddMember(rec.CollectionID, storedID)
		}
		o.bus.emit(Event{Type: EventDocumentAdded, DocumentID: storedID})
	}

	doc, _ := o.docs.Get(storedID)
	return doc
}

// ListHistory returns document summaries from the service.
func (o *Orchestrator) ListHistory(ctx context.Context, page analysis.Page) ([]analysis.DocumentSummary, error) {
	return o.client.ListDocuments(ctx, page)
}

// ListHistoryCollections returns collection summaries from the service.
func (o *Orchestrator) ListHistoryCollections(ctx context.Context, page analysis.Page) ([]analysis.CollectionInfo, error) {
	return o.client.ListCollections(ctx, page)
}
