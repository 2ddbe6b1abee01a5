// Package orchestrator is the client-side core: it tracks documents and
// collections through upload, analysis and history, and drives which one
// is active for viewing and chat.
package orchestrator

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"docsense/client/internal/analysis"
	"docsense/client/internal/cache"
	"docsense/client/internal/config"
	"docsense/client/internal/model"
)

// analysisClient is the slice of the analysis service the orchestrator
// consumes.
type analysisClient interface {
	UploadDocument(ctx context.Context, path, filename, collectionID string) (analysis.DocumentRecord, error)
	AnalyzeText(ctx context.Context, text, collectionID string) (analysis.DocumentRecord, error)
	ListDocuments(ctx context.Context, page analysis.Page) ([]analysis.DocumentSummary, error)
	GetDocument(ctx context.Context, id string) (analysis.DocumentRecord, error)
	CreateCollection(ctx context.Context, name string) (analysis.CollectionInfo, error)
	GetCollection(ctx context.Context, id string) (analysis.CollectionDetail, error)
	ListCollections(ctx context.Context, page analysis.Page) ([]analysis.CollectionInfo, error)
	RefreshUsageQuota(ctx context.Context) error
}

// Hooks are side effects on external collaborators. All are optional.
type Hooks struct {
	// SignOut is invoked on a 401-class response; the auth collaborator
	// owns what happens next.
	SignOut func()
	// RefreshHistory is poked after each successful analysis so history
	// views can refetch.
	RefreshHistory func()
}

// Orchestrator owns the session state. Stores mutate synchronously under
// their own locks; only analysis service calls run in goroutines.
type Orchestrator struct {
	validator *Validator
	client    analysisClient
	cache     cache.RecordCache
	log       *zap.SugaredLogger
	hooks     Hooks

	docs    *DocumentStore
	cols    *CollectionStore
	staging *UploadStaging
	sel     *SelectionController
	bus     *eventBus

	wg sync.WaitGroup
}

func New(cfg config.Config, client *analysis.Client, recordCache cache.RecordCache, hooks Hooks, log *zap.SugaredLogger) *Orchestrator {
	o := &Orchestrator{
		validator: NewValidator(cfg),
		client:    client,
		cache:     recordCache,
		log:       log,
		hooks:     hooks,
		docs:      NewDocumentStore(),
		cols:      NewCollectionStore(),
		staging:   NewUploadStaging(),
		sel:       NewSelectionController(),
		bus:       newEventBus(),
	}
	if o.cache == nil {
		o.cache = cache.Noop{}
	}
	return o
}

// Subscribe registers a state-change listener; the returned func
// unsubscribes it.
func (o *Orchestrator) Subscribe(fn func(Event)) func() {
	return o.bus.subscribe(fn)
}

// Wait blocks until every in-flight pipeline and side effect finished.
// CLI and test convenience; a UI would rely on events instead.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// StageFile validates a file and, when accepted, places it in staging.
func (o *Orchestrator) StageFile(ref model.FileRef, collectionMode bool) error {
	if err := o.validator.ValidateFile(ref, collectionMode); err != nil {
		return err
	}
	o.staging.Stage(ref)
	return nil
}

func (o *Orchestrator) Unstage(index int) { o.staging.Unstage(index) }

func (o *Orchestrator) ClearStaging() { o.staging.Clear() }

// Staged returns the current staging snapshot.
func (o *Orchestrator) Staged() []model.FileRef { return o.staging.Staged() }

func (o *Orchestrator) Document(id string) (model.Document, bool) { return o.docs.Get(id) }

func (o *Orchestrator) Documents() []model.Document { return o.docs.List() }

func (o *Orchestrator) Collection(id string) (model.Collection, bool) { return o.cols.Get(id) }

func (o *Orchestrator) Collections() []model.Collection { return o.cols.List() }

// CollectionStatus derives the aggregate status from member documents.
// Recomputed on every call; never cached.
func (o *Orchestrator) CollectionStatus(id string) (model.Status, bool) {
	col, ok := o.cols.Get(id)
	if !ok {
		return "", false
	}
	members := make([]model.Document, 0, len(col.Documents))
	for _, docID := range col.Documents {
		if doc, found := o.docs.Get(docID); found {
			members = append(members, doc)
		}
	}
	return deriveStatus(members), true
}

func (o *Orchestrator) ActiveID() string { return o.sel.ActiveID() }

func (o *Orchestrator) View() model.View { return o.sel.View() }

// ErrorDetail reports whether the error surface is open and for which
// document.
func (o *Orchestrator) ErrorDetail() (bool, string) { return o.sel.ErrorDetail() }

func (o *Orchestrator) DismissErrorDetail() { o.sel.DismissErrorDetail() }

// Select makes a document active and switches to the workspace view. A
// document in error additionally opens the error-detail surface. The
// casual chat pseudo-document bypasses the stores entirely.
func (o *Orchestrator) Select(id string) error {
	if id == model.CasualChatID {
		o.sel.set(model.CasualChatID, model.ViewCasualChat, false)
		o.bus.emit(Event{Type: EventSelectionChanged, DocumentID: model.CasualChatID})
		return nil
	}
	doc, ok := o.docs.Get(id)
	if !ok {
		return ErrDocumentNotFound
	}
	o.sel.set(doc.ID, model.ViewWorkspace, doc.Status == model.StatusError)
	o.bus.emit(Event{Type: EventSelectionChanged, DocumentID: doc.ID})
	return nil
}

// Open selects a document, hydrating it from history first when it is not
// in the session store.
func (o *Orchestrator) Open(ctx context.Context, id string) error {
	if id == model.CasualChatID {
		return o.Select(id)
	}
	if _, ok := o.docs.Get(id); !ok {
		if _, err := o.Hydrate(ctx, id); err != nil {
			return err
		}
	}
	return o.Select(id)
}

// RemoveDocument deletes a document, detaches it from its collection and
// re-selects: the first remaining completed document, or the upload view
// when none remain. Removal does not cancel an in-flight analysis call; a
// late response for a removed id is a no-op.
func (o *Orchestrator) RemoveDocument(id string) {
	doc, ok := o.docs.Remove(id)
	if !ok {
		return
	}
	if doc.CollectionID != "" {
		o.cols.RemoveMember(doc.CollectionID, id)
		o.bus.emit(Event{Type: EventCollectionUpdated, CollectionID: doc.CollectionID})
	}
	o.bus.emit(Event{Type: EventDocumentRemoved, DocumentID: id})
	if o.sel.ActiveID() == id {
		o.reselect()
	}
}

// RemoveCollection deletes a collection and cascades removal to all
// member documents.
func (o *Orchestrator) RemoveCollection(id string) {
	col, ok := o.cols.Remove(id)
	if !ok {
		return
	}
	activeRemoved := false
	for _, docID := range col.Documents {
		if _, removed := o.docs.Remove(docID); removed {
			o.bus.emit(Event{Type: EventDocumentRemoved, DocumentID: docID})
			if o.sel.ActiveID() == docID {
				activeRemoved = true
			}
		}
	}
	o.bus.emit(Event{Type: EventCollectionUpdated, CollectionID: id})
	if activeRemoved {
		o.reselect()
	}
}

func (o *Orchestrator) reselect() {
	for _, doc := range o.docs.List() {
		if doc.Status == model.StatusCompleted {
			o.sel.set(doc.ID, model.ViewWorkspace, false)
			o.bus.emit(Event{Type: EventSelectionChanged, DocumentID: doc.ID})
			return
		}
	}
	o.sel.clear()
	o.bus.emit(Event{Type: EventSelectionChanged})
}

// DeleteAll clears the session stores, staging, selection and the local
// cache.
func (o *Orchestrator) DeleteAll(ctx context.Context) {
	o.docs.Clear()
	o.cols.Clear()
	o.staging.Clear()
	o.sel.clear()
	if err := o.cache.Clear(ctx); err != nil {
		o.log.Warnw("delete-all: cache clear failed", "err", err)
	}
	o.bus.emit(Event{Type: EventSelectionChanged})
}

// SignOut abandons all session state and clears the cache. Invoked
// directly by the user or by the pipeline on a 401-class response.
func (o *Orchestrator) SignOut(ctx context.Context) {
	o.docs.Clear()
	o.cols.Clear()
	o.staging.Clear()
	o.sel.clear()
	if err := o.cache.Clear(ctx); err != nil {
		o.log.Warnw("sign-out: cache clear failed", "err", err)
	}
	o.bus.emit(Event{Type: EventSignedOut})
	if o.hooks.SignOut != nil {
		o.hooks.SignOut()
	}
}
