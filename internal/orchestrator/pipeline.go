package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"docsense/client/internal/analysis"
	"docsense/client/internal/model"
)

// SubmitResult reports what a submission created. Existing lists dedup
// redirects: files that matched an already-tracked document and were not
// re-submitted.
type SubmitResult struct {
	DocumentIDs  []string
	Existing     []string
	CollectionID string
}

// SubmitStaged drains the staging area into a submission. An empty
// collection name submits standalone documents.
func (o *Orchestrator) SubmitStaged(ctx context.Context, collectionName string) (SubmitResult, error) {
	refs := o.staging.Staged()
	result, err := o.SubmitFiles(ctx, refs, collectionName)
	if err != nil {
		return SubmitResult{}, err
	}
	o.staging.Clear()
	return result, nil
}

// SubmitFiles validates every file, creates the document entities
// synchronously, selects the first one, then fans out one pipeline per
// document. Validation failures reject the whole batch before any entity
// exists.
func (o *Orchestrator) SubmitFiles(ctx context.Context, refs []model.FileRef, collectionName string) (SubmitResult, error) {
	if len(refs) == 0 {
		return SubmitResult{}, &ValidationError{Kind: ValidationEmpty, Message: "no files to submit"}
	}
	collectionName = strings.TrimSpace(collectionName)
	collectionMode := collectionName != ""

	for _, ref := range refs {
		if err := o.validator.ValidateFile(ref, collectionMode); err != nil {
			return SubmitResult{}, err
		}
	}

	var result SubmitResult
	if collectionMode {
		col, err := o.cols.Create(collectionName)
		if err != nil {
			return SubmitResult{}, err
		}
		result.CollectionID = col.ID
		o.bus.emit(Event{Type: EventCollectionUpdated, CollectionID: col.ID})
	}

	// Entity creation and the dedup check happen here, synchronously,
	// before any network dispatch: two rapid identical submissions must
	// resolve against the store in order.
	type job struct {
		id  string
		ref model.FileRef
	}
	var jobs []job
	var firstID string
	for _, ref := range refs {
		ref := ref
		status := model.StatusUploading
		id, created := o.docs.Add(model.Document{
			Filename:     ref.Name,
			Status:       status,
			InputMode:    model.InputFile,
			FileRef:      &ref,
			CollectionID: result.CollectionID,
		})
		if firstID == "" {
			firstID = id
		}
		if !created {
			result.Existing = append(result.Existing, id)
			continue
		}
		result.DocumentIDs = append(result.DocumentIDs, id)
		if collectionMode {
			_ = o.cols.AddMember(result.CollectionID, id)
		}
		o.bus.emit(Event{Type: EventDocumentAdded, DocumentID: id})
		jobs = append(jobs, job{id: id, ref: ref})
	}

	// The user always has something to look at while the rest complete.
	if firstID != "" {
		_ = o.Select(firstID)
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		collectionID := result.CollectionID
		if collectionMode {
			collectionID = o.adoptRemoteCollection(ctx, result.CollectionID, collectionName, result.DocumentIDs)
			if collectionID == "" {
				return // signed out
			}
		}
		for _, j := range jobs {
			o.wg.Add(1)
			go func(j job) {
				defer o.wg.Done()
				o.runFile(ctx, j.id, j.ref, collectionID)
			}(j)
		}
	}()

	return result, nil
}

// SubmitText validates pasted text and submits it as a standalone
// document.
func (o *Orchestrator) SubmitText(ctx context.Context, text string) (string, error) {
	if err := o.validator.ValidateText(text); err != nil {
		return "", err
	}
	status := model.StatusUploading
	id, _ := o.docs.Add(model.Document{
		Filename:  "Pasted text",
		Status:    status,
		InputMode: model.InputText,
	})
	o.bus.emit(Event{Type: EventDocumentAdded, DocumentID: id})
	_ = o.Select(id)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.runText(ctx, id, text)
	}()
	return id, nil
}

// adoptRemoteCollection creates the collection server-side and swaps the
// provisional id. On failure the local id stays and analysis proceeds;
// collection persistence is best-effort at submission time. Returns the
// effective id, or "" after a sign-out.
func (o *Orchestrator) adoptRemoteCollection(ctx context.Context, localID, name string, memberIDs []string) string {
	info, err := o.client.CreateCollection(ctx, name)
	if err != nil {
		var svcErr *analysis.ServiceError
		if errors.As(err, &svcErr) && svcErr.Code == analysis.CodeUnauthorized {
			o.log.Warnw("collection create: unauthorized, signing out")
			o.SignOut(ctx)
			return ""
		}
		o.log.Warnw("collection create failed, keeping local id", "collection", localID, "err", err)
		return localID
	}
	o.cols.AdoptID(localID, info.ID)
	for _, docID := range memberIDs {
		serverID := info.ID
		if _, err := o.docs.Update(docID, DocumentPatch{CollectionID: &serverID}); err != nil && !errors.Is(err, ErrDocumentNotFound) {
			o.log.Warnw("collection adopt: member update failed", "document", docID, "err", err)
		}
	}
	o.bus.emit(Event{Type: EventCollectionUpdated, CollectionID: info.ID})
	return info.ID
}

func (o *Orchestrator) runFile(ctx context.Context, docID string, ref model.FileRef, collectionID string) {
	if !o.markAnalyzing(docID) {
		return
	}
	rec, err := o.client.UploadDocument(ctx, ref.Path, ref.Name, collectionID)
	o.finish(ctx, docID, collectionID, rec, err)
}

func (o *Orchestrator) runText(ctx context.Context, docID, text string) {
	if !o.markAnalyzing(docID) {
		return
	}
	rec, err := o.client.AnalyzeText(ctx, text, "")
	o.finish(ctx, docID, "", rec, err)
}

func (o *Orchestrator) markAnalyzing(docID string) bool {
	status := model.StatusAnalyzing
	start := time.Now()
	if _, err := o.docs.Update(docID, DocumentPatch{Status: &status, AnalysisStartTime: &start}); err != nil {
		// Removed before dispatch; nothing to do.
		return false
	}
	o.bus.emit(Event{Type: EventDocumentUpdated, DocumentID: docID})
	return true
}

// finish terminates a pipeline. Every branch ends in an Update (or an
// existence-checked no-op); no error escapes a pipeline goroutine.
func (o *Orchestrator) finish(ctx context.Context, docID, collectionID string, rec analysis.DocumentRecord, err error) {
	if err != nil {
		var svcErr *analysis.ServiceError
		switch {
		case errors.As(err, &svcErr) && svcErr.Code == analysis.CodeUnauthorized:
			o.log.Warnw("analysis: unauthorized, signing out", "document", docID)
			o.SignOut(ctx)
			return
		case errors.As(err, &svcErr) && svcErr.QuotaLimited():
			o.bus.emit(Event{Type: EventBanner, Message: svcErr.Message})
			o.fail(docID, svcErr.Message)
		case errors.As(err, &svcErr) && svcErr.Code == analysis.CodeForbidden:
			o.fail(docID, svcErr.Message)
		default:
			o.log.Warnw("analysis failed", "document", docID, "err", err)
			o.fail(docID, "Analysis failed. Please try again.")
		}
		o.notifyCollection(collectionID)
		return
	}

	status := model.StatusCompleted
	end := time.Now()
	results := resultsFromRecord(rec)
	if _, updateErr := o.docs.Update(docID, DocumentPatch{
		Status:          &status,
		Results:         &results,
		AnalysisEndTime: &end,
	}); updateErr != nil {
		if !errors.Is(updateErr, ErrDocumentNotFound) {
			o.log.Warnw("analysis: completion update rejected", "document", docID, "err", updateErr)
		}
		o.notifyCollection(collectionID)
		return
	}
	o.bus.emit(Event{Type: EventDocumentUpdated, DocumentID: docID})
	o.cache.Set(ctx, rec)
	o.notifyCollection(collectionID)

	// Fire-and-forget side effects on the collaborators.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if err := o.client.RefreshUsageQuota(ctx); err != nil {
			o.log.Debugw("quota refresh failed", "err", err)
		}
	}()
	if o.hooks.RefreshHistory != nil {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			o.hooks.RefreshHistory()
		}()
	}
}

func (o *Orchestrator) fail(docID, message string) {
	status := model.StatusError
	end := time.Now()
	if message == "" {
		message = "Analysis failed. Please try again."
	}
	if _, err := o.docs.Update(docID, DocumentPatch{
		Status:          &status,
		Error:           &message,
		AnalysisEndTime: &end,
	}); err != nil {
		// Removed mid-flight; late failure is a no-op.
		return
	}
	o.bus.emit(Event{Type: EventDocumentUpdated, DocumentID: docID})
}

func (o *Orchestrator) notifyCollection(collectionID string) {
	if collectionID == "" {
		return
	}
	o.bus.emit(Event{Type: EventCollectionUpdated, CollectionID: collectionID})
}

func resultsFromRecord(rec analysis.DocumentRecord) model.Results {
	return model.Results{
		Summary:     rec.Summary,
		KeyPoints:   rec.KeyPoints,
		RiskFlags:   rec.RiskFlags,
		KeyConcepts: rec.KeyConcepts,
		FullText:    rec.FullText,
	}
}
