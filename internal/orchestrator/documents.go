package orchestrator

import (
	"errors"
	"sync"
	"time"

	"docsense/client/internal/model"
	"docsense/client/internal/util"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrTerminalStatus   = errors.New("document status is terminal")
	ErrResultErrorClash = errors.New("results and error are mutually exclusive")
)

// DocumentPatch is a shallow merge applied by Update. Nil fields are left
// untouched.
type DocumentPatch struct {
	Status            *model.Status
	Results           *model.Results
	Error             *string
	CollectionID      *string
	AnalysisStartTime *time.Time
	AnalysisEndTime   *time.Time
}

// DocumentStore is the authoritative id → document mapping for the
// session. All mutation goes through its methods; callers only ever see
// clones.
type DocumentStore struct {
	mu    sync.Mutex
	docs  map[string]*model.Document
	order []string
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]*model.Document)}
}

// Add inserts a document and returns its id. If an id is supplied and
// already present, or a file document matches an existing entry on
// (filename, size, name), no new entity is created and the existing id is
// returned with created=false: the caller treats this as "already
// analyzed, select it". The match is a name+size heuristic, not a content
// hash; coincidentally identical-looking files merge.
func (s *DocumentStore) Add(doc model.Document) (id string, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID != "" {
		if _, ok := s.docs[doc.ID]; ok {
			return doc.ID, false
		}
	}
	if doc.FileRef != nil {
		for _, existingID := range s.order {
			existing := s.docs[existingID]
			if existing.FileRef == nil {
				continue
			}
			if existing.Filename == doc.Filename &&
				existing.FileRef.Size == doc.FileRef.Size &&
				existing.FileRef.Name == doc.FileRef.Name {
				return existingID, false
			}
		}
	}

	if doc.ID == "" {
		doc.ID = util.NewID("doc")
	}
	if doc.UploadDate.IsZero() {
		doc.UploadDate = time.Now()
	}
	clone := doc.Clone()
	s.docs[doc.ID] = &clone
	s.order = append(s.order, doc.ID)
	return doc.ID, true
}

// Update shallow-merges patch into the document. Terminal statuses are
// terminal: once completed or error, the status can never change again.
// Late updates for removed documents report ErrDocumentNotFound so the
// pipeline can treat them as no-ops.
func (s *DocumentStore) Update(id string, patch DocumentPatch) (model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return model.Document{}, ErrDocumentNotFound
	}

	if patch.Status != nil && *patch.Status != doc.Status && doc.Status.Terminal() {
		return model.Document{}, ErrTerminalStatus
	}
	if patch.Results != nil && doc.Error != "" {
		return model.Document{}, ErrResultErrorClash
	}
	if patch.Error != nil && *patch.Error != "" && doc.Results != nil {
		return model.Document{}, ErrResultErrorClash
	}

	if patch.Status != nil {
		doc.Status = *patch.Status
	}
	if patch.Results != nil {
		res := *patch.Results
		doc.Results = &res
	}
	if patch.Error != nil {
		doc.Error = *patch.Error
	}
	if patch.CollectionID != nil {
		doc.CollectionID = *patch.CollectionID
	}
	if patch.AnalysisStartTime != nil {
		doc.AnalysisStartTime = *patch.AnalysisStartTime
	}
	if patch.AnalysisEndTime != nil {
		doc.AnalysisEndTime = *patch.AnalysisEndTime
	}
	return doc.Clone(), nil
}

func (s *DocumentStore) Get(id string) (model.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return model.Document{}, false
	}
	return doc.Clone(), true
}

// Remove deletes the document. Returns the removed entity for cascade
// handling.
func (s *DocumentStore) Remove(id string) (model.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return model.Document{}, false
	}
	delete(s.docs, id)
	for i, orderedID := range s.order {
		if orderedID == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return doc.Clone(), true
}

// List returns clones in insertion order.
func (s *DocumentStore) List() []model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Document, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.docs[id].Clone())
	}
	return out
}

func (s *DocumentStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// Clear drops every document (delete-all and sign-out paths).
func (s *DocumentStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]*model.Document)
	s.order = nil
}
