package orchestrator

import (
	"errors"
	"strings"
	"sync"
	"time"

	"docsense/client/internal/model"
	"docsense/client/internal/util"
)

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrEmptyName          = errors.New("collection name is empty")
)

// CollectionStore maps collection id → collection. A collection's status
// is never stored here; it is derived from its members on every read (see
// Orchestrator.CollectionStatus).
type CollectionStore struct {
	mu    sync.Mutex
	cols  map[string]*model.Collection
	order []string
}

func NewCollectionStore() *CollectionStore {
	return &CollectionStore{cols: make(map[string]*model.Collection)}
}

// Create registers a collection under a provisional local id. The id is
// swapped for the server-issued one via AdoptID once remote creation
// succeeds.
func (s *CollectionStore) Create(name string) (model.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Collection{}, ErrEmptyName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	col := &model.Collection{
		ID:        util.NewID("col"),
		Name:      name,
		CreatedAt: time.Now(),
	}
	s.cols[col.ID] = col
	s.order = append(s.order, col.ID)
	return col.Clone(), nil
}

// Ensure materializes a shell for a server-known collection id so that
// member documents can reference it immediately. The name may be empty
// until detail is fetched; existing entries are returned untouched.
func (s *CollectionStore) Ensure(id, name string) model.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.cols[id]; ok {
		if col.Name == "" && name != "" {
			col.Name = name
		}
		return col.Clone()
	}
	col := &model.Collection{ID: id, Name: name, CreatedAt: time.Now()}
	s.cols[id] = col
	s.order = append(s.order, id)
	return col.Clone()
}

// AdoptID re-keys a collection from its provisional local id to the
// server-issued id, preserving order and membership.
func (s *CollectionStore) AdoptID(localID, serverID string) bool {
	if localID == serverID {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.cols[localID]
	if !ok {
		return false
	}
	delete(s.cols, localID)
	col.ID = serverID
	s.cols[serverID] = col
	for i, id := range s.order {
		if id == localID {
			s.order[i] = serverID
			break
		}
	}
	return true
}

// AddMember appends a document id, keeping insertion order. Re-adding an
// existing member is a no-op.
func (s *CollectionStore) AddMember(collectionID, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.cols[collectionID]
	if !ok {
		return ErrCollectionNotFound
	}
	for _, member := range col.Documents {
		if member == documentID {
			return nil
		}
	}
	col.Documents = append(col.Documents, documentID)
	return nil
}

// RemoveMember drops a document id from the member list.
func (s *CollectionStore) RemoveMember(collectionID, documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.cols[collectionID]
	if !ok {
		return
	}
	for i, member := range col.Documents {
		if member == documentID {
			col.Documents = append(col.Documents[:i], col.Documents[i+1:]...)
			return
		}
	}
}

// Remove deletes the collection and returns it so the caller can cascade
// member removal.
func (s *CollectionStore) Remove(id string) (model.Collection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.cols[id]
	if !ok {
		return model.Collection{}, false
	}
	delete(s.cols, id)
	for i, orderedID := range s.order {
		if orderedID == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return col.Clone(), true
}

func (s *CollectionStore) Get(id string) (model.Collection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.cols[id]
	if !ok {
		return model.Collection{}, false
	}
	return col.Clone(), true
}

func (s *CollectionStore) List() []model.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Collection, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.cols[id].Clone())
	}
	return out
}

// Clear drops every collection.
func (s *CollectionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cols = make(map[string]*model.Collection)
	s.order = nil
}

// deriveStatus computes a collection's aggregate status from member
// snapshots: completed iff all completed, error iff all error, analyzing
// for any mix (including still-uploading members).
func deriveStatus(members []model.Document) model.Status {
	if len(members) == 0 {
		return model.StatusAnalyzing
	}
	allCompleted := true
	allError := true
	for _, doc := range members {
		if doc.Status != model.StatusCompleted {
			allCompleted = false
		}
		if doc.Status != model.StatusError {
			allError = false
		}
	}
	switch {
	case allCompleted:
		return model.StatusCompleted
	case allError:
		return model.StatusError
	default:
		return model.StatusAnalyzing
	}
}
