package orchestrator

import (
	"sync"

	"docsense/client/internal/model"
)

// UploadStaging holds validated files before submission. Staging the same
// name+size twice is a silent no-op so repeated drag-drop stays idempotent.
type UploadStaging struct {
	mu    sync.Mutex
	files []model.FileRef
}

func NewUploadStaging() *UploadStaging {
	return &UploadStaging{}
}

// Stage adds a file. Returns false when an identical name+size entry is
// already staged.
func (s *UploadStaging) Stage(ref model.FileRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, staged := range s.files {
		if staged.Name == ref.Name && staged.Size == ref.Size {
			return false
		}
	}
	s.files = append(s.files, ref)
	return true
}

// Unstage removes the entry at index. Out-of-range indexes are ignored.
func (s *UploadStaging) Unstage(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.files) {
		return
	}
	s.files = append(s.files[:index], s.files[index+1:]...)
}

func (s *UploadStaging) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = nil
}

// Staged returns a snapshot in staging order.
func (s *UploadStaging) Staged() []model.FileRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.FileRef(nil), s.files...)
}

func (s *UploadStaging) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}
