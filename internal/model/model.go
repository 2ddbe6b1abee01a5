// Package model holds the session entities tracked by the orchestrator.
package model

import "time"

// Status is a document's position in the analysis lifecycle.
type Status string

const (
	StatusUploading Status = "uploading"
	StatusAnalyzing Status = "analyzing"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether a status can never change again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// InFlight reports whether analysis is still pending for a status.
func (s Status) InFlight() bool {
	return s == StatusUploading || s == StatusAnalyzing
}

// InputMode records where a document came from.
type InputMode string

const (
	InputFile       InputMode = "file"
	InputText       InputMode = "text"
	InputHistorical InputMode = "historical"
	InputDemo       InputMode = "demo"
	InputPreview    InputMode = "preview"
)

// View is the coarse UI mode driven by the selection controller.
type View string

const (
	ViewUpload     View = "upload"
	ViewWorkspace  View = "workspace"
	ViewCasualChat View = "casual-chat"
)

// CasualChatID is the pseudo-document id for a document-less chat session.
// It never appears in the document store.
const CasualChatID = "casual-chat"

// FileRef points at the raw input backing a file document. Historical and
// demo documents have no FileRef.
type FileRef struct {
	Name        string
	Size        int64
	Path        string
	ContentType string
}

// Results is the structured analysis payload. Present only on completed
// documents.
type Results struct {
	Summary     string
	KeyPoints   []string
	RiskFlags   []string
	KeyConcepts []string
	FullText    string
}

type Document struct {
	ID                string
	Filename          string
	Status            Status
	InputMode         InputMode
	FileRef           *FileRef
	CollectionID      string
	Results           *Results
	Error             string
	UploadDate        time.Time
	AnalysisStartTime time.Time
	AnalysisEndTime   time.Time
}

type Collection struct {
	ID        string
	Name      string
	Documents []string
	CreatedAt time.Time
}

// Clone returns a copy safe to hand outside the store lock.
func (d Document) Clone() Document {
	if d.FileRef != nil {
		ref := *d.FileRef
		d.FileRef = &ref
	}
	if d.Results != nil {
		res := *d.Results
		res.KeyPoints = append([]string(nil), d.Results.KeyPoints...)
		res.RiskFlags = append([]string(nil), d.Results.RiskFlags...)
		res.KeyConcepts = append([]string(nil), d.Results.KeyConcepts...)
		d.Results = &res
	}
	return d
}

// Clone returns a copy safe to hand outside the store lock.
func (c Collection) Clone() Collection {
	c.Documents = append([]string(nil), c.Documents...)
	return c
}
