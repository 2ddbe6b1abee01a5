package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DocumentRecord is the canonical decoded form of a server document. List
// fields are always structured here; the polymorphic wire shapes never
// leave this package.
type DocumentRecord struct {
	ID           string    `json:"document_id"`
	Filename     string    `json:"filename"`
	CollectionID string    `json:"collection_id,omitempty"`
	Summary      string    `json:"summary"`
	KeyPoints    []string  `json:"key_points"`
	RiskFlags    []string  `json:"risk_flags"`
	KeyConcepts  []string  `json:"key_concepts"`
	FullText     string    `json:"full_text"`
	CreatedAt    time.Time `json:"created_at"`
}

// DocumentSummary is the list-endpoint shape (no analysis payload).
type DocumentSummary struct {
	ID           string    `json:"document_id"`
	Filename     string    `json:"filename"`
	CollectionID string    `json:"collection_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type CollectionInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CollectionDetail carries a collection's full member records.
type CollectionDetail struct {
	ID        string
	Name      string
	Documents []DocumentRecord
}

// Page is cursor-less offset pagination as the service expects it.
type Page struct {
	Limit  int
	Offset int
}

// documentRecordWire tolerates the service's historical field shapes:
// key_points, risk_flags and key_concepts arrive either as a JSON array of
// strings or as a JSON-encoded string holding such an array.
type documentRecordWire struct {
	DocumentID   string          `json:"document_id"`
	ID           string          `json:"id"`
	Filename     string          `json:"filename"`
	CollectionID string          `json:"collection_id"`
	Summary      string          `json:"summary"`
	KeyPoints    json.RawMessage `json:"key_points"`
	RiskFlags    json.RawMessage `json:"risk_flags"`
	KeyConcepts  json.RawMessage `json:"key_concepts"`
	FullText     string          `json:"full_text"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (w documentRecordWire) id() string {
	if w.DocumentID != "" {
		return w.DocumentID
	}
	return w.ID
}

// decodeStringList accepts either shape and always yields a structured
// list. A nil error with a nil slice means the field was absent or empty.
func decodeStringList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, fmt.Errorf("neither array nor string: %s", truncate(string(raw), 80))
	}
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(encoded), &list); err != nil {
		return nil, fmt.Errorf("string field is not an encoded array: %w", err)
	}
	return list, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
