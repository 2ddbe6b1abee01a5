package orchestrator

import (
	"fmt"
	"path/filepath"
	"strings"

	"docsense/client/internal/config"
	"docsense/client/internal/model"
)

// ValidationKind distinguishes rejection reasons so callers can render a
// specific message.
type ValidationKind string

const (
	ValidationWrongType ValidationKind = "wrong-type"
	ValidationTooLarge  ValidationKind = "too-large"
	ValidationEmpty     ValidationKind = "empty"
)

type ValidationError struct {
	Kind    ValidationKind
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Validator is the pure input gate. It never touches the stores and never
// makes a network call.
type Validator struct {
	allowed      map[string]bool
	maxFile      int64
	maxMember    int64
	maxTextChars int
}

func NewValidator(cfg config.Config) *Validator {
	allowed := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[ext] = true
	}
	return &Validator{
		allowed:      allowed,
		maxFile:      cfg.MaxFileBytes,
		maxMember:    cfg.MaxCollectionBytes,
		maxTextChars: cfg.MaxTextChars,
	}
}

// ValidateFile checks extension and size. Collection members use the
// lower per-member ceiling.
func (v *Validator) ValidateFile(ref model.FileRef, collectionMember bool) error {
	ext := strings.ToLower(filepath.Ext(ref.Name))
	if !v.allowed[ext] {
		return &ValidationError{
			Kind:    ValidationWrongType,
			Message: fmt.Sprintf("unsupported file type %q", ext),
		}
	}

	ceiling := v.maxFile
	if collectionMember {
		ceiling = v.maxMember
	}
	if ref.Size > ceiling {
		return &ValidationError{
			Kind:    ValidationTooLarge,
			Message: fmt.Sprintf("%s is %d bytes, limit is %d", ref.Name, ref.Size, ceiling),
		}
	}
	return nil
}

// ValidateText checks pasted text: non-empty after trimming, under the
// character ceiling.
func (v *Validator) ValidateText(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return &ValidationError{Kind: ValidationEmpty, Message: "text is empty"}
	}
	if len(trimmed) > v.maxTextChars {
		return &ValidationError{
			Kind:    ValidationTooLarge,
			Message: fmt.Sprintf("text is %d characters, limit is %d", len(trimmed), v.maxTextChars),
		}
	}
	return nil
}
