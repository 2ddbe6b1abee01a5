package orchestrator

import (
	"testing"

	"docsense/client/internal/model"
)

func TestStageIdenticalFileOnce(t *testing.T) {
	staging := NewUploadStaging()

	ref := model.FileRef{Name: "report.pdf", Size: 2 * 1024 * 1024, Path: "/tmp/report.pdf"}
	if !staging.Stage(ref) {
		t.Fatalf("first stage should accept")
	}
	if staging.Stage(ref) {
		t.Errorf("identical name+size should be a silent no-op")
	}
	if staging.Len() != 1 {
		t.Errorf("expected 1 staged entry, got %d", staging.Len())
	}
}

func TestStageDifferentSizeAccepted(t *testing.T) {
	staging := NewUploadStaging()
	staging.Stage(model.FileRef{Name: "report.pdf", Size: 100})
	if !staging.Stage(model.FileRef{Name: "report.pdf", Size: 200}) {
		t.Errorf("different size should stage")
	}
	if staging.Len() != 2 {
		t.Errorf("expected 2 staged entries, got %d", staging.Len())
	}
}

func TestUnstageAndClear(t *testing.T) {
	staging := NewUploadStaging()
	staging.Stage(model.FileRef{Name: "a.pdf", Size: 1})
	staging.Stage(model.FileRef{Name: "b.pdf", Size: 2})
	staging.Stage(model.FileRef{Name: "c.pdf", Size: 3})

	staging.Unstage(1)
	files := staging.Staged()
	if len(files) != 2 || files[0].Name != "a.pdf" || files[1].Name != "c.pdf" {
		t.Errorf("unexpected staging after unstage: %+v", files)
	}

	staging.Unstage(99) // out of range, ignored
	if staging.Len() != 2 {
		t.Errorf("out-of-range unstage mutated staging")
	}

	staging.Clear()
	if staging.Len() != 0 {
		t.Errorf("clear left %d entries", staging.Len())
	}
}
