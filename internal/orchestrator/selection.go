package orchestrator

import (
	"sync"

	"docsense/client/internal/model"
)

// SelectionController tracks the active document and the coarse view
// mode. The error-detail surface is a flag plus a document reference, not
// its own state machine.
type SelectionController struct {
	mu          sync.Mutex
	activeID    string
	view        model.View
	errorDetail bool
	errorDocID  string
}

func NewSelectionController() *SelectionController {
	return &SelectionController{view: model.ViewUpload}
}

func (c *SelectionController) ActiveID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeID
}

func (c *SelectionController) View() model.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// ErrorDetail reports whether the error surface is open and for which
// document.
func (c *SelectionController) ErrorDetail() (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errorDetail, c.errorDocID
}

// DismissErrorDetail closes the error surface without changing selection.
func (c *SelectionController) DismissErrorDetail() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorDetail = false
	c.errorDocID = ""
}

func (c *SelectionController) set(id string, view model.View, errored bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeID = id
	c.view = view
	c.errorDetail = errored
	if errored {
		c.errorDocID = id
	} else {
		c.errorDocID = ""
	}
}

// clear returns to the upload view with no selection.
func (c *SelectionController) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeID = ""
	c.view = model.ViewUpload
	c.errorDetail = false
	c.errorDocID = ""
}
