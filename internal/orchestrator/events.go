package orchestrator

import "sync"

// EventType identifies a state-change notification.
type EventType string

const (
	EventDocumentAdded     EventType = "document-added"
	EventDocumentUpdated   EventType = "document-updated"
	EventDocumentRemoved   EventType = "document-removed"
	EventCollectionUpdated EventType = "collection-updated"
	EventSelectionChanged  EventType = "selection-changed"
	EventBanner            EventType = "banner"
	EventSignedOut         EventType = "signed-out"
)

// Event is delivered to subscribers after a store mutation. Views render
// from these instead of polling the stores.
type Event struct {
	Type         EventType
	DocumentID   string
	CollectionID string
	Message      string
}

// eventBus is a plain listener registry. Notification is synchronous and
// happens outside store locks.
type eventBus struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]func(Event)
}

func newEventBus() *eventBus {
	return &eventBus{listeners: make(map[int]func(Event))}
}

// subscribe registers a listener and returns its unsubscribe func.
func (b *eventBus) subscribe(fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}
}

func (b *eventBus) emit(ev Event) {
	b.mu.Lock()
	fns := make([]func(Event), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
