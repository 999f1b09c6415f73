package cable

import "sync"

// DocumentVisibilityNotifier is a VisibilityNotifier driven by the
// application: an application observing its own host environment (browser tab focus,
// process foreground/background, terminal SIGCONT, whatever applies) calls
// SetVisible(true) whenever it becomes visible again, and every subscriber
// registered via Subscribe is invoked in turn.
//
// This stands in for the browser's `document.addEventListener("visibilitychange", ...)`
// collaborator: cablekit has no notion of a document, so the embedding
// application is expected to wire SetVisible to whatever signal its own
// environment exposes.
type DocumentVisibilityNotifier struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[uint64]func()
}

// NewDocumentVisibilityNotifier constructs an empty notifier with no subscribers.
func NewDocumentVisibilityNotifier() *DocumentVisibilityNotifier {
	return &DocumentVisibilityNotifier{
		listeners: make(map[uint64]func()),
	}
}

// Subscribe registers onVisible and returns an unsubscribe func. Safe to call
// concurrently with SetVisible.
func (n *DocumentVisibilityNotifier) Subscribe(onVisible func()) (unsubscribe func()) {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = onVisible
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.listeners, id)
		n.mu.Unlock()
	}
}

// SetVisible notifies every current subscriber when visible is true. A false
// transition (host going to background) carries no signal in this protocol:
// the monitor only reacts to becoming visible again.
func (n *DocumentVisibilityNotifier) SetVisible(visible bool) {
	if !visible {
		return
	}

	n.mu.Lock()
	listeners := make([]func(), 0, len(n.listeners))
	for _, l := range n.listeners {
		listeners = append(listeners, l)
	}
	n.mu.Unlock()

	for _, l := range listeners {
		l()
	}
}

// NoopVisibilityNotifier never fires, for an embedding application with no
// visibility signal to offer. A monitor with no notifier attached behaves the
// same way.
type NoopVisibilityNotifier struct{}

func (NoopVisibilityNotifier) Subscribe(func()) (unsubscribe func()) {
	return func() {}
}
