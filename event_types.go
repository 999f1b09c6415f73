package cablekit

// EventType identifies a lifecycle event broadcast through the Client's
// event emitter, independent of the data-plane Message flow.
type EventType string

const (
	// EventConnect fires once the underlying connection handler has
	// successfully connected.
	EventConnect EventType = "connect"
	// EventClose fires when the underlying connection handler has closed.
	EventClose EventType = "close"
)
