package cablekit

import (
	"context"
)

type (
	// Client is the socket cable.Connection drives: cable.Connection never
	// touches a ConnectionHandler or Connection directly, only this
	// interface, which basicClient implements by delegating through
	// whichever decorator chain a ConnectionHandlerFactory assembled.
	Client interface {
		// Open establishes a connection with the server
		Open(ctx context.Context) error
		// Send sends a message to the server
		Send(m Message)
		// Close closes the connection with the server
		Close()
		// CloseChan returns a channel that signals when the connection is closed
		CloseChan() CloseChan
	}

	CloseChan chan struct{}

	// MessageHandler receives every DataMessage that reaches the top of the
	// decorator chain. cable.Connection.Open installs one that unmarshals
	// the JSON payload into an InboundFrame.
	MessageHandler func(Client, Message)

	// EventHandler receives lifecycle events (EventConnect, EventClose) as
	// they fire. cable.Connection.Open installs one that advances its
	// finite-state machine and notifies Subscriptions.
	EventHandler func(Client, EventType)

	ClientFactory func() Client
)
