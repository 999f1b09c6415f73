package cablekit

import "context"

// Connection is the wire-level transport a ConnectionHandler dials: it knows
// how to open a socket, write a Message to it, and report why it closed.
// cable.Connection never talks to this directly, only ever seeing the
// decorator chain built on top of a ConnectionHandlerFactory, but every
// concrete Connection (net_websocket.go's WsConnection being the only one in
// this repo) implements this surface.
type (
	Connection interface {
		Write(m Message) error
		Open(ctx context.Context) error
		Close()
		CloseErr() error
		CloseChan() CloseChan
	}

	// ConnectionFactory builds a fresh Connection bound to recvChan; the
	// terminal ConnectionHandler (conn_base.go) calls this once per dial
	// attempt, so a new *WsConnection is born every time cable.Connection
	// reopens.
	ConnectionFactory func(ctx context.Context, recvChan chan<- Message) Connection
)

// emitter is the narrow slice of EventEmitterCallback a ConnectionHandler
// needs: it only ever emits, never subscribes, so decorators depend on this
// instead of the concrete type.
type emitter[K comparable, V any] interface {
	Emit(K, V)
}

// ConnectionHandler is one link in the decorator chain wrapped around a
// Connection: conn_base.go is the terminal link that owns the socket, and
// conn_keepalive.go's passive and active decorators wrap it to add
// WebSocket-level keepalive behavior without cable.Connection knowing either
// exists.
type ConnectionHandler interface {
	// Recv is called when a message from the server is received.
	Recv(m Message)

	// Send is called when a message needs to be sent to the server.
	Send(m Message)

	// Connect establishes a connection to the server. It returns once the
	// connection is open or the attempt has failed; inbound frames are then
	// pumped by a background goroutine.
	Connect(ctx context.Context) error

	// CloseChan returns a channel closed once the connection has closed.
	CloseChan() CloseChan

	// CloseErr explains why the connection closed, or nil if no reason has
	// been recorded.
	CloseErr() error

	// Close tears the connection down and releases its resources.
	Close()
}

// ConnectionHandlerFactory builds a ConnectionHandler bound to a Client (for
// the handler to hand itself to the handlerWrapper passed as msgHandler),
// the dispatching MessageHandler, and the lifecycle emitter. basicClient.Open
// calls this exactly once per Client, at the base of whatever decorator
// chain cable.Connection.Open assembled.
type ConnectionHandlerFactory func(Client, MessageHandler, emitter[EventType, EventType]) ConnectionHandler
