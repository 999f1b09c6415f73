package cablekit

import (
	"context"
	"sync"
	"time"
)

// Keep-alive is handled at two independent layers in this module. ActionCable
// itself sends a JSON "ping" frame (type:"ping") over the DataMessage
// channel, which cable.ConnectionMonitor watches for staleness: that is
// application-level and never touches a ConnectionHandler. The decorators in
// this file instead answer the WebSocket protocol's own ping/pong control
// frames, one layer below, which some ActionCable deployments also rely on
// to keep load balancers and proxies from reaping an idle TCP connection.

type (
	PingMessageFactory func(content []byte) Message

	PassiveKeepAliveHandler func(ch ConnectionHandler, m Message)
)

// passiveKeepAliveConnectionHandler replies to every WebSocket ping frame
// with a pong and then forwards every frame, ping included, unchanged to the
// inner handler. It is always wired
// into cable.Connection.Open's chain, directly above conn_base.go's
// terminal handler.
type passiveKeepAliveConnectionHandler struct {
	ConnectionHandler
	handler PassiveKeepAliveHandler
}

func (h *passiveKeepAliveConnectionHandler) Recv(m Message) {
	h.handler(h.ConnectionHandler, m)
	h.ConnectionHandler.Recv(m)
}

func newPassiveKeepAliveConnectionHandler(
	c ConnectionHandler,
	h PassiveKeepAliveHandler,
) *passiveKeepAliveConnectionHandler {
	return &passiveKeepAliveConnectionHandler{ConnectionHandler: c, handler: h}
}

// NewPassiveKeepAliveConnectionHandlerFactory wraps factory's output with a
// passiveKeepAliveConnectionHandler that applies handler to every inbound
// frame before forwarding it.
func NewPassiveKeepAliveConnectionHandlerFactory(
	factory ConnectionHandlerFactory,
	handler PassiveKeepAliveHandler,
) ConnectionHandlerFactory {
	return func(
		client Client,
		msgHandler MessageHandler,
		emitter emitter[EventType, EventType],
	) ConnectionHandler {
		return newPassiveKeepAliveConnectionHandler(factory(client, msgHandler, emitter), handler)
	}
}

func NewPingMessageFactory(pingType MessageType) PingMessageFactory {
	return func(data []byte) Message {
		return NewMessage(pingType, data)
	}
}

// KeepAliveHandlerReplyPingWithPong is the PassiveKeepAliveHandler
// cable.Connection.Open installs: on a WebSocket ping it sends a pong
// carrying the same payload, otherwise it does nothing.
func KeepAliveHandlerReplyPingWithPong(ch ConnectionHandler, m Message) {
	if m.Type() == PingMessage {
		ch.Send(NewPongMessage(m.Data()))
	}
}

// KeepAliveMessageFactory produces the outbound ping frame
// activeKeepAliveConnectionHandler sends on every tick.
type KeepAliveMessageFactory func() Message

// activeKeepAliveConnectionHandler sends a WebSocket ping frame on a fixed
// interval, independent of whatever the server sends. It is wired only when
// ConsumerOptions.ActiveKeepAliveInterval is positive: most ActionCable
// deployments rely solely on the server-driven ping, so this stays opt-in.
type activeKeepAliveConnectionHandler struct {
	ConnectionHandler
	pingInterval            time.Duration
	keepAliveMessageFactory KeepAliveMessageFactory
	logger                  Logger

	connectOnce sync.Once
	closeOnce   sync.Once
	closeC      chan struct{}
}

// Connect starts the inner handler once, then spawns the periodic-ping
// routine. Subsequent calls are no-ops.
func (h *activeKeepAliveConnectionHandler) Connect(ctx context.Context) (err error) {
	h.connectOnce.Do(func() {
		err = h.ConnectionHandler.Connect(ctx)
		go h.run(ctx)
	})
	return
}

// Close stops the periodic-ping routine and closes the inner handler. Only
// executes once.
func (h *activeKeepAliveConnectionHandler) Close() {
	h.closeOnce.Do(func() {
		h.ConnectionHandler.Close()
		close(h.closeC)
	})
}

func (h *activeKeepAliveConnectionHandler) run(ctx context.Context) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.ConnectionHandler.Send(h.keepAliveMessageFactory())
		case <-h.closeC:
			return
		}
	}
}

func newActiveKeepAliveConnectionHandler(
	logger Logger,
	ch ConnectionHandler,
	interval time.Duration,
	keepAliveMessageFactory KeepAliveMessageFactory,
) *activeKeepAliveConnectionHandler {
	return &activeKeepAliveConnectionHandler{
		ConnectionHandler:       ch,
		logger:                  logger,
		pingInterval:            interval,
		keepAliveMessageFactory: keepAliveMessageFactory,
		closeC:                  make(chan struct{}),
	}
}

// NewActiveKeepAliveConnectionHandlerFactory wraps factory's output with an
// activeKeepAliveConnectionHandler sending keepAliveMessageFactory's message
// every interval.
func NewActiveKeepAliveConnectionHandlerFactory(
	logger Logger,
	factory ConnectionHandlerFactory,
	interval time.Duration,
	keepAliveMessageFactory KeepAliveMessageFactory,
) ConnectionHandlerFactory {
	return func(client Client, handler MessageHandler, emitter emitter[EventType, EventType]) ConnectionHandler {
		return newActiveKeepAliveConnectionHandler(
			logger.WithField("subtype", "activeKeepAliveConnectionHandler"),
			factory(client, handler, emitter),
			interval,
			keepAliveMessageFactory,
		)
	}
}

// NewKeepAliveMessageFactory builds a KeepAliveMessageFactory sending a
// message of type mt whose content comes from contentFactory, evaluated on
// every call (so a caller can e.g. stamp a timestamp into the payload).
func NewKeepAliveMessageFactory(
	mt MessageType,
	contentFactory func() []byte,
) KeepAliveMessageFactory {
	return func() Message {
		return NewMessage(mt, contentFactory())
	}
}
