package cablekit

import (
	"context"
	"sync"
)

// connHandler is the terminal ConnectionHandler: it owns the wire-level
// Connection, pumps inbound frames into handler, and writes outbound frames
// directly to the socket. Decorators (conn_keepalive.go's passive/active
// handlers) wrap this to add behavior; this type adds none.
type connHandler struct {
	client      Client
	connFactory ConnectionFactory
	conn        Connection
	handler     MessageHandler
	emitter     emitter[EventType, EventType]
	logger      Logger

	recv chan Message

	closeC       CloseChan
	closeOnce    sync.Once
	closeErr     error
	closeErrOnce sync.Once
}

func newConnHandler(
	logger Logger,
	client Client,
	connFactory ConnectionFactory,
	handler MessageHandler,
	emitter emitter[EventType, EventType],
) *connHandler {
	return &connHandler{
		client:      client,
		connFactory: connFactory,
		handler:     handler,
		emitter:     emitter,
		logger:      logger.WithField("type", "conn_handler_base"),
		recv:        make(chan Message, 32),
		closeC:      make(CloseChan),
	}
}

// NewBaseConnectionHandlerFactory returns a ConnectionHandlerFactory producing
// terminal connHandlers backed by the given wire-level ConnectionFactory.
func NewBaseConnectionHandlerFactory(
	logger Logger,
	connFactory ConnectionFactory,
) ConnectionHandlerFactory {
	return func(client Client, handler MessageHandler, emitter emitter[EventType, EventType]) ConnectionHandler {
		return newConnHandler(logger, client, connFactory, handler, emitter)
	}
}

func (h *connHandler) Connect(ctx context.Context) error {
	h.conn = h.connFactory(ctx, h.recv)

	if err := h.conn.Open(ctx); err != nil {
		h.logger.Errorf("cannot open connection: %s", err)
		return err
	}

	go h.run(ctx)
	go h.emitter.Emit(EventConnect, EventConnect)

	return nil
}

func (h *connHandler) run(ctx context.Context) {
	defer h.safeClose()

	closeChan := h.conn.CloseChan()

	for {
		select {
		case <-ctx.Done():
			h.setCloseErr(ErrTerminated)
			return
		case <-closeChan:
			h.setCloseErr(h.conn.CloseErr())
			go h.emitter.Emit(EventClose, EventClose)
			return
		case m := <-h.recv:
			h.handler(h.client, m)
		}
	}
}

// Send writes m directly to the wire. Errors are logged, not returned: the
// ConnectionHandler interface treats send failures as fire-and-forget, the
// same contract Connection.send has at the spec layer above.
func (h *connHandler) Send(m Message) {
	if err := h.conn.Write(m); err != nil {
		h.logger.Errorf("cannot write message: %s", err)
	}
}

// Recv is a no-op here: this handler is the bottom of the decorator chain,
// and by the time a control frame reaches it, every decorator above has
// already acted on it.
func (h *connHandler) Recv(Message) {}

func (h *connHandler) Close() {
	h.safeClose()
}

func (h *connHandler) CloseChan() CloseChan {
	return h.closeC
}

func (h *connHandler) CloseErr() error {
	return h.closeErr
}

func (h *connHandler) safeClose() {
	h.closeOnce.Do(func() {
		close(h.closeC)
		if h.conn != nil {
			h.conn.Close()
		}
	})
}

func (h *connHandler) setCloseErr(err error) {
	h.closeErrOnce.Do(func() {
		h.closeErr = err
	})
}
