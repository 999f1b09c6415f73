package cablekit

import (
	"context"
)

// basicClient is the Client cable.Connection.Open builds on every dial: it
// forwards DataMessage frames to messageHandler (cable.Connection's inbound
// frame dispatcher) and routes everything else (Ping, Pong, CloseError) down
// into the ConnectionHandler chain, where conn_keepalive.go's passive
// handler acts on it; none of it ever reaches cable.
type basicClient struct {
	// connectionHandlerFactory is a factory for creating new connection handlers
	connectionHandlerFactory ConnectionHandlerFactory
	// connectionHandler is the active connection messageHandler
	connectionHandler ConnectionHandler
	// messageHandler is a messageHandler for processing incoming messages
	messageHandler MessageHandler

	eventHandler func(Client, EventType)

	eventEmitter *EventEmitterCallback[EventType, EventType]
}

func (b *basicClient) createConnectionHandler(_ context.Context) {
	handlerWrapper := func(cli Client, m Message) {
		if m.Type().IsData() {
			b.messageHandler(cli, m)
		} else {
			b.connectionHandler.Recv(m)
		}
	}

	b.connectionHandler = b.connectionHandlerFactory(b, handlerWrapper, b.eventEmitter)
}

func (b *basicClient) Open(ctx context.Context) error {
	b.createConnectionHandler(ctx)

	b.eventEmitter.On(EventConnect, func(eventType EventType) {
		b.eventHandler(b, eventType)
	})

	b.eventEmitter.On(EventClose, func(eventType EventType) {
		b.eventHandler(b, eventType)
	})

	if err := b.connectionHandler.Connect(ctx); err != nil {
		return err
	}

	return nil
}

func (b *basicClient) Send(m Message) {
	b.connectionHandler.Send(m)
}

func (b *basicClient) Close() {
	if b.eventEmitter != nil {
		b.eventEmitter.Close()
	}
	if b.connectionHandler != nil {
		b.connectionHandler.Close()
	}
}

func (b *basicClient) CloseChan() CloseChan {
	return b.connectionHandler.CloseChan()
}

func newBasicClient(
	connHandlerFactory ConnectionHandlerFactory,
	messageHandler MessageHandler,
	eventHandler EventHandler,
) *basicClient {
	return &basicClient{
		messageHandler:           messageHandler,
		eventHandler:             eventHandler,
		connectionHandlerFactory: connHandlerFactory,
		eventEmitter:             NewEventEmitter[EventType, EventType](),
	}
}

func NewBasicClientFactory(
	connHandlerFactory ConnectionHandlerFactory,
	messageHandler MessageHandler,
	eventHandler EventHandler,
) ClientFactory {
	return func() Client {
		return newBasicClient(
			connHandlerFactory,
			messageHandler,
			eventHandler,
		)
	}
}
