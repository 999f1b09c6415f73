package cable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sonirico/cablekit"
)

// reopenDelay is the fixed wait before Reopen schedules a fresh Open after an
// active socket has been asked to close.
const reopenDelay = 500 * time.Millisecond

type connState int

const (
	stateClosed connState = iota
	stateConnecting
	stateOpen
)

// wsProtocolReporter is satisfied by *cablekit.WsConnection; it lets Connection
// read back the subprotocol the server actually negotiated, a detail the
// generic cablekit.Connection interface does not surface.
type wsProtocolReporter interface {
	Subprotocol() string
}

// DisconnectedInfo is passed to the "disconnected" callback on every tracked
// subscription when the socket transitions from connected to not-connected.
type DisconnectedInfo struct {
	WillAttemptReconnect bool
}

// CloseOptions controls whether Connection.Close leaves the monitor running,
// i.e. whether a later reconnect attempt should still be made.
type CloseOptions struct {
	AllowReconnect bool
}

// Connection is the finite-state WebSocket wrapper: it owns a cablekit.Client,
// parses inbound frames, dispatches them to the owning Consumer's
// Subscriptions registry, and exposes a best-effort send primitive.
type Connection struct {
	consumer *Consumer
	logger   cablekit.Logger

	mu           sync.Mutex
	state        connState
	disconnected bool
	client       cablekit.Client
	wsConn       wsProtocolReporter

	generation uuid.UUID

	monitor *ConnectionMonitor
}

func newConnection(consumer *Consumer, logger cablekit.Logger) *Connection {
	c := &Connection{
		consumer:     consumer,
		logger:       logger.WithField("component", "connection"),
		disconnected: true,
		generation:   uuid.New(),
	}
	c.monitor = newConnectionMonitor(c, logger)
	return c
}

// IsOpen reports whether the socket has completed its handshake and is ready
// to send/receive.
func (c *Connection) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateOpen
}

// IsActive reports whether the socket is open or in the process of opening.
func (c *Connection) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateOpen || c.state == stateConnecting
}

// GetProtocol returns the negotiated subprotocol, or "" if no socket has
// completed a handshake yet.
func (c *Connection) GetProtocol() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wsConn == nil {
		return ""
	}
	return c.wsConn.Subprotocol()
}

// IsProtocolSupported reports whether the negotiated protocol is anything
// other than the explicit unsupported sentinel (and isn't empty, i.e. absent).
func IsProtocolSupported(protocol string) bool {
	return protocol != "" && protocol != ProtocolUnsupported
}

// Send serializes frame as JSON and transmits it if the socket is open.
// Returns false without raising if the socket is not currently open.
func (c *Connection) Send(frame OutboundFrame) bool {
	c.mu.Lock()
	client := c.client
	open := c.state == stateOpen
	c.mu.Unlock()

	if !open || client == nil {
		return false
	}

	bts, err := json.Marshal(frame)
	if err != nil {
		c.logger.Errorf("cannot marshal outbound frame: %s", err)
		return false
	}

	client.Send(cablekit.NewDataMessage(bts))
	return true
}

// Open constructs a new socket against the consumer's URL and installs
// handlers, returning false without effect if a socket is already active.
func (c *Connection) Open(ctx context.Context) bool {
	c.mu.Lock()
	if c.state == stateOpen || c.state == stateConnecting {
		c.mu.Unlock()
		c.logger.Infoln("open() called while already active, ignoring")
		return false
	}

	c.generation = uuid.New()
	gen := c.generation
	c.state = stateConnecting
	c.mu.Unlock()

	rawURL, err := c.consumer.ResolveURL(ctx)
	if err != nil {
		c.logger.Errorf("cannot resolve consumer url: %s", err)
		return false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		c.logger.Errorf("cannot parse consumer url %q: %s", rawURL, err)
		return false
	}

	dialer := &websocket.Dialer{Subprotocols: SupportedProtocols}
	header := http.Header{}

	paramsRepo := cablekit.NewOpenConnectionParamsRepo(
		c.logger,
		func(context.Context) (cablekit.OpenConnectionParams, error) {
			return cablekit.OpenConnectionParams{URL: *parsed, Header: header}, nil
		},
	)

	var wsConnPtr atomic.Value // holds *cablekit.WsConnection once constructed

	connFactory := func(_ context.Context, recv chan<- cablekit.Message) cablekit.Connection {
		wc := cablekit.NewWebsocketConnection(dialer, paramsRepo, c.logger, recv, cablekit.ErrorAdapters{})
		wsConnPtr.Store(wc)
		return wc
	}

	handlerFactory := cablekit.NewBaseConnectionHandlerFactory(c.logger, connFactory)
	handlerFactory = cablekit.NewPassiveKeepAliveConnectionHandlerFactory(
		handlerFactory,
		cablekit.KeepAliveHandlerReplyPingWithPong,
	)
	if interval := c.consumer.options.ActiveKeepAliveInterval; interval > 0 {
		handlerFactory = cablekit.NewActiveKeepAliveConnectionHandlerFactory(
			c.logger,
			handlerFactory,
			interval,
			cablekit.NewKeepAliveMessageFactory(cablekit.PingMessage, func() []byte { return nil }),
		)
	}

	messageHandler := func(_ cablekit.Client, m cablekit.Message) {
		c.handleMessage(gen, m)
	}
	eventHandler := func(_ cablekit.Client, evt cablekit.EventType) {
		var reporter wsProtocolReporter
		if v := wsConnPtr.Load(); v != nil {
			reporter = v.(*cablekit.WsConnection)
		}
		c.handleEvent(gen, evt, reporter)
	}

	client := cablekit.NewBasicClientFactory(handlerFactory, messageHandler, eventHandler)()

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()

	c.monitor.Start()

	go func() {
		if err := client.Open(ctx); err != nil {
			c.logger.Errorf("dial attempt failed: %s", err)
		}
	}()

	return true
}

// Close requests the underlying socket close. If allowReconnect is false the
// monitor is stopped first, so no further reopen attempts will be made.
func (c *Connection) Close(opts CloseOptions) {
	if !opts.AllowReconnect {
		c.monitor.Stop()
	}

	if !c.IsActive() {
		return
	}

	c.mu.Lock()
	client := c.client
	c.mu.Unlock()

	if client != nil {
		client.Close()
	}

	// basicClient.Close drops its event listeners before the socket goes
	// down, so its EventClose never reaches handleEvent; apply the close
	// transition here so state leaves open and subscriptions are notified.
	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()
	c.handleEvent(gen, cablekit.EventClose, nil)
}

// Reopen closes any active socket (swallowing any error, there being none to
// swallow in this transport) and always schedules Open after reopenDelay. If
// no socket is active, Open happens synchronously.
func (c *Connection) Reopen(ctx context.Context) {
	if c.IsActive() {
		c.Close(CloseOptions{AllowReconnect: true})
		time.AfterFunc(reopenDelay, func() {
			c.Open(context.Background())
		})
		return
	}

	c.Open(ctx)
}

func (c *Connection) generationStale(gen uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen != c.generation
}

func (c *Connection) handleEvent(gen uuid.UUID, evt cablekit.EventType, reporter wsProtocolReporter) {
	if c.generationStale(gen) {
		return
	}

	switch evt {
	case cablekit.EventConnect:
		c.mu.Lock()
		c.state = stateOpen
		c.disconnected = false
		c.wsConn = reporter
		c.mu.Unlock()

		if !IsProtocolSupported(c.GetProtocol()) {
			c.logger.Warnf("unsupported protocol negotiated: %q", c.GetProtocol())
			c.Close(CloseOptions{AllowReconnect: false})
		}
		// welcome, not this event, is what notifies subscriptions of "connected".
	case cablekit.EventClose:
		c.mu.Lock()
		alreadyDisconnected := c.disconnected
		c.disconnected = true
		c.state = stateClosed
		c.mu.Unlock()

		if alreadyDisconnected {
			return
		}

		c.monitor.RecordDisconnect()
		willReconnect := c.monitor.IsRunning()
		c.consumer.subscriptions.NotifyAll("disconnected", DisconnectedInfo{WillAttemptReconnect: willReconnect})
	}
}

func (c *Connection) handleMessage(gen uuid.UUID, m cablekit.Message) {
	if c.generationStale(gen) {
		return
	}

	if !IsProtocolSupported(c.GetProtocol()) {
		return
	}

	var frame InboundFrame
	if err := json.Unmarshal(m.Data(), &frame); err != nil {
		c.logger.Errorf("cannot parse inbound frame: %s", err)
		return
	}

	switch frame.Type {
	case FrameWelcome:
		c.monitor.RecordConnect()
		c.consumer.subscriptions.Reload()
	case FrameDisconnect:
		c.logger.Infof("server requested disconnect: reason=%s reconnect=%t", frame.Reason, frame.Reconnect)
		c.Close(CloseOptions{AllowReconnect: frame.Reconnect})
	case FramePing:
		c.monitor.RecordPing()
	case FrameConfirmSubscription:
		c.consumer.subscriptions.NotifyByIdentifier(Identifier(frame.Identifier), "connected")
	case FrameRejectSubscription:
		c.consumer.subscriptions.Reject(Identifier(frame.Identifier))
	default:
		c.consumer.subscriptions.NotifyByIdentifier(Identifier(frame.Identifier), "received", frame.Message)
	}
}
