package cable

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sonirico/cablekit"
)

var wsSchemeRE = regexp.MustCompile(`(?i)^wss?:`)

// URLSource is the sum type backing Consumer's url property: either a
// static string, or a zero-arg function re-resolved on every access (so an
// application can rotate hosts, append a fresh auth token, etc).
type URLSource struct {
	static  string
	factory func() string
}

// StaticURL wraps a fixed URL string.
func StaticURL(u string) URLSource { return URLSource{static: u} }

// DynamicURL wraps a factory invoked on every Consumer.ResolveURL call.
func DynamicURL(f func() string) URLSource { return URLSource{factory: f} }

func (u URLSource) resolve() string {
	if u.factory != nil {
		return u.factory()
	}
	return u.static
}

// NormalizeURL rewrites a bare http(s) URL to its ws(s) equivalent, the
// native-Go stand-in for the browser helper that resolves a relative URL
// against the current document location and flips its scheme. It is
// Consumer's default URLNormalizer; set ConsumerOptions.URLNormalizer to
// replace it entirely (e.g. to honor a reverse-proxy rewrite rule).
func NormalizeURL(raw string) (string, error) {
	if wsSchemeRE.MatchString(raw) {
		return raw, nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	switch strings.ToLower(parsed.Scheme) {
	case "https":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = "ws"
	}

	return parsed.String(), nil
}

// ConsumerOptions configures optional ambient behavior of a Consumer.
type ConsumerOptions struct {
	// ActiveKeepAliveInterval, if positive, wraps the dial-layer connection
	// handler so this client also sends WebSocket-level ping control frames
	// at this interval, independent of the ActionCable-level ping frames the
	// ConnectionMonitor watches.
	ActiveKeepAliveInterval time.Duration

	// URLNormalizer rewrites the resolved URL before it is dialed. If nil,
	// NormalizeURL is used.
	URLNormalizer func(string) (string, error)
}

// Consumer is the top-level client facade: it owns one Connection and one
// Subscriptions registry, and resolves the server URL lazily on each dial.
type Consumer struct {
	logger cablekit.Logger

	url     URLSource
	config  cablekit.ConfigLookup
	options ConsumerOptions

	connection    *Connection
	subscriptions *Subscriptions
}

// NewConsumer constructs a Consumer around the given URL source. logger may
// be nil, in which case a no-op test logger writing to io.Discard is used.
func NewConsumer(source URLSource, logger cablekit.Logger, opts ConsumerOptions) *Consumer {
	if logger == nil {
		logger = cablekit.NewTestLogger(discardWriter{})
	}

	c := &Consumer{
		logger:  logger.WithField("component", "consumer"),
		url:     source,
		options: opts,
	}
	c.connection = newConnection(c, logger)
	c.subscriptions = newSubscriptions(c)
	return c
}

// NewConsumerFromConfig mirrors createConsumer(url?): if source resolves to
// "", it falls back to config.Get(ctx, "url"), then to DefaultMountPath.
func NewConsumerFromConfig(source URLSource, config cablekit.ConfigLookup, logger cablekit.Logger, opts ConsumerOptions) *Consumer {
	c := NewConsumer(source, logger, opts)
	c.config = config
	return c
}

// ResolveURL resolves the current URL (calling the factory if dynamic) and
// normalizes it to a ws(s) URL, falling back to configured/default values
// exactly as the spec's Consumer.url property and factory do.
func (c *Consumer) ResolveURL(ctx context.Context) (string, error) {
	raw := c.url.resolve()

	if raw == "" && c.config != nil {
		if v, ok := c.config.Get(ctx, "url"); ok {
			raw = v
		}
	}

	if raw == "" {
		raw = DefaultMountPath
	}

	normalize := c.options.URLNormalizer
	if normalize == nil {
		normalize = NormalizeURL
	}
	return normalize(raw)
}

// Send transmits frame over the Connection.
func (c *Consumer) Send(frame OutboundFrame) bool {
	return c.connection.Send(frame)
}

// Connect opens the connection.
func (c *Consumer) Connect(ctx context.Context) bool {
	return c.connection.Open(ctx)
}

// Disconnect closes the connection and prevents any further reconnect.
func (c *Consumer) Disconnect() {
	c.connection.Close(CloseOptions{AllowReconnect: false})
}

// EnsureActiveConnection opens the connection if it is not already active.
func (c *Consumer) EnsureActiveConnection(ctx context.Context) bool {
	if !c.connection.IsActive() {
		return c.connection.Open(ctx)
	}
	return false
}

// Subscriptions returns the registry owned by this consumer.
func (c *Consumer) Subscriptions() *Subscriptions {
	return c.subscriptions
}

// Connection returns the connection owned by this consumer.
func (c *Consumer) Connection() *Connection {
	return c.connection
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
