package cablekit

import "github.com/pkg/errors"

// Sentinel errors surfaced through ConnectionHandler.CloseErr and wrapped by
// net_websocket.go's dial/read/write paths. Nothing in cable inspects which
// one it was: cable.ConnectionMonitor decides reopens from ping staleness
// alone, so this package does not carve out richer error types for
// individual causes.
var (
	ErrConnectionClosed = errors.New("connection has been closed")
	ErrCannotConnect    = errors.New("connection cannot be established")
	ErrTerminated       = errors.New("program exit")
	ErrRateLimit        = errors.New("rate limit exceeded")
)
