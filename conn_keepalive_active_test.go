package cablekit

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActiveKeepAlive_SendsPeriodicPings(t *testing.T) {
	var mu sync.Mutex
	var sent []Message

	inner := &mockConnectionHandler{
		ConnectFunc:   func(context.Context) error { return nil },
		SendFunc:      func(m Message) { mu.Lock(); sent = append(sent, m); mu.Unlock() },
		RecvFunc:      func(Message) {},
		CloseFunc:     func() {},
		CloseChanFunc: func() CloseChan { return make(CloseChan) },
		CloseErrFunc:  func() error { return nil },
	}

	h := newActiveKeepAliveConnectionHandler(
		NewTestLogger(io.Discard),
		inner,
		5*time.Millisecond,
		NewKeepAliveMessageFactory(PingMessage, func() []byte { return nil }),
	)

	require.NoError(t, h.Connect(context.Background()))
	defer h.Close()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(sent) >= 2
	}, time.Second, time.Millisecond, "expected at least two keep-alive pings to be sent")

	mu.Lock()
	assert.True(t, sent[0].Type().IsPing())
	mu.Unlock()
}

func TestActiveKeepAlive_ConnectIsOnce(t *testing.T) {
	var connectCalls int
	inner := &mockConnectionHandler{
		ConnectFunc:   func(context.Context) error { connectCalls++; return nil },
		SendFunc:      func(Message) {},
		RecvFunc:      func(Message) {},
		CloseFunc:     func() {},
		CloseChanFunc: func() CloseChan { return make(CloseChan) },
		CloseErrFunc:  func() error { return nil },
	}

	h := newActiveKeepAliveConnectionHandler(
		NewTestLogger(io.Discard),
		inner,
		time.Hour,
		NewKeepAliveMessageFactory(PingMessage, func() []byte { return nil }),
	)

	require.NoError(t, h.Connect(context.Background()))
	require.NoError(t, h.Connect(context.Background()))
	defer h.Close()

	assert.Equal(t, 1, connectCalls)
}
