package cable

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sonirico/cablekit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingClient is a cablekit.Client that records every sent Message.
type recordingClient struct{ sent []cablekit.Message }

func (r *recordingClient) Open(context.Context) error    { return nil }
func (r *recordingClient) Send(m cablekit.Message)       { r.sent = append(r.sent, m) }
func (r *recordingClient) Close()                        {}
func (r *recordingClient) CloseChan() cablekit.CloseChan { return nil }

// testRegistry builds a Subscriptions/Connection/Consumer trio wired together
// without ever dialing a socket: Connection.client stays nil, so Send always
// returns false harmlessly, exactly as it would against a closed consumer.
func testRegistry(t *testing.T) (*Consumer, *Subscriptions) {
	t.Helper()
	consumer := NewConsumer(StaticURL("wss://example.test/cable"), nil, ConsumerOptions{})
	return consumer, consumer.Subscriptions()
}

func mustIdentifier(t *testing.T, params Params) Identifier {
	t.Helper()
	id, err := NewIdentifier(params)
	require.NoError(t, err)
	return id
}

func TestSubscriptions_RemoveDedupesUnsubscribe(t *testing.T) {
	consumer, subs := testRegistry(t)

	id := mustIdentifier(t, channelParams("RoomChannel"))
	a := &Subscription{consumer: consumer, identifier: id, params: channelParams("RoomChannel")}
	b := &Subscription{consumer: consumer, identifier: id, params: channelParams("RoomChannel")}

	subs.mu.Lock()
	subs.subs = append(subs.subs, a, b)
	subs.mu.Unlock()

	sentFirst := subs.SendCommand(a, CommandUnsubscribe)
	assert.False(t, sentFirst, "Send over a never-opened connection always reports false")

	// From here on, record what reaches the wire.
	rec := &recordingClient{}
	consumer.connection.mu.Lock()
	consumer.connection.client = rec
	consumer.connection.state = stateOpen
	consumer.connection.mu.Unlock()

	// Removing the first of two subscriptions sharing an identifier must not
	// send "unsubscribe": the server still needs it for b.
	subs.Remove(a)
	subs.mu.Lock()
	remaining := len(subs.subs)
	subs.mu.Unlock()
	assert.Equal(t, 1, remaining)
	assert.Empty(t, rec.sent, "no unsubscribe while b still shares the identifier")

	// Removing the last subscription sharing the identifier sends exactly one
	// "unsubscribe" and empties the registry.
	subs.Remove(b)
	subs.mu.Lock()
	remaining = len(subs.subs)
	subs.mu.Unlock()
	assert.Equal(t, 0, remaining)
	require.Len(t, rec.sent, 1)
	var frame OutboundFrame
	require.NoError(t, json.Unmarshal(rec.sent[0].Data(), &frame))
	assert.Equal(t, NewUnsubscribeFrame(string(id)), frame)
}

func TestSubscriptions_Reject(t *testing.T) {
	consumer, subs := testRegistry(t)

	id := mustIdentifier(t, channelParams("RoomChannel"))
	otherID := mustIdentifier(t, channelParams("OtherChannel"))

	var rejected int
	a := &Subscription{consumer: consumer, identifier: id, callbacks: Callbacks{Rejected: func() { rejected++ }}}
	keep := &Subscription{consumer: consumer, identifier: otherID}

	subs.mu.Lock()
	subs.subs = append(subs.subs, a, keep)
	subs.mu.Unlock()

	subs.Reject(id)

	assert.Equal(t, 1, rejected)
	subs.mu.Lock()
	defer subs.mu.Unlock()
	require.Len(t, subs.subs, 1)
	assert.Equal(t, otherID, subs.subs[0].identifier)
}

func TestSubscriptions_NotifyAllIsReentrancySafe(t *testing.T) {
	consumer, subs := testRegistry(t)

	id := mustIdentifier(t, channelParams("RoomChannel"))

	var secondCreated bool
	first := &Subscription{
		consumer:   consumer,
		identifier: id,
		callbacks: Callbacks{
			Connected: func() {
				// Mutate the registry mid-iteration: NotifyAll must have
				// snapshotted the slice already, so this must not affect
				// the in-flight iteration nor panic/deadlock.
				subs.mu.Lock()
				subs.subs = append(subs.subs, &Subscription{consumer: consumer, identifier: id})
				subs.mu.Unlock()
				secondCreated = true
			},
		},
	}

	subs.mu.Lock()
	subs.subs = append(subs.subs, first)
	subs.mu.Unlock()

	subs.NotifyAll("connected")

	assert.True(t, secondCreated)
	subs.mu.Lock()
	defer subs.mu.Unlock()
	assert.Len(t, subs.subs, 2)
}

func TestSubscriptions_NotifyByIdentifierDisconnected(t *testing.T) {
	consumer, subs := testRegistry(t)
	id := mustIdentifier(t, channelParams("RoomChannel"))

	var gotInfo DisconnectedInfo
	sub := &Subscription{
		consumer:   consumer,
		identifier: id,
		callbacks: Callbacks{
			Disconnected: func(info DisconnectedInfo) { gotInfo = info },
		},
	}

	subs.mu.Lock()
	subs.subs = append(subs.subs, sub)
	subs.mu.Unlock()

	subs.NotifyByIdentifier(id, "disconnected", DisconnectedInfo{WillAttemptReconnect: true})

	assert.True(t, gotInfo.WillAttemptReconnect)
}

func TestSubscriptions_NotifyReceivedDecodesRawMessage(t *testing.T) {
	consumer, subs := testRegistry(t)
	id := mustIdentifier(t, channelParams("RoomChannel"))

	var got json.RawMessage
	sub := &Subscription{
		consumer:   consumer,
		identifier: id,
		callbacks: Callbacks{
			Received: func(m json.RawMessage) { got = m },
		},
	}

	subs.mu.Lock()
	subs.subs = append(subs.subs, sub)
	subs.mu.Unlock()

	subs.NotifyByIdentifier(id, "received", json.RawMessage(`{"x":1}`))

	assert.JSONEq(t, `{"x":1}`, string(got))
}

func TestFirstArg(t *testing.T) {
	v, ok := firstArg[int]([]any{42})
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = firstArg[int](nil)
	assert.False(t, ok)

	_, ok = firstArg[int]([]any{"not-an-int"})
	assert.False(t, ok)
}
