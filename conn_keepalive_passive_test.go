package cablekit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPassiveKeepAlive_RepliesPongToPing(t *testing.T) {
	var sent []Message
	inner := &mockConnectionHandler{
		SendFunc: func(m Message) { sent = append(sent, m) },
		RecvFunc: func(Message) {},
	}

	h := newPassiveKeepAliveConnectionHandler(inner, KeepAliveHandlerReplyPingWithPong)
	h.Recv(NewPingMessage([]byte("ping-data")))

	if assert.Len(t, sent, 1) {
		assert.True(t, sent[0].Type().IsPong())
		assert.Equal(t, []byte("ping-data"), sent[0].Data())
	}
}

func TestPassiveKeepAlive_ForwardsDataMessagesUnchanged(t *testing.T) {
	var forwarded []Message
	inner := &mockConnectionHandler{
		SendFunc: func(Message) {},
		RecvFunc: func(m Message) { forwarded = append(forwarded, m) },
	}

	h := newPassiveKeepAliveConnectionHandler(inner, KeepAliveHandlerReplyPingWithPong)
	h.Recv(NewDataMessage([]byte(`{"hello":"world"}`)))

	if assert.Len(t, forwarded, 1) {
		assert.True(t, forwarded[0].Type().IsData())
	}
}

func TestNewPingMessageFactory(t *testing.T) {
	factory := NewPingMessageFactory(PingMessage)
	m := factory([]byte("payload"))
	assert.True(t, m.Type().IsPing())
	assert.Equal(t, []byte("payload"), m.Data())
}
