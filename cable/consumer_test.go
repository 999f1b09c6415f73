package cable

import (
	"context"
	"io"
	"testing"

	"github.com/sonirico/cablekit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"already wss", "wss://example.test/cable", "wss://example.test/cable"},
		{"already ws", "ws://example.test/cable", "ws://example.test/cable"},
		{"https becomes wss", "https://example.test/cable", "wss://example.test/cable"},
		{"http becomes ws", "http://example.test/cable", "ws://example.test/cable"},
		{"bare path defaults to ws", "/cable", "ws:///cable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeURL(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestConsumer_ResolveURL_StaticSource(t *testing.T) {
	c := NewConsumer(StaticURL("https://example.test/cable"), cablekit.NewTestLogger(io.Discard), ConsumerOptions{})
	got, err := c.ResolveURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wss://example.test/cable", got)
}

func TestConsumer_ResolveURL_DynamicSource(t *testing.T) {
	calls := 0
	source := DynamicURL(func() string {
		calls++
		return "wss://rotated.test/cable"
	})
	c := NewConsumer(source, cablekit.NewTestLogger(io.Discard), ConsumerOptions{})

	got, err := c.ResolveURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wss://rotated.test/cable", got)

	_, _ = c.ResolveURL(context.Background())
	assert.Equal(t, 2, calls, "a dynamic source must be re-resolved on every call")
}

func TestConsumer_ResolveURL_FallsBackToConfig(t *testing.T) {
	config := cablekit.MetaConfig{"url": "https://configured.test/cable"}
	c := NewConsumerFromConfig(StaticURL(""), config, cablekit.NewTestLogger(io.Discard), ConsumerOptions{})

	got, err := c.ResolveURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wss://configured.test/cable", got)
}

func TestConsumer_ResolveURL_FallsBackToDefaultMountPath(t *testing.T) {
	c := NewConsumer(StaticURL(""), cablekit.NewTestLogger(io.Discard), ConsumerOptions{})
	got, err := c.ResolveURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ws:///cable", got)
}
