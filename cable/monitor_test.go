package cable

import (
	"io"
	"testing"
	"time"

	"github.com/sonirico/cablekit"
	"github.com/stretchr/testify/assert"
)

func testMonitor(t *testing.T) (*ConnectionMonitor, *Connection) {
	t.Helper()
	consumer := NewConsumer(StaticURL("wss://example.test/cable"), cablekit.NewTestLogger(io.Discard), ConsumerOptions{})
	conn := consumer.Connection()
	return conn.monitor, conn
}

func TestGetPollInterval_ClampsToMin(t *testing.T) {
	// ln(0+1) = 0, so the raw value clamps to pollIntervalMin regardless of multiplier.
	assert.Equal(t, pollIntervalMin, getPollInterval(0))
}

func TestGetPollInterval_ClampsToMax(t *testing.T) {
	assert.Equal(t, pollIntervalMax, getPollInterval(1_000_000))
}

func TestGetPollInterval_Monotonic(t *testing.T) {
	prev := getPollInterval(0)
	for attempts := 1; attempts < 50; attempts++ {
		cur := getPollInterval(attempts)
		assert.GreaterOrEqual(t, cur, prev, "poll interval must never shrink as attempts grow")
		prev = cur
	}
}

func TestConnectionMonitor_RecordConnectResetsAttempts(t *testing.T) {
	m, _ := testMonitor(t)

	m.mu.Lock()
	m.reconnectAttempts = 7
	m.mu.Unlock()

	m.RecordConnect()

	assert.Equal(t, 0, m.ReconnectAttempts())
}

func TestConnectionMonitor_IsStale(t *testing.T) {
	m, _ := testMonitor(t)

	now := time.Now()
	m.mu.Lock()
	m.startedAt = &now
	m.mu.Unlock()

	assert.False(t, m.isStale(now.Add(time.Second)))
	assert.True(t, m.isStale(now.Add(staleThreshold+time.Second)))
}

func TestConnectionMonitor_IsStalePrefersLastPing(t *testing.T) {
	m, _ := testMonitor(t)

	started := time.Now().Add(-time.Hour)
	pinged := time.Now()
	m.mu.Lock()
	m.startedAt = &started
	m.pingedAt = &pinged
	m.mu.Unlock()

	// Despite startedAt being an hour old, a recent ping means not stale.
	assert.False(t, m.isStale(pinged.Add(time.Second)))
}

func TestConnectionMonitor_StartStopIdempotent(t *testing.T) {
	m, _ := testMonitor(t)

	m.Start()
	assert.True(t, m.IsRunning())
	m.Start() // second call is a no-op
	assert.True(t, m.IsRunning())

	m.Stop()
	assert.False(t, m.IsRunning())
	m.Stop() // second call is a no-op
	assert.False(t, m.IsRunning())
}

func TestConnectionMonitor_ReconnectIfStaleIncrementsAttempts(t *testing.T) {
	m, _ := testMonitor(t)

	started := time.Now().Add(-time.Hour)
	m.mu.Lock()
	m.startedAt = &started
	m.mu.Unlock()

	before := m.ReconnectAttempts()
	m.reconnectIfStale()
	assert.Equal(t, before+1, m.ReconnectAttempts())
}

func TestConnectionMonitor_ReconnectIfStaleSkipsDuringGracePeriod(t *testing.T) {
	m, conn := testMonitor(t)

	started := time.Now().Add(-time.Hour)
	disconnectedAt := time.Now()
	m.mu.Lock()
	m.startedAt = &started
	m.disconnectedAt = &disconnectedAt
	m.mu.Unlock()

	// disconnectedAt is recent (< staleThreshold ago): reconnectIfStale still
	// bumps the counter (policy still considers this cycle stale) but must not
	// race the connection's own pending reopen by calling conn.Reopen again.
	before := m.ReconnectAttempts()
	m.reconnectIfStale()
	assert.Equal(t, before+1, m.ReconnectAttempts())
	assert.False(t, conn.IsActive(), "a skipped cycle must not reopen the connection")
}

func TestConnectionMonitor_NotStaleWhenNeverStarted(t *testing.T) {
	m, _ := testMonitor(t)
	assert.False(t, m.isStale(time.Now()))
}

type fakeVisibilityNotifier struct {
	onVisible func()
}

func (f *fakeVisibilityNotifier) Subscribe(onVisible func()) func() {
	f.onVisible = onVisible
	return func() { f.onVisible = nil }
}

func TestConnectionMonitor_VisibilitySubscribeUnsubscribe(t *testing.T) {
	m, _ := testMonitor(t)
	vis := &fakeVisibilityNotifier{}
	m.WithVisibilityNotifier(vis)

	m.Start()
	assert.NotNil(t, vis.onVisible)

	m.Stop()
	assert.Nil(t, vis.onVisible)
}
