package cable

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/sonirico/cablekit"
)

// Tuning constants for the liveness/reconnect state machine. These are
// implementation constants, not runtime-tunable, per the protocol this
// module implements.
const (
	staleThreshold = 6 * time.Second

	pollIntervalMin        = 3 * time.Second
	pollIntervalMax        = 30 * time.Second
	pollIntervalMultiplier = 5.0

	visibilityDebounce = 200 * time.Millisecond
)

// VisibilityNotifier is the external collaborator the monitor subscribes to
// for page/process-visibility transitions. Start/Stop subscribe and
// unsubscribe a listener invoked when the host becomes visible.
type VisibilityNotifier interface {
	Subscribe(onVisible func()) (unsubscribe func())
}

// ConnectionMonitor detects a stale or silently dropped socket and triggers a
// reopen, with a logarithmic poll backoff and visibility awareness.
type ConnectionMonitor struct {
	conn   *Connection
	logger cablekit.Logger

	visibility VisibilityNotifier

	mu                sync.Mutex
	reconnectAttempts int
	startedAt         *time.Time
	stoppedAt         *time.Time
	pingedAt          *time.Time
	disconnectedAt    *time.Time

	pollTimer       *time.Timer
	unsubVisibility func()
	visibilityTimer *time.Timer
}

func newConnectionMonitor(conn *Connection, logger cablekit.Logger) *ConnectionMonitor {
	return &ConnectionMonitor{
		conn:   conn,
		logger: logger.WithField("component", "connection_monitor"),
	}
}

// WithVisibilityNotifier attaches a VisibilityNotifier. Must be called before
// Start; a monitor with no notifier simply never reacts to visibility changes.
func (m *ConnectionMonitor) WithVisibilityNotifier(v VisibilityNotifier) *ConnectionMonitor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visibility = v
	return m
}

// IsRunning reports whether the monitor has been started and not since stopped.
func (m *ConnectionMonitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startedAt != nil && m.stoppedAt == nil
}

// Start is idempotent: if not already running, it records startedAt, begins
// polling, and subscribes to visibility notifications.
func (m *ConnectionMonitor) Start() {
	m.mu.Lock()
	if m.startedAt != nil && m.stoppedAt == nil {
		m.mu.Unlock()
		return
	}
	now := time.Now()
	m.startedAt = &now
	m.stoppedAt = nil
	visibility := m.visibility
	m.mu.Unlock()

	if visibility != nil {
		m.unsubVisibility = visibility.Subscribe(m.onVisible)
	}

	m.armPoll()
}

// Stop is idempotent: it records stoppedAt, cancels the poll timer, and
// unsubscribes from visibility notifications.
func (m *ConnectionMonitor) Stop() {
	m.mu.Lock()
	if m.startedAt == nil || m.stoppedAt != nil {
		m.mu.Unlock()
		return
	}
	now := time.Now()
	m.stoppedAt = &now
	timer := m.pollTimer
	m.pollTimer = nil
	visTimer := m.visibilityTimer
	m.visibilityTimer = nil
	unsub := m.unsubVisibility
	m.unsubVisibility = nil
	m.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if visTimer != nil {
		visTimer.Stop()
	}
	if unsub != nil {
		unsub()
	}
}

// RecordPing sets pingedAt = now. Called on every server ping frame.
func (m *ConnectionMonitor) RecordPing() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.pingedAt = &now
}

// RecordConnect resets reconnectAttempts to 0, sets pingedAt = now, and
// clears disconnectedAt. Called on welcome.
func (m *ConnectionMonitor) RecordConnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconnectAttempts = 0
	now := time.Now()
	m.pingedAt = &now
	m.disconnectedAt = nil
}

// RecordDisconnect sets disconnectedAt = now. Called on socket close.
func (m *ConnectionMonitor) RecordDisconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.disconnectedAt = &now
}

// ReconnectAttempts returns the current backoff attempt counter.
func (m *ConnectionMonitor) ReconnectAttempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnectAttempts
}

// isStale reports whether no ping has been seen within staleThreshold of
// either the last ping, or startedAt if no ping has ever arrived.
func (m *ConnectionMonitor) isStale(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isStaleLocked(now)
}

func (m *ConnectionMonitor) isStaleLocked(now time.Time) bool {
	anchor := m.startedAt
	if m.pingedAt != nil {
		anchor = m.pingedAt
	}
	if anchor == nil {
		return false
	}
	return now.Sub(*anchor) > staleThreshold
}

// getPollInterval computes the delay before the next staleness check:
// round(clamp(multiplier*ln(attempts+1), min, max) * 1000) ms.
func getPollInterval(reconnectAttempts int) time.Duration {
	raw := pollIntervalMultiplier * math.Log(float64(reconnectAttempts)+1)
	clamped := math.Max(pollIntervalMin.Seconds(), math.Min(pollIntervalMax.Seconds(), raw))
	return time.Duration(math.Round(clamped*1000)) * time.Millisecond
}

func (m *ConnectionMonitor) armPoll() {
	m.mu.Lock()
	if m.stoppedAt != nil {
		m.mu.Unlock()
		return
	}
	interval := getPollInterval(m.reconnectAttempts)
	m.mu.Unlock()

	timer := time.AfterFunc(interval, m.tick)

	m.mu.Lock()
	m.pollTimer = timer
	m.mu.Unlock()
}

func (m *ConnectionMonitor) tick() {
	m.reconnectIfStale()
	m.armPoll()
}

// reconnectIfStale is the poll-loop policy: do nothing if not stale;
// otherwise increment reconnectAttempts, and either skip this cycle (if the
// socket is already known-down and its own reopen is pending) or reopen.
func (m *ConnectionMonitor) reconnectIfStale() {
	now := time.Now()

	m.mu.Lock()
	if !m.isStaleLocked(now) {
		m.mu.Unlock()
		return
	}
	m.reconnectAttempts++

	skip := false
	if m.disconnectedAt != nil && now.Sub(*m.disconnectedAt) < staleThreshold {
		skip = true
	}
	m.mu.Unlock()

	if skip {
		return
	}

	m.conn.Reopen(context.Background())
}

func (m *ConnectionMonitor) onVisible() {
	m.mu.Lock()
	if t := m.visibilityTimer; t != nil {
		t.Stop()
	}
	m.visibilityTimer = time.AfterFunc(visibilityDebounce, m.afterVisibilityDebounce)
	m.mu.Unlock()
}

func (m *ConnectionMonitor) afterVisibilityDebounce() {
	if m.isStale(time.Now()) || !m.conn.IsOpen() {
		m.conn.Reopen(context.Background())
	}
}
