package cable

import (
	"context"
	"encoding/json"
	"sync"
)

// notifyKind tags which Subscription callback a Notify call targets, modeling
// the spec's polymorphic notify(target, callbackName, ...args) as a small
// closed enum instead of dynamic method lookup.
type notifyKind string

const (
	notifyInitialized  notifyKind = "initialized"
	notifyConnected    notifyKind = "connected"
	notifyDisconnected notifyKind = "disconnected"
	notifyRejected     notifyKind = "rejected"
	notifyReceived     notifyKind = "received"
)

// Subscriptions is the multiplexing registry: it owns the list of tracked
// Subscription values, drives the subscribe/unsubscribe control commands, and
// fans out lifecycle callbacks. One registry exists per Consumer.
type Subscriptions struct {
	consumer *Consumer

	mu   sync.Mutex
	subs []*Subscription
}

func newSubscriptions(consumer *Consumer) *Subscriptions {
	return &Subscriptions{consumer: consumer}
}

// Create builds a Subscription for the bare channel name (sugar for
// CreateWithParams(Params{"channel": channelName}, callbacks)).
func (r *Subscriptions) Create(channelName string, callbacks Callbacks) (*Subscription, error) {
	return r.CreateWithParams(channelParams(channelName), callbacks)
}

// CreateWithParams builds a Subscription addressed by an arbitrary params
// object, registers it, and returns it. Duplicate params are permitted: two
// calls with equal params produce two tracked Subscriptions sharing one
// Identifier, and both receive every callback fired against that identifier.
func (r *Subscriptions) CreateWithParams(params Params, callbacks Callbacks) (*Subscription, error) {
	id, err := NewIdentifier(params)
	if err != nil {
		return nil, err
	}

	sub := &Subscription{
		consumer:   r.consumer,
		identifier: id,
		params:     params,
		callbacks:  callbacks,
	}

	r.add(sub)

	return sub, nil
}

func (r *Subscriptions) add(sub *Subscription) {
	r.mu.Lock()
	r.subs = append(r.subs, sub)
	r.mu.Unlock()

	r.consumer.EnsureActiveConnection(context.Background())
	r.notifyOne(sub, notifyInitialized)
	r.SendCommand(sub, CommandSubscribe)
}

// Remove drops sub from the registry. An "unsubscribe" command is sent only
// if no other tracked subscription still shares sub's identifier (the
// server tracks identifiers, not client-side duplicates).
func (r *Subscriptions) Remove(sub *Subscription) {
	r.mu.Lock()
	idx := -1
	for i, s := range r.subs {
		if s == sub {
			idx = i
			break
		}
	}
	if idx == -1 {
		r.mu.Unlock()
		return
	}
	r.subs = append(r.subs[:idx], r.subs[idx+1:]...)

	remaining := 0
	for _, s := range r.subs {
		if s.identifier == sub.identifier {
			remaining++
		}
	}
	r.mu.Unlock()

	if remaining == 0 {
		r.SendCommand(sub, CommandUnsubscribe)
	}
}

// Reject removes every subscription sharing identifier and fires "rejected"
// on each of them. Called when the server sends reject_subscription.
func (r *Subscriptions) Reject(identifier Identifier) {
	r.mu.Lock()
	var matched []*Subscription
	kept := make([]*Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		if s.identifier == identifier {
			matched = append(matched, s)
		} else {
			kept = append(kept, s)
		}
	}
	r.subs = kept
	r.mu.Unlock()

	for _, s := range matched {
		r.notifyOne(s, notifyRejected)
	}
}

// Reload re-sends "subscribe" for every tracked subscription, in insertion
// order. Called on welcome: this is how the client recovers from a reconnect.
func (r *Subscriptions) Reload() {
	for _, s := range r.snapshot() {
		r.SendCommand(s, CommandSubscribe)
	}
}

// SendCommand transmits {command, identifier} via the Consumer. A failed send
// (because the socket is closed) is not an error here: the next welcome's
// Reload makes it up.
func (r *Subscriptions) SendCommand(sub *Subscription, command string) bool {
	var frame OutboundFrame
	switch command {
	case CommandSubscribe:
		frame = NewSubscribeFrame(string(sub.identifier))
	case CommandUnsubscribe:
		frame = NewUnsubscribeFrame(string(sub.identifier))
	default:
		return false
	}
	return r.consumer.connection.Send(frame)
}

// NotifyByIdentifier resolves every subscription matching identifier and
// invokes the named callback on each, skipping any that left it nil.
func (r *Subscriptions) NotifyByIdentifier(identifier Identifier, kindName string, args ...any) {
	kind := notifyKind(kindName)

	r.mu.Lock()
	var matched []*Subscription
	for _, s := range r.subs {
		if s.identifier == identifier {
			matched = append(matched, s)
		}
	}
	r.mu.Unlock()

	for _, s := range matched {
		r.notifyOne(s, kind, args...)
	}
}

// NotifyAll invokes the named callback on every tracked subscription. The
// list is snapshotted before iterating so a callback that synchronously
// mutates the registry (create/remove) cannot corrupt this iteration.
func (r *Subscriptions) NotifyAll(kindName string, args ...any) {
	kind := notifyKind(kindName)
	for _, s := range r.snapshot() {
		r.notifyOne(s, kind, args...)
	}
}

func (r *Subscriptions) snapshot() []*Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Subscription, len(r.subs))
	copy(out, r.subs)
	return out
}

func (r *Subscriptions) notifyOne(sub *Subscription, kind notifyKind, args ...any) {
	cb := sub.callbacks
	switch kind {
	case notifyInitialized:
		if cb.Initialized != nil {
			cb.Initialized()
		}
	case notifyConnected:
		if cb.Connected != nil {
			cb.Connected()
		}
	case notifyDisconnected:
		if cb.Disconnected != nil {
			info, _ := firstArg[DisconnectedInfo](args)
			cb.Disconnected(info)
		}
	case notifyRejected:
		if cb.Rejected != nil {
			cb.Rejected()
		}
	case notifyReceived:
		if cb.Received != nil {
			msg, _ := firstArg[json.RawMessage](args)
			cb.Received(msg)
		}
	}
}

func firstArg[T any](args []any) (T, bool) {
	var zero T
	if len(args) == 0 {
		return zero, false
	}
	v, ok := args[0].(T)
	return v, ok
}
