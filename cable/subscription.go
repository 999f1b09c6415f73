package cable

import "encoding/json"

// Callbacks holds the optional application-supplied handlers for a
// Subscription. Every field is optional; Subscriptions' notify methods skip
// any callback left nil.
type Callbacks struct {
	Initialized  func()
	Connected    func()
	Disconnected func(info DisconnectedInfo)
	Rejected     func()
	Received     func(message json.RawMessage)
}

// Subscription is the application-facing handle for one channel
// subscription: identifier plus whatever callbacks the caller supplied.
// Duplicates are permitted by design: two Subscriptions with equal Params
// carry equal Identifiers and are both tracked independently.
type Subscription struct {
	consumer   *Consumer
	identifier Identifier
	params     Params
	callbacks  Callbacks
}

// Identifier returns the canonical wire-level identifier for this subscription.
func (s *Subscription) Identifier() Identifier {
	return s.identifier
}

// Perform sets data["action"] = action and sends it as an application message.
func (s *Subscription) Perform(action string, data map[string]any) bool {
	if data == nil {
		data = make(map[string]any, 1)
	}
	data["action"] = action
	return s.Send(data)
}

// Send asks the Consumer to transmit a "message" command carrying data,
// addressed to this subscription's identifier. Returns the Connection's send
// result: false if the socket is not currently open, never an error.
func (s *Subscription) Send(data any) bool {
	frame, err := NewMessageFrame(string(s.identifier), data)
	if err != nil {
		s.consumer.logger.Errorf("cannot build message frame: %s", err)
		return false
	}
	return s.consumer.connection.Send(frame)
}

// Unsubscribe removes this subscription from the registry, sending an
// "unsubscribe" command if no other tracked subscription shares its identifier.
func (s *Subscription) Unsubscribe() {
	s.consumer.subscriptions.Remove(s)
}
