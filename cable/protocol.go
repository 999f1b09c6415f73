package cable

import "encoding/json"

// Subprotocol names negotiated during the WebSocket handshake.
const (
	ProtocolV1JSON      = "actioncable-v1-json"
	ProtocolUnsupported = "actioncable-unsupported"
)

// SupportedProtocols lists the subprotocols this client advertises, in
// preference order: the real wire protocol first, then the sentinel the
// server sends back when it cannot speak any protocol we offered.
var SupportedProtocols = []string{ProtocolV1JSON, ProtocolUnsupported}

// FrameType identifies the shape of an inbound control frame.
type FrameType string

const (
	FrameWelcome             FrameType = "welcome"
	FrameDisconnect          FrameType = "disconnect"
	FramePing                FrameType = "ping"
	FrameConfirmSubscription FrameType = "confirm_subscription"
	FrameRejectSubscription  FrameType = "reject_subscription"
)

// Disconnect reasons the server may report on a disconnect frame. Purely
// informational; the client's behavior is driven by the Reconnect field.
const (
	ReasonUnauthorized   = "unauthorized"
	ReasonInvalidRequest = "invalid_request"
	ReasonServerRestart  = "server_restart"
)

// Command names sent on the outbound control channel.
const (
	CommandSubscribe   = "subscribe"
	CommandUnsubscribe = "unsubscribe"
	CommandMessage     = "message"
)

// DefaultMountPath is used when no explicit URL is configured.
const DefaultMountPath = "/cable"

// InboundFrame is the full shape of a server -> client frame. Type is empty
// for application payloads, in which case Identifier/Message carry the data.
type InboundFrame struct {
	Type       FrameType       `json:"type,omitempty"`
	Identifier string          `json:"identifier,omitempty"`
	Message    json.RawMessage `json:"message,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	Reconnect  bool            `json:"reconnect,omitempty"`
}

// IsApplicationPayload reports whether this frame carries an application
// message rather than a recognized control type.
func (f InboundFrame) IsApplicationPayload() bool {
	switch f.Type {
	case FrameWelcome, FrameDisconnect, FramePing, FrameConfirmSubscription, FrameRejectSubscription:
		return false
	default:
		return true
	}
}

// OutboundFrame is the full shape of a client -> server frame. Data, when
// present, is itself a JSON-encoded string: the server expects the command
// payload double-encoded.
type OutboundFrame struct {
	Command    string  `json:"command"`
	Identifier string  `json:"identifier"`
	Data       *string `json:"data,omitempty"`
}

// NewSubscribeFrame builds the control frame sent to register interest in identifier.
func NewSubscribeFrame(identifier string) OutboundFrame {
	return OutboundFrame{Command: CommandSubscribe, Identifier: identifier}
}

// NewUnsubscribeFrame builds the control frame sent to drop interest in identifier.
func NewUnsubscribeFrame(identifier string) OutboundFrame {
	return OutboundFrame{Command: CommandUnsubscribe, Identifier: identifier}
}

// NewMessageFrame builds an application frame, double-JSON-encoding data per
// the wire protocol's Data field contract.
func NewMessageFrame(identifier string, data any) (OutboundFrame, error) {
	bts, err := json.Marshal(data)
	if err != nil {
		return OutboundFrame{}, err
	}
	s := string(bts)
	return OutboundFrame{Command: CommandMessage, Identifier: identifier, Data: &s}, nil
}
