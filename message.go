package cablekit

import "fmt"

// MessageType distinguishes the ActionCable JSON envelope (DataMessage) from
// the WebSocket-level control frames this package's keep-alive decorators
// and net_websocket.go's wire Connection exchange beneath the protocol.
// cable.Connection only ever sees DataMessage: everything else is consumed
// by a ConnectionHandler before it reaches the dispatching MessageHandler.
type MessageType byte

const (
	PingMessage   MessageType = 9
	PongMessage   MessageType = 10
	BinaryMessage MessageType = 2
	DataMessage   MessageType = 1
	CloseError    MessageType = 8
)

func (t MessageType) Is(other MessageType) bool {
	return t == other
}

func (t MessageType) IsData() bool {
	return t.Is(DataMessage)
}

func (t MessageType) IsPing() bool {
	return t.Is(PingMessage)
}

func (t MessageType) IsPong() bool {
	return t.Is(PongMessage)
}

func (t MessageType) IsClose() bool {
	return t.Is(CloseError)
}

// Message is a single frame crossing the wire in either direction. Its Data
// is an opaque byte slice; for DataMessage frames that slice is the raw JSON
// a cable.Connection unmarshals into an InboundFrame, or marshals an
// OutboundFrame into before calling Client.Send.
type Message interface {
	Type() MessageType
	Data() []byte
	String() string
}

// ErrorMessage is a Message that also explains why it exists, used for the
// close frame a server or intermediary sends immediately before dropping
// the socket.
type ErrorMessage interface {
	Message
	Error() string
}

type message struct {
	MessageType MessageType
	MessageData []byte
}

func (m message) Type() MessageType {
	return m.MessageType
}

func (m message) Data() []byte {
	return m.MessageData
}

func (m message) String() string {
	return fmt.Sprintf("Message{type=%d,data=%s}",
		m.MessageType, m.MessageData)
}

type closeMessage struct {
	message
	Code int
}

func (m closeMessage) String() string {
	return fmt.Sprintf("Message{type=%d,code=%d,data=%s}",
		m.message.Type(), m.Code, m.message.Data())
}

func (m closeMessage) Error() string {
	return m.String()
}

func NewMessage(mt MessageType, data []byte) Message {
	return message{MessageType: mt, MessageData: data}
}

func NewDataMessage(data []byte) Message {
	return NewMessage(DataMessage, data)
}

func NewBinaryMessage(data []byte) Message {
	return NewMessage(BinaryMessage, data)
}

func NewPingMessage(data []byte) Message {
	return NewMessage(PingMessage, data)
}

func NewPongMessage(data []byte) Message {
	return NewMessage(PongMessage, data)
}

func NewCloseMessage(code int, data []byte) ErrorMessage {
	return closeMessage{
		message: message{MessageType: CloseError, MessageData: data},
		Code:    code,
	}
}
