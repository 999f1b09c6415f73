package cablekit

import "context"

// mockConnectionHandler is the ConnectionHandler double used by this
// package's keep-alive decorator tests (conn_keepalive_passive_test.go,
// conn_keepalive_active_test.go) to observe Send/Recv calls without a real
// socket underneath.
type mockConnectionHandler struct {
	ConnectFunc   func(ctx context.Context) error
	CloseFunc     func()
	SendFunc      func(m Message)
	RecvFunc      func(m Message)
	CloseChanFunc func() CloseChan
	CloseErrFunc  func() error
}

func (m *mockConnectionHandler) Connect(ctx context.Context) error {
	return m.ConnectFunc(ctx)
}

func (m *mockConnectionHandler) Close() {
	m.CloseFunc()
}

func (m *mockConnectionHandler) Send(msg Message) {
	m.SendFunc(msg)
}

func (m *mockConnectionHandler) Recv(msg Message) {
	m.RecvFunc(msg)
}

func (m *mockConnectionHandler) CloseChan() CloseChan {
	return m.CloseChanFunc()
}

func (m *mockConnectionHandler) CloseErr() error {
	return m.CloseErrFunc()
}
