package rews

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

// fakeTransport is a scripted Transport for tests. Every Open records a new
// fakeHandle; tests drive the connection by firing callbacks on it.
type fakeTransport struct {
	mu      sync.Mutex
	handles []*fakeHandle
	openErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{}
}

func (t *fakeTransport) Open(
	_ context.Context,
	params OpenParams,
	cb TransportCallbacks,
) (TransportHandle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.openErr != nil {
		return nil, t.openErr
	}

	h := &fakeHandle{params: params, cb: cb, state: TransportConnecting}
	t.handles = append(t.handles, h)
	return h, nil
}

func (t *fakeTransport) opened() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.handles)
}

func (t *fakeTransport) handle(i int) *fakeHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.handles) {
		return nil
	}
	return t.handles[i]
}

// fakeHandle records sends and exposes fireXxx drivers that invoke the
// engine's callbacks synchronously on the caller's goroutine.
type fakeHandle struct {
	mu       sync.Mutex
	params   OpenParams
	cb       TransportCallbacks
	state    TransportState
	sent     []Message
	sendHook func(m Message) error
	closed   bool
	code     int
	reason   string
}

func (h *fakeHandle) Send(m Message) error {
	h.mu.Lock()
	hook := h.sendHook
	h.mu.Unlock()

	if hook != nil {
		if err := hook(m); err != nil {
			return err
		}
	}

	h.mu.Lock()
	h.sent = append(h.sent, m)
	h.mu.Unlock()
	return nil
}

func (h *fakeHandle) Close(code int, reason string) error {
	h.mu.Lock()
	h.closed = true
	h.code = code
	h.reason = reason
	h.state = TransportClosed
	h.mu.Unlock()
	return nil
}

func (h *fakeHandle) State() TransportState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *fakeHandle) sentMessages() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Message, len(h.sent))
	copy(out, h.sent)
	return out
}

func (h *fakeHandle) fireOpen() {
	h.mu.Lock()
	h.state = TransportOpen
	h.mu.Unlock()
	h.cb.OnOpen()
}

func (h *fakeHandle) fireMessage(m Message) {
	h.cb.OnMessage(m)
}

func (h *fakeHandle) fireClose(code int, reason string, wasClean bool) {
	h.mu.Lock()
	h.state = TransportClosed
	h.mu.Unlock()
	h.cb.OnClose(code, reason, wasClean)
}

func (h *fakeHandle) fireError(err error) {
	h.cb.OnError(err)
}

// mockTransportHandle is a testify-backed TransportHandle for tests that only
// need expectation checking on the handle surface.
type mockTransportHandle struct {
	mock.Mock
}

func (m *mockTransportHandle) Send(msg Message) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *mockTransportHandle) Close(code int, reason string) error {
	args := m.Called(code, reason)
	return args.Error(0)
}

func (m *mockTransportHandle) State() TransportState {
	args := m.Called()
	return args.Get(0).(TransportState)
}
