package rews

import (
	"context"
	"net/http"
	"time"
)

// Close codes shared by every transport, per RFC 6455 section 7.4.
const (
	CloseNormalClosure    = 1000
	CloseGoingAway        = 1001
	CloseNoStatusReceived = 1005
	CloseAbnormalClosure  = 1006
)

// TransportState is the low-level readiness of one transport handle.
type TransportState int32

const (
	TransportConnecting TransportState = iota
	TransportOpen
	TransportClosing
	TransportClosed
)

// TransportNoConnection is the sentinel reported when no handle exists. It is
// distinct from all four handle states.
const TransportNoConnection TransportState = -1

func (s TransportState) String() string {
	switch s {
	case TransportNoConnection:
		return "no connection"
	case TransportConnecting:
		return "connecting"
	case TransportOpen:
		return "open"
	case TransportClosing:
		return "closing"
	case TransportClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type (
	// OpenParams carries everything a transport needs to establish one
	// connection.
	OpenParams struct {
		URL              string
		Protocols        []string
		Header           http.Header
		HandshakeTimeout time.Duration
		WriteTimeout     time.Duration
	}

	// TransportCallbacks receive the low-level events of one handle. A
	// transport delivers them sequentially from a single goroutine, never
	// synchronously from within Open, and fires OnClose at most once per
	// handle. Failures to establish the connection surface as OnError
	// followed by OnClose rather than as a synchronous error from Open.
	TransportCallbacks struct {
		OnOpen    func()
		OnMessage func(m Message)
		OnClose   func(code int, reason string, wasClean bool)
		OnError   func(err error)
	}

	// Transport is the capability that performs the real network I/O. Two
	// implementations ship with the library (fasthttp/websocket and
	// gorilla/websocket); the Conn is agnostic to which one it is given.
	Transport interface {
		Open(ctx context.Context, params OpenParams, cb TransportCallbacks) (TransportHandle, error)
	}

	// TransportHandle is one live connection, owned exclusively by the Conn
	// that opened it.
	TransportHandle interface {
		// Send writes one message. Ping and pong payloads go out as control
		// frames, binary payloads as binary frames, everything else as text.
		Send(m Message) error
		// Close tears the connection down with the given close code. It does
		// not wait for the peer's confirmation.
		Close(code int, reason string) error
		// State reports the handle's readiness.
		State() TransportState
	}
)

type noopTransport struct{}

type noopHandle struct{}

// NewNoopTransport returns a transport whose handles never open, never fail
// and accept every send. Useful for embedding tests.
func NewNoopTransport() Transport { return noopTransport{} }

func (noopTransport) Open(context.Context, OpenParams, TransportCallbacks) (TransportHandle, error) {
	return noopHandle{}, nil
}

func (noopHandle) Send(Message) error      { return nil }
func (noopHandle) Close(int, string) error { return nil }
func (noopHandle) State() TransportState   { return TransportConnecting }
