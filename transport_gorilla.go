package rews

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/gorilla/websocket"
)

// gorillaTransport implements Transport over github.com/gorilla/websocket,
// for callers whose stack already standardizes on it. Interchangeable with
// the fasthttp-backed transport; the Conn never knows the difference.
type gorillaTransport struct {
	dialer *websocket.Dialer
	logger Logger
}

// NewGorillaTransport builds a Transport backed by gorilla/websocket. Both
// arguments are optional; nil selects the default dialer and a no-op logger.
func NewGorillaTransport(dialer *websocket.Dialer, logger Logger) Transport {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &gorillaTransport{
		dialer: dialer,
		logger: logger.WithField("transport", "gorilla"),
	}
}

func (t *gorillaTransport) Open(
	ctx context.Context,
	params OpenParams,
	cb TransportCallbacks,
) (TransportHandle, error) {
	h := &gorillaHandle{
		cb:           cb,
		logger:       t.logger,
		writeTimeout: params.WriteTimeout,
	}
	h.state.Store(int32(TransportConnecting))

	go h.dial(ctx, *t.dialer, params)

	return h, nil
}

type gorillaHandle struct {
	cb           TransportCallbacks
	logger       Logger
	conn         *websocket.Conn
	state        atomic.Int32
	writeTimeout time.Duration
	writeMu      sync.Mutex
	closeOnce    sync.Once
}

func (h *gorillaHandle) dial(ctx context.Context, dialer websocket.Dialer, params OpenParams) {
	if params.HandshakeTimeout > 0 {
		dialer.HandshakeTimeout = params.HandshakeTimeout
	}
	if len(params.Protocols) > 0 {
		dialer.Subprotocols = params.Protocols
	}

	conn, resp, err := dialer.DialContext(ctx, params.URL, params.Header)
	if err != nil {
		err = adaptDialError(resp, err)
		h.logger.Errorf("connection err to %s: %s", params.URL, err)
		h.emitError(err)
		h.emitClose(CloseAbnormalClosure, err.Error(), false)
		return
	}

	h.logger.Debugf("success opening connection to %s", params.URL)

	conn.SetPingHandler(func(appData string) error {
		h.logger.Debugf("<= [PING]")
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(appData),
			time.Now().Add(h.controlTimeout()),
		)
	})

	conn.SetPongHandler(func(string) error {
		h.logger.Debugf("<= [PONG]")
		return nil
	})

	h.conn = conn

	if !h.state.CompareAndSwap(int32(TransportConnecting), int32(TransportOpen)) {
		_ = conn.Close()
		h.emitClose(CloseGoingAway, "closed before open", true)
		return
	}

	if h.cb.OnOpen != nil {
		h.cb.OnOpen()
	}

	h.read(ctx, conn)
}

func (h *gorillaHandle) read(ctx context.Context, conn *websocket.Conn) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		messageType, bts, err := conn.ReadMessage()
		if err != nil {
			locallyClosed := TransportState(h.state.Load()) == TransportClosing
			_ = conn.Close()

			code, reason, clean := gorillaCloseInfo(err)
			if locallyClosed {
				h.emitClose(code, reason, true)
				return
			}
			if !clean {
				h.emitError(errors.Wrap(ErrConnectionClosed, err.Error()))
			}
			h.emitClose(code, reason, clean)
			return
		}

		if h.cb.OnMessage == nil {
			continue
		}

		switch messageType {
		case websocket.BinaryMessage:
			h.logger.Debugf("<= [BIN]")
			h.cb.OnMessage(NewBinaryMessage(bts))
		default:
			h.logger.Debugf("<= [DATA] %s", string(bts))
			h.cb.OnMessage(NewTextMessage(bts))
		}
	}
}

func (h *gorillaHandle) Send(m Message) error {
	if TransportState(h.state.Load()) != TransportOpen {
		return errors.Wrap(ErrConnectionClosed, "send on non-open transport")
	}

	switch m.Type() {
	case PingMessage:
		h.logger.Debugf("=> [PING]")
		return h.conn.WriteControl(websocket.PingMessage, m.Data(), time.Now().Add(h.controlTimeout()))
	case PongMessage:
		h.logger.Debugf("=> [PONG]")
		return h.conn.WriteControl(websocket.PongMessage, m.Data(), time.Now().Add(h.controlTimeout()))
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	if h.writeTimeout > 0 {
		_ = h.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	}

	if m.Type().IsBinary() {
		h.logger.Debugf("=> [BIN]")
		return h.conn.WriteMessage(websocket.BinaryMessage, m.Data())
	}

	h.logger.Debugf("=> [DATA] %s", m.Data())
	return h.conn.WriteMessage(websocket.TextMessage, m.Data())
}

func (h *gorillaHandle) Close(code int, reason string) error {
	if code == 0 {
		code = CloseNormalClosure
	}

	if h.state.CompareAndSwap(int32(TransportConnecting), int32(TransportClosed)) {
		return nil
	}
	if !h.state.CompareAndSwap(int32(TransportOpen), int32(TransportClosing)) {
		return nil
	}

	h.logger.Debugf("=> [CLOSE] %d %s", code, reason)

	_ = h.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(h.controlTimeout()),
	)
	return h.conn.Close()
}

func (h *gorillaHandle) State() TransportState {
	return TransportState(h.state.Load())
}

func (h *gorillaHandle) controlTimeout() time.Duration {
	if h.writeTimeout > 0 {
		return h.writeTimeout
	}
	return time.Second
}

func (h *gorillaHandle) emitError(err error) {
	if h.cb.OnError != nil {
		h.cb.OnError(err)
	}
}

func (h *gorillaHandle) emitClose(code int, reason string, wasClean bool) {
	h.closeOnce.Do(func() {
		h.state.Store(int32(TransportClosed))
		if h.cb.OnClose != nil {
			h.cb.OnClose(code, reason, wasClean)
		}
	})
}

func gorillaCloseInfo(err error) (code int, reason string, wasClean bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		clean := ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway
		return ce.Code, ce.Text, clean
	}
	return CloseAbnormalClosure, err.Error(), false
}
