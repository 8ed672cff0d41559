package rews

import (
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/fasthttp/websocket"
)

// fasthttpTransport implements Transport over github.com/fasthttp/websocket.
// It is the default transport.
type fasthttpTransport struct {
	dialer *websocket.Dialer
	logger Logger
}

// NewFasthttpTransport builds a Transport backed by fasthttp/websocket. Both
// arguments are optional; nil selects the default dialer and a no-op logger.
func NewFasthttpTransport(dialer *websocket.Dialer, logger Logger) Transport {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &fasthttpTransport{
		dialer: dialer,
		logger: logger.WithField("transport", "fasthttp"),
	}
}

// DefaultTransport is the transport a Conn uses when none is configured.
func DefaultTransport() Transport {
	return NewFasthttpTransport(nil, nil)
}

func (t *fasthttpTransport) Open(
	ctx context.Context,
	params OpenParams,
	cb TransportCallbacks,
) (TransportHandle, error) {
	h := &fasthttpHandle{
		cb:           cb,
		logger:       t.logger,
		writeTimeout: params.WriteTimeout,
	}
	h.state.Store(int32(TransportConnecting))

	// Dial failures surface through the callbacks, never synchronously.
	go h.dial(ctx, *t.dialer, params)

	return h, nil
}

type fasthttpHandle struct {
	cb           TransportCallbacks
	logger       Logger
	conn         *websocket.Conn
	state        atomic.Int32
	writeTimeout time.Duration
	writeMu      sync.Mutex
	closeOnce    sync.Once
}

func (h *fasthttpHandle) dial(ctx context.Context, dialer websocket.Dialer, params OpenParams) {
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

	// Override control message handlers to gain full control over 'control'
	// frames, as some servers rate-limit their reception as well.
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
		// Closed while the dial was in flight.
		_ = conn.Close()
		h.emitClose(CloseGoingAway, "closed before open", true)
		return
	}

	if h.cb.OnOpen != nil {
		h.cb.OnOpen()
	}

	h.read(ctx, conn)
}

func (h *fasthttpHandle) read(ctx context.Context, conn *websocket.Conn) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		messageType, bts, err := conn.ReadMessage()
		if err != nil {
			locallyClosed := TransportState(h.state.Load()) == TransportClosing
			_ = conn.Close()

			code, reason, clean := fasthttpCloseInfo(err)
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

func (h *fasthttpHandle) Send(m Message) error {
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

func (h *fasthttpHandle) Close(code int, reason string) error {
	if code == 0 {
		code = CloseNormalClosure
	}

	// Never opened: the in-flight dial observes the swap and cleans up.
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

func (h *fasthttpHandle) State() TransportState {
	return TransportState(h.state.Load())
}

func (h *fasthttpHandle) controlTimeout() time.Duration {
	if h.writeTimeout > 0 {
		return h.writeTimeout
	}
	return time.Second
}

func (h *fasthttpHandle) emitError(err error) {
	if h.cb.OnError != nil {
		h.cb.OnError(err)
	}
}

func (h *fasthttpHandle) emitClose(code int, reason string, wasClean bool) {
	h.closeOnce.Do(func() {
		h.state.Store(int32(TransportClosed))
		if h.cb.OnClose != nil {
			h.cb.OnClose(code, reason, wasClean)
		}
	})
}

func fasthttpCloseInfo(err error) (code int, reason string, wasClean bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		clean := ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway
		return ce.Code, ce.Text, clean
	}
	return CloseAbnormalClosure, err.Error(), false
}

// adaptDialError maps a failed handshake to the library's error taxonomy.
// HTTP-level rejections are checked first, then network errors.
func adaptDialError(resp *http.Response, err error) error {
	var msg string

	if resp != nil {
		if resp.Body != nil {
			if bts, rerr := io.ReadAll(resp.Body); rerr == nil {
				msg = string(bts)
			}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return errors.Wrap(ErrRateLimit, msg)
		}
	}

	return errors.Wrap(ErrCannotConnect, err.Error())
}
