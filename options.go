package rews

import (
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

const (
	defaultReconnectInterval    = time.Second
	defaultMaxReconnectInterval = 30 * time.Second
	defaultReconnectDecay       = 1.5
	defaultWriteTimeout         = 5 * time.Second
)

// Options is the construction-time configuration of a Conn. It is captured as
// an immutable snapshot by New; later mutation of the caller's copy has no
// effect.
type Options struct {
	// URL of the server. Required; New fails with ErrMissingURL without it.
	URL string
	// Protocols are the subprotocols offered during the handshake. Optional.
	Protocols []string
	// Header carries extra handshake headers. Optional.
	Header http.Header

	// ReconnectInterval is the base delay before the first reconnect attempt.
	// Optional; default 1s.
	ReconnectInterval time.Duration
	// MaxReconnectInterval caps the growing delay. Optional; default 30s.
	MaxReconnectInterval time.Duration
	// ReconnectDecay is the multiplicative growth factor applied to the delay
	// after each failed attempt. Must be >= 1. Optional; default 1.5.
	ReconnectDecay float64
	// MaxReconnectAttempts caps automatic attempts since the last successful
	// open. Zero means unbounded. Optional.
	MaxReconnectAttempts int

	// AutomaticOpen makes New start connecting immediately, in the
	// background. Connect errors then surface through the event surface only.
	// Optional; default off so listeners can be registered first.
	AutomaticOpen bool
	// DisableAutomaticReconnect turns the reconnect scheduler off entirely.
	// Optional; reconnection is enabled by default.
	DisableAutomaticReconnect bool
	// ShouldReconnect decides, per closure, whether that closure warrants
	// reconnection. Optional; nil reconnects on every closure.
	ShouldReconnect func(CloseEvent) bool

	// PingInterval enables periodic ping frames while open. Optional;
	// default 0 (disabled).
	PingInterval time.Duration
	// WriteTimeout bounds each transport write. Optional; default 5s.
	WriteTimeout time.Duration
	// HandshakeTimeout bounds the dial. Optional; default is the dialer's.
	HandshakeTimeout time.Duration

	// Transport performs the real network I/O. Optional; default is the
	// fasthttp/websocket-backed transport.
	Transport Transport
	// Logger receives diagnostics. Optional; default discards everything.
	Logger Logger
}

func (o Options) withDefaults() (Options, error) {
	if o.URL == "" {
		return o, ErrMissingURL
	}
	if _, err := url.Parse(o.URL); err != nil {
		return o, errors.Wrapf(ErrInvalidConfig, "invalid url %q: %s", o.URL, err)
	}
	if o.ReconnectDecay != 0 && o.ReconnectDecay < 1 {
		return o, errors.Wrapf(ErrInvalidConfig, "reconnect decay %v must be >= 1", o.ReconnectDecay)
	}
	if o.MaxReconnectAttempts < 0 {
		return o, errors.Wrapf(ErrInvalidConfig, "max reconnect attempts %d must be >= 0", o.MaxReconnectAttempts)
	}

	if o.ReconnectInterval <= 0 {
		o.ReconnectInterval = defaultReconnectInterval
	}
	if o.MaxReconnectInterval <= 0 {
		o.MaxReconnectInterval = defaultMaxReconnectInterval
	}
	if o.MaxReconnectInterval < o.ReconnectInterval {
		o.MaxReconnectInterval = o.ReconnectInterval
	}
	if o.ReconnectDecay == 0 {
		o.ReconnectDecay = defaultReconnectDecay
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	if o.Transport == nil {
		o.Transport = DefaultTransport()
	}
	if o.Logger == nil {
		o.Logger = nopLogger{}
	}

	return o, nil
}
