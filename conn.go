package rews

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Conn is a reconnecting WebSocket connection. It owns one logical connection
// at a time, drives its lifecycle state, schedules reconnects with
// multiplicative backoff after unexpected closures, buffers outbound messages
// while disconnected and raises lifecycle events to registered listeners.
//
// The underlying transport handle may be replaced on every reconnect; the
// Conn itself persists, carrying the attempt counter and backoff interval
// forward until a successful open resets them.
type Conn struct {
	opts      Options
	transport Transport
	logger    Logger
	emitter   *EventEmitterCallback[EventType, Event]

	mu       sync.Mutex
	state    State
	handle   TransportHandle
	gen      uint64 // increments per handle; stale callbacks are dropped
	queue    *messageQueue
	draining bool
	backoff  *backoff

	// suppressReconnect marks the closure caused by Disconnect so its close
	// callback never schedules a reconnect. It only ever affects the one
	// closure that set it.
	suppressReconnect bool

	retryTimer *time.Timer
	retryGen   uint64

	// connectResult is the one-shot completion signal of the in-flight
	// Connect call. Resolved on open, rejected on the first error or close
	// while still connecting. Nil when no call is pending.
	connectResult chan error

	pingStop chan struct{}
}

// New validates the configuration and builds a Conn. The only synchronous
// failure mode is configuration validation; everything after construction is
// reported through the event surface. With AutomaticOpen set, connecting
// starts immediately in the background.
func New(opts Options) (*Conn, error) {
	o, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	c := &Conn{
		opts:      o,
		transport: o.Transport,
		logger:    o.Logger.WithField("url", o.URL),
		emitter:   NewEventEmitter[EventType, Event](),
		queue:     newMessageQueue(),
		backoff:   newBackoff(o.ReconnectInterval, o.MaxReconnectInterval, o.ReconnectDecay),
	}

	if o.AutomaticOpen {
		go func() {
			if err := c.Connect(context.Background()); err != nil {
				c.logger.Errorf("automatic open failed: %s", err)
			}
		}()
	}

	return c, nil
}

// On registers a listener for the given lifecycle event. Listeners run
// synchronously on the goroutine that raised the event and may call back into
// the Conn (Send during the open event queues behind the drain, in order).
func (c *Conn) On(event EventType, listener func(Event)) {
	c.emitter.On(event, listener)
}

// OnOpen registers a typed listener for EventOpen.
func (c *Conn) OnOpen(fn func(OpenEvent)) {
	c.On(EventOpen, func(ev Event) {
		if e, ok := ev.(OpenEvent); ok {
			fn(e)
		}
	})
}

// OnMessage registers a typed listener for EventMessage.
func (c *Conn) OnMessage(fn func(MessageEvent)) {
	c.On(EventMessage, func(ev Event) {
		if e, ok := ev.(MessageEvent); ok {
			fn(e)
		}
	})
}

// OnClose registers a typed listener for EventClose.
func (c *Conn) OnClose(fn func(CloseEvent)) {
	c.On(EventClose, func(ev Event) {
		if e, ok := ev.(CloseEvent); ok {
			fn(e)
		}
	})
}

// OnError registers a typed listener for EventError.
func (c *Conn) OnError(fn func(ErrorEvent)) {
	c.On(EventError, func(ev Event) {
		if e, ok := ev.(ErrorEvent); ok {
			fn(e)
		}
	})
}

// OnReconnecting registers a typed listener for EventReconnecting.
func (c *Conn) OnReconnecting(fn func(ReconnectingEvent)) {
	c.On(EventReconnecting, func(ev Event) {
		if e, ok := ev.(ReconnectingEvent); ok {
			fn(e)
		}
	})
}

// OnReconnectFailed registers a typed listener for EventReconnectFailed.
func (c *Conn) OnReconnectFailed(fn func(ReconnectFailedEvent)) {
	c.On(EventReconnectFailed, func(ev Event) {
		if e, ok := ev.(ReconnectFailedEvent); ok {
			fn(e)
		}
	})
}

// State reports the current lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// TransportState reports the readiness of the current handle, or
// TransportNoConnection when none exists.
func (c *Conn) TransportState() TransportState {
	c.mu.Lock()
	h := c.handle
	c.mu.Unlock()

	if h == nil {
		return TransportNoConnection
	}
	return h.State()
}

// URL returns the configured server URL.
func (c *Conn) URL() string {
	return c.opts.URL
}

// Connect establishes the connection and blocks until it is open or the
// attempt fails. When the state is already OPEN or CONNECTING it returns nil
// immediately rather than joining the in-flight attempt; events are the only
// channel for anything after that. A manual Connect cancels any pending
// reconnect timer but resets nothing else; counters reset only through a
// subsequent successful open.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()

	if c.state == StateOpen || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}

	c.cancelRetryLocked()
	c.suppressReconnect = false
	c.setStateLocked(StateConnecting)
	c.gen++
	gen := c.gen

	result := make(chan error, 1)
	c.connectResult = result

	cb := TransportCallbacks{
		OnOpen:    func() { c.handleOpen(gen) },
		OnMessage: func(m Message) { c.handleMessage(gen, m) },
		OnClose:   func(code int, reason string, clean bool) { c.handleClose(gen, code, reason, clean) },
		OnError:   func(err error) { c.handleError(gen, err) },
	}

	params := OpenParams{
		URL:              c.opts.URL,
		Protocols:        c.opts.Protocols,
		Header:           c.opts.Header,
		HandshakeTimeout: c.opts.HandshakeTimeout,
		WriteTimeout:     c.opts.WriteTimeout,
	}

	handle, err := c.transport.Open(ctx, params, cb)
	if err != nil {
		c.connectResult = nil
		c.setStateLocked(StateIdle)
		c.mu.Unlock()

		err = errors.Wrap(ErrCannotConnect, err.Error())
		c.emitError(err)
		return err
	}
	c.handle = handle
	c.mu.Unlock()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		c.Disconnect(CloseGoingAway, "context canceled")
		return ctx.Err()
	}
}

// Disconnect tears the connection down on purpose: it cancels any pending
// reconnect timer, marks the resulting closure as suppressed so it never
// schedules a reconnect, asks the transport to close with the given code and
// returns to IDLE synchronously without waiting for the close confirmation.
// Calling it when never connected is a safe no-op.
func (c *Conn) Disconnect(code int, reason string) {
	c.mu.Lock()

	c.cancelRetryLocked()
	c.stopPingerLocked()

	h := c.handle
	c.handle = nil
	c.draining = false
	if h != nil {
		c.suppressReconnect = true
	}

	result := c.connectResult
	c.connectResult = nil

	if c.state != StateIdle {
		c.setStateLocked(StateIdle)
	}
	c.mu.Unlock()

	if result != nil {
		result <- ErrTerminated
	}

	if h != nil {
		if err := h.Close(code, reason); err != nil {
			c.logger.Warnf("transport close failed: %s", err)
		}
	}
}

// Close is shorthand for Disconnect with normal-closure semantics.
func (c *Conn) Close() {
	c.Disconnect(CloseNormalClosure, "")
}

// Send delivers a message when OPEN, or buffers it otherwise. It returns nil
// when the transport accepted the payload, ErrQueued when the payload was
// buffered for the next open, and an ErrSendFailed-wrapped error when a live
// send was rejected; failed live sends are dropped, not re-queued, and also
// surface as an error event.
func (c *Conn) Send(m Message) error {
	c.mu.Lock()

	if c.state != StateOpen || c.draining {
		c.queue.push(m)
		pending := c.queue.len()
		c.mu.Unlock()

		c.logger.Debugf("buffered message, %d pending", pending)
		return ErrQueued
	}

	h := c.handle
	c.mu.Unlock()

	if err := h.Send(m); err != nil {
		err = errors.Wrap(ErrSendFailed, err.Error())
		c.emitError(err)
		return err
	}
	return nil
}

// SendText sends s as a text frame, subject to the same queueing rules as Send.
func (c *Conn) SendText(s string) error {
	return c.Send(NewTextMessage([]byte(s)))
}

// SendBinary sends data as a binary frame, subject to the same queueing rules
// as Send.
func (c *Conn) SendBinary(data []byte) error {
	return c.Send(NewBinaryMessage(data))
}

// SendJSON serializes v to text and sends it, subject to the same queueing
// rules as Send. Marshal failures are returned synchronously; nothing is
// queued on failure.
func (c *Conn) SendJSON(v any) error {
	m, err := NewJSONMessage(v)
	if err != nil {
		return err
	}
	return c.Send(m)
}

func (c *Conn) handleOpen(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.handle == nil {
		c.mu.Unlock()
		return
	}

	c.setStateLocked(StateOpen)
	c.backoff.reset()
	c.suppressReconnect = false
	c.cancelRetryLocked()
	c.draining = true

	result := c.connectResult
	c.connectResult = nil

	c.startPingerLocked(gen)
	c.mu.Unlock()

	if result != nil {
		result <- nil
	}

	c.emit(EventOpen, OpenEvent{})
	c.drain(gen)
}

// drain flushes the queue through the regular send path, front to back. Sends
// issued by listeners while the drain runs queue behind the already-buffered
// messages and are flushed by this same loop, so insertion order holds. A
// failed element is dropped with an error event and the drain continues.
func (c *Conn) drain(gen uint64) {
	for {
		c.mu.Lock()
		if gen != c.gen {
			// A newer connection owns the flag now.
			c.mu.Unlock()
			return
		}
		if c.state != StateOpen {
			c.draining = false
			c.mu.Unlock()
			return
		}

		m, ok := c.queue.pop()
		if !ok {
			c.draining = false
			c.mu.Unlock()
			return
		}

		h := c.handle
		c.mu.Unlock()

		if err := h.Send(m); err != nil {
			c.logger.Warnf("dropping buffered message: %s", err)
			c.emitError(errors.Wrap(ErrSendFailed, err.Error()))
		}
	}
}

func (c *Conn) handleMessage(gen uint64, m Message) {
	c.mu.Lock()
	// A close supersedes further message handling for the same handle.
	if gen != c.gen || c.handle == nil {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.emit(EventMessage, MessageEvent{
		Decoded: decodePayload(m),
		Raw:     m,
	})
}

func (c *Conn) handleError(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}

	var result chan error
	if c.state == StateConnecting && c.connectResult != nil {
		result = c.connectResult
		c.connectResult = nil
	}
	c.mu.Unlock()

	if result != nil {
		result <- errors.Wrap(ErrCannotConnect, err.Error())
	}

	// Errors while already OPEN do not change state by themselves; the
	// transport's close callback drives the state change.
	c.emit(EventError, ErrorEvent{Err: err})
}

func (c *Conn) handleClose(gen uint64, code int, reason string, wasClean bool) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}

	suppressed := c.suppressReconnect
	c.suppressReconnect = false

	if c.handle != nil {
		c.handle = nil
		c.draining = false
		c.stopPingerLocked()
		c.setStateLocked(StateClosed)
		c.setStateLocked(StateIdle)
	} else if !suppressed {
		// Duplicate or unknown close for this generation.
		c.mu.Unlock()
		return
	}

	result := c.connectResult
	c.connectResult = nil
	c.mu.Unlock()

	if result != nil {
		result <- errors.Wrapf(ErrCannotConnect, "closed while connecting: %d %s", code, reason)
	}

	info := CloseEvent{Code: code, Reason: reason, WasClean: wasClean}
	c.emit(EventClose, info)

	if !suppressed {
		c.maybeReconnect(info)
	}
}

// maybeReconnect evaluates the reconnect policy for one closure and, when
// warranted, schedules exactly one deferred connection attempt.
func (c *Conn) maybeReconnect(info CloseEvent) {
	if c.opts.DisableAutomaticReconnect {
		return
	}
	if c.opts.ShouldReconnect != nil && !c.opts.ShouldReconnect(info) {
		c.logger.Infof("closure %d not eligible for reconnection", info.Code)
		return
	}

	c.mu.Lock()
	if c.state != StateIdle {
		// A listener already called Connect; leave it alone.
		c.mu.Unlock()
		return
	}

	if c.backoff.exhausted(c.opts.MaxReconnectAttempts) {
		attempts := c.backoff.attempts
		c.mu.Unlock()

		c.logger.Warnf("giving up after %d reconnect attempts", attempts)
		c.emit(EventReconnectFailed, ReconnectFailedEvent{Attempts: attempts})
		return
	}

	attempt, interval := c.backoff.next()
	c.mu.Unlock()

	c.logger.Infof("reconnect attempt %d in %s", attempt, interval)
	c.emit(EventReconnecting, ReconnectingEvent{Attempt: attempt, Interval: interval})

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return
	}
	c.cancelRetryLocked()
	c.retryGen++
	rg := c.retryGen
	c.retryTimer = time.AfterFunc(interval, func() { c.retryConnect(rg) })
	c.mu.Unlock()
}

func (c *Conn) retryConnect(rg uint64) {
	c.mu.Lock()
	if rg != c.retryGen {
		c.mu.Unlock()
		return
	}
	c.retryTimer = nil
	c.mu.Unlock()

	// Failures surface through the event surface; Connect's error return is
	// already covered by the error events its failure paths emit.
	if err := c.Connect(context.Background()); err != nil {
		c.logger.Debugf("scheduled reconnect failed: %s", err)
	}
}

// cancelRetryLocked invalidates any outstanding reconnect timer. At most one
// timer exists at any time.
func (c *Conn) cancelRetryLocked() {
	c.retryGen++
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
}

func (c *Conn) setStateLocked(next State) {
	if c.state == next {
		return
	}
	c.logger.Debugf("state %s -> %s", c.state, next)
	c.state = next
}

func (c *Conn) startPingerLocked(gen uint64) {
	if c.opts.PingInterval <= 0 {
		return
	}

	stop := make(chan struct{})
	c.pingStop = stop
	go c.pingLoop(gen, stop)
}

func (c *Conn) stopPingerLocked() {
	if c.pingStop != nil {
		close(c.pingStop)
		c.pingStop = nil
	}
}

// pingLoop sends keep-alive pings at the configured interval while the
// connection stays open. It stops when the connection closes or reopens.
func (c *Conn) pingLoop(gen uint64, stop chan struct{}) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			h := c.handle
			current := gen == c.gen && c.state == StateOpen
			c.mu.Unlock()

			if !current || h == nil {
				return
			}
			if err := h.Send(NewPingMessage(nil)); err != nil {
				c.logger.Warnf("keep-alive ping failed: %s", err)
			}
		}
	}
}

func (c *Conn) emit(event EventType, ev Event) {
	c.emitter.Emit(event, ev)
}

func (c *Conn) emitError(err error) {
	c.emit(EventError, ErrorEvent{Err: err})
}
