package rews

import "time"

// EventType identifies a lifecycle event raised by a Conn.
type EventType string

const (
	// EventOpen fires once per successful connection, before the queue drain.
	EventOpen EventType = "open"
	// EventMessage fires for every inbound data frame.
	EventMessage EventType = "message"
	// EventClose fires when the transport connection ends, for any reason.
	EventClose EventType = "close"
	// EventError fires for connect failures, send failures and transport errors.
	EventError EventType = "error"
	// EventReconnecting fires when a reconnect attempt has been scheduled,
	// before its timer elapses.
	EventReconnecting EventType = "reconnecting"
	// EventReconnectFailed fires once when the attempt cap is reached. The
	// connection stays usable for a manual Connect.
	EventReconnectFailed EventType = "reconnect_failed"
)

// Event is the payload delivered to listeners. The concrete type depends on
// the EventType: OpenEvent, MessageEvent, CloseEvent, ErrorEvent,
// ReconnectingEvent or ReconnectFailedEvent.
type Event any

// OpenEvent accompanies EventOpen.
type OpenEvent struct{}

// MessageEvent accompanies EventMessage. Decoded holds the opportunistically
// decoded payload: structured data for valid JSON text frames, the raw string
// for other text frames, and the raw bytes for binary frames. Raw is the
// message exactly as the transport delivered it.
type MessageEvent struct {
	Decoded any
	Raw     Message
}

// CloseEvent accompanies EventClose and is also handed to the
// ShouldReconnect predicate.
type CloseEvent struct {
	Code     int
	Reason   string
	WasClean bool
}

// ErrorEvent accompanies EventError.
type ErrorEvent struct {
	Err error
}

// ReconnectingEvent accompanies EventReconnecting.
type ReconnectingEvent struct {
	// Attempt is the 1-based attempt number since the last successful open.
	Attempt int
	// Interval is the delay until the attempt runs.
	Interval time.Duration
}

// ReconnectFailedEvent accompanies EventReconnectFailed.
type ReconnectFailedEvent struct {
	// Attempts is the total number of attempts made before giving up.
	Attempts int
}
