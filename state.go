package rews

// State is the lifecycle state of a Conn. It replaces the flag juggling of
// ad-hoc clients (isConnecting and friends) with a single value.
type State int8

const (
	// StateIdle means no transport handle exists: never connected, fully
	// disconnected, or waiting for a scheduled reconnect.
	StateIdle State = iota
	// StateConnecting means a handle has been requested and the open
	// confirmation is pending.
	StateConnecting
	// StateOpen means the connection is usable; the queue drains here.
	StateOpen
	// StateClosing means teardown has started from our side.
	StateClosing
	// StateClosed is the transient state between a transport close and the
	// return to StateIdle.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
