package rews

import (
	"github.com/pkg/errors"
)

var (
	// ErrMissingURL is returned by New when the configuration carries no URL.
	ErrMissingURL = errors.New("url is required")
	// ErrInvalidConfig is returned by New when a configured value is out of range.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrCannotConnect signals that a connection attempt failed before reaching OPEN.
	ErrCannotConnect = errors.New("connection cannot be established")
	// ErrConnectionClosed signals that the transport is no longer usable.
	ErrConnectionClosed = errors.New("connection has been closed")
	// ErrQueued is returned by Send when the payload was buffered instead of sent.
	// Queued payloads are delivered, in order, on the next successful open.
	ErrQueued = errors.New("message queued, not sent")
	// ErrSendFailed signals that the transport rejected a live send. The payload
	// is dropped, not re-queued.
	ErrSendFailed = errors.New("message could not be sent")
	// ErrRateLimit signals that the server rejected the handshake due to rate limiting.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrTerminated signals that the connection was closed on purpose from our side.
	ErrTerminated = errors.New("connection terminated by caller")
)
