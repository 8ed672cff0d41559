package rews

import "time"

// backoff computes the delay before each reconnect attempt. The first attempt
// waits the base interval; each subsequent attempt waits the previous interval
// multiplied by decay, bounded by the ceiling. A successful open resets it.
//
// Not safe for concurrent use by itself; the owning Conn serializes access.
type backoff struct {
	base    time.Duration
	ceiling time.Duration
	decay   float64

	attempts int
	interval time.Duration
}

func newBackoff(base, ceiling time.Duration, decay float64) *backoff {
	return &backoff{
		base:    base,
		ceiling: ceiling,
		decay:   decay,
	}
}

// next advances to the following attempt and returns its 1-based number
// together with the delay to wait before running it.
func (b *backoff) next() (attempt int, interval time.Duration) {
	b.attempts++

	if b.attempts == 1 {
		b.interval = b.base
	} else {
		grown := time.Duration(float64(b.interval) * b.decay)
		if grown > b.ceiling {
			grown = b.ceiling
		}
		b.interval = grown
	}

	return b.attempts, b.interval
}

// exhausted reports whether the attempt cap has been reached. A cap of zero
// means unbounded.
func (b *backoff) exhausted(maxAttempts int) bool {
	return maxAttempts > 0 && b.attempts >= maxAttempts
}

// reset returns the calculator to its initial state after a successful open.
func (b *backoff) reset() {
	b.attempts = 0
	b.interval = 0
}
