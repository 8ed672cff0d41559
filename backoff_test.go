package rews

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoffSequence(t *testing.T) {
	b := newBackoff(time.Second, 30*time.Second, 2)

	expected := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second, // 32s clamped by the ceiling
		30 * time.Second,
	}

	for i, want := range expected {
		attempt, interval := b.next()
		require.Equal(t, i+1, attempt)
		require.Equal(t, want, interval)
	}
}

func TestBackoffIntervalIsNonDecreasing(t *testing.T) {
	b := newBackoff(250*time.Millisecond, 10*time.Second, 1.5)

	var previous time.Duration
	for i := 0; i < 20; i++ {
		_, interval := b.next()
		require.GreaterOrEqual(t, interval, previous)
		require.LessOrEqual(t, interval, 10*time.Second)
		previous = interval
	}
}

func TestBackoffResetRestartsFromBase(t *testing.T) {
	b := newBackoff(time.Second, 30*time.Second, 2)

	for i := 0; i < 4; i++ {
		b.next()
	}
	b.reset()

	attempt, interval := b.next()
	require.Equal(t, 1, attempt)
	require.Equal(t, time.Second, interval)
}

func TestBackoffExhaustion(t *testing.T) {
	b := newBackoff(time.Second, 30*time.Second, 2)

	require.False(t, b.exhausted(2))
	b.next()
	require.False(t, b.exhausted(2))
	b.next()
	require.True(t, b.exhausted(2))

	// Zero cap means unbounded.
	require.False(t, b.exhausted(0))
}
