package rews

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOptionsDefaults(t *testing.T) {
	o, err := Options{URL: "wss://example.test/stream"}.withDefaults()
	require.NoError(t, err)

	require.Equal(t, time.Second, o.ReconnectInterval)
	require.Equal(t, 30*time.Second, o.MaxReconnectInterval)
	require.Equal(t, 1.5, o.ReconnectDecay)
	require.Equal(t, 0, o.MaxReconnectAttempts)
	require.Equal(t, 5*time.Second, o.WriteTimeout)
	require.False(t, o.AutomaticOpen)
	require.False(t, o.DisableAutomaticReconnect)
	require.NotNil(t, o.Transport)
	require.NotNil(t, o.Logger)
}

func TestOptionsMissingURL(t *testing.T) {
	_, err := Options{}.withDefaults()
	require.ErrorIs(t, err, ErrMissingURL)
}

func TestOptionsInvalidDecay(t *testing.T) {
	_, err := Options{URL: "ws://example.test", ReconnectDecay: 0.5}.withDefaults()
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestOptionsNegativeMaxAttempts(t *testing.T) {
	_, err := Options{URL: "ws://example.test", MaxReconnectAttempts: -1}.withDefaults()
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestOptionsCeilingClampedToBase(t *testing.T) {
	o, err := Options{
		URL:                  "ws://example.test",
		ReconnectInterval:    10 * time.Second,
		MaxReconnectInterval: time.Second,
	}.withDefaults()
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, o.MaxReconnectInterval)
}
