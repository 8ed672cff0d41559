package rews

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterLoggerFields(t *testing.T) {
	var sb strings.Builder

	log := NewWriterLogger(&sb).WithField("transport", "fake")
	log.Infof("connected to %s", "ws://example.test")

	out := sb.String()
	require.Contains(t, out, "INFO")
	require.Contains(t, out, "transport=fake")
	require.Contains(t, out, "connected to ws://example.test")
}

func TestWriterLoggerWithFieldDoesNotMutateParent(t *testing.T) {
	var sb strings.Builder

	parent := NewWriterLogger(&sb)
	parent.WithField("a", 1).WithField("b", 2)

	parent.Errorf("boom")
	require.NotContains(t, sb.String(), "a=1")
}
