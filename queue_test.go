package rews

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueueIsFIFO(t *testing.T) {
	q := newMessageQueue()

	q.push(NewTextMessage([]byte("a")))
	q.push(NewTextMessage([]byte("b")))
	q.push(NewBinaryMessage([]byte{0x01}))
	require.Equal(t, 3, q.len())

	m, ok := q.pop()
	require.True(t, ok)
	require.Equal(t, "a", string(m.Data()))

	q.push(NewTextMessage([]byte("c")))

	var rest []string
	for {
		m, ok := q.pop()
		if !ok {
			break
		}
		rest = append(rest, string(m.Data()))
	}
	require.Equal(t, []string{"b", "\x01", "c"}, rest)
	require.Equal(t, 0, q.len())
}

func TestQueuePopEmpty(t *testing.T) {
	q := newMessageQueue()

	m, ok := q.pop()
	require.False(t, ok)
	require.Nil(t, m)
}
