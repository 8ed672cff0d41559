package rews

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	gorillaws "github.com/gorilla/websocket"
)

func newEchoServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	upgrader := gorillaws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testTransportEcho(t *testing.T, tr Transport) {
	t.Helper()

	_, wsURL := newEchoServer(t)

	opened := make(chan struct{}, 1)
	msgs := make(chan Message, 8)
	closed := make(chan bool, 1)

	cb := TransportCallbacks{
		OnOpen:    func() { opened <- struct{}{} },
		OnMessage: func(m Message) { msgs <- m },
		OnClose:   func(_ int, _ string, wasClean bool) { closed <- wasClean },
		OnError:   func(error) {},
	}

	h, err := tr.Open(context.Background(), OpenParams{
		URL:          wsURL,
		WriteTimeout: time.Second,
	}, cb)
	require.NoError(t, err)

	select {
	case <-opened:
	case <-time.After(5 * time.Second):
		t.Fatal("transport never opened")
	}
	require.Equal(t, TransportOpen, h.State())

	require.NoError(t, h.Send(NewTextMessage([]byte("echo me"))))

	select {
	case m := <-msgs:
		require.True(t, m.Type().IsText())
		require.Equal(t, "echo me", string(m.Data()))
	case <-time.After(5 * time.Second):
		t.Fatal("no echo received")
	}

	require.NoError(t, h.Send(NewBinaryMessage([]byte{0x01, 0x02})))

	select {
	case m := <-msgs:
		require.True(t, m.Type().IsBinary())
		require.Equal(t, []byte{0x01, 0x02}, m.Data())
	case <-time.After(5 * time.Second):
		t.Fatal("no binary echo received")
	}

	require.NoError(t, h.Close(CloseNormalClosure, "done"))

	select {
	case wasClean := <-closed:
		require.True(t, wasClean)
	case <-time.After(5 * time.Second):
		t.Fatal("close never reported")
	}
	require.Equal(t, TransportClosed, h.State())
}

func testTransportDialFailure(t *testing.T, tr Transport) {
	t.Helper()

	errs := make(chan error, 1)
	closed := make(chan bool, 1)

	cb := TransportCallbacks{
		OnError: func(err error) { errs <- err },
		OnClose: func(_ int, _ string, wasClean bool) { closed <- wasClean },
	}

	// Port 1 has no listener; the failure must arrive through the
	// callbacks, never as a synchronous error from Open.
	h, err := tr.Open(context.Background(), OpenParams{
		URL:              "ws://127.0.0.1:1",
		HandshakeTimeout: time.Second,
	}, cb)
	require.NoError(t, err)

	select {
	case err := <-errs:
		require.ErrorIs(t, err, ErrCannotConnect)
	case <-time.After(5 * time.Second):
		t.Fatal("dial failure never reported")
	}

	select {
	case wasClean := <-closed:
		require.False(t, wasClean)
	case <-time.After(5 * time.Second):
		t.Fatal("close never reported")
	}
	require.Equal(t, TransportClosed, h.State())
}

func TestFasthttpTransportEcho(t *testing.T) {
	testTransportEcho(t, NewFasthttpTransport(nil, nil))
}

func TestGorillaTransportEcho(t *testing.T) {
	testTransportEcho(t, NewGorillaTransport(nil, nil))
}

func TestFasthttpTransportDialFailure(t *testing.T) {
	testTransportDialFailure(t, NewFasthttpTransport(nil, nil))
}

func TestGorillaTransportDialFailure(t *testing.T) {
	testTransportDialFailure(t, NewGorillaTransport(nil, nil))
}

func TestConnOverRealTransport(t *testing.T) {
	_, wsURL := newEchoServer(t)

	c, err := New(Options{
		URL:                       wsURL,
		Transport:                 NewGorillaTransport(nil, nil),
		DisableAutomaticReconnect: true,
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	echoes := make(chan MessageEvent, 8)
	c.OnMessage(func(ev MessageEvent) { echoes <- ev })

	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.SendJSON(map[string]string{"type": "x"}))

	select {
	case ev := <-echoes:
		decoded, ok := ev.Decoded.(map[string]any)
		require.True(t, ok)
		require.Equal(t, "x", decoded["type"])
	case <-time.After(5 * time.Second):
		t.Fatal("no echo received")
	}
}
