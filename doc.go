// Package rews provides a reconnecting WebSocket connection: a small engine
// that wraps a raw transport with lifecycle state, automatic reconnection
// with multiplicative backoff, buffering of messages sent while disconnected
// and a uniform event surface.
//
// The engine is transport-agnostic. Two implementations ship with the
// package, one over fasthttp/websocket (the default) and one over
// gorilla/websocket; both sit behind the Transport interface and are
// selected once at construction.
//
//	c, err := rews.New(rews.Options{URL: "wss://example.com/stream"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	c.OnMessage(func(ev rews.MessageEvent) {
//		fmt.Println(ev.Decoded)
//	})
//	if err := c.Connect(context.Background()); err != nil {
//		log.Fatal(err)
//	}
//	_ = c.SendJSON(map[string]string{"type": "subscribe"})
//
// Sends issued while the connection is down return ErrQueued and are
// delivered, in order, right after the next successful open. Unexpected
// closures schedule a single reconnect attempt whose delay grows by
// ReconnectDecay up to MaxReconnectInterval; a successful open resets the
// counter and the delay. Disconnect tears the connection down without
// triggering a reconnect.
package rews
