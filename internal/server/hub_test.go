package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/clawface/internal/bus"
)

func dialHub(t *testing.T, h *Hub) (*websocket.Conn, *httptest.Server) {
	t.Helper()
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		require.NoError(t, err)
		go h.serve(conn)
	}))
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	return conn, ts
}

func waitForClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", h.ClientCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	h := NewHub(zerolog.Nop())

	c1, ts := dialHub(t, h)
	defer ts.Close()
	defer c1.Close()
	c2, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer c2.Close()

	waitForClients(t, h, 2)
	h.Broadcast([]byte(`{"hello":1}`))

	for _, conn := range []*websocket.Conn{c1, c2} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.JSONEq(t, `{"hello":1}`, string(msg))
	}
}

func TestHub_DisconnectRemovesClient(t *testing.T) {
	h := NewHub(zerolog.Nop())

	conn, ts := dialHub(t, h)
	defer ts.Close()

	waitForClients(t, h, 1)
	require.NoError(t, conn.Close())
	waitForClients(t, h, 0)
}

func TestHub_SlowClientDropped(t *testing.T) {
	h := NewHub(zerolog.Nop())

	conn, ts := dialHub(t, h)
	defer ts.Close()
	defer conn.Close()
	waitForClients(t, h, 1)

	// Stop reading and overflow the send buffer; the payload is large so
	// kernel socket buffers cannot hide the backpressure. The hub must
	// shed the client instead of blocking the broadcast path.
	payload := bytes.Repeat([]byte("x"), 64*1024)
	for i := 0; i < 300 && h.ClientCount() > 0; i++ {
		h.Broadcast(payload)
	}
	waitForClients(t, h, 0)
}

func TestHub_PublishesClientLifecycle(t *testing.T) {
	h := NewHub(zerolog.Nop())
	events := bus.NewEventBus()
	h.SetEvents(events)

	got := make(chan bus.Event, 4)
	events.SubscribeMultiple([]bus.EventType{
		bus.EventTypeClientConnected,
		bus.EventTypeClientDisconnected,
	}, func(ev bus.Event) { got <- ev })

	conn, ts := dialHub(t, h)
	defer ts.Close()
	waitForClients(t, h, 1)

	select {
	case ev := <-got:
		assert.Equal(t, bus.EventTypeClientConnected, ev.Type)
		assert.Equal(t, 1, ev.Data["total"])
		assert.NotEmpty(t, ev.Data["client"])
	case <-time.After(2 * time.Second):
		t.Fatal("no connected event published")
	}

	require.NoError(t, conn.Close())
	waitForClients(t, h, 0)

	select {
	case ev := <-got:
		assert.Equal(t, bus.EventTypeClientDisconnected, ev.Type)
		assert.Equal(t, 0, ev.Data["total"])
	case <-time.After(2 * time.Second):
		t.Fatal("no disconnected event published")
	}

	// The reader and writer goroutines both tear the client down; only
	// one disconnect may be reported.
	select {
	case ev := <-got:
		t.Fatalf("extra lifecycle event %v", ev.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_BroadcastWithNoClients(t *testing.T) {
	h := NewHub(zerolog.Nop())
	assert.Equal(t, 0, h.ClientCount())
	h.Broadcast([]byte("x")) // must not panic
}
