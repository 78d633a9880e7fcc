package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishReachesOnlyTheUser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, 7)
		if !hub.Add(client) {
			conn.Close()
			return
		}
		go client.ReadPump()
		go client.WritePump()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount(7) == 1 }, time.Second, 10*time.Millisecond)

	hub.PublishEvent(8, []byte(`{"event_type":"other"}`))
	hub.PublishEvent(7, []byte(`{"event_type":"node_created"}`))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"event_type":"node_created"}`, string(msg))
}

func TestHub_PublishWithoutClients(t *testing.T) {
	hub := NewHub(nil)
	require.NotPanics(t, func() { hub.PublishEvent(1, []byte("x")) })
	require.Zero(t, hub.ClientCount(1))
}

func TestHub_StoppedHubDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)

	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	client := &Client{hub: hub, send: make(chan []byte, 1), UserID: 3}

	added := make(chan bool, 1)
	go func() { added <- hub.Add(client) }()
	select {
	case ok := <-added:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Add blocked on a stopped hub")
	}

	removed := make(chan struct{})
	go func() {
		hub.Remove(client)
		close(removed)
	}()
	select {
	case <-removed:
	case <-time.After(time.Second):
		t.Fatal("Remove blocked on a stopped hub")
	}
	require.Zero(t, hub.ClientCount(3))
}
