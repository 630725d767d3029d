package feed

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for h.Clients() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Clients() = %d, want %d", h.Clients(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	waitClients(t, hub, 2)

	if err := hub.Broadcast(map[string]int{"stolenId": 7}); err != nil {
		t.Fatalf("Broadcast() error = %v", err)
	}

	for i, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("client %d read: %v", i, err)
		}
		if string(msg) != `{"stolenId":7}` {
			t.Errorf("client %d got %s", i, msg)
		}
	}
}

func TestHubRemovesClosedClient(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, srv)
	waitClients(t, hub, 1)

	conn.Close()
	waitClients(t, hub, 0)
}

func TestHubBroadcastRejectsUnencodable(t *testing.T) {
	hub := NewHub()
	if err := hub.Broadcast(make(chan int)); err == nil {
		t.Error("Broadcast(chan) error = nil, want error")
	}
}
