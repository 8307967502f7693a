package wsmonitor

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestServeHTTP_ClientReceivesBroadcastEvent(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	server := httptest.NewServer(hub)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// give the hub's register goroutine a moment to add the client before
	// broadcasting, since Register is delivered over a channel.
	time.Sleep(20 * time.Millisecond)
	hub.Broadcast("leader_change", map[string]interface{}{"leader_id": 6001}, "info")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.Type != "leader_change" {
		t.Errorf("expected type=leader_change, got %q", got.Type)
	}
	if got.Level != "info" {
		t.Errorf("expected level=info, got %q", got.Level)
	}
}

func TestServeHTTP_UnregistersOnClientClose(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	server := httptest.NewServer(hub)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mutex.RLock()
		n := len(hub.clients)
		hub.mutex.RUnlock()
		if n == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("expected client to be unregistered after close")
}
