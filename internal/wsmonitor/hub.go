// Package wsmonitor is a websocket hub broadcasting cluster events (leader
// changes, lease grants, chunkserver liveness transitions) to an admin
// dashboard.
package wsmonitor

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is a single event pushed to dashboard clients.
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	Level     string      `json:"level"` // info, warning, critical
}

// Hub manages websocket connections for the admin dashboard feed.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan Event
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mutex      sync.RWMutex
}

// NewHub creates an empty hub. Call Run in a goroutine to start serving it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Run is the hub's event loop; call it once, in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("[wsmonitor] client connected, total: %d", len(h.clients))

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			h.mutex.Unlock()
			log.Printf("[wsmonitor] client disconnected, total: %d", len(h.clients))

		case event := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				if err := client.WriteJSON(event); err != nil {
					client.Close()
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Register adds a new client connection.
func (h *Hub) Register(conn *websocket.Conn) { h.register <- conn }

// Unregister removes a client connection.
func (h *Hub) Unregister(conn *websocket.Conn) { h.unregister <- conn }

// Broadcast pushes an event to every connected client, non-blocking.
func (h *Hub) Broadcast(eventType string, data interface{}, level string) {
	event := Event{Type: eventType, Timestamp: time.Now(), Data: data, Level: level}
	select {
	case h.broadcast <- event:
	default:
		log.Printf("[wsmonitor] broadcast channel full, event dropped")
	}
}
