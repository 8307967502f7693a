package wsmonitor

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeHTTP upgrades the request to a websocket connection and registers it
// with the hub, unregistering once the client goes away. Mount it at an
// admin-only route (e.g. GET /admin/ws).
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[wsmonitor] upgrade error: %v", err)
		return
	}

	h.Register(conn)

	go func() {
		defer h.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[wsmonitor] read error: %v", err)
				}
				break
			}
		}
	}()
}
