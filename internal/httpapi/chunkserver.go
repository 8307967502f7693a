package httpapi

import (
	"net/http"

	"distfs/internal/chunknode"
	"distfs/internal/middleware"

	"github.com/gorilla/mux"
)

// NewChunkserverRouter builds the full mux.Router for a chunkserver node.
func NewChunkserverRouter(n *chunknode.Node) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Logging)
	r.Use(chunkCountingMiddleware(n))

	r.HandleFunc("/chunk/stage", chunkStage(n)).Methods(http.MethodPost)
	r.HandleFunc("/chunk/commit", chunkCommit(n)).Methods(http.MethodPost)
	r.HandleFunc("/chunk/read/{handle}", chunkRead(n)).Methods(http.MethodGet)
	r.HandleFunc("/admin/clock", chunkClock(n)).Methods(http.MethodGet)
	r.HandleFunc("/admin/adjust-clock", chunkAdjustClock(n)).Methods(http.MethodPost)
	r.HandleFunc("/admin/status", chunkStatus(n)).Methods(http.MethodGet)
	r.HandleFunc("/admin/kill", handleKill("chunkserver", n.Audit)).Methods(http.MethodPost)

	return r
}

func chunkCountingMiddleware(n *chunknode.Node) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n.IncRequestCount()
			next.ServeHTTP(w, r)
		})
	}
}

type stageRequestBody struct {
	Handle  string `json:"handle"`
	Content string `json:"content"`
}

func chunkStage(n *chunknode.Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body stageRequestBody
		if err := decodeJSON(r, &body); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}
		n.Stage(body.Handle, body.Content)
		respondOK(w, map[string]string{"status": "staged"})
	}
}

type commitRequestBody struct {
	Handle      string `json:"handle"`
	Secondaries []int  `json:"secondaries,omitempty"`
}

func chunkCommit(n *chunknode.Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body commitRequestBody
		if err := decodeJSON(r, &body); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}
		if err := n.Commit(body.Handle, body.Secondaries); err != nil {
			respondErr(w, err)
			return
		}
		respondOK(w, map[string]string{"status": "committed"})
	}
}

func chunkRead(n *chunknode.Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle := mux.Vars(r)["handle"]
		content, err := n.Read(handle)
		if err != nil {
			respondErr(w, err)
			return
		}
		respondOK(w, map[string]string{"data": content})
	}
}

func chunkClock(n *chunknode.Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondOK(w, map[string]interface{}{
			"port":           n.Port,
			"simulated_time": n.SimulatedTime(),
		})
	}
}

type adjustClockBody struct {
	Offset float64 `json:"offset"`
}

func chunkAdjustClock(n *chunknode.Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body adjustClockBody
		if err := decodeJSON(r, &body); err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}
		n.AdjustClock(body.Offset)
		respondOK(w, map[string]string{"status": "ok"})
	}
}

func chunkStatus(n *chunknode.Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondOK(w, n.Status())
	}
}
