package httpapi

import (
	"net/http"
	"strconv"

	"distfs/internal/launcher"
	"distfs/internal/middleware"

	"github.com/gorilla/mux"
)

// NewLauncherRouter builds the control-plane router for the dev-convenience
// cluster launcher: start/stop/status over HTTP.
func NewLauncherRouter(m *launcher.Manager) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Logging)

	r.HandleFunc("/manager/status", launcherStatus(m)).Methods(http.MethodGet)
	r.HandleFunc("/manager/start/{port}", launcherStart(m)).Methods(http.MethodPost)
	r.HandleFunc("/manager/stop/{port}", launcherStop(m)).Methods(http.MethodPost)
	r.HandleFunc("/manager/startall", launcherStartAll(m)).Methods(http.MethodPost)

	return r
}

func launcherStatus(m *launcher.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondOK(w, m.StatusAll())
	}
}

func launcherStart(m *launcher.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		port, err := strconv.Atoi(mux.Vars(r)["port"])
		if err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid port"})
			return
		}
		if m.Status(port) == launcher.StatusRunning {
			respondOK(w, map[string]string{"message": "already running"})
			return
		}
		if err := m.Launch(port); err != nil {
			respondJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		respondOK(w, map[string]interface{}{"success": true, "status": launcher.StatusRunning})
	}
}

func launcherStop(m *launcher.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		port, err := strconv.Atoi(mux.Vars(r)["port"])
		if err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid port"})
			return
		}
		if err := m.Stop(port); err != nil {
			respondJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		respondOK(w, map[string]interface{}{"success": true, "status": launcher.StatusStopped})
	}
}

func launcherStartAll(m *launcher.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := m.StartAll(); err != nil {
			respondJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		respondOK(w, map[string]bool{"success": true})
	}
}
