// Package httpapi builds the gorilla/mux routers for masters and
// chunkservers, translating internal/master and internal/chunknode
// results into JSON bodies and status codes.
package httpapi

import (
	"encoding/json"
	"net/http"

	"distfs/internal/apierr"
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondOK(w http.ResponseWriter, payload interface{}) {
	respondJSON(w, http.StatusOK, payload)
}

// respondErr translates an apierr.Error (or any other error) into a JSON
// error body with the status code apierr.Status maps its Kind to.
func respondErr(w http.ResponseWriter, err error) {
	if apiErr, ok := apierr.As(err); ok {
		respondJSON(w, apierr.Status(apiErr.Kind), map[string]interface{}{
			"error":   string(apiErr.Kind),
			"message": apiErr.Message,
		})
		return
	}
	respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
		"error":   "STORAGE_ERROR",
		"message": err.Error(),
	})
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
