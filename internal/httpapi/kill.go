package httpapi

import (
	"log"
	"net/http"
	"os"
	"time"

	"distfs/internal/audit"
)

// killDelay gives the HTTP response time to flush before the process exits.
const killDelay = 200 * time.Millisecond

// handleKill implements POST /admin/kill for both node kinds. auditLog may
// be nil, in which case the kill is only logged through the standard logger.
func handleKill(label string, auditLog *audit.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if auditLog != nil {
			auditLog.Log("admin_kill", label, "admin/kill received from "+r.RemoteAddr, true)
		}
		respondOK(w, map[string]string{"status": "killing"})
		go func() {
			time.Sleep(killDelay)
			log.Printf("[%s] admin/kill received, exiting", label)
			os.Exit(0)
		}()
	}
}
