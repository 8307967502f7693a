// Package middleware holds HTTP middleware shared by master and chunkserver
// routers, adapted from cmd/dplaned/main.go's loggingMiddleware.
package middleware

import (
	"log"
	"net/http"
	"time"
)

// Logging logs method, path, remote addr, and duration for every request.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s %v", r.RemoteAddr, r.Method, r.URL.Path, time.Since(start))
	})
}
