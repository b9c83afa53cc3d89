// Package http exposes the reporting engine as a read-only JSON API.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// NewServer wires the API routes. The caller configures timeouts and
// runs ListenAndServe.
func NewServer(addr string, h *Handlers) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/accounts", h.ListAccounts)
	mux.HandleFunc("GET /api/accounts/{id}/overview", h.AccountOverview)
	mux.HandleFunc("GET /api/balances", h.Balances)
	mux.HandleFunc("GET /healthz", h.Health)

	return &http.Server{
		Addr:    addr,
		Handler: requestLogger(mux),
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.InfoContext(r.Context(), "Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(started).Round(time.Microsecond))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
