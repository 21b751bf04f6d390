// Package server exposes the HTTP surface: liveness, a small status
// document, and Prometheus metrics. It injects correlation IDs into
// request contexts for consistent logging.
package server

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/streambot/telemetry"
)

// Handlers holds the dependencies the HTTP handlers need.
type Handlers struct {
	db      *sql.DB
	channel string
	started time.Time
}

func NewHandlers(db *sql.DB, channel string) *Handlers {
	return &Handlers{db: db, channel: channel, started: time.Now()}
}

// NewMux returns the HTTP handler with all routes.
func NewMux(db *sql.DB, channel string) http.Handler {
	h := NewHandlers(db, channel)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", h.HandleHealthz)
	mux.HandleFunc("/status", h.HandleStatus)

	// correlation id wrapper
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corr := r.Header.Get("X-Correlation-Id")
		if corr == "" {
			corr = uuid.NewString()
		}
		w.Header().Set("X-Correlation-Id", corr)
		mux.ServeHTTP(w, r.WithContext(telemetry.WithCorrelation(r.Context(), corr)))
	})
}

// HandleHealthz responds to liveness probes by checking database
// connectivity.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleStatus reports the joined channel, uptime, and 24h execution
// count.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	var executions24h int
	_ = h.db.QueryRowContext(r.Context(),
		`SELECT COUNT(*) FROM command_execution WHERE executed_at > NOW() - INTERVAL '24 hours'`).
		Scan(&executions24h)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"channel":        h.channel,
		"uptime_seconds": int(time.Since(h.started).Seconds()),
		"executions_24h": executions24h,
	})
}
