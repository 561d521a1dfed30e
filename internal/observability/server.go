// # internal/observability/server.go
package observability

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Health is the shape served on /health. Checkers report per-subsystem
// status; any "down" flips the overall status and the HTTP code.
type Health struct {
	Status     string            `json:"status"`
	Subsystems map[string]string `json:"subsystems,omitempty"`
}

type HealthChecker func(ctx context.Context) (name, status string)

// Server exposes /metrics and /health for watch-mode runs.
type Server struct {
	addr     string
	checkers []HealthChecker
	server   *http.Server
}

func NewServer(addr string, checkers ...HealthChecker) *Server {
	return &Server{addr: addr, checkers: checkers}
}

func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		health := Health{Status: "up", Subsystems: make(map[string]string)}
		for _, check := range s.checkers {
			name, status := check(r.Context())
			health.Subsystems[name] = status
			if status != "up" {
				health.Status = "down"
			}
		}
		w.Header().Set("Content-Type", "application/json")
		if health.Status != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	slog.Info("observability server starting", "addr", s.addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("observability server failed", "error", err)
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
