package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ipsguard/internal/logger"
)

// DefaultTimeZone is the zone the dashboard renders start times in.
const DefaultTimeZone = "Asia/Riyadh"

// Config configures the dashboard API server.
type Config struct {
	Addr     string
	TimeZone string
}

// Server serves the dashboard API.
type Server struct {
	server *http.Server
	addr   string
}

// LoadLocation resolves name, falling back to a fixed UTC+3 zone when the
// default zone is missing from the host's tz database.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimeZone
	}
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc, nil
	}
	if name == DefaultTimeZone {
		return time.FixedZone("+03", 3*60*60), nil
	}
	return nil, fmt.Errorf("load time zone %q: %w", name, err)
}

// NewRouter builds the API router.
func NewRouter(dash Dashboard, loc *time.Location) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Mount("/api", NewHandler(dash, loc).Routes())
	return r
}

// NewServer creates a dashboard API server.
func NewServer(cfg Config, dash Dashboard) (*Server, error) {
	loc, err := LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, err
	}
	return &Server{
		addr: cfg.Addr,
		server: &http.Server{
			Addr:         cfg.Addr,
			Handler:      NewRouter(dash, loc),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}, nil
}

// Start blocks serving requests until Shutdown.
func (s *Server) Start() error {
	logger.Infof("Dashboard API listening on %s", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
