package handlers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"sdc-indexer/internal/logging"
	"sdc-indexer/internal/middleware"
)

// NewRouter registers every endpoint on a new router.
func NewRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", h.MetricsHandler()).Methods("GET")
	r.HandleFunc("/progress", h.Progress).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	return r
}

// Server is the metrics and progress endpoint.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Listen binds addr. Use ":0" for an ephemeral port.
func Listen(addr string, h *Handlers) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		srv: &http.Server{
			Handler:      middleware.Logger(middleware.DefaultLoggingConfig())(NewRouter(h)),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		ln: ln,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Serve blocks until Shutdown.
func (s *Server) Serve() {
	if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error("HTTP endpoint stopped: %v", err)
	}
}

// Shutdown stops the server, waiting up to five seconds for open requests.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		logging.Warn("HTTP endpoint shutdown error: %v", err)
	}
}
