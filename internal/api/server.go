package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"wattwise/internal/metrics"
	"wattwise/internal/storage"
)

type Server struct {
	router *chi.Mux
	server *http.Server
	addr   string
}

func NewServer(addr string, db *storage.DB, m *metrics.Registry) *Server {
	handler := NewHandler(db)
	router := chi.NewRouter()

	router.Use(RequestIDMiddleware)
	router.Use(RecoverMiddleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(middleware.RealIP)

	router.Get("/health", handler.Health)
	router.Get("/plans", handler.ListPlans)
	router.Get("/runs/latest", handler.LatestRun)
	router.Get("/market", handler.Market)
	if m != nil {
		router.Handle("/metrics", m.Handler())
	}

	return &Server{router: router, addr: addr}
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the chi router for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
