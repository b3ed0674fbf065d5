// Package server exposes a calculator backend over JSON HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"nickandperla.net/calcpad/internal/provider"
)

// Timeouts.
const (
	ReadHeaderTimeout = 5 * time.Second
	ReadTimeout       = 30 * time.Second
	WriteTimeout      = 30 * time.Second
	IdleTimeout       = 60 * time.Second
	ShutdownTimeout   = 5 * time.Second
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

const tracerName = "nickandperla.net/calcpad/internal/server"

// Backend is everything the HTTP surface needs. AdjustMemory returns the new
// register value so mutation responses can echo it without a second read.
type Backend interface {
	provider.Provider
	AdjustMemory(delta float64) (float64, error)
}

// Config configures the server.
type Config struct {
	// Address to listen on (default: :5000)
	Address string

	// RateLimit is the sustained number of calculate requests per second.
	// Zero disables limiting.
	RateLimit float64

	// RateBurst is the limiter burst (default: 1 when limiting).
	RateBurst int

	// ShutdownTimeout bounds graceful shutdown (default: 5s).
	ShutdownTimeout time.Duration

	Logger *slog.Logger
}

// Server is the calculator HTTP server.
type Server struct {
	backend         Backend
	logger          *slog.Logger
	limiter         *rate.Limiter
	tracer          trace.Tracer
	router          chi.Router
	httpServer      *http.Server
	shutdownTimeout time.Duration
}

// New creates a server over b.
func New(b Backend, cfg Config) *Server {
	if cfg.Address == "" {
		cfg.Address = ":5000"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = ShutdownTimeout
	}

	s := &Server{
		backend:         b,
		logger:          cfg.Logger,
		tracer:          otel.Tracer(tracerName),
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.router,
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}
	return s
}

func (s *Server) routes() chi.Router {
	router := chi.NewRouter()
	router.Use(s.requestID)
	router.Use(s.traceRequests)
	router.Use(s.logRequests)
	router.Use(middleware.Recoverer)

	router.Get("/metrics", promhttp.Handler().ServeHTTP)

	router.Route("/api", func(r chi.Router) {
		r.Use(withCORS)
		r.Get("/health", s.handleHealth)
		r.With(s.rateLimit).Post("/calculate", s.handleCalculate)

		r.Route("/config", func(r chi.Router) {
			r.Get("/", s.handleGetConfig)
			r.Put("/angle-mode", s.handleSetAngleMode)
			r.Put("/decimal-places", s.handleSetDecimalPlaces)
			r.Put("/notation", s.handleSetNotation)
		})

		r.Route("/history", func(r chi.Router) {
			r.Get("/", s.handleHistory)
			r.Get("/search", s.handleSearchHistory)
			r.Delete("/clear", s.handleClearHistory)
		})

		r.Route("/memory", func(r chi.Router) {
			r.Get("/", s.handleMemory)
			r.Post("/add", s.handleMemoryAdjust(1))
			r.Post("/subtract", s.handleMemoryAdjust(-1))
			r.Delete("/clear", s.handleMemoryClear)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Endpoint not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return router
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start serves until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("server listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Run serves until ctx is done, then shuts down within the configured
// timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
