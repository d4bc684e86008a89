// Package web provides the HTTP JSON API for house-broker.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"

	"github.com/evcraddock/house-broker/internal/auth"
	"github.com/evcraddock/house-broker/internal/logging"
	"github.com/evcraddock/house-broker/internal/property"
	"github.com/evcraddock/house-broker/internal/user"
)

const shutdownTimeout = 10 * time.Second

// Server is the API HTTP server.
type Server struct {
	db      *sqlx.DB
	props   *property.Service
	users   *user.Store
	issuer  *auth.Issuer
	limiter *auth.RateLimiter
	router  chi.Router
}

// NewServer creates an API server backed by d.
func NewServer(d *sqlx.DB, issuer *auth.Issuer) *Server {
	s := &Server{
		db:      d,
		props:   property.NewService(property.NewStore(d)),
		users:   user.NewStore(d),
		issuer:  issuer,
		limiter: auth.NewRateLimiter(0, 0),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logging.RequestLogger)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			apiError(w, "not found", http.StatusNotFound)
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		})

		r.Post("/auth/register", s.apiRegister)
		r.Post("/auth/login", s.apiLogin)

		r.Route("/properties", func(r chi.Router) {
			r.Get("/", s.apiListProperties)
			r.Get("/search", s.apiSearchProperties)
			r.Get("/{id}", s.apiGetProperty)

			r.Group(func(r chi.Router) {
				r.Use(auth.Authenticate(s.issuer))
				r.Use(auth.RequireBroker)

				r.Post("/", s.apiCreateProperty)
				r.Put("/{id}", s.apiUpdateProperty)
				r.Delete("/{id}", s.apiDeleteProperty)
			})
		})
	})

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting API server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		slog.Error("health check failed", "error", err)
		apiJSON(w, map[string]string{"status": "unavailable"}, http.StatusServiceUnavailable)
		return
	}
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
