package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/superset-studio/einvoice-vault/internal/api"
	"github.com/superset-studio/einvoice-vault/internal/auth"
	"github.com/superset-studio/einvoice-vault/internal/config"
)

// HealthChecker can verify that a backing resource is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	httpServer    *http.Server
	config        *config.ServerConfig
	healthChecker HealthChecker
	authLimiter   *RateLimiter
}

func New(cfg *config.Config, handler *api.Handler, jwtSvc *auth.JWTService, checker HealthChecker) *Server {
	s := &Server{
		config:        &cfg.Server,
		healthChecker: checker,
		authLimiter:   NewRateLimiter(cfg.Auth.LoginRate, cfg.Auth.LoginBurst, 3*time.Minute),
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.routes(handler, jwtSvc),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) routes(h *api.Handler, jwtSvc *auth.JWTService) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	if s.config.TrustProxyHeaders {
		router.Use(middleware.RealIP)
	}
	router.Use(Logger)
	router.Use(CORSMiddleware(s.config.AllowedOrigins))
	router.Use(middleware.RequestSize(1 << 20))

	router.Get("/health", healthHandler)
	router.Get("/readyz", s.readyzHandler)

	router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.authLimiter.Middleware)
			r.Post("/auth/register", h.Register)
			r.Post("/auth/login", h.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(api.RequireUser(jwtSvc))
			r.Get("/me", h.Me)
			r.Put("/me/password", h.ChangePassword)
			r.Put("/einvoice", h.LinkEInvoice)
			r.Get("/einvoice", h.EInvoiceStatus)
			r.Get("/einvoice/credentials", h.EInvoiceCredentials)
			r.Delete("/einvoice", h.UnlinkEInvoice)

			r.Get("/receipts", h.ListReceipts)
			r.Post("/receipts", h.CreateReceipt)
			r.Get("/receipts/summary", h.ReceiptSummary)
			r.Get("/receipts/{id}", h.GetReceipt)
			r.Put("/receipts/{id}", h.UpdateReceipt)
			r.Delete("/receipts/{id}", h.DeleteReceipt)
		})
	})

	return router
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down server")
	s.authLimiter.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) ShutdownWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.Shutdown(ctx)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	if err := s.healthChecker.Ping(ctx); err != nil {
		slog.Warn("readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
