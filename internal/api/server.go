// Package api exposes the store over JSON/HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/safar/fruit-store/internal/auth"
	"github.com/safar/fruit-store/internal/catalog"
	"github.com/safar/fruit-store/internal/orders"
	"github.com/safar/fruit-store/internal/ratelimit"
	"go.opentelemetry.io/otel/trace"
)

type Deps struct {
	Auth    *auth.Service
	Guard   *auth.Guard
	Catalog *catalog.Service
	Orders  *orders.Service
	// Limiter throttles login attempts per client address.
	Limiter ratelimit.Limiter
	// Ping reports backing store health for /healthz. Optional.
	Ping       func(ctx context.Context) error
	TrustProxy bool
	Log        *slog.Logger
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

type Server struct {
	auth       *auth.Service
	guard      *auth.Guard
	catalog    *catalog.Service
	orders     *orders.Service
	limiter    ratelimit.Limiter
	ping       func(ctx context.Context) error
	trustProxy bool
	log        *slog.Logger
	tp         trace.TracerProvider
}

func NewServer(d Deps) *Server {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		auth:       d.Auth,
		guard:      d.Guard,
		catalog:    d.Catalog,
		orders:     d.Orders,
		limiter:    d.Limiter,
		ping:       d.Ping,
		trustProxy: d.TrustProxy,
		log:        log,
		tp:         d.TracerProvider,
	}
}

// Handler returns the routed, logged and traced HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api", s.handleRoot)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/auth/me", s.requireAuth(s.handleMe))

	mux.HandleFunc("GET /api/products", s.handleListProducts)
	mux.HandleFunc("GET /api/products/{id}", s.handleGetProduct)
	mux.HandleFunc("POST /api/products", s.requireAdmin(s.handleCreateProduct))
	mux.HandleFunc("PUT /api/products/{id}", s.requireAdmin(s.handleUpdateProduct))
	mux.HandleFunc("DELETE /api/products/{id}", s.requireAdmin(s.handleDeleteProduct))

	mux.HandleFunc("POST /api/orders", s.requireAuth(s.handlePlaceOrder))
	mux.HandleFunc("GET /api/orders/my-orders", s.requireAuth(s.handleMyOrders))
	mux.HandleFunc("GET /api/orders", s.requireAdmin(s.handleAllOrders))
	mux.HandleFunc("GET /api/orders/{id}", s.requireAuth(s.handleGetOrder))
	mux.HandleFunc("PUT /api/orders/{id}/status", s.requireAdmin(s.handleSetOrderStatus))

	return tracing("fruit-store", s.tp, s.logRequests(mux))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, messageBody{Message: "Fruit mStore API is running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			s.log.WarnContext(r.Context(), "health check failed", slog.Any("err", err))
			s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
