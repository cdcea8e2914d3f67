package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/safar/fruit-store/internal/apperr"
	"github.com/safar/fruit-store/internal/auth"
	"github.com/safar/fruit-store/internal/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey int

const identityKey ctxKey = iota

func withIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the identity stored by requireAuth, or the zero
// Identity for anonymous requests.
func IdentityFrom(ctx context.Context) auth.Identity {
	id, _ := ctx.Value(identityKey).(auth.Identity)
	return id
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.respondError(w, r, apperr.New(apperr.Unauthenticated, "no token, authorization denied"))
			return
		}

		id, err := s.guard.RequireAuth(token)
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		next(w, r.WithContext(withIdentity(r.Context(), id)))
	}
}

// requireAdmin rejects non-admin callers before the handler reads the body.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if err := auth.RequireRole(IdentityFrom(r.Context()), models.RoleAdmin); err != nil {
			s.respondError(w, r, err)
			return
		}
		next(w, r)
	})
}

// clientAddr is the rate limiter key for r. X-Forwarded-For is only read
// when the server sits behind a trusted proxy.
func (s *Server) clientAddr(r *http.Request) string {
	if s.trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if addr := strings.TrimSpace(first); addr != "" {
				return addr
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		// The mux sets r.Pattern once it has matched a route.
		route := r.Pattern
		if route != "" {
			trace.SpanFromContext(r.Context()).SetName("HTTP " + route)
		}

		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.log.Log(r.Context(), level, "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("route", route),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)))
	})
}

// tracing names spans by method until the mux has matched a route, so raw
// ids never end up in span names.
func tracing(serviceName string, tp trace.TracerProvider, next http.Handler) http.Handler {
	opts := []otelhttp.Option{
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/healthz"
		}),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "HTTP " + r.Method
		}),
	}
	if tp != nil {
		opts = append(opts, otelhttp.WithTracerProvider(tp))
	}
	return otelhttp.NewHandler(next, serviceName, opts...)
}
