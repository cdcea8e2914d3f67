package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/safar/fruit-store/internal/apperr"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type messageBody struct {
	Message string `json:"message"`
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.InvalidInput:
		return http.StatusBadRequest
	case apperr.InvalidCredentials, apperr.Unauthenticated:
		return http.StatusUnauthorized
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Conflict, apperr.InvalidTransition:
		return http.StatusConflict
	case apperr.RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("encode response", slog.Any("err", err))
	}
}

// respondError writes err as an error body. Internal errors are logged and
// replaced by a generic message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	message := "internal server error"

	var e *apperr.Error
	if errors.As(err, &e) && kind != apperr.Internal {
		message = e.Message
		if kind == apperr.RateLimited && e.RetryAfter > 0 {
			seconds := int(math.Ceil(e.RetryAfter.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
		}
	}

	if kind == apperr.Internal {
		s.log.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("err", err))
	}

	s.respondJSON(w, statusFor(kind), errorBody{Error: errorDetail{Code: kind.String(), Message: message}})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.InvalidInput, "request body is required")
		}
		return apperr.Wrap(apperr.InvalidInput, "invalid request body", err)
	}
	return nil
}
