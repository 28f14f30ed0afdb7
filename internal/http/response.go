package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/mcarneiro/airbnb-organizer/internal/coordinator"
	"github.com/mcarneiro/airbnb-organizer/internal/core"
	"github.com/mcarneiro/airbnb-organizer/internal/identity"
	"github.com/mcarneiro/airbnb-organizer/internal/log"
	"github.com/mcarneiro/airbnb-organizer/internal/session"
	"github.com/mcarneiro/airbnb-organizer/internal/sheets"
)

// Error codes carried in the "error" field of an error body.
const (
	CodeBadRequest   = "bad_request"
	CodeValidation   = "validation_error"
	CodeUnauthorized = "unauthorized"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeRateLimited  = "rate_limited"
	CodeUpstream     = "upstream_unavailable"
	CodeInternal     = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a JSON error body.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// errorStatus maps domain and sync errors onto a status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, coordinator.ErrAuthExpired),
		errors.Is(err, sheets.ErrUnauthenticated),
		errors.Is(err, identity.ErrTokenExpired),
		errors.Is(err, identity.ErrSignInRejected),
		errors.Is(err, session.ErrExpired):
		return http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, coordinator.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, coordinator.ErrLoadInProgress),
		errors.Is(err, coordinator.ErrNotReady),
		errors.Is(err, coordinator.ErrNoStore):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, sheets.ErrUnavailable):
		return http.StatusBadGateway, CodeUpstream
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// writeErr logs and writes err. Internal errors are not echoed back.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", log.FieldError, err)
		if status == http.StatusInternalServerError {
			msg = "An unexpected error occurred"
		}
	} else {
		logger.DebugContext(r.Context(), "request rejected", log.FieldError, err)
	}
	WriteError(w, status, code, msg)
}

func rateLimited(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded. Please try again later.")
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotFound, CodeNotFound, "no such endpoint")
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
}

// recovery turns a handler panic into a 500.
func recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				log.FromContext(r.Context()).ErrorContext(r.Context(), "panic recovered",
					"panic", v, "stack", string(debug.Stack()))
				WriteError(w, http.StatusInternalServerError, CodeInternal, "An unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
