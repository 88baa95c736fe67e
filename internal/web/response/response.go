// Package response writes JSON and problem responses for the web shell.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/trackerhq/tracker/internal/backend"
	"github.com/trackerhq/tracker/internal/web/middleware"
	"github.com/trackerhq/tracker/internal/web/models"
)

// JSON writes data with the given status code.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Created writes a 201 with a Location header.
func Created(w http.ResponseWriter, r *http.Request, location string, data any) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	JSON(w, r, http.StatusCreated, data)
}

// NoContent writes a 204.
func NoContent(w http.ResponseWriter, r *http.Request) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Error writes a problem response.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// BadRequest writes a 400 problem.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errs []models.FieldError) {
	Error(w, r, models.NewBadRequest(middleware.GetRequestID(r.Context()), detail, errs))
}

// Unauthorized writes a 401 problem.
func Unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewUnauthorized(middleware.GetRequestID(r.Context()), detail))
}

// NotFound writes a 404 problem.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewNotFound(middleware.GetRequestID(r.Context()), detail))
}

// InternalError writes a 500 problem.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewInternalError(middleware.GetRequestID(r.Context()), detail))
}

// BackendError maps a failed backend call to a problem. Not-found and
// unauthorized keep their status; decode failures and everything else are a
// bad gateway.
func BackendError(w http.ResponseWriter, r *http.Request, err error) {
	traceID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, backend.ErrNotFound):
		Error(w, r, models.NewNotFound(traceID, err.Error()))
	case errors.Is(err, backend.ErrUnauthorized):
		Error(w, r, models.NewUnauthorized(traceID, "the backend rejected the session; sign in again"))
	default:
		Error(w, r, models.NewBadGateway(traceID, err.Error()))
	}
}
