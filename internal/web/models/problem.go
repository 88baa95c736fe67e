package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 error body, sent as application/problem+json.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError is a validation error on one request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Problem types.
const (
	ProblemTypeValidation      = "https://tracker.local/problems/validation-error"
	ProblemTypeUnauthorized    = "https://tracker.local/problems/unauthorized"
	ProblemTypeNotFound        = "https://tracker.local/problems/not-found"
	ProblemTypeTooManyRequests = "https://tracker.local/problems/too-many-requests"
	ProblemTypeInternal        = "https://tracker.local/problems/internal-error"
	ProblemTypeBadGateway      = "https://tracker.local/problems/backend-error"
)

// NewProblem creates a Problem.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return &Problem{
		Type:    problemType,
		Title:   title,
		Status:  status,
		TraceID: traceID,
	}
}

// WithDetail sets the detail message.
func (p *Problem) WithDetail(detail string) *Problem {
	p.Detail = detail
	return p
}

// Write writes the Problem to w.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		w.Header().Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest creates a 400 problem.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	p := NewProblem(ProblemTypeValidation, "Validation error", http.StatusBadRequest, traceID)
	p.Detail = detail
	p.Errors = errors
	return p
}

// NewUnauthorized creates a 401 problem.
func NewUnauthorized(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeUnauthorized, "Unauthorized", http.StatusUnauthorized, traceID).WithDetail(detail)
}

// NewNotFound creates a 404 problem.
func NewNotFound(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeNotFound, "Not found", http.StatusNotFound, traceID).WithDetail(detail)
}

// NewTooManyRequests creates a 429 problem.
func NewTooManyRequests(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests, traceID).WithDetail(detail)
}

// NewInternalError creates a 500 problem.
func NewInternalError(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeInternal, "Internal server error", http.StatusInternalServerError, traceID).WithDetail(detail)
}

// NewBadGateway creates a 502 problem for failures of the Tracker backend.
func NewBadGateway(traceID, detail string) *Problem {
	return NewProblem(ProblemTypeBadGateway, "Backend error", http.StatusBadGateway, traceID).WithDetail(detail)
}
