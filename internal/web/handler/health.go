package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trackerhq/tracker/internal/healthcheck"
	"github.com/trackerhq/tracker/internal/web/models"
	"github.com/trackerhq/tracker/internal/web/response"
)

// HealthHandler serves the health dashboard. The list comes from the
// poller's latest snapshot rather than a fresh backend call.
type HealthHandler struct {
	endpoints *healthcheck.Service
	poller    *healthcheck.Poller
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(endpoints *healthcheck.Service, poller *healthcheck.Poller) *HealthHandler {
	return &HealthHandler{endpoints: endpoints, poller: poller}
}

// ListEndpoints handles GET /health.
func (h *HealthHandler) ListEndpoints(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.poller.Latest()
	if !ok {
		snap = h.poller.Poll(r.Context())
	}

	v := models.EndpointList{
		Endpoints:       make([]models.Endpoint, 0, len(snap.Endpoints)),
		NextPollSeconds: int(snap.Cadence.Seconds()),
	}
	if !snap.FetchedAt.IsZero() {
		fetched := snap.FetchedAt
		v.FetchedAt = &fetched
	}
	if snap.Err != nil {
		v.Error = snap.Err.Error()
	}
	for _, ep := range snap.Endpoints {
		v.Endpoints = append(v.Endpoints, endpointView(ep))
	}
	response.JSON(w, r, http.StatusOK, v)
}

// RegisterEndpoint handles POST /health.
func (h *HealthHandler) RegisterEndpoint(w http.ResponseWriter, r *http.Request) {
	var req models.EndpointRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ep, err := h.endpoints.Register(r.Context(), registration(req))
	if handled := registrationError(w, r, err); handled {
		return
	}
	h.poller.Poll(r.Context())
	response.Created(w, r, "/health/"+ep.ID, endpointView(ep))
}

// GetEndpoint handles GET /health/{id}.
func (h *HealthHandler) GetEndpoint(w http.ResponseWriter, r *http.Request) {
	ep, err := h.endpoints.Find(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, healthcheck.ErrNotFound) {
		response.NotFound(w, r, err.Error())
		return
	}
	if err != nil {
		response.BackendError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, endpointView(ep))
}

// UpdateEndpoint handles PUT /health/{id}.
func (h *HealthHandler) UpdateEndpoint(w http.ResponseWriter, r *http.Request) {
	var req models.EndpointRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.endpoints.Update(r.Context(), chi.URLParam(r, "id"), registration(req))
	if handled := registrationError(w, r, err); handled {
		return
	}
	h.poller.Poll(r.Context())
	response.NoContent(w, r)
}

// DeleteEndpoint handles DELETE /health/{id}.
func (h *HealthHandler) DeleteEndpoint(w http.ResponseWriter, r *http.Request) {
	if err := h.endpoints.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.BackendError(w, r, err)
		return
	}
	h.poller.Poll(r.Context())
	response.NoContent(w, r)
}

func registrationError(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, healthcheck.ErrNameRequired):
		fieldRequired(w, r, "name")
	case errors.Is(err, healthcheck.ErrURLRequired):
		fieldRequired(w, r, "url")
	case errors.Is(err, healthcheck.ErrInvalidURL):
		response.BadRequest(w, r, err.Error(), []models.FieldError{{Field: "url", Message: err.Error(), Code: "INVALID"}})
	case errors.Is(err, healthcheck.ErrInvalidSettings):
		response.BadRequest(w, r, err.Error(), nil)
	default:
		response.BackendError(w, r, err)
	}
	return true
}

func registration(req models.EndpointRequest) healthcheck.Registration {
	return healthcheck.Registration{
		Name:      req.Name,
		URL:       req.URL,
		Threshold: req.Threshold,
		Interval:  req.Interval,
	}
}

func endpointView(ep healthcheck.Endpoint) models.Endpoint {
	return models.Endpoint{
		ID:        ep.ID,
		Name:      ep.Name,
		URL:       ep.URL,
		Status:    ep.Status.String(),
		Threshold: ep.Threshold,
		FailCount: ep.FailCount,
		Interval:  ep.Interval,
		Reason:    ep.Reason,
	}
}
