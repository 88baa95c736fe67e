package handler

import (
	"net/http"
	"time"

	"github.com/trackerhq/tracker/internal/web/models"
	"github.com/trackerhq/tracker/internal/web/response"
)

// OpsHandler serves the shell's own liveness endpoint.
type OpsHandler struct {
	version string
	apiURL  string
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(version, apiURL string) *OpsHandler {
	return &OpsHandler{version: version, apiURL: apiURL}
}

// HealthCheck handles GET /healthz.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: "ok",
		Time:   time.Now().UTC(),
		Details: map[string]any{
			"version": h.version,
			"backend": h.apiURL,
		},
	})
}
