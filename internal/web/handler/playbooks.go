package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trackerhq/tracker/internal/playbook"
	"github.com/trackerhq/tracker/internal/web/models"
	"github.com/trackerhq/tracker/internal/web/response"
)

// PlaybookHandler serves playbook pages.
type PlaybookHandler struct {
	playbooks *playbook.Service
}

// NewPlaybookHandler creates a new PlaybookHandler.
func NewPlaybookHandler(playbooks *playbook.Service) *PlaybookHandler {
	return &PlaybookHandler{playbooks: playbooks}
}

// ListPlaybooks handles GET /playbooks.
func (h *PlaybookHandler) ListPlaybooks(w http.ResponseWriter, r *http.Request) {
	pbs, err := h.playbooks.List(r.Context())
	if err != nil {
		response.BackendError(w, r, err)
		return
	}
	out := make([]models.Playbook, 0, len(pbs))
	for _, pb := range pbs {
		out = append(out, playbookView(pb))
	}
	response.JSON(w, r, http.StatusOK, out)
}

// CreatePlaybook handles POST /playbooks.
func (h *PlaybookHandler) CreatePlaybook(w http.ResponseWriter, r *http.Request) {
	var req models.PlaybookRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pb, err := h.playbooks.Create(r.Context(), req.Name, steps(req.Steps))
	if errors.Is(err, playbook.ErrNameRequired) {
		fieldRequired(w, r, "name")
		return
	}
	if err != nil {
		response.BackendError(w, r, err)
		return
	}
	response.Created(w, r, "/playbooks/"+pb.ID, playbookView(pb))
}

// GetPlaybook handles GET /playbooks/{id}.
func (h *PlaybookHandler) GetPlaybook(w http.ResponseWriter, r *http.Request) {
	pb, err := h.playbooks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.BackendError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, playbookView(pb))
}

// UpdatePlaybook handles PUT /playbooks/{id}. The edit buffer lives in the
// client; the full shape is written at once.
func (h *PlaybookHandler) UpdatePlaybook(w http.ResponseWriter, r *http.Request) {
	var req models.PlaybookRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pb, err := h.playbooks.Update(r.Context(), playbook.Playbook{
		ID:    chi.URLParam(r, "id"),
		Name:  req.Name,
		Steps: steps(req.Steps),
	})
	if errors.Is(err, playbook.ErrNameRequired) {
		fieldRequired(w, r, "name")
		return
	}
	if err != nil {
		response.BackendError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, playbookView(pb))
}

func steps(contents []string) []playbook.Step {
	out := make([]playbook.Step, len(contents))
	for i, c := range contents {
		out[i] = playbook.Step{Content: c}
	}
	return out
}

func playbookView(pb playbook.Playbook) models.Playbook {
	v := models.Playbook{ID: pb.ID, Name: pb.Name, Steps: make([]string, len(pb.Steps))}
	for i, s := range pb.Steps {
		v.Steps[i] = s.Content
	}
	return v
}
