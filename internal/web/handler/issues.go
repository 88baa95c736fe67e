package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/trackerhq/tracker/internal/checklist"
	"github.com/trackerhq/tracker/internal/issue"
	"github.com/trackerhq/tracker/internal/markdown"
	"github.com/trackerhq/tracker/internal/playbook"
	"github.com/trackerhq/tracker/internal/timeline"
	"github.com/trackerhq/tracker/internal/web/models"
	"github.com/trackerhq/tracker/internal/web/response"
)

// IssueHandler serves the issue board and issue pages.
type IssueHandler struct {
	issues     *issue.Service
	playbooks  *playbook.Service
	checklists *checklist.Service
	feeds      *timeline.Registry
	logger     zerolog.Logger
}

// IssueHandlerConfig holds the dependencies of an IssueHandler.
type IssueHandlerConfig struct {
	Issues     *issue.Service
	Playbooks  *playbook.Service
	Checklists *checklist.Service
	Feeds      *timeline.Registry
	Logger     zerolog.Logger
}

// NewIssueHandler creates a new IssueHandler.
func NewIssueHandler(cfg IssueHandlerConfig) *IssueHandler {
	return &IssueHandler{
		issues:     cfg.Issues,
		playbooks:  cfg.Playbooks,
		checklists: cfg.Checklists,
		feeds:      cfg.Feeds,
		logger:     cfg.Logger,
	}
}

// ListIssues handles GET /issues.
func (h *IssueHandler) ListIssues(w http.ResponseWriter, r *http.Request) {
	board, err := h.issues.Board(r.Context())
	if err != nil {
		response.BackendError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, boardView(board))
}

// CreateIssue handles POST /issues. A blank name changes nothing and returns
// the current board.
func (h *IssueHandler) CreateIssue(w http.ResponseWriter, r *http.Request) {
	var req models.CreateIssueRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	board, err := h.issues.CreateAndRefresh(r.Context(), req.Name)
	if errors.Is(err, issue.ErrNameRequired) {
		h.ListIssues(w, r)
		return
	}
	if err != nil {
		response.BackendError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, boardView(board))
}

// GetIssue handles GET /issues/{id}. The playbook query parameter selects the
// checklist shown alongside the timeline.
func (h *IssueHandler) GetIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	feed, ok := h.feed(w, r)
	if !ok {
		return
	}

	if err := feed.LoadIssue(ctx); err != nil {
		h.logger.Debug().Err(err).Str("issue_id", feed.IssueID()).Msg("issue metadata unavailable")
	}
	detail := issueDetailView(feed.View())
	detail.Playbooks = h.playbookSummaries(ctx)

	if pbID := r.URL.Query().Get("playbook"); pbID != "" {
		pb, err := h.playbooks.Get(ctx, pbID)
		if err != nil {
			response.BackendError(w, r, err)
			return
		}
		detail.Checklist = checklistView(pb, h.checklists.Items(feed.IssueID(), pb))
	}

	response.JSON(w, r, http.StatusOK, detail)
}

// AppendEvent handles POST /issues/{id}/events. A blank author or text is
// ignored and reported as not added.
func (h *IssueHandler) AppendEvent(w http.ResponseWriter, r *http.Request) {
	var req models.AppendEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	feed, ok := h.feed(w, r)
	if !ok {
		return
	}

	author := req.Author
	if author == "" {
		author = feed.Author()
	}
	added, err := feed.Append(r.Context(), author, req.Text)
	if err != nil {
		response.InternalError(w, r, err.Error())
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	response.JSON(w, r, status, models.AppendEventResponse{Added: added})
}

// EditEvent handles PUT /issues/{id}/events/{eventId}.
func (h *IssueHandler) EditEvent(w http.ResponseWriter, r *http.Request) {
	var req models.EditEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	feed, ok := h.feed(w, r)
	if !ok {
		return
	}

	if err := feed.EditEvent(r.Context(), chi.URLParam(r, "eventId"), req.Text); err != nil {
		response.InternalError(w, r, err.Error())
		return
	}
	response.NoContent(w, r)
}

// SetStatus handles PUT /issues/{id}/status. When the backend write fails
// after the timeline was updated, the write is queued and 202 is returned.
func (h *IssueHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req models.StatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	status, err := issue.ParseStatus(req.Status)
	if err != nil {
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "status", Message: "must be ongoing or resolved", Code: "INVALID"},
		})
		return
	}
	feed, ok := h.feed(w, r)
	if !ok {
		return
	}

	err = feed.ChangeStatus(r.Context(), status)
	var writeErr *timeline.StatusWriteError
	switch {
	case err == nil:
		response.JSON(w, r, http.StatusOK, models.StatusResponse{Status: status.String()})
	case errors.As(err, &writeErr) && writeErr.Queued:
		response.JSON(w, r, http.StatusAccepted, models.StatusResponse{Status: status.String(), Queued: true})
	case writeErr != nil:
		response.BackendError(w, r, err)
	default:
		response.InternalError(w, r, err.Error())
	}
}

// ToggleStep handles PUT /issues/{id}/checklists/{playbookId}/{step}.
func (h *IssueHandler) ToggleStep(w http.ResponseWriter, r *http.Request) {
	step, err := strconv.Atoi(chi.URLParam(r, "step"))
	if err != nil || step < 0 {
		response.BadRequest(w, r, "step must be a non-negative integer", nil)
		return
	}

	issueID := chi.URLParam(r, "id")
	playbookID := chi.URLParam(r, "playbookId")
	checked, err := h.checklists.Toggle(r.Context(), issueID, playbookID, step)
	if err != nil {
		response.InternalError(w, r, err.Error())
		return
	}
	response.JSON(w, r, http.StatusOK, models.ChecklistState{PlaybookID: playbookID, Checked: checked})
}

func (h *IssueHandler) feed(w http.ResponseWriter, r *http.Request) (*timeline.Feed, bool) {
	feed, err := h.feeds.Feed(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, timeline.ErrUnknownIssue) {
		response.BackendError(w, r, err)
		return nil, false
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to open timeline")
		response.InternalError(w, r, "timeline unavailable")
		return nil, false
	}
	return feed, true
}

func (h *IssueHandler) playbookSummaries(ctx context.Context) []models.PlaybookSummary {
	pbs, err := h.playbooks.List(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to list playbooks for issue page")
		return []models.PlaybookSummary{}
	}
	out := make([]models.PlaybookSummary, 0, len(pbs))
	for _, pb := range pbs {
		out = append(out, models.PlaybookSummary{ID: pb.ID, Name: pb.Name})
	}
	return out
}

func issueView(i issue.Issue) models.Issue {
	return models.Issue{ID: i.ID, Name: i.Name, CreatedAt: i.CreatedAt, Status: i.Status.String()}
}

func boardView(b issue.Board) models.Board {
	v := models.Board{
		Open:   make([]models.Issue, 0, len(b.Open)),
		Closed: make([]models.Issue, 0, len(b.Closed)),
	}
	for _, i := range b.Open {
		v.Open = append(v.Open, issueView(i))
	}
	for _, i := range b.Closed {
		v.Closed = append(v.Closed, issueView(i))
	}
	return v
}

func issueDetailView(v timeline.View) models.IssueDetail {
	d := models.IssueDetail{
		ID:      v.IssueID,
		Name:    v.Name,
		Status:  v.Status.String(),
		Events:  make([]models.Event, 0, len(v.Events)),
		Loading: v.Loading,
		Author:  v.Author,
	}
	if !v.CreatedAt.IsZero() {
		created := v.CreatedAt
		d.CreatedAt = &created
	}
	if v.DocErr != nil {
		d.Error = v.DocErr.Error()
	}
	if v.IssueErr != nil {
		d.IssueError = v.IssueErr.Error()
	}
	for _, ev := range v.Events {
		html, err := markdown.HTML(ev.Text)
		if err != nil {
			html = ""
		}
		d.Events = append(d.Events, models.Event{
			ID:        ev.ID,
			Text:      ev.Text,
			HTML:      html,
			Author:    ev.Author,
			CreatedAt: ev.CreatedAt,
		})
	}
	return d
}

func checklistView(pb playbook.Playbook, items []checklist.Item) *models.Checklist {
	c := &models.Checklist{PlaybookID: pb.ID, Name: pb.Name, Items: make([]models.ChecklistItem, len(items))}
	for i, it := range items {
		c.Items[i] = models.ChecklistItem{Index: it.Index, Content: it.Content, Checked: it.Checked}
	}
	return c
}
