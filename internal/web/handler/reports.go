package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/trackerhq/tracker/internal/markdown"
	"github.com/trackerhq/tracker/internal/report"
	"github.com/trackerhq/tracker/internal/web/models"
	"github.com/trackerhq/tracker/internal/web/response"
)

const maxImageBytes = 10 << 20

// ReportHandler serves report pages and image uploads.
type ReportHandler struct {
	reports *report.Service
	logger  zerolog.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reports *report.Service, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

// ListReports handles GET /reports.
func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reports.List(r.Context())
	if err != nil {
		response.BackendError(w, r, err)
		return
	}
	out := make([]models.Report, 0, len(reports))
	for _, rep := range reports {
		out = append(out, reportView(rep, ""))
	}
	response.JSON(w, r, http.StatusOK, out)
}

// CreateReport handles POST /reports.
func (h *ReportHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	var req models.ReportRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rep, err := h.reports.Create(r.Context(), req.Title, req.Content)
	if h.writeError(w, r, err) {
		return
	}
	response.Created(w, r, "/reports/"+rep.ID, reportView(rep, h.render(rep.Content)))
}

// GetReport handles GET /reports/{id}.
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reports.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.BackendError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, reportView(rep, h.render(rep.Content)))
}

// UpdateReport handles PUT /reports/{id}.
func (h *ReportHandler) UpdateReport(w http.ResponseWriter, r *http.Request) {
	var req models.ReportRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	if h.writeError(w, r, h.reports.Update(r.Context(), id, req.Title, req.Content)) {
		return
	}
	rep, err := h.reports.Get(r.Context(), id)
	if err != nil {
		response.BackendError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, reportView(rep, h.render(rep.Content)))
}

// DeleteReport handles DELETE /reports/{id}.
func (h *ReportHandler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	if err := h.reports.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.BackendError(w, r, err)
		return
	}
	response.NoContent(w, r)
}

// UploadImage handles POST /images, a multipart form with a "file" field.
func (h *ReportHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		fieldRequired(w, r, "file")
		return
	}
	defer file.Close()

	url, err := h.reports.UploadImage(r.Context(), header.Filename, file)
	if errors.Is(err, report.ErrNotAnImage) {
		response.BadRequest(w, r, err.Error(), []models.FieldError{{Field: "file", Message: err.Error(), Code: "INVALID"}})
		return
	}
	if err != nil {
		response.BackendError(w, r, err)
		return
	}
	response.Created(w, r, "", models.Image{URL: url, Markdown: report.ImageMarkdown(url)})
}

func (h *ReportHandler) writeError(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, report.ErrTitleRequired):
		fieldRequired(w, r, "title")
	case errors.Is(err, report.ErrContentRequired):
		fieldRequired(w, r, "content")
	default:
		response.BackendError(w, r, err)
	}
	return true
}

func (h *ReportHandler) render(content string) string {
	html, err := markdown.HTML(content)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to render report markdown")
		return ""
	}
	return html
}

func reportView(rep report.Report, html string) models.Report {
	return models.Report{
		ID:        rep.ID,
		Title:     rep.Title,
		Content:   rep.Content,
		HTML:      html,
		CreatedBy: rep.CreatedBy,
		CreatedAt: rep.CreatedAt,
		UpdatedAt: rep.UpdatedAt,
	}
}
