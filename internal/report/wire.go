package report

import (
	"time"

	"github.com/trackerhq/tracker/internal/backend"
)

// wireReport timestamps are RFC 3339.
type wireReport struct {
	ID        *string   `json:"id"`
	Title     *string   `json:"title"`
	Content   *string   `json:"content"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (w wireReport) Validate() error {
	switch {
	case w.ID == nil || *w.ID == "":
		return backend.Missing("id")
	case w.Title == nil:
		return backend.Missing("title")
	case w.Content == nil:
		return backend.Missing("content")
	}
	return nil
}

func (w wireReport) toReport() Report {
	return Report{
		ID:        *w.ID,
		Title:     *w.Title,
		Content:   *w.Content,
		CreatedBy: w.CreatedBy,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

type writeRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type uploadResponse struct {
	URL string `json:"url"`
}

func (u uploadResponse) Validate() error {
	if u.URL == "" {
		return backend.Missing("url")
	}
	return nil
}
