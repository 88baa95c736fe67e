package models

import "time"

// Report is a report with its content rendered to HTML.
type Report struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	HTML      string    `json:"html,omitempty"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ReportRequest is the body of POST /reports and PUT /reports/{id}.
type ReportRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Image is an uploaded image and the markdown that embeds it.
type Image struct {
	URL      string `json:"url"`
	Markdown string `json:"markdown"`
}
