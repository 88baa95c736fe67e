// Package report manages markdown post-incident reports and their images.
package report

import "time"

// Report is a markdown document.
type Report struct {
	ID        string
	Title     string
	Content   string
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}
