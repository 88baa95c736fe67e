package issue

import (
	"time"

	"github.com/trackerhq/tracker/internal/backend"
)

// wireIssue is the backend JSON shape. createdAt is epoch milliseconds.
type wireIssue struct {
	ID        *string `json:"id"`
	Name      *string `json:"name"`
	CreatedAt *int64  `json:"createdAt"`
	Status    *int    `json:"status"`
}

func (w wireIssue) Validate() error {
	switch {
	case w.ID == nil || *w.ID == "":
		return backend.Missing("id")
	case w.Name == nil:
		return backend.Missing("name")
	case w.CreatedAt == nil:
		return backend.Missing("createdAt")
	case w.Status == nil:
		return backend.Missing("status")
	}
	return nil
}

func (w wireIssue) toIssue() Issue {
	return Issue{
		ID:        *w.ID,
		Name:      *w.Name,
		CreatedAt: time.UnixMilli(*w.CreatedAt),
		Status:    StatusFromCode(*w.Status),
	}
}

type createRequest struct {
	Name string `json:"name"`
}

// createResponse is whatever the backend echoes on create. Its id may be the
// zero object id, so nothing in it is relied upon.
type createResponse struct {
	ID string `json:"id"`
}

func (createResponse) Validate() error { return nil }

type updateRequest struct {
	Name   string `json:"name"`
	Status int    `json:"status"`
}

type statusRequest struct {
	Status int `json:"status"`
}
