// Package issue provides incident issue listing, creation and status updates
// against the backend.
package issue

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of an issue.
type Status string

// Status values.
const (
	StatusOngoing  Status = "ongoing"
	StatusResolved Status = "resolved"
)

// Backend status codes.
const (
	codeResolved = 0
	codeOngoing  = 1
)

// StatusFromCode maps the backend's numeric status. Only 1 means ongoing.
func StatusFromCode(code int) Status {
	if code == codeOngoing {
		return StatusOngoing
	}
	return StatusResolved
}

// Code returns the backend's numeric status.
func (s Status) Code() int {
	if s == StatusOngoing {
		return codeOngoing
	}
	return codeResolved
}

// ParseStatus parses the shared-document string form.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusOngoing:
		return StatusOngoing, nil
	case StatusResolved:
		return StatusResolved, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// String returns the shared-document string form.
func (s Status) String() string {
	return string(s)
}

// Issue is an incident record.
type Issue struct {
	ID        string
	Name      string
	CreatedAt time.Time
	Status    Status
}

// IsOpen reports whether the issue is ongoing.
func (i Issue) IsOpen() bool {
	return i.Status == StatusOngoing
}
