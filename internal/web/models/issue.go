package models

import "time"

// Issue is one issue on the board.
type Issue struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	Status    string    `json:"status"`
}

// Board splits issues by status, newest first.
type Board struct {
	Open   []Issue `json:"open"`
	Closed []Issue `json:"closed"`
}

// CreateIssueRequest is the body of POST /issues.
type CreateIssueRequest struct {
	Name string `json:"name"`
}

// Event is a timeline entry with its body rendered to HTML.
type Event struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	HTML      string    `json:"html"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// IssueDetail is the issue page: metadata, resolved status and the timeline.
type IssueDetail struct {
	ID string `json:"id"`
	// Name and CreatedAt are empty when the backend record is unavailable.
	Name      string     `json:"name,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	Status    string     `json:"status"`

	Events  []Event `json:"events"`
	Loading bool    `json:"loading"`
	// Error is set when the shared timeline is unavailable.
	Error string `json:"error,omitempty"`
	// IssueError is set when the backend record could not be loaded.
	IssueError string `json:"issueError,omitempty"`
	Author     string `json:"author"`

	Playbooks []PlaybookSummary `json:"playbooks"`
	Checklist *Checklist        `json:"checklist,omitempty"`
}

// AppendEventRequest is the body of POST /issues/{id}/events. Author falls
// back to the saved author preference.
type AppendEventRequest struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// AppendEventResponse reports whether the event was added.
type AppendEventResponse struct {
	Added bool `json:"added"`
}

// EditEventRequest is the body of PUT /issues/{id}/events/{eventId}.
type EditEventRequest struct {
	Text string `json:"text"`
}

// StatusRequest is the body of PUT /issues/{id}/status.
type StatusRequest struct {
	Status string `json:"status"`
}

// StatusResponse reports the outcome of a status change. Queued is set when
// the backend write failed and will be retried.
type StatusResponse struct {
	Status string `json:"status"`
	Queued bool   `json:"queued,omitempty"`
}

// Checklist is one playbook's steps with this issue's checked state.
type Checklist struct {
	PlaybookID string          `json:"playbookId"`
	Name       string          `json:"name"`
	Items      []ChecklistItem `json:"items"`
}

// ChecklistItem is one step of a Checklist.
type ChecklistItem struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
	Checked bool   `json:"checked"`
}

// ChecklistState is the checked steps after a toggle.
type ChecklistState struct {
	PlaybookID string       `json:"playbookId"`
	Checked    map[int]bool `json:"checked"`
}
