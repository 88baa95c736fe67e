// Package collab is the shared per-issue document holding the event timeline
// and the authoritative status. Several clients may edit the same document;
// every implementation applies mutations atomically so concurrent writers
// converge.
package collab

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrClosed is returned by operations on a closed document.
var ErrClosed = errors.New("document is closed")

// Event is one timeline entry.
type Event struct {
	ID        string
	Text      string
	Author    string
	CreatedAt time.Time
}

type wireEvent struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Author    string `json:"author"`
	CreatedAt int64  `json:"createdAt"`
}

// MarshalJSON encodes CreatedAt as epoch milliseconds.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEvent{
		ID:        e.ID,
		Text:      e.Text,
		Author:    e.Author,
		CreatedAt: e.CreatedAt.UnixMilli(),
	})
}

// UnmarshalJSON decodes CreatedAt from epoch milliseconds.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = Event{ID: w.ID, Text: w.Text, Author: w.Author, CreatedAt: time.UnixMilli(w.CreatedAt)}
	return nil
}

// Root is the document content.
type Root struct {
	Events []Event `json:"events"`
	// Status is "ongoing", "resolved" or empty when never set.
	Status string `json:"status,omitempty"`
}

// Clone returns a deep copy.
func (r Root) Clone() Root {
	out := Root{Status: r.Status}
	if r.Events != nil {
		out.Events = append(make([]Event, 0, len(r.Events)), r.Events...)
	}
	return out
}

// State reports document availability.
type State struct {
	Loading bool
	Err     error
}

// Document is one shared issue document.
type Document interface {
	// IssueID is the issue this document belongs to.
	IssueID() string

	// Root returns a snapshot of the content.
	Root() Root

	// Update applies fn atomically. If fn returns an error nothing is written.
	Update(ctx context.Context, fn func(*Root) error) error

	State() State

	// Subscribe returns a channel signalled after every change, local or
	// remote. Call the returned func to stop.
	Subscribe() (<-chan struct{}, func())

	Close() error
}

// Opener attaches to the document for an issue.
type Opener interface {
	Open(ctx context.Context, issueID string) (Document, error)
}
