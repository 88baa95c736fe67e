package timeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trackerhq/tracker/internal/collab"
	"github.com/trackerhq/tracker/internal/issue"
	"github.com/trackerhq/tracker/internal/outbox"
	"github.com/trackerhq/tracker/internal/settings"
)

// IssueSource reads backend issue metadata.
type IssueSource interface {
	Get(ctx context.Context, id string) (issue.Issue, error)
}

// StatusWriter writes an issue's status to the backend.
type StatusWriter interface {
	SetStatus(ctx context.Context, id string, status issue.Status) error
}

// StatusWriteError is returned by ChangeStatus when the shared document was
// updated but the backend write failed and was queued for retry.
type StatusWriteError struct {
	IssueID string
	Status  issue.Status
	Queued  bool
	Err     error
}

func (e *StatusWriteError) Error() string {
	suffix := ""
	if e.Queued {
		suffix = " (queued for retry)"
	}
	return fmt.Sprintf("write status %s for issue %s%s: %v", e.Status, e.IssueID, suffix, e.Err)
}

func (e *StatusWriteError) Unwrap() error { return e.Err }

// FeedConfig holds configuration for a Feed.
type FeedConfig struct {
	IssueID  string
	Document collab.Document
	Issues   IssueSource
	Writer   StatusWriter
	// Outbox queues failed status writes (optional). Notify wakes the
	// reconciler after a write is queued.
	Outbox   outbox.Repository
	Notify   func()
	Settings *settings.Store
	Logger   zerolog.Logger

	// Now overrides the clock (optional).
	Now func() time.Time
	// NewID overrides event id generation (optional).
	NewID func(now time.Time) string
}

// Feed is one client's view of an issue's timeline: the shared document plus
// this client's draft and edit buffers.
type Feed struct {
	issueID  string
	doc      collab.Document
	issues   IssueSource
	writer   StatusWriter
	outbox   outbox.Repository
	notify   func()
	settings *settings.Store
	logger   zerolog.Logger
	now      func() time.Time
	newID    func(time.Time) string

	mu         sync.Mutex
	draft      string
	editID     string
	editText   string
	backend    *issue.Issue
	backendErr error
}

// NewFeed creates a feed over an open document.
func NewFeed(cfg FeedConfig) *Feed {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	newID := cfg.NewID
	if newID == nil {
		newID = timeOrderedID
	}
	return &Feed{
		issueID:  cfg.IssueID,
		doc:      cfg.Document,
		issues:   cfg.Issues,
		writer:   cfg.Writer,
		outbox:   cfg.Outbox,
		notify:   cfg.Notify,
		settings: cfg.Settings,
		logger:   cfg.Logger.With().Str("issue_id", cfg.IssueID).Logger(),
		now:      now,
		newID:    newID,
	}
}

// timeOrderedID returns a UUIDv7, whose leading bits are the timestamp.
func timeOrderedID(now time.Time) string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("%d", now.UnixNano())
	}
	return id.String()
}

// IssueID returns the issue this feed belongs to.
func (f *Feed) IssueID() string { return f.issueID }

// Author returns the saved author display name.
func (f *Feed) Author() string {
	if f.settings == nil {
		return ""
	}
	return f.settings.Snapshot().Author
}

// Draft returns the unsent event body.
func (f *Feed) Draft() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// SetDraft replaces the unsent event body.
func (f *Feed) SetDraft(body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = body
}

// Append adds an event at the end of the shared list. Blank author or body
// is silently ignored and reports false. The author is stored trimmed. On
// success the draft is cleared and the author remembered.
func (f *Feed) Append(ctx context.Context, author, body string) (bool, error) {
	author = strings.TrimSpace(author)
	if author == "" || strings.TrimSpace(body) == "" {
		return false, nil
	}

	now := f.now()
	ev := collab.Event{
		ID:        f.newID(now),
		Text:      body,
		Author:    author,
		CreatedAt: now,
	}
	if err := f.doc.Update(ctx, func(r *collab.Root) error {
		r.Events = append(r.Events, ev)
		return nil
	}); err != nil {
		return false, fmt.Errorf("append event: %w", err)
	}

	f.mu.Lock()
	f.draft = ""
	f.mu.Unlock()

	f.rememberAuthor(ctx, author)
	return true, nil
}

func (f *Feed) rememberAuthor(ctx context.Context, author string) {
	if f.settings == nil || f.settings.Snapshot().Author == author {
		return
	}
	if err := f.settings.Update(ctx, func(s *settings.Settings) { s.Author = author }); err != nil {
		f.logger.Warn().Err(err).Msg("failed to save author preference")
	}
}

// BeginEdit enters edit mode for the event with id, replacing any edit in
// progress. The buffer starts with the event's current text.
func (f *Feed) BeginEdit(id string) {
	text := ""
	for _, ev := range f.doc.Root().Events {
		if ev.ID == id {
			text = ev.Text
			break
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.editID = id
	f.editText = text
}

// SetEditText replaces the edit buffer.
func (f *Feed) SetEditText(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.editText = text
}

// Editing returns the event being edited and the buffer, if any.
func (f *Feed) Editing() (id, text string, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.editID, f.editText, f.editID != ""
}

// SaveEdit writes the edit buffer into the event being edited. If the event
// is no longer in the shared list nothing changes. Edit mode ends either way.
func (f *Feed) SaveEdit(ctx context.Context) error {
	f.mu.Lock()
	id, text := f.editID, f.editText
	f.editID, f.editText = "", ""
	f.mu.Unlock()

	if id == "" {
		return nil
	}
	return f.EditEvent(ctx, id, text)
}

// EditEvent replaces the text of the event with id. A missing id leaves the
// list unchanged.
func (f *Feed) EditEvent(ctx context.Context, id, text string) error {
	err := f.doc.Update(ctx, func(r *collab.Root) error {
		i := slices.IndexFunc(r.Events, func(ev collab.Event) bool { return ev.ID == id })
		if i < 0 {
			return errEventMissing
		}
		r.Events[i].Text = text
		return nil
	})
	if errors.Is(err, errEventMissing) {
		f.logger.Debug().Str("event_id", id).Msg("edited event no longer exists")
		return nil
	}
	if err != nil {
		return fmt.Errorf("edit event: %w", err)
	}
	return nil
}

var errEventMissing = errors.New("event missing")

// CancelEdit leaves edit mode without writing.
func (f *Feed) CancelEdit() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.editID, f.editText = "", ""
}

// Events returns the events newest first. Order is the reverse of append
// order; timestamps are not consulted.
func (f *Feed) Events() []collab.Event {
	events := f.doc.Root().Events
	slices.Reverse(events)
	return events
}

// LoadIssue fetches the backend metadata shown alongside the timeline.
func (f *Feed) LoadIssue(ctx context.Context) error {
	if f.issues == nil {
		return nil
	}
	iss, err := f.issues.Get(ctx, f.issueID)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.backendErr = err
		return err
	}
	f.backend = &iss
	f.backendErr = nil
	return nil
}

// Status returns the displayed status.
func (f *Feed) Status() issue.Status {
	root := f.doc.Root()
	f.mu.Lock()
	backend := f.backend
	f.mu.Unlock()
	return ResolveStatus(root.Status, root.Events, backend)
}

// ChangeStatus writes status to the shared document and then to the backend.
// The document change stands even if the backend write fails; that write is
// queued for retry and a *StatusWriteError is returned.
func (f *Feed) ChangeStatus(ctx context.Context, status issue.Status) error {
	if err := f.doc.Update(ctx, func(r *collab.Root) error {
		r.Status = status.String()
		return nil
	}); err != nil {
		return fmt.Errorf("update document status: %w", err)
	}

	err := f.writer.SetStatus(ctx, f.issueID, status)
	if err == nil {
		f.mu.Lock()
		if f.backend != nil {
			f.backend.Status = status
		}
		f.mu.Unlock()
		if f.outbox != nil {
			if rerr := f.outbox.Remove(ctx, f.issueID); rerr != nil {
				f.logger.Error().Err(rerr).Msg("failed to clear queued status write")
			}
		}
		f.logger.Info().Str("status", status.String()).Msg("issue status changed")
		return nil
	}

	writeErr := &StatusWriteError{IssueID: f.issueID, Status: status, Err: err}
	if f.outbox != nil {
		if _, qerr := f.outbox.Enqueue(ctx, f.issueID, status); qerr != nil {
			f.logger.Error().Err(qerr).Msg("failed to queue status write")
		} else {
			writeErr.Queued = true
			if f.notify != nil {
				f.notify()
			}
		}
	}
	f.logger.Warn().Err(err).Str("status", status.String()).Bool("queued", writeErr.Queued).Msg("backend status write failed")
	return writeErr
}
