package timeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/trackerhq/tracker/internal/backend"
	"github.com/trackerhq/tracker/internal/collab"
)

// DefaultMaxOpen is how many issue documents a Registry keeps open before it
// closes the least recently used one.
const DefaultMaxOpen = 32

// ErrUnknownIssue is returned by Registry.Feed when the backend reports that
// the issue does not exist.
var ErrUnknownIssue = errors.New("unknown issue")

// Registry opens one Feed per issue and keeps it for reuse. Template supplies
// every FeedConfig field except IssueID and Document.
type Registry struct {
	opener   collab.Opener
	template FeedConfig

	mu      sync.Mutex
	maxOpen int
	uses    uint64
	feeds   map[string]*openFeed
}

type openFeed struct {
	feed    *Feed
	lastUse uint64
}

// NewRegistry creates a feed registry.
func NewRegistry(opener collab.Opener, template FeedConfig) *Registry {
	return &Registry{
		opener:   opener,
		template: template,
		maxOpen:  DefaultMaxOpen,
		feeds:    make(map[string]*openFeed),
	}
}

// SetMaxOpen changes how many documents stay open. Values below one are
// ignored.
func (r *Registry) SetMaxOpen(n int) {
	if n < 1 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxOpen = n
	r.evictLocked()
}

// Feed returns the feed for issueID, opening its document on first use. When
// the template has an issue source, an id the backend does not know is
// rejected with ErrUnknownIssue before any document is opened. Other lookup
// failures do not block the timeline.
func (r *Registry) Feed(ctx context.Context, issueID string) (*Feed, error) {
	if f, ok := r.cached(issueID); ok {
		return f, nil
	}

	if r.template.Issues != nil {
		if _, err := r.template.Issues.Get(ctx, issueID); errors.Is(err, backend.ErrNotFound) {
			return nil, fmt.Errorf("%w %s: %w", ErrUnknownIssue, issueID, err)
		}
	}

	doc, err := r.opener.Open(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("open timeline for issue %s: %w", issueID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another caller may have opened the same issue meanwhile.
	if of, ok := r.feeds[issueID]; ok {
		of.lastUse = r.touchLocked()
		if cerr := doc.Close(); cerr != nil {
			r.template.Logger.Warn().Err(cerr).Str("issue_id", issueID).Msg("failed to close duplicate timeline")
		}
		return of.feed, nil
	}

	cfg := r.template
	cfg.IssueID = issueID
	cfg.Document = doc
	f := NewFeed(cfg)
	r.feeds[issueID] = &openFeed{feed: f, lastUse: r.touchLocked()}
	r.evictLocked()
	return f, nil
}

// Len returns how many feeds are open.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.feeds)
}

func (r *Registry) cached(issueID string) (*Feed, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	of, ok := r.feeds[issueID]
	if !ok {
		return nil, false
	}
	of.lastUse = r.touchLocked()
	return of.feed, true
}

func (r *Registry) touchLocked() uint64 {
	r.uses++
	return r.uses
}

func (r *Registry) evictLocked() {
	for len(r.feeds) > r.maxOpen {
		var oldestID string
		var oldest uint64
		for id, of := range r.feeds {
			if oldestID == "" || of.lastUse < oldest {
				oldestID, oldest = id, of.lastUse
			}
		}
		if err := r.feeds[oldestID].feed.doc.Close(); err != nil {
			r.template.Logger.Warn().Err(err).Str("issue_id", oldestID).Msg("failed to close idle timeline")
		}
		delete(r.feeds, oldestID)
	}
}

// Close closes every open document.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for id, of := range r.feeds {
		if err := of.feed.doc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close timeline for issue %s: %w", id, err))
		}
		delete(r.feeds, id)
	}
	return errors.Join(errs...)
}
