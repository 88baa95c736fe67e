package collab

import (
	"context"
	"sync"
)

// MemoryOpener keeps documents in process. Every Open of the same issue
// shares one document, which makes it a stand-in for a real-time server in
// tests and in the single-process web shell.
type MemoryOpener struct {
	mu   sync.Mutex
	docs map[string]*MemoryDocument
}

// NewMemoryOpener creates an empty in-memory document store.
func NewMemoryOpener() *MemoryOpener {
	return &MemoryOpener{docs: make(map[string]*MemoryDocument)}
}

// Open returns the shared document for issueID, creating it empty.
func (o *MemoryOpener) Open(_ context.Context, issueID string) (Document, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	doc, ok := o.docs[issueID]
	if !ok {
		doc = NewMemoryDocument(issueID, Root{})
		o.docs[issueID] = doc
	}
	return doc, nil
}

// MemoryDocument is a Document held in memory.
type MemoryDocument struct {
	issueID string
	notifier

	mu   sync.RWMutex
	root Root
}

// NewMemoryDocument creates a document with initial content.
func NewMemoryDocument(issueID string, initial Root) *MemoryDocument {
	return &MemoryDocument{issueID: issueID, root: initial.Clone()}
}

// IssueID returns the issue id.
func (d *MemoryDocument) IssueID() string { return d.issueID }

// Root returns a snapshot.
func (d *MemoryDocument) Root() Root {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.root.Clone()
}

// Update applies fn under the document lock.
func (d *MemoryDocument) Update(ctx context.Context, fn func(*Root) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	next := d.root.Clone()
	if err := fn(&next); err != nil {
		d.mu.Unlock()
		return err
	}
	d.root = next
	d.mu.Unlock()

	d.notify()
	return nil
}

// State is always ready.
func (d *MemoryDocument) State() State { return State{} }

// Subscribe registers for change signals.
func (d *MemoryDocument) Subscribe() (<-chan struct{}, func()) { return d.subscribe() }

// Close is a no-op; the document lives as long as its opener.
func (d *MemoryDocument) Close() error { return nil }
