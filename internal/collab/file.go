package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/rs/zerolog"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// FileOpener stores one JSON replica per issue in a directory. It lets the
// command-line shell keep a timeline without a real-time server. Writers in
// one process are serialised; each update re-reads the file first so
// sequential writers from other processes are not lost.
type FileOpener struct {
	dir    string
	logger zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileOpener creates an opener rooted at dir.
func NewFileOpener(dir string, logger zerolog.Logger) *FileOpener {
	return &FileOpener{dir: dir, logger: logger, locks: make(map[string]*sync.Mutex)}
}

// Open loads the replica for issueID. A missing replica is an empty document.
func (o *FileOpener) Open(_ context.Context, issueID string) (Document, error) {
	if issueID == "" {
		return nil, errors.New("issue id is required")
	}
	if err := os.MkdirAll(o.dir, 0o700); err != nil {
		return nil, fmt.Errorf("create replica dir: %w", err)
	}

	doc := &FileDocument{
		issueID: issueID,
		path:    filepath.Join(o.dir, unsafeFileChars.ReplaceAllString(issueID, "_")+".json"),
		lock:    o.lockFor(issueID),
		logger:  o.logger,
	}
	root, err := doc.read()
	if err != nil {
		doc.state = State{Err: err}
		return doc, nil
	}
	doc.root = root
	return doc, nil
}

func (o *FileOpener) lockFor(issueID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[issueID]
	if !ok {
		l = &sync.Mutex{}
		o.locks[issueID] = l
	}
	return l
}

// FileDocument is a Document persisted as a JSON file.
type FileDocument struct {
	issueID string
	path    string
	lock    *sync.Mutex
	logger  zerolog.Logger
	notifier

	mu     sync.RWMutex
	root   Root
	state  State
	closed bool
}

// IssueID returns the issue id.
func (d *FileDocument) IssueID() string { return d.issueID }

// Root returns the last loaded content.
func (d *FileDocument) Root() Root {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.root.Clone()
}

// State reports a load or write failure, if any.
func (d *FileDocument) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Update re-reads the replica, applies fn and writes it back atomically.
func (d *FileDocument) Update(ctx context.Context, fn func(*Root) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.RLock()
	closed := d.closed
	d.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	d.lock.Lock()
	defer d.lock.Unlock()

	current, err := d.read()
	if err != nil {
		d.setState(State{Err: err})
		return err
	}
	if err := fn(&current); err != nil {
		return err
	}
	if err := d.write(current); err != nil {
		d.setState(State{Err: err})
		return err
	}

	d.mu.Lock()
	d.root = current
	d.state = State{}
	d.mu.Unlock()

	d.notify()
	return nil
}

// Subscribe registers for change signals from this process.
func (d *FileDocument) Subscribe() (<-chan struct{}, func()) { return d.subscribe() }

// Close marks the document closed.
func (d *FileDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *FileDocument) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

func (d *FileDocument) read() (Root, error) {
	data, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Root{}, nil
	}
	if err != nil {
		return Root{}, fmt.Errorf("read replica: %w", err)
	}
	var root Root
	if err := json.Unmarshal(data, &root); err != nil {
		return Root{}, fmt.Errorf("parse replica %s: %w", d.path, err)
	}
	return root, nil
}

func (d *FileDocument) write(root Root) error {
	data, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return fmt.Errorf("encode replica: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.path), ".replica-*.json")
	if err != nil {
		return fmt.Errorf("create temp replica: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write replica: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close replica: %w", err)
	}
	if err := os.Rename(tmpName, d.path); err != nil {
		return fmt.Errorf("replace replica: %w", err)
	}
	d.logger.Debug().Str("issue_id", d.issueID).Int("events", len(root.Events)).Msg("replica written")
	return nil
}
