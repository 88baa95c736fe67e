package timeline

import (
	"slices"
	"time"

	"github.com/trackerhq/tracker/internal/collab"
	"github.com/trackerhq/tracker/internal/issue"
)

// View is everything a shell needs to draw an issue page.
type View struct {
	IssueID   string
	Name      string
	CreatedAt time.Time
	Status    issue.Status

	// Events are newest first.
	Events []collab.Event

	Loading bool
	DocErr  error
	// IssueErr is set when the backend metadata could not be loaded.
	IssueErr error

	Author string
	Draft  string

	EditingID   string
	EditingText string
}

// View assembles the current view.
func (f *Feed) View() View {
	root := f.doc.Root()
	state := f.doc.State()

	f.mu.Lock()
	v := View{
		IssueID:     f.issueID,
		IssueErr:    f.backendErr,
		Draft:       f.draft,
		EditingID:   f.editID,
		EditingText: f.editText,
	}
	backend := f.backend
	f.mu.Unlock()

	if backend != nil {
		v.Name = backend.Name
		v.CreatedAt = backend.CreatedAt
	}
	v.Status = ResolveStatus(root.Status, root.Events, backend)
	v.Events = root.Events
	slices.Reverse(v.Events)
	v.Loading = state.Loading
	v.DocErr = state.Err
	v.Author = f.Author()
	return v
}
