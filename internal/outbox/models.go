// Package outbox queues backend status writes that failed after the shared
// document was already updated, and replays them until the backend agrees.
package outbox

import (
	"time"

	"github.com/trackerhq/tracker/internal/issue"
)

// Entry is a pending status write. There is at most one per issue; a newer
// status replaces an older one.
type Entry struct {
	ID        string
	IssueID   string
	Status    issue.Status
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}
