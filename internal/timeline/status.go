// Package timeline is the per-issue event feed shared by every client viewing
// an issue: appending and editing events, and reading or changing the
// issue's status.
package timeline

import (
	"strings"

	"github.com/trackerhq/tracker/internal/collab"
	"github.com/trackerhq/tracker/internal/issue"
)

// ResolveStatus decides the displayed status. In order of precedence: the
// status written to the shared document, then any event whose text mentions
// "resolved" in any casing, then the backend's record, then ongoing.
func ResolveStatus(docStatus string, events []collab.Event, backendIssue *issue.Issue) issue.Status {
	if s, err := issue.ParseStatus(docStatus); err == nil {
		return s
	}
	for _, ev := range events {
		if strings.Contains(strings.ToLower(ev.Text), "resolved") {
			return issue.StatusResolved
		}
	}
	if backendIssue != nil && backendIssue.Status != "" {
		return backendIssue.Status
	}
	return issue.StatusOngoing
}
