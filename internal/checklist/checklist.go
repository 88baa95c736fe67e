// Package checklist tracks which playbook steps have been ticked off for an
// issue. The state is local to this client and never sent to the backend.
package checklist

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/trackerhq/tracker/internal/playbook"
	"github.com/trackerhq/tracker/internal/settings"
)

// ErrInvalidStep is returned for a negative step index.
var ErrInvalidStep = errors.New("invalid step index")

// Item is one playbook step with its checked state.
type Item struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
	Checked bool   `json:"checked"`
}

// Service reads and writes checklist state through the settings store.
type Service struct {
	store *settings.Store
}

// NewService creates a checklist service.
func NewService(store *settings.Store) *Service {
	return &Service{store: store}
}

// Get returns the checked steps for an issue and playbook. Unchecked steps
// may be absent or false.
func (s *Service) Get(issueID, playbookID string) map[int]bool {
	checked := s.store.Snapshot().Checklists[settings.ChecklistKey(issueID, playbookID)]
	if checked == nil {
		return map[int]bool{}
	}
	return maps.Clone(checked)
}

// Toggle flips one step and returns the new state.
func (s *Service) Toggle(ctx context.Context, issueID, playbookID string, step int) (map[int]bool, error) {
	if step < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStep, step)
	}

	key := settings.ChecklistKey(issueID, playbookID)
	var updated map[int]bool
	err := s.store.Update(ctx, func(st *settings.Settings) {
		if st.Checklists == nil {
			st.Checklists = make(map[string]map[int]bool)
		}
		checked := st.Checklists[key]
		if checked == nil {
			checked = make(map[int]bool)
		}
		checked[step] = !checked[step]
		st.Checklists[key] = checked
		updated = maps.Clone(checked)
	})
	if err != nil {
		return nil, fmt.Errorf("save checklist: %w", err)
	}
	return updated, nil
}

// Items pairs a playbook's steps with the issue's checked state.
func (s *Service) Items(issueID string, pb playbook.Playbook) []Item {
	checked := s.Get(issueID, pb.ID)
	items := make([]Item, len(pb.Steps))
	for i, step := range pb.Steps {
		items[i] = Item{Index: i, Content: step.Content, Checked: checked[i]}
	}
	return items
}
