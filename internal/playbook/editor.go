package playbook

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotEditing is returned by editor mutations outside edit mode.
var ErrNotEditing = errors.New("playbook is not being edited")

// Editor holds the edit-mode buffer for one playbook.
type Editor struct {
	mu      sync.Mutex
	svc     *Service
	saved   Playbook
	editing bool
	name    string
	steps   []Step
}

// NewEditor creates an editor over a loaded playbook.
func NewEditor(svc *Service, pb Playbook) *Editor {
	return &Editor{svc: svc, saved: pb}
}

// Playbook returns the last saved playbook.
func (e *Editor) Playbook() Playbook {
	e.mu.Lock()
	defer e.mu.Unlock()
	return clonePlaybook(e.saved)
}

// Editing reports whether edit mode is active.
func (e *Editor) Editing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editing
}

// Begin enters edit mode with a copy of the saved playbook. An empty
// playbook starts with one blank step.
func (e *Editor) Begin() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.editing = true
	e.name = e.saved.Name
	e.steps = append([]Step(nil), e.saved.Steps...)
	if len(e.steps) == 0 {
		e.steps = []Step{{}}
	}
}

// Draft returns the buffered name and steps.
func (e *Editor) Draft() (string, []Step) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.name, append([]Step(nil), e.steps...)
}

// SetName changes the buffered name.
func (e *Editor) SetName(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.editing {
		return ErrNotEditing
	}
	e.name = name
	return nil
}

// SetStep changes the text of step i.
func (e *Editor) SetStep(i int, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.editing {
		return ErrNotEditing
	}
	if i < 0 || i >= len(e.steps) {
		return fmt.Errorf("step %d out of range", i)
	}
	e.steps[i].Content = text
	return nil
}

// AddStep appends a blank step.
func (e *Editor) AddStep() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.editing {
		return ErrNotEditing
	}
	e.steps = append(e.steps, Step{})
	return nil
}

// RemoveStep deletes step i. The last remaining step cannot be removed.
func (e *Editor) RemoveStep(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.editing {
		return ErrNotEditing
	}
	if i < 0 || i >= len(e.steps) {
		return fmt.Errorf("step %d out of range", i)
	}
	if len(e.steps) == 1 {
		return nil
	}
	e.steps = append(e.steps[:i], e.steps[i+1:]...)
	return nil
}

// Save writes the buffer to the backend and leaves edit mode. On failure the
// editor stays in edit mode with the buffer intact.
func (e *Editor) Save(ctx context.Context) (Playbook, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.editing {
		return Playbook{}, ErrNotEditing
	}

	saved, err := e.svc.Update(ctx, Playbook{ID: e.saved.ID, Name: e.name, Steps: e.steps})
	if err != nil {
		return Playbook{}, err
	}

	e.saved = saved
	e.editing = false
	e.name = ""
	e.steps = nil
	return clonePlaybook(saved), nil
}

// Cancel discards the buffer.
func (e *Editor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.editing = false
	e.name = ""
	e.steps = nil
}

func clonePlaybook(pb Playbook) Playbook {
	pb.Steps = append([]Step(nil), pb.Steps...)
	return pb
}
