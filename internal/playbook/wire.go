package playbook

import "github.com/trackerhq/tracker/internal/backend"

type wireStep struct {
	Content string `json:"content"`
}

type wirePlaybook struct {
	ID    *string    `json:"id"`
	Name  *string    `json:"name"`
	Steps []wireStep `json:"steps"`
}

func (w wirePlaybook) Validate() error {
	if w.ID == nil || *w.ID == "" {
		return backend.Missing("id")
	}
	if w.Name == nil {
		return backend.Missing("name")
	}
	return nil
}

func (w wirePlaybook) toPlaybook() Playbook {
	steps := make([]Step, 0, len(w.Steps))
	for _, s := range w.Steps {
		steps = append(steps, Step{Content: s.Content})
	}
	return Playbook{ID: *w.ID, Name: *w.Name, Steps: steps}
}

type writeRequest struct {
	Name  string     `json:"name"`
	Steps []wireStep `json:"steps"`
}

func newWriteRequest(name string, steps []Step) writeRequest {
	req := writeRequest{Name: name, Steps: make([]wireStep, 0, len(steps))}
	for _, s := range steps {
		req.Steps = append(req.Steps, wireStep{Content: s.Content})
	}
	return req
}
