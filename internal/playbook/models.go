// Package playbook manages response playbooks: named, ordered lists of steps.
package playbook

import "strings"

// Step is one positional instruction in a playbook.
type Step struct {
	Content string
}

// Playbook is a named, ordered procedure.
type Playbook struct {
	ID    string
	Name  string
	Steps []Step
}

// NonEmptySteps drops steps whose content is blank after trimming. The
// remaining steps keep their order and original text.
func NonEmptySteps(steps []Step) []Step {
	out := make([]Step, 0, len(steps))
	for _, s := range steps {
		if strings.TrimSpace(s.Content) != "" {
			out = append(out, s)
		}
	}
	return out
}
