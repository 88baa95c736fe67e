package models

// PlaybookSummary identifies a playbook in pickers.
type PlaybookSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Playbook is a named list of steps.
type Playbook struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Steps []string `json:"steps"`
}

// PlaybookRequest is the body of POST /playbooks and PUT /playbooks/{id}.
// Blank steps are dropped.
type PlaybookRequest struct {
	Name  string   `json:"name"`
	Steps []string `json:"steps"`
}
