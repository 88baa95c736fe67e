package models

import "time"

// Endpoint is one monitored health endpoint.
type Endpoint struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Status    string `json:"status"`
	Threshold int    `json:"threshold"`
	FailCount int    `json:"failCount"`
	Interval  int    `json:"interval"`
	Reason    string `json:"reason,omitempty"`
}

// EndpointList is the latest poll result.
type EndpointList struct {
	Endpoints []Endpoint `json:"endpoints"`
	FetchedAt *time.Time `json:"fetchedAt,omitempty"`
	// NextPollSeconds is the current polling cadence.
	NextPollSeconds int    `json:"nextPollSeconds"`
	Error           string `json:"error,omitempty"`
}

// EndpointRequest is the body of POST /health and PUT /health/{id}. Zero
// threshold or interval take the defaults.
type EndpointRequest struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Threshold int    `json:"threshold"`
	Interval  int    `json:"interval"`
}
