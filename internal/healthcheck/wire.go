package healthcheck

import "github.com/trackerhq/tracker/internal/backend"

type wireEndpoint struct {
	ID        *string `json:"id"`
	Name      *string `json:"name"`
	URL       *string `json:"url"`
	Status    *int    `json:"status"`
	Threshold *int    `json:"threshold"`
	FailCount int     `json:"failCount"`
	Interval  *int    `json:"interval"`
	Reason    string  `json:"reason"`
}

func (w wireEndpoint) Validate() error {
	switch {
	case w.ID == nil || *w.ID == "":
		return backend.Missing("id")
	case w.Name == nil:
		return backend.Missing("name")
	case w.URL == nil:
		return backend.Missing("url")
	}
	return nil
}

func (w wireEndpoint) toEndpoint() Endpoint {
	ep := Endpoint{
		ID:        *w.ID,
		Name:      *w.Name,
		URL:       *w.URL,
		Status:    StatusUnknown,
		Threshold: DefaultThreshold,
		FailCount: w.FailCount,
		Interval:  DefaultInterval,
		Reason:    w.Reason,
	}
	if w.Status != nil {
		ep.Status = StatusFromCode(*w.Status)
	}
	if w.Threshold != nil {
		ep.Threshold = *w.Threshold
	}
	if w.Interval != nil {
		ep.Interval = *w.Interval
	}
	return ep
}

type writeRequest struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Threshold int    `json:"threshold"`
	Interval  int    `json:"interval"`
}
