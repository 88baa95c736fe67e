// Package healthcheck manages monitored HTTP health endpoints and polls their
// status from the backend.
package healthcheck

// Status is the last known state of a monitored endpoint.
type Status int

// Status values, matching the backend codes.
const (
	StatusUnknown Status = -1
	StatusDown    Status = 0
	StatusUp      Status = 1
)

// StatusFromCode maps a backend status code. Anything other than 0 or 1 is
// unknown.
func StatusFromCode(code int) Status {
	switch code {
	case 1:
		return StatusUp
	case 0:
		return StatusDown
	default:
		return StatusUnknown
	}
}

func (s Status) String() string {
	switch s {
	case StatusUp:
		return "up"
	case StatusDown:
		return "down"
	default:
		return "unknown"
	}
}

// Default registration values, applied when the caller leaves them unset.
const (
	DefaultThreshold = 3
	DefaultInterval  = 30
)

// Endpoint is a monitored URL.
type Endpoint struct {
	ID        string
	Name      string
	URL       string
	Status    Status
	Threshold int
	FailCount int
	// Interval is the check interval in seconds.
	Interval int
	// Reason explains the last failure, if any.
	Reason string
}

// Registration is the user-editable part of an endpoint.
type Registration struct {
	Name      string
	URL       string
	Threshold int
	Interval  int
}
