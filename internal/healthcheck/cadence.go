package healthcheck

// Cadence bounds, in seconds.
const (
	DefaultCadence = 30
	MinCadence     = 5
	MaxCadence     = 300
)

// Cadence returns the refresh period in seconds: the smallest positive
// interval across endpoints, clamped to [MinCadence, MaxCadence], or
// DefaultCadence when no endpoint has a usable interval.
func Cadence(endpoints []Endpoint) int {
	best := 0
	for _, ep := range endpoints {
		if ep.Interval <= 0 {
			continue
		}
		if best == 0 || ep.Interval < best {
			best = ep.Interval
		}
	}
	if best == 0 {
		return DefaultCadence
	}
	return min(max(best, MinCadence), MaxCadence)
}
