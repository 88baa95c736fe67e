package healthcheck_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trackerhq/tracker/internal/healthcheck"
)

func endpointsWithIntervals(intervals ...int) []healthcheck.Endpoint {
	out := make([]healthcheck.Endpoint, 0, len(intervals))
	for _, i := range intervals {
		out = append(out, healthcheck.Endpoint{Interval: i})
	}
	return out
}

func TestCadence(t *testing.T) {
	tests := []struct {
		name      string
		intervals []int
		want      int
	}{
		{name: "minimum wins", intervals: []int{5, 10, 400}, want: 5},
		{name: "no endpoints", intervals: nil, want: 30},
		{name: "only non-positive", intervals: []int{0, -3}, want: 30},
		{name: "below floor", intervals: []int{1, 60}, want: 5},
		{name: "above ceiling", intervals: []int{900}, want: 300},
		{name: "ignores zero", intervals: []int{0, 45}, want: 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, healthcheck.Cadence(endpointsWithIntervals(tt.intervals...)))
		})
	}
}

func TestStatusFromCode(t *testing.T) {
	assert.Equal(t, healthcheck.StatusUp, healthcheck.StatusFromCode(1))
	assert.Equal(t, healthcheck.StatusDown, healthcheck.StatusFromCode(0))
	assert.Equal(t, healthcheck.StatusUnknown, healthcheck.StatusFromCode(-1))
	assert.Equal(t, healthcheck.StatusUnknown, healthcheck.StatusFromCode(4))
	assert.Equal(t, "up", healthcheck.StatusUp.String())
}
