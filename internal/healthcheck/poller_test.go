package healthcheck_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackerhq/tracker/internal/healthcheck"
)

type scriptedLister struct {
	mu      sync.Mutex
	results []listResult
	calls   int
}

type listResult struct {
	endpoints []healthcheck.Endpoint
	err       error
}

func (s *scriptedLister) List(_ context.Context) ([]healthcheck.Endpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.results[min(s.calls, len(s.results)-1)]
	s.calls++
	return r.endpoints, r.err
}

func (s *scriptedLister) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newPoller(t *testing.T, source healthcheck.Lister) *healthcheck.Poller {
	t.Helper()
	p, err := healthcheck.NewPoller(healthcheck.PollerConfig{
		Source: source,
		Logger: zerolog.Nop(),
		Unit:   time.Millisecond,
	})
	require.NoError(t, err)
	return p
}

func TestPoller_PollComputesCadence(t *testing.T) {
	source := &scriptedLister{results: []listResult{{endpoints: endpointsWithIntervals(5, 10, 400)}}}
	p := newPoller(t, source)

	_, ok := p.Latest()
	assert.False(t, ok)

	snap := p.Poll(context.Background())
	require.NoError(t, snap.Err)
	assert.Len(t, snap.Endpoints, 3)
	assert.Equal(t, 5*time.Millisecond, snap.Cadence)

	latest, ok := p.Latest()
	require.True(t, ok)
	assert.Equal(t, snap.Cadence, latest.Cadence)
}

func TestPoller_FailureClearsListAndKeepsCadence(t *testing.T) {
	source := &scriptedLister{results: []listResult{
		{endpoints: endpointsWithIntervals(12)},
		{err: errors.New("backend unavailable")},
	}}
	p := newPoller(t, source)

	first := p.Poll(context.Background())
	require.NoError(t, first.Err)
	assert.Equal(t, 12*time.Millisecond, first.Cadence)

	second := p.Poll(context.Background())
	require.Error(t, second.Err)
	assert.NotNil(t, second.Endpoints)
	assert.Empty(t, second.Endpoints)
	assert.Equal(t, 12*time.Millisecond, second.Cadence)
}

func TestPoller_FailureBeforeSuccessUsesDefaultCadence(t *testing.T) {
	source := &scriptedLister{results: []listResult{{err: errors.New("down")}}}
	p := newPoller(t, source)

	snap := p.Poll(context.Background())
	assert.Equal(t, healthcheck.DefaultCadence*time.Millisecond, snap.Cadence)
}

func TestPoller_RunRepollsAndStops(t *testing.T) {
	source := &scriptedLister{results: []listResult{{endpoints: endpointsWithIntervals(5)}}}
	p := newPoller(t, source)

	updates, unsubscribe := p.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	for range 3 {
		select {
		case snap := <-updates:
			assert.Len(t, snap.Endpoints, 1)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for poll")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}

	calls := source.Calls()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, source.Calls())
}

func TestPoller_ExternalPollReschedulesRun(t *testing.T) {
	source := &scriptedLister{results: []listResult{
		{endpoints: endpointsWithIntervals(300)},
		{endpoints: endpointsWithIntervals(5)},
	}}
	p, err := healthcheck.NewPoller(healthcheck.PollerConfig{
		Source: source,
		Logger: zerolog.Nop(),
		Unit:   10 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	require.Eventually(t, func() bool { return source.Calls() >= 1 }, time.Second, time.Millisecond)

	// A registration elsewhere shortens the cadence from 3s to 50ms.
	snap := p.Poll(context.Background())
	require.NoError(t, snap.Err)
	assert.Equal(t, 50*time.Millisecond, snap.Cadence)

	assert.Eventually(t, func() bool { return source.Calls() >= 5 }, time.Second, 5*time.Millisecond)
}

func TestPoller_UnsubscribeStopsDelivery(t *testing.T) {
	source := &scriptedLister{results: []listResult{{endpoints: nil}}}
	p := newPoller(t, source)

	updates, unsubscribe := p.Subscribe()
	unsubscribe()
	unsubscribe()

	p.Poll(context.Background())
	select {
	case <-updates:
		t.Fatal("unexpected snapshot after unsubscribe")
	default:
	}
}

func TestNewPoller_RequiresSource(t *testing.T) {
	_, err := healthcheck.NewPoller(healthcheck.PollerConfig{})
	assert.Error(t, err)
}
