package healthcheck

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Lister fetches the current endpoint list.
type Lister interface {
	List(ctx context.Context) ([]Endpoint, error)
}

// Snapshot is the result of one poll.
type Snapshot struct {
	// Endpoints is empty when Err is set.
	Endpoints []Endpoint
	Err       error
	FetchedAt time.Time
	// Cadence is the delay until the next poll.
	Cadence time.Duration
}

// PollerConfig holds configuration for the Poller.
type PollerConfig struct {
	Source Lister
	Logger zerolog.Logger

	// Unit scales cadence seconds into a duration. Default: time.Second.
	Unit time.Duration

	// FetchTimeout bounds each poll. Default: 10 seconds.
	FetchTimeout time.Duration
}

// Poller periodically refreshes the endpoint list, adapting its period to the
// shortest configured check interval.
type Poller struct {
	source       Lister
	logger       zerolog.Logger
	unit         time.Duration
	fetchTimeout time.Duration
	metrics      *pollMetrics

	mu      sync.RWMutex
	latest  Snapshot
	hasData bool
	cadence time.Duration
	subs    map[int]chan Snapshot
	nextSub int

	// reschedule wakes Run after a successful Poll from another caller.
	reschedule chan struct{}
}

// NewPoller creates a new poller.
func NewPoller(cfg PollerConfig) (*Poller, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("poller requires a source")
	}
	unit := cfg.Unit
	if unit <= 0 {
		unit = time.Second
	}
	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}

	metrics, err := newPollMetrics()
	if err != nil {
		return nil, fmt.Errorf("creating poll metrics: %w", err)
	}

	return &Poller{
		source:       cfg.Source,
		logger:       cfg.Logger,
		unit:         unit,
		fetchTimeout: fetchTimeout,
		metrics:      metrics,
		cadence:      DefaultCadence * unit,
		subs:         make(map[int]chan Snapshot),
		reschedule:   make(chan struct{}, 1),
	}, nil
}

// Run polls immediately and then on a single timer rescheduled after every
// poll, until ctx is cancelled. A successful Poll from elsewhere restarts the
// timer with the cadence it computed.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info().Msg("starting health poller")

	timer := time.NewTimer(p.poll(ctx).Cadence)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("health poller stopped")
			return nil
		case <-timer.C:
			timer.Reset(p.poll(ctx).Cadence)
		case <-p.reschedule:
			p.mu.RLock()
			cadence := p.cadence
			p.mu.RUnlock()
			timer.Reset(cadence)
			p.logger.Debug().Dur("cadence", cadence).Msg("health poll rescheduled")
		}
	}
}

// Poll fetches once, publishes the snapshot and returns it. A failed fetch
// clears the list and keeps the previous cadence. A successful fetch
// reschedules a running poller.
func (p *Poller) Poll(ctx context.Context) Snapshot {
	snap := p.poll(ctx)
	if snap.Err == nil {
		select {
		case p.reschedule <- struct{}{}:
		default:
		}
	}
	return snap
}

func (p *Poller) poll(ctx context.Context) Snapshot {
	fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	start := time.Now()
	endpoints, err := p.source.List(fetchCtx)
	p.metrics.record(time.Since(start), endpoints, err)

	p.mu.Lock()
	snap := Snapshot{FetchedAt: time.Now()}
	if err != nil {
		snap.Err = err
		snap.Endpoints = []Endpoint{}
		p.logger.Warn().Err(err).Msg("health poll failed")
	} else {
		snap.Endpoints = endpoints
		p.cadence = time.Duration(Cadence(endpoints)) * p.unit
		p.logger.Debug().Int("endpoints", len(endpoints)).Dur("cadence", p.cadence).Msg("health poll completed")
	}
	snap.Cadence = p.cadence
	p.latest = snap
	p.hasData = true

	for _, ch := range p.subs {
		offer(ch, snap)
	}
	p.mu.Unlock()

	return snap
}

// Latest returns the most recent snapshot, if any poll has completed.
func (p *Poller) Latest() (Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, p.hasData
}

// Subscribe returns a channel receiving every new snapshot. Slow readers only
// see the newest one. Call the returned function to unsubscribe.
func (p *Poller) Subscribe() (<-chan Snapshot, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSub
	p.nextSub++
	ch := make(chan Snapshot, 1)
	p.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

func offer(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}
