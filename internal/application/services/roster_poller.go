package services

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/queueboard/internal/domain/entities"
	"github.com/zatekoja/queueboard/internal/domain/providers"
	"github.com/zatekoja/queueboard/internal/infrastructure/observability"
)

// DefaultPollInterval is the roster refresh period
const DefaultPollInterval = 60 * time.Second

// RosterPoller fetches a location's roster on a fixed period and hands every
// result, or an empty roster when the fetch failed, to a callback.
//
// A fetch still in flight when the next tick fires is left running, so two
// requests can overlap and complete in either order.
type RosterPoller struct {
	provider   providers.RosterProvider
	locationID int
	interval   time.Duration
	clock      clockwork.Clock
	metrics    *observability.Metrics
	onRoster   func(*entities.Roster)

	mu       sync.Mutex
	latest   *entities.Roster
	running  bool
	stopped  bool
	cancel   context.CancelFunc
	loopDone chan struct{}
	fetches  sync.WaitGroup
	refresh  chan struct{}
}

// NewRosterPoller creates a poller for one location
func NewRosterPoller(
	provider providers.RosterProvider,
	locationID int,
	interval time.Duration,
	clock clockwork.Clock,
	metrics *observability.Metrics,
	onRoster func(*entities.Roster),
) *RosterPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RosterPoller{
		provider:   provider,
		locationID: locationID,
		interval:   interval,
		clock:      clock,
		metrics:    metrics,
		onRoster:   onRoster,
		refresh:    make(chan struct{}, 1),
	}
}

// Start fetches immediately and then once per interval until Stop or ctx is done
func (p *RosterPoller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running || p.stopped {
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.running = true
	p.loopDone = make(chan struct{})

	p.fetches.Add(1)
	go p.fetch(ctx)
	go p.loop(ctx)
}

// Refresh requests an extra fetch without waiting for the next tick
func (p *RosterPoller) Refresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Latest returns the most recently delivered roster, or nil before the first one
func (p *RosterPoller) Latest() *entities.Roster {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}

// Stop cancels the ticker and any fetch in flight. No roster is delivered
// after Stop returns.
func (p *RosterPoller) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	running := p.running
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	if running {
		<-p.loopDone
	}
	p.fetches.Wait()
}

func (p *RosterPoller) loop(ctx context.Context) {
	defer close(p.loopDone)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		case <-p.refresh:
		}
		p.fetches.Add(1)
		go p.fetch(ctx)
	}
}

func (p *RosterPoller) fetch(ctx context.Context) {
	defer p.fetches.Done()

	ctx, span := observability.StartSpan(ctx, "roster.fetch")
	defer span.End()

	start := p.clock.Now()
	roster, err := p.provider.FetchRoster(ctx, p.locationID)
	observability.RecordRosterFetch(ctx, p.metrics, p.locationID, err, p.clock.Since(start))

	if ctx.Err() != nil {
		return
	}
	if err != nil {
		observability.RecordError(span, err)
		log.Warn().Err(err).Int("location_id", p.locationID).Msg("Roster fetch failed, showing empty board")
		roster = entities.EmptyRoster()
	} else if roster == nil {
		roster = entities.EmptyRoster()
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.latest = roster
	p.mu.Unlock()

	if p.onRoster != nil {
		p.onRoster(roster)
	}
}
