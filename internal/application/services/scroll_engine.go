package services

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/zatekoja/queueboard/internal/domain/entities"
)

const (
	DefaultScrollTick  = 50 * time.Millisecond
	DefaultScrollStep  = 1
	DefaultScrollDwell = 2 * time.Second
)

// ScrollGeometry reports the current content and viewport heights
type ScrollGeometry func() (contentHeight, viewportHeight int)

// ScrollEngine advances a kiosk's scroll offset one step per tick, holds at
// the bottom for the dwell period and then jumps back to the top.
type ScrollEngine struct {
	clock    clockwork.Clock
	tick     time.Duration
	step     int
	dwell    time.Duration
	geometry ScrollGeometry
	onChange func(entities.ScrollState)

	mu        sync.Mutex
	offset    int
	maxScroll int
	paused    bool
	running   bool
	stopped   bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewScrollEngine creates a scroll engine. Zero durations and steps take the defaults.
func NewScrollEngine(
	clock clockwork.Clock,
	tick time.Duration,
	step int,
	dwell time.Duration,
	geometry ScrollGeometry,
	onChange func(entities.ScrollState),
) *ScrollEngine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if tick <= 0 {
		tick = DefaultScrollTick
	}
	if step <= 0 {
		step = DefaultScrollStep
	}
	if dwell <= 0 {
		dwell = DefaultScrollDwell
	}
	return &ScrollEngine{
		clock:    clock,
		tick:     tick,
		step:     step,
		dwell:    dwell,
		geometry: geometry,
		onChange: onChange,
	}
}

// State returns the current scroll state
func (e *ScrollEngine) State() entities.ScrollState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// Tick performs one scroll step against freshly measured geometry and reports
// whether the state changed. Ticks while paused are ignored.
func (e *ScrollEngine) Tick() (entities.ScrollState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused {
		return e.stateLocked(), false
	}

	content, viewport := 0, 0
	if e.geometry != nil {
		content, viewport = e.geometry()
	}
	maxScroll := content - viewport
	if maxScroll < 0 {
		maxScroll = 0
	}
	changed := maxScroll != e.maxScroll
	e.maxScroll = maxScroll

	if maxScroll == 0 {
		if e.offset != 0 {
			e.offset = 0
			changed = true
		}
		return e.stateLocked(), changed
	}

	if e.offset < maxScroll {
		e.offset += e.step
	}
	if e.offset >= maxScroll {
		e.offset = maxScroll
		e.paused = true
	}
	return e.stateLocked(), true
}

// Resume ends the dwell: the offset returns to the top and stepping restarts
// on the next tick.
func (e *ScrollEngine) Resume() entities.ScrollState {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.offset = 0
	e.paused = false
	return e.stateLocked()
}

// Start runs the tick loop until Stop or ctx is done
func (e *ScrollEngine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running || e.stopped {
		return
	}
	ctx, e.cancel = context.WithCancel(ctx)
	e.running = true
	e.done = make(chan struct{})
	go e.run(ctx)
}

// Stop cancels the tick and dwell timers. No state change is reported after
// Stop returns.
func (e *ScrollEngine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	running := e.running
	if e.cancel != nil {
		e.cancel()
	}
	e.mu.Unlock()

	if running {
		<-e.done
	}
}

func (e *ScrollEngine) run(ctx context.Context) {
	defer close(e.done)

	ticker := e.clock.NewTicker(e.tick)
	defer ticker.Stop()

	var dwell clockwork.Timer
	var dwellC <-chan time.Time
	defer func() {
		if dwell != nil {
			dwell.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			state, changed := e.Tick()
			if !changed {
				continue
			}
			if state.Phase == entities.ScrollPhasePaused && dwell == nil {
				dwell = e.clock.NewTimer(e.dwell)
				dwellC = dwell.Chan()
			}
			e.emit(ctx, state)
		case <-dwellC:
			dwell, dwellC = nil, nil
			e.emit(ctx, e.Resume())
		}
	}
}

func (e *ScrollEngine) emit(ctx context.Context, state entities.ScrollState) {
	if e.onChange == nil || ctx.Err() != nil {
		return
	}
	e.onChange(state)
}

func (e *ScrollEngine) stateLocked() entities.ScrollState {
	phase := entities.ScrollPhaseScrolling
	if e.paused {
		phase = entities.ScrollPhasePaused
	}
	return entities.ScrollState{
		Offset:    e.offset,
		MaxScroll: e.maxScroll,
		Phase:     phase,
		AtTop:     e.offset == 0,
	}
}
