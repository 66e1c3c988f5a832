package services

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/zatekoja/queueboard/internal/domain/entities"
)

const (
	DefaultClockInterval = time.Second

	// ClockPlaceholder is displayed until the first tick
	ClockPlaceholder = "--:--:--"

	clockDisplayFormat = "15:04:05"
	clockDateFormat    = "Monday, 02 January 2006"
)

// ClockTicker keeps the board's wall-clock reading current
type ClockTicker struct {
	clock    clockwork.Clock
	interval time.Duration
	location *time.Location
	onTick   func(entities.ClockReading)

	mu      sync.Mutex
	now     *time.Time
	running bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewClockTicker creates a clock ticker displaying times in location
func NewClockTicker(clock clockwork.Clock, interval time.Duration, location *time.Location, onTick func(entities.ClockReading)) *ClockTicker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultClockInterval
	}
	if location == nil {
		location = time.Local
	}
	return &ClockTicker{
		clock:    clock,
		interval: interval,
		location: location,
		onTick:   onTick,
	}
}

// Reading returns the current clock value, or the placeholder before the first tick
func (c *ClockTicker) Reading() entities.ClockReading {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readingLocked()
}

// Tick records the current time
func (c *ClockTicker) Tick() entities.ClockReading {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now().In(c.location)
	c.now = &now
	return c.readingLocked()
}

// Start runs the ticker until Stop or ctx is done
func (c *ClockTicker) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running || c.stopped {
		return
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.running = true
	c.done = make(chan struct{})
	go c.run(ctx)
}

// Stop cancels the ticker and waits for it to exit
func (c *ClockTicker) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	running := c.running
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	if running {
		<-c.done
	}
}

func (c *ClockTicker) run(ctx context.Context) {
	defer close(c.done)

	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			reading := c.Tick()
			if c.onTick != nil && ctx.Err() == nil {
				c.onTick(reading)
			}
		}
	}
}

func (c *ClockTicker) readingLocked() entities.ClockReading {
	if c.now == nil {
		return entities.ClockReading{Display: ClockPlaceholder}
	}
	now := *c.now
	return entities.ClockReading{
		Now:     &now,
		Display: now.Format(clockDisplayFormat),
		Date:    now.Format(clockDateFormat),
	}
}
