package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/queueboard/internal/domain/entities"
	"github.com/zatekoja/queueboard/internal/domain/providers"
	"github.com/zatekoja/queueboard/internal/infrastructure/observability"
	"github.com/zatekoja/queueboard/pkg/config"
)

// SessionDeps are the collaborators shared by every board session
type SessionDeps struct {
	Provider providers.RosterProvider
	Composer *BoardComposer
	Cache    providers.CacheProvider
	EventBus providers.EventBus
	Clock    clockwork.Clock
	Location *time.Location
	Metrics  *observability.Metrics
	Board    config.BoardConfig
}

// BoardSession drives one kiosk display. It owns the roster poller, the
// scroll engine and the clock ticker, and publishes their output as events.
type BoardSession struct {
	ID             string
	LocationID     int
	ViewportHeight int
	StartedAt      time.Time

	deps   SessionDeps
	events chan *entities.BoardEvent

	poller *RosterPoller
	scroll *ScrollEngine
	clock  *ClockTicker

	mu      sync.RWMutex
	board   *entities.Board
	dropped int
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewBoardSession creates a session for a kiosk showing locationID with the
// given viewport height in pixels.
func NewBoardSession(locationID, viewportHeight int, deps SessionDeps) *BoardSession {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Composer == nil {
		deps.Composer = NewBoardComposer(nil, deps.Clock)
	}
	if viewportHeight <= 0 {
		viewportHeight = deps.Board.ViewportHeight
	}
	buffer := deps.Board.EventBuffer
	if buffer <= 0 {
		buffer = 64
	}

	s := &BoardSession{
		ID:             uuid.NewString(),
		LocationID:     locationID,
		ViewportHeight: viewportHeight,
		StartedAt:      deps.Clock.Now(),
		deps:           deps,
		events:         make(chan *entities.BoardEvent, buffer),
	}

	s.poller = NewRosterPoller(deps.Provider, locationID, deps.Board.PollInterval, deps.Clock, deps.Metrics, s.handleRoster)
	s.scroll = NewScrollEngine(deps.Clock, deps.Board.ScrollTick, deps.Board.ScrollStep, deps.Board.ScrollDwell, s.geometry, s.handleScroll)
	s.clock = NewClockTicker(deps.Clock, deps.Board.ClockInterval, deps.Location, s.handleClock)
	return s
}

// Events returns the session's output. The channel is closed by Stop.
func (s *BoardSession) Events() <-chan *entities.BoardEvent {
	return s.events
}

// Board returns the latest composed board, or nil before the first fetch
func (s *BoardSession) Board() *entities.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board
}

// Scroll returns the current scroll state
func (s *BoardSession) Scroll() entities.ScrollState {
	return s.scroll.State()
}

// Clock returns the current clock reading
func (s *BoardSession) Clock() entities.ClockReading {
	return s.clock.Reading()
}

// Dropped returns the number of events dropped because the kiosk fell behind
func (s *BoardSession) Dropped() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped
}

// Refresh triggers an immediate roster fetch
func (s *BoardSession) Refresh() {
	s.poller.Refresh()
}

// Start acquires the poll, scroll and clock timers and, when an event bus is
// configured, listens for refresh requests for the location.
func (s *BoardSession) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("board session %s already started", s.ID)
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	if s.deps.EventBus != nil {
		refreshes, err := s.deps.EventBus.Subscribe(ctx, providers.GetBoardChannel(s.LocationID))
		if err != nil {
			log.Warn().Err(err).Int("location_id", s.LocationID).Msg("Refresh subscription failed, continuing without it")
		} else {
			s.wg.Add(1)
			go s.listenForRefresh(ctx, refreshes)
		}
	}

	s.poller.Start(ctx)
	s.scroll.Start(ctx)
	s.clock.Start(ctx)

	log.Info().
		Str("session_id", s.ID).
		Int("location_id", s.LocationID).
		Int("viewport_height", s.ViewportHeight).
		Msg("Board session started")
	return nil
}

// Stop cancels every timer, waits for them to exit and closes Events
func (s *BoardSession) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.poller.Stop()
	s.scroll.Stop()
	s.clock.Stop()
	s.wg.Wait()

	close(s.events)
	log.Info().Str("session_id", s.ID).Int("location_id", s.LocationID).Msg("Board session stopped")
}

func (s *BoardSession) listenForRefresh(ctx context.Context, refreshes <-chan *entities.BoardEvent) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-refreshes:
			if !ok {
				return
			}
			if event != nil && event.EventType == entities.BoardEventTypeRefreshRequested {
				s.poller.Refresh()
			}
		}
	}
}

func (s *BoardSession) handleRoster(roster *entities.Roster) {
	board := s.deps.Composer.Compose(s.LocationID, roster)

	s.mu.Lock()
	s.board = board
	s.mu.Unlock()

	s.cacheBoard(board)
	s.emit(entities.BoardEventTypeBoardUpdate, board)
}

func (s *BoardSession) handleScroll(state entities.ScrollState) {
	s.emit(entities.BoardEventTypeScrollUpdate, state)
}

func (s *BoardSession) handleClock(reading entities.ClockReading) {
	s.emit(entities.BoardEventTypeClockTick, reading)
}

// geometry measures content as rendered rows times the row height
func (s *BoardSession) geometry() (int, int) {
	rows := 0
	if board := s.Board(); board != nil {
		rows = board.Rows
	}
	return rows * s.deps.Board.RowHeight, s.ViewportHeight
}

func (s *BoardSession) emit(eventType entities.BoardEventType, data interface{}) {
	event := entities.NewBoardEvent(s.LocationID, eventType, data)
	select {
	case s.events <- event:
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
		log.Debug().Str("session_id", s.ID).Str("event_type", string(eventType)).Msg("Kiosk behind, dropping event")
	}
}

func (s *BoardSession) cacheBoard(board *entities.Board) {
	if s.deps.Cache == nil {
		return
	}
	data, err := json.Marshal(board)
	if err != nil {
		log.Warn().Err(err).Int("location_id", s.LocationID).Msg("Failed to encode board snapshot")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.deps.Cache.Set(ctx, SnapshotCacheKey(s.LocationID), data, int(s.deps.Board.SnapshotTTL.Seconds())); err != nil {
		log.Warn().Err(err).Int("location_id", s.LocationID).Msg("Failed to cache board snapshot")
	}
}

// SnapshotCacheKey is the cache key of a location's latest board
func SnapshotCacheKey(locationID int) string {
	return "board:snapshot:" + strconv.Itoa(locationID)
}
