package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/queueboard/internal/domain/entities"
	"github.com/zatekoja/queueboard/internal/domain/providers"
	"github.com/zatekoja/queueboard/internal/infrastructure/observability"
	"github.com/zatekoja/queueboard/pkg/config"
	apperrors "github.com/zatekoja/queueboard/pkg/errors"
)

// BoardService manages kiosk sessions and serves board snapshots
type BoardService struct {
	provider providers.RosterProvider
	cache    providers.CacheProvider
	eventBus providers.EventBus
	composer *BoardComposer
	clock    clockwork.Clock
	location *time.Location
	metrics  *observability.Metrics
	cfg      config.BoardConfig

	mu       sync.RWMutex
	sessions map[string]*BoardSession
}

// SessionStats summarizes connected kiosks
type SessionStats struct {
	ActiveSessions int         `json:"active_sessions"`
	ByLocation     map[int]int `json:"by_location"`
	DroppedEvents  int         `json:"dropped_events"`
}

// NewBoardService creates a new board service. cache and eventBus may be nil.
func NewBoardService(
	provider providers.RosterProvider,
	cache providers.CacheProvider,
	eventBus providers.EventBus,
	cfg config.BoardConfig,
	clock clockwork.Clock,
	metrics *observability.Metrics,
) (*BoardService, error) {
	if provider == nil {
		return nil, errors.New("roster provider is required")
	}
	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &BoardService{
		provider: provider,
		cache:    cache,
		eventBus: eventBus,
		composer: NewBoardComposer(NewDepartmentRankingService(), clock),
		clock:    clock,
		location: location,
		metrics:  metrics,
		cfg:      cfg,
		sessions: make(map[string]*BoardSession),
	}, nil
}

// NewSession starts a session for a kiosk. A zero viewport height uses the
// configured default. Callers must release it with CloseSession.
func (s *BoardService) NewSession(ctx context.Context, locationID, viewportHeight int) (*BoardSession, error) {
	if locationID < 1 {
		return nil, apperrors.NewValidationError("location_id must be a positive integer")
	}
	if viewportHeight < 0 {
		return nil, apperrors.NewValidationError("viewport_height must not be negative")
	}

	session := NewBoardSession(locationID, viewportHeight, SessionDeps{
		Provider: s.provider,
		Composer: s.composer,
		Cache:    s.cache,
		EventBus: s.eventBus,
		Clock:    s.clock,
		Location: s.location,
		Metrics:  s.metrics,
		Board:    s.cfg,
	})
	if err := session.Start(ctx); err != nil {
		return nil, apperrors.NewInternalError("failed to start board session", err)
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	observability.RecordSessionDelta(ctx, s.metrics, locationID, 1)

	return session, nil
}

// CloseSession stops a session and forgets it
func (s *BoardService) CloseSession(session *BoardSession) {
	if session == nil {
		return
	}
	s.mu.Lock()
	_, ok := s.sessions[session.ID]
	delete(s.sessions, session.ID)
	s.mu.Unlock()

	session.Stop()
	if ok {
		observability.RecordSessionDelta(context.Background(), s.metrics, session.LocationID, -1)
	}
}

// ActiveSessions returns the number of running sessions
func (s *BoardService) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Stats reports running sessions per location
func (s *BoardService) Stats() SessionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := SessionStats{ByLocation: make(map[int]int)}
	for _, session := range s.sessions {
		stats.ActiveSessions++
		stats.ByLocation[session.LocationID]++
		stats.DroppedEvents += session.Dropped()
	}
	return stats
}

// Snapshot returns the latest board for a location. The cached board written
// by a running session is preferred; otherwise the roster is fetched now and a
// failed fetch yields an empty board.
func (s *BoardService) Snapshot(ctx context.Context, locationID int) (*entities.Board, error) {
	if locationID < 1 {
		return nil, apperrors.NewValidationError("location_id must be a positive integer")
	}

	ctx, span := observability.StartSpan(ctx, "board.snapshot")
	defer span.End()

	key := SnapshotCacheKey(locationID)
	if s.cache != nil {
		data, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			var board entities.Board
			if err := json.Unmarshal(data, &board); err == nil {
				observability.RecordCacheHit(ctx, s.metrics, "board:snapshot")
				return &board, nil
			}
			log.Warn().Err(err).Int("location_id", locationID).Msg("Discarding unreadable board snapshot")
		case errors.Is(err, providers.ErrCacheMiss):
			observability.RecordCacheMiss(ctx, s.metrics, "board:snapshot")
		default:
			log.Warn().Err(err).Int("location_id", locationID).Msg("Board snapshot cache unavailable")
		}
	}

	start := s.clock.Now()
	roster, err := s.provider.FetchRoster(ctx, locationID)
	observability.RecordRosterFetch(ctx, s.metrics, locationID, err, s.clock.Since(start))
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			return nil, err
		}
		observability.RecordError(span, err)
		log.Warn().Err(err).Int("location_id", locationID).Msg("Roster fetch failed, returning empty board")
		return s.composer.Compose(locationID, entities.EmptyRoster()), nil
	}

	board := s.composer.Compose(locationID, roster)
	if s.cache != nil {
		if data, err := json.Marshal(board); err == nil {
			if err := s.cache.Set(ctx, key, data, int(s.cfg.SnapshotTTL.Seconds())); err != nil {
				log.Warn().Err(err).Int("location_id", locationID).Msg("Failed to cache board snapshot")
			}
		}
	}
	return board, nil
}

// RequestRefresh asks every session showing the location, on any instance
// sharing the event bus, to refetch immediately.
func (s *BoardService) RequestRefresh(ctx context.Context, locationID int) error {
	if locationID < 1 {
		return apperrors.NewValidationError("location_id must be a positive integer")
	}
	if s.eventBus == nil {
		return apperrors.NewUnavailableError("refresh requires an event bus")
	}

	event := entities.NewBoardEvent(locationID, entities.BoardEventTypeRefreshRequested, nil)
	if err := s.eventBus.Publish(ctx, providers.GetBoardChannel(locationID), event); err != nil {
		return apperrors.NewExternalError("failed to publish refresh request", err)
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, SnapshotCacheKey(locationID)); err != nil {
			log.Warn().Err(err).Int("location_id", locationID).Msg("Failed to drop board snapshot")
		}
	}
	return nil
}

// Shutdown stops every session
func (s *BoardService) Shutdown() {
	s.mu.Lock()
	sessions := make([]*BoardSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.sessions = make(map[string]*BoardSession)
	s.mu.Unlock()

	for _, session := range sessions {
		session.Stop()
		observability.RecordSessionDelta(context.Background(), s.metrics, session.LocationID, -1)
	}
	log.Info().Int("sessions", len(sessions)).Msg("Board sessions stopped")
}
