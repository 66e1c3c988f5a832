package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/queueboard/internal/domain/entities"
)

// stubRosterProvider returns queued results in order and repeats the last one
type stubRosterProvider struct {
	mu      sync.Mutex
	results []stubResult
	calls   int
}

type stubResult struct {
	roster *entities.Roster
	err    error
}

func (s *stubRosterProvider) FetchRoster(ctx context.Context, locationID int) (*entities.Roster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.results) == 0 {
		return entities.EmptyRoster(), nil
	}
	r := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	return r.roster, r.err
}

func (s *stubRosterProvider) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func sampleRoster(key string) *entities.Roster {
	return &entities.Roster{Departments: []entities.Department{
		{Key: key, Doctors: []entities.Doctor{{ID: "1", Name: "a", IsCheckedIn: true}}},
	}}
}

func receiveRoster(t *testing.T, ch <-chan *entities.Roster) *entities.Roster {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for roster")
		return nil
	}
}

func TestRosterPoller_FetchesImmediatelyThenEveryInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	provider := &stubRosterProvider{results: []stubResult{
		{roster: sampleRoster("first")},
		{roster: sampleRoster("second")},
	}}
	delivered := make(chan *entities.Roster, 4)
	poller := NewRosterPoller(provider, 1, time.Minute, clock, nil, func(r *entities.Roster) { delivered <- r })

	poller.Start(context.Background())
	defer poller.Stop()

	first := receiveRoster(t, delivered)
	assert.Equal(t, "first", first.Departments[0].Key)

	clock.BlockUntil(1)
	clock.Advance(59 * time.Second)
	select {
	case <-delivered:
		t.Fatal("fetched before the interval elapsed")
	case <-time.After(50 * time.Millisecond):
	}

	clock.Advance(time.Second)
	second := receiveRoster(t, delivered)
	assert.Equal(t, "second", second.Departments[0].Key)
	assert.Equal(t, "second", poller.Latest().Departments[0].Key)
	assert.Equal(t, 2, provider.Calls())
}

func TestRosterPoller_FailureYieldsEmptyRoster(t *testing.T) {
	clock := clockwork.NewFakeClock()
	provider := &stubRosterProvider{results: []stubResult{
		{roster: sampleRoster("ok")},
		{err: errors.New("connection refused")},
	}}
	delivered := make(chan *entities.Roster, 4)
	poller := NewRosterPoller(provider, 1, time.Minute, clock, nil, func(r *entities.Roster) { delivered <- r })

	poller.Start(context.Background())
	defer poller.Stop()

	assert.False(t, receiveRoster(t, delivered).IsEmpty())

	clock.BlockUntil(1)
	clock.Advance(time.Minute)

	failed := receiveRoster(t, delivered)
	require.NotNil(t, failed)
	assert.True(t, failed.IsEmpty())
}

func TestRosterPoller_RefreshFetchesWithoutTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	provider := &stubRosterProvider{}
	delivered := make(chan *entities.Roster, 4)
	poller := NewRosterPoller(provider, 1, time.Minute, clock, nil, func(r *entities.Roster) { delivered <- r })

	poller.Start(context.Background())
	defer poller.Stop()
	receiveRoster(t, delivered)

	poller.Refresh()
	receiveRoster(t, delivered)
	assert.Equal(t, 2, provider.Calls())
}

func TestRosterPoller_NoDeliveryAfterStop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	provider := &stubRosterProvider{}
	var mu sync.Mutex
	deliveries := 0
	poller := NewRosterPoller(provider, 1, time.Minute, clock, nil, func(*entities.Roster) {
		mu.Lock()
		deliveries++
		mu.Unlock()
	})

	poller.Start(context.Background())
	clock.BlockUntil(1)
	poller.Stop()

	mu.Lock()
	before := deliveries
	mu.Unlock()

	clock.Advance(5 * time.Minute)
	poller.Refresh()
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, before, deliveries)
	assert.LessOrEqual(t, provider.Calls(), 1)

	// Stop is idempotent
	poller.Stop()
}
