package routes_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/queueboard/internal/adapters/events"
	"github.com/zatekoja/queueboard/internal/api/handlers"
	"github.com/zatekoja/queueboard/internal/api/routes"
	"github.com/zatekoja/queueboard/internal/application/services"
	"github.com/zatekoja/queueboard/internal/domain/entities"
	"github.com/zatekoja/queueboard/pkg/config"
)

type rosterFunc func(ctx context.Context, locationID int) (*entities.Roster, error)

func (f rosterFunc) FetchRoster(ctx context.Context, locationID int) (*entities.Roster, error) {
	return f(ctx, locationID)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	provider := rosterFunc(func(ctx context.Context, locationID int) (*entities.Roster, error) {
		return &entities.Roster{Departments: []entities.Department{
			{Key: "dental", Doctors: []entities.Doctor{{ID: "1", Name: "x", Status: "busy", IsCheckedIn: true}}},
		}}, nil
	})
	bus := events.NewMemoryEventBus()
	t.Cleanup(func() { _ = bus.Close() })

	svc, err := services.NewBoardService(provider, nil, bus, config.BoardConfig{
		PollInterval:   time.Minute,
		ClockInterval:  time.Second,
		RowHeight:      48,
		ViewportHeight: 1080,
		TimeZone:       "UTC",
	}, nil, nil)
	require.NoError(t, err)
	t.Cleanup(svc.Shutdown)

	router := routes.NewRouter(
		handlers.NewBoardHandler(svc, 1),
		handlers.NewBoardStreamHandler(svc, 1, "*"),
		[]string{"*"},
		nil,
	)
	server := httptest.NewServer(router.SetupRoutes())
	t.Cleanup(server.Close)
	return server
}

func TestRouter_Endpoints(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/api/board?location_id=2")
	require.NoError(t, err)
	var board entities.Board
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&board))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("ETag"))
	assert.Equal(t, "Dental", board.Departments[0].Title)

	resp, err = http.Post(server.URL+"/api/board/refresh?location_id=2", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, err = http.Get(server.URL + "/api/board/stats")
	require.NoError(t, err)
	var stats services.SessionStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	resp.Body.Close()
	assert.Equal(t, 0, stats.ActiveSessions)

	resp, err = http.Get(server.URL + "/api/board/refresh")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRouter_StreamDeliversBoardUpdate(t *testing.T) {
	server := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/board/stream?location_id=1", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 1024)
	for !strings.Contains(string(buf), "event: connected") || !strings.Contains(string(buf), "event: board_update") {
		n, err := resp.Body.Read(chunk)
		require.NoError(t, err)
		buf = append(buf, chunk[:n]...)
	}
}
