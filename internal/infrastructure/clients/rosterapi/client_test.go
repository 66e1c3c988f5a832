package rosterapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/queueboard/pkg/config"
	apperrors "github.com/zatekoja/queueboard/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, breakerFailures int) (*HTTPClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(config.RosterAPIConfig{
		URL:             server.URL + "/",
		Path:            "api/doctors/by-department",
		Token:           "kiosk-token",
		Timeout:         2 * time.Second,
		BreakerFailures: breakerFailures,
		BreakerCooldown: time.Minute,
	})
	return client, server
}

func TestHTTPClient_FetchRoster_Success(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/doctors/by-department", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("location_id"))
		assert.Equal(t, "Bearer kiosk-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"orthopedics": [{"id": 11, "name": "ravi kumar", "status": "Available", "isCheckedIn": true, "checkInTime": "09:05"}],
			"cardiology": [{"id": "c-2", "name": "ANITA RAO", "status": "busy", "isCheckedIn": true, "currentPatient": "P-77"}]
		}`))
	}, 0)

	roster, err := client.FetchRoster(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, roster.Departments, 2)
	assert.Equal(t, "orthopedics", roster.Departments[0].Key)
	assert.Equal(t, "cardiology", roster.Departments[1].Key)
	assert.Equal(t, "11", string(roster.Departments[0].Doctors[0].ID))
	assert.Equal(t, "P-77", *roster.Departments[1].Doctors[0].CurrentPatient)
}

func TestHTTPClient_FetchRoster_InvalidLocation(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}, 0)

	_, err := client.FetchRoster(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestHTTPClient_FetchRoster_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-2xx status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "malformed payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"cardiology": "oops"}`))
			},
		},
		{
			name: "not an object",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`[]`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, tt.handler, 0)

			roster, err := client.FetchRoster(context.Background(), 1)
			require.Error(t, err)
			assert.Nil(t, roster)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
		})
	}
}

func TestHTTPClient_FetchRoster_NetworkError(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, 0)
	server.Close()

	_, err := client.FetchRoster(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
}

func TestHTTPClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, 2)

	for i := 0; i < 2; i++ {
		_, err := client.FetchRoster(context.Background(), 1)
		require.Error(t, err)
	}
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))

	_, err := client.FetchRoster(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit open")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "open breaker should fail fast")
}

func TestHTTPClient_BreakerIgnoresCallerCancellation(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"cardiology": []}`))
	}, 2)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()

	for _, ctx := range []context.Context{cancelled, expired, cancelled, expired, cancelled} {
		_, err := client.FetchRoster(ctx, 1)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errFetchAborted))
	}

	roster, err := client.FetchRoster(context.Background(), 1)
	require.NoError(t, err, "disconnected callers must not open the breaker")
	require.Len(t, roster.Departments, 1)
	assert.Equal(t, gobreaker.StateClosed, client.breaker.State())
}

func TestHTTPClient_BreakerStatusHandling(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantState gobreaker.State
	}{
		{name: "not found leaves breaker closed", status: http.StatusNotFound, wantState: gobreaker.StateClosed},
		{name: "bad request leaves breaker closed", status: http.StatusBadRequest, wantState: gobreaker.StateClosed},
		{name: "rate limited opens breaker", status: http.StatusTooManyRequests, wantState: gobreaker.StateOpen},
		{name: "server error opens breaker", status: http.StatusInternalServerError, wantState: gobreaker.StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}, 2)

			for i := 0; i < 3; i++ {
				_, err := client.FetchRoster(context.Background(), 1)
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
			}
			assert.Equal(t, tt.wantState, client.breaker.State())
		})
	}
}
