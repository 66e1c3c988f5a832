package rosterapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"github.com/zatekoja/queueboard/internal/domain/entities"
	"github.com/zatekoja/queueboard/internal/domain/providers"
	"github.com/zatekoja/queueboard/pkg/config"
	apperrors "github.com/zatekoja/queueboard/pkg/errors"
)

const maxResponseBytes = 8 << 20

// errFetchAborted marks a fetch that ended because the caller's context did.
var errFetchAborted = errors.New("roster fetch aborted by caller")

// statusError carries the upstream HTTP status of a rejected request.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d", e.code)
}

// HTTPClient fetches department rosters from the hospital information system
type HTTPClient struct {
	baseURL    string
	path       string
	token      string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

var _ providers.RosterProvider = (*HTTPClient)(nil)

// NewClient creates a roster client from configuration
func NewClient(cfg config.RosterAPIConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	path := cfg.Path
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	c := &HTTPClient{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		path:    path,
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	if cfg.BreakerFailures > 0 {
		c.breaker = newBreaker(uint32(cfg.BreakerFailures), cfg.BreakerCooldown)
	}
	return c
}

func newBreaker(failures uint32, cooldown time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "roster-api",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: countsAsHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Roster API circuit breaker state changed")
		},
	})
}

// FetchRoster returns the department -> doctors mapping for a location exactly
// as delivered
func (c *HTTPClient) FetchRoster(ctx context.Context, locationID int) (*entities.Roster, error) {
	if locationID < 1 {
		return nil, apperrors.NewValidationError("location id must be >= 1")
	}

	if c.breaker == nil {
		return c.fetch(ctx, locationID)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		roster, err := c.fetch(ctx, locationID)
		if err != nil && ctx.Err() != nil {
			return nil, apperrors.NewExternalError("roster fetch aborted", fmt.Errorf("%w: %w", errFetchAborted, ctx.Err()))
		}
		return roster, err
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, apperrors.NewExternalError("roster api circuit open", err)
		}
		return nil, err
	}
	return result.(*entities.Roster), nil
}

// countsAsHealthy reports whether an outcome says nothing bad about upstream.
// Caller aborts and client errors (other than 429) leave the breaker alone.
func countsAsHealthy(err error) bool {
	if err == nil || errors.Is(err, errFetchAborted) {
		return true
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 400 && se.code < 500 && se.code != http.StatusTooManyRequests
	}
	return false
}

func (c *HTTPClient) fetch(ctx context.Context, locationID int) (*entities.Roster, error) {
	parsed, err := url.Parse(c.baseURL + c.path)
	if err != nil {
		return nil, apperrors.NewInternalError("invalid roster api url", err)
	}
	query := parsed.Query()
	query.Set("location_id", strconv.Itoa(locationID))
	parsed.RawQuery = query.Encode()

	roster := &entities.Roster{}
	if err := c.doJSON(ctx, http.MethodGet, parsed.String(), nil, roster); err != nil {
		return nil, err
	}
	return roster, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, endpoint string, body io.Reader, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return apperrors.NewInternalError("build roster request", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return apperrors.NewExternalError("roster api request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return apperrors.NewExternalError(fmt.Sprintf("roster api returned status %d", resp.StatusCode), &statusError{code: resp.StatusCode})
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return apperrors.NewExternalError("malformed roster payload", err)
	}

	return nil
}
