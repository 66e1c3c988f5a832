package providers

import (
	"context"

	"github.com/zatekoja/queueboard/internal/domain/entities"
)

// RosterProvider retrieves the current doctors of a location grouped by department
type RosterProvider interface {
	FetchRoster(ctx context.Context, locationID int) (*entities.Roster, error)
}
