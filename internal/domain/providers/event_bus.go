package providers

import (
	"context"
	"strconv"

	"github.com/zatekoja/queueboard/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to board events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.BoardEvent) error

	// Subscribe subscribes to events on a channel until ctx is done
	Subscribe(ctx context.Context, channel string) (<-chan *entities.BoardEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelBoardPrefix is the prefix for location-specific board channels
	EventChannelBoardPrefix = "queueboard:location:"
)

// GetBoardChannel returns the channel name for a location's board
func GetBoardChannel(locationID int) string {
	return EventChannelBoardPrefix + strconv.Itoa(locationID)
}
