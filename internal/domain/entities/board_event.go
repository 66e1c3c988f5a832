package entities

import (
	"time"

	"github.com/google/uuid"
)

// BoardEventType represents the type of board event
type BoardEventType string

const (
	BoardEventTypeBoardUpdate      BoardEventType = "board_update"
	BoardEventTypeScrollUpdate     BoardEventType = "scroll_update"
	BoardEventTypeClockTick        BoardEventType = "clock_tick"
	BoardEventTypeRefreshRequested BoardEventType = "refresh_requested"
)

// BoardEvent represents a real-time update for a kiosk board
type BoardEvent struct {
	ID         string         `json:"id"`
	LocationID int            `json:"location_id"`
	EventType  BoardEventType `json:"event_type"`
	Timestamp  time.Time      `json:"timestamp"`
	Data       interface{}    `json:"data,omitempty"`
}

// NewBoardEvent creates a new board event
func NewBoardEvent(locationID int, eventType BoardEventType, data interface{}) *BoardEvent {
	return &BoardEvent{
		ID:         uuid.NewString(),
		LocationID: locationID,
		EventType:  eventType,
		Timestamp:  time.Now(),
		Data:       data,
	}
}

// ScrollPhase is the state of the auto-scroll engine
type ScrollPhase string

const (
	ScrollPhaseScrolling ScrollPhase = "scrolling"
	ScrollPhasePaused    ScrollPhase = "paused"
)

// ScrollState is a snapshot of the auto-scroll engine
type ScrollState struct {
	Offset    int         `json:"offset"`
	MaxScroll int         `json:"max_scroll"`
	Phase     ScrollPhase `json:"phase"`
	AtTop     bool        `json:"at_top"`
}

// ClockReading is the clock value pushed to kiosks
type ClockReading struct {
	Now     *time.Time `json:"now,omitempty"`
	Display string     `json:"display"`
	Date    string     `json:"date"`
}
