package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const heartbeatInterval = 30 * time.Second

// BoardStreamHandler streams a live board to kiosks over Server-Sent Events
type BoardStreamHandler struct {
	service           BoardService
	defaultLocationID int
	allowedOrigin     string
}

// NewBoardStreamHandler creates a new board stream handler
func NewBoardStreamHandler(service BoardService, defaultLocationID int, allowedOrigin string) *BoardStreamHandler {
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	return &BoardStreamHandler{
		service:           service,
		defaultLocationID: defaultLocationID,
		allowedOrigin:     allowedOrigin,
	}
}

// StreamBoard runs one board session for the connection. The location is read
// once at connect; changing it needs a new connection.
// GET /api/board/stream?location_id=N&viewport_height=H
func (h *BoardStreamHandler) StreamBoard(w http.ResponseWriter, r *http.Request) {
	locationID, err := parseLocationID(r, h.defaultLocationID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	viewportHeight, err := parseViewportHeight(r)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	session, err := h.service.NewSession(r.Context(), locationID, viewportHeight)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	defer h.service.CloseSession(session)

	// Set headers for SSE
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", h.allowedOrigin)

	h.sendEvent(w, "connected", map[string]interface{}{
		"session_id":      session.ID,
		"location_id":     locationID,
		"viewport_height": session.ViewportHeight,
		"clock":           session.Clock(),
		"timestamp":       time.Now(),
	})
	flusher.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	events := session.Events()
	for {
		select {
		case <-r.Context().Done():
			log.Info().Str("session_id", session.ID).Int("location_id", locationID).Msg("Kiosk disconnected from board stream")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now(),
			})
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			h.sendEvent(w, string(event.EventType), event)
			flusher.Flush()
		}
	}
}

// sendEvent writes one SSE frame
func (h *BoardStreamHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("Failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}
