package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/queueboard/internal/application/services"
	"github.com/zatekoja/queueboard/internal/domain/entities"
	apperrors "github.com/zatekoja/queueboard/pkg/errors"
)

// BoardService is the board behaviour the HTTP layer depends on
type BoardService interface {
	NewSession(ctx context.Context, locationID, viewportHeight int) (*services.BoardSession, error)
	CloseSession(session *services.BoardSession)
	Snapshot(ctx context.Context, locationID int) (*entities.Board, error)
	RequestRefresh(ctx context.Context, locationID int) error
	Stats() services.SessionStats
}

// BoardHandler handles board snapshot and control requests
type BoardHandler struct {
	service           BoardService
	defaultLocationID int
}

// NewBoardHandler creates a new board handler
func NewBoardHandler(service BoardService, defaultLocationID int) *BoardHandler {
	return &BoardHandler{
		service:           service,
		defaultLocationID: defaultLocationID,
	}
}

// GetBoard returns the latest composed board for a location
// GET /api/board?location_id=N
func (h *BoardHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	locationID, err := parseLocationID(r, h.defaultLocationID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	board, err := h.service.Snapshot(r.Context(), locationID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, board)
}

// RefreshBoard asks every kiosk showing a location to refetch now
// POST /api/board/refresh?location_id=N
func (h *BoardHandler) RefreshBoard(w http.ResponseWriter, r *http.Request) {
	locationID, err := parseLocationID(r, h.defaultLocationID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	if err := h.service.RequestRefresh(r.Context(), locationID); err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusAccepted, map[string]interface{}{
		"location_id": locationID,
		"status":      "refresh_requested",
	})
}

// GetStats returns connected kiosk counts
// GET /api/board/stats
func (h *BoardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.service.Stats())
}

func parseLocationID(r *http.Request, defaultID int) (int, error) {
	raw := r.URL.Query().Get("location_id")
	if raw == "" {
		if defaultID > 0 {
			return defaultID, nil
		}
		return 0, apperrors.NewValidationError("location_id is required")
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, apperrors.NewValidationError("location_id must be a positive integer")
	}
	return id, nil
}

func parseViewportHeight(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("viewport_height")
	if raw == "" {
		return 0, nil
	}
	height, err := strconv.Atoi(raw)
	if err != nil || height < 1 {
		return 0, apperrors.NewValidationError("viewport_height must be a positive integer")
	}
	return height, nil
}

func statusForError(err error) int {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeExternal:
		return http.StatusBadGateway
	case apperrors.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondWithAppError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	message := err.Error()

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("Request failed")
	}
	respondWithError(w, status, message)
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
