package routes

import (
	"net/http"

	"github.com/zatekoja/queueboard/internal/api/handlers"
	"github.com/zatekoja/queueboard/internal/api/middleware"
	"github.com/zatekoja/queueboard/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	boardHandler  *handlers.BoardHandler
	streamHandler *handlers.BoardStreamHandler

	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	boardHandler *handlers.BoardHandler,
	streamHandler *handlers.BoardStreamHandler,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:            http.NewServeMux(),
		boardHandler:   boardHandler,
		streamHandler:  streamHandler,
		allowedOrigins: allowedOrigins,
		metrics:        metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Board endpoints
	r.mux.Handle("GET /api/board", middleware.SnapshotOptimization(http.HandlerFunc(r.boardHandler.GetBoard)))
	r.mux.HandleFunc("POST /api/board/refresh", r.boardHandler.RefreshBoard)
	r.mux.HandleFunc("GET /api/board/stats", r.boardHandler.GetStats)

	// SSE streaming endpoint
	r.mux.HandleFunc("GET /api/board/stream", r.streamHandler.StreamBoard)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	// CORS wraps everything so preflights never reach the handlers
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
