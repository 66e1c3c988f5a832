package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zatekoja/queueboard/internal/adapters/cache"
	"github.com/zatekoja/queueboard/internal/adapters/events"
	"github.com/zatekoja/queueboard/internal/api/handlers"
	"github.com/zatekoja/queueboard/internal/api/routes"
	"github.com/zatekoja/queueboard/internal/application/services"
	"github.com/zatekoja/queueboard/internal/domain/providers"
	"github.com/zatekoja/queueboard/internal/infrastructure/clients/redis"
	"github.com/zatekoja/queueboard/internal/infrastructure/clients/rosterapi"
	"github.com/zatekoja/queueboard/internal/infrastructure/observability"
	"github.com/zatekoja/queueboard/pkg/config"
	"github.com/zatekoja/queueboard/pkg/retry"
)

const memoryCacheSize = 256

func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:          "queueboard",
		Short:        "Live facility queue board server",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default $CONFIG_FILE or .env)")

	rootCmd.AddCommand(serveCmd(&configFile))
	rootCmd.AddCommand(snapshotCmd(&configFile))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func serveCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the kiosk board server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return runServer(cmd.Context(), cfg)
		},
	}
}

func snapshotCmd(configFile *string) *cobra.Command {
	var locationID int

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch a location's roster once and print the composed board",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

			if locationID == 0 {
				locationID = cfg.Board.DefaultLocationID
			}

			boardService, err := services.NewBoardService(rosterapi.NewClient(cfg.RosterAPI), nil, nil, cfg.Board, clockwork.NewRealClock(), nil)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RosterAPI.Timeout+5*time.Second)
			defer cancel()

			board, err := boardService.Snapshot(ctx, locationID)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(board)
		},
	}
	cmd.Flags().IntVar(&locationID, "location", 0, "location id (default BOARD_DEFAULT_LOCATION_ID)")
	return cmd
}

func runServer(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("Starting queue board server")

	var metrics *observability.Metrics
	if cfg.OTEL.Enabled {
		shutdownOTel, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize OpenTelemetry, continuing without it")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownOTel(shutdownCtx); err != nil {
					log.Warn().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			observability.EnableLogExport()
			if metrics, err = observability.InitMetrics(); err != nil {
				log.Warn().Err(err).Msg("Failed to initialize metrics")
				metrics = nil
			}
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	clock := clockwork.NewRealClock()

	var snapshotCache providers.CacheProvider
	var eventBus providers.EventBus
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis, retry.DefaultConfig())
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, using in-memory snapshot cache and event bus")
		} else {
			defer redisClient.Close()
			snapshotCache = cache.NewRedisAdapter(redisClient, "queueboard:")
			eventBus = events.NewRedisEventBus(redisClient)
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis client initialized successfully")
		}
	}
	if snapshotCache == nil {
		memCache, err := cache.NewMemoryAdapter(memoryCacheSize, clock)
		if err != nil {
			return fmt.Errorf("failed to create memory cache: %w", err)
		}
		snapshotCache = memCache
	}
	if eventBus == nil {
		eventBus = events.NewMemoryEventBus()
	}
	defer func() {
		if err := eventBus.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing event bus")
		}
	}()

	boardService, err := services.NewBoardService(rosterapi.NewClient(cfg.RosterAPI), snapshotCache, eventBus, cfg.Board, clock, metrics)
	if err != nil {
		return fmt.Errorf("failed to create board service: %w", err)
	}
	defer boardService.Shutdown()

	allowedOrigin := "*"
	if len(cfg.Server.AllowedOrigins) == 1 {
		allowedOrigin = cfg.Server.AllowedOrigins[0]
	}

	router := routes.NewRouter(
		handlers.NewBoardHandler(boardService, cfg.Board.DefaultLocationID),
		handlers.NewBoardStreamHandler(boardService, cfg.Board.DefaultLocationID, allowedOrigin),
		cfg.Server.AllowedOrigins,
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // No timeout for SSE streaming
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", serverAddr).Msg("Queue board server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("Queue board server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Streams only end when their sessions stop
	boardService.Shutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Error during server shutdown")
	}

	log.Info().Msg("Queue board server stopped")
	return nil
}
