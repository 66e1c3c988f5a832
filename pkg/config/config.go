package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/zatekoja/queueboard/pkg/secrets"
)

// Config holds all application configuration
type Config struct {
	Env       string
	Server    ServerConfig
	Redis     RedisConfig
	RosterAPI RosterAPIConfig
	Board     BoardConfig
	OTEL      OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// RosterAPIConfig holds configuration of the upstream roster source
type RosterAPIConfig struct {
	URL     string
	Path    string
	Token   string
	Timeout time.Duration

	// BreakerFailures is the number of consecutive failures that opens the
	// circuit breaker; zero disables it.
	BreakerFailures int
	BreakerCooldown time.Duration
}

// BoardConfig holds the kiosk board timings and geometry
type BoardConfig struct {
	DefaultLocationID int
	PollInterval      time.Duration
	ScrollTick        time.Duration
	ScrollStep        int
	ScrollDwell       time.Duration
	ClockInterval     time.Duration
	RowHeight         int
	ViewportHeight    int
	TimeZone          string
	SnapshotTTL       time.Duration
	EventBuffer       int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables and an optional
// config file named by CONFIG_FILE (default ".env").
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = ".env"
	}
	return LoadFile(path)
}

// LoadFile loads configuration from environment variables layered over the
// given file. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !isMissingFile(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := applyVaultSecrets(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		Env: v.GetString("ENV"),
		Server: ServerConfig{
			Host:            v.GetString("SERVER_HOST"),
			Port:            v.GetInt("SERVER_PORT"),
			AllowedOrigins:  splitList(v.GetString("ALLOWED_ORIGINS")),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("REDIS_ENABLED"),
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		RosterAPI: RosterAPIConfig{
			URL:             v.GetString("ROSTER_API_URL"),
			Path:            v.GetString("ROSTER_API_PATH"),
			Token:           v.GetString("ROSTER_API_TOKEN"),
			Timeout:         v.GetDuration("ROSTER_API_TIMEOUT"),
			BreakerFailures: v.GetInt("ROSTER_API_BREAKER_FAILURES"),
			BreakerCooldown: v.GetDuration("ROSTER_API_BREAKER_COOLDOWN"),
		},
		Board: BoardConfig{
			DefaultLocationID: v.GetInt("BOARD_DEFAULT_LOCATION_ID"),
			PollInterval:      v.GetDuration("BOARD_POLL_INTERVAL"),
			ScrollTick:        v.GetDuration("BOARD_SCROLL_TICK"),
			ScrollStep:        v.GetInt("BOARD_SCROLL_STEP"),
			ScrollDwell:       v.GetDuration("BOARD_SCROLL_DWELL"),
			ClockInterval:     v.GetDuration("BOARD_CLOCK_INTERVAL"),
			RowHeight:         v.GetInt("BOARD_ROW_HEIGHT"),
			ViewportHeight:    v.GetInt("BOARD_VIEWPORT_HEIGHT"),
			TimeZone:          v.GetString("BOARD_TIMEZONE"),
			SnapshotTTL:       v.GetDuration("BOARD_SNAPSHOT_TTL"),
			EventBuffer:       v.GetInt("BOARD_EVENT_BUFFER"),
		},
		OTEL: OTELConfig{
			ServiceName:    v.GetString("OTEL_SERVICE_NAME"),
			ServiceVersion: v.GetString("OTEL_SERVICE_VERSION"),
			Endpoint:       v.GetString("OTEL_ENDPOINT"),
			Enabled:        v.GetBool("OTEL_ENABLED"),
		},
	}

	cfg.Board.SnapshotTTL = snapshotTTL(cfg.Board.SnapshotTTL, cfg.Board.PollInterval)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// snapshotTTL keeps a cached board no older than one poll period. Caches store
// whole seconds, so anything shorter is raised to one second.
func snapshotTTL(ttl, pollInterval time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = pollInterval
	}
	if ttl > 0 && ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "production")

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "10s")

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ROSTER_API_URL", "http://localhost:3000")
	v.SetDefault("ROSTER_API_PATH", "/api/doctors/by-department")
	v.SetDefault("ROSTER_API_TOKEN", "")
	v.SetDefault("ROSTER_API_TIMEOUT", "10s")
	v.SetDefault("ROSTER_API_BREAKER_FAILURES", 5)
	v.SetDefault("ROSTER_API_BREAKER_COOLDOWN", "30s")

	v.SetDefault("BOARD_DEFAULT_LOCATION_ID", 1)
	v.SetDefault("BOARD_POLL_INTERVAL", "60s")
	v.SetDefault("BOARD_SCROLL_TICK", "50ms")
	v.SetDefault("BOARD_SCROLL_STEP", 1)
	v.SetDefault("BOARD_SCROLL_DWELL", "2s")
	v.SetDefault("BOARD_CLOCK_INTERVAL", "1s")
	v.SetDefault("BOARD_ROW_HEIGHT", 48)
	v.SetDefault("BOARD_VIEWPORT_HEIGHT", 1080)
	v.SetDefault("BOARD_TIMEZONE", "Local")
	// unset BOARD_SNAPSHOT_TTL follows BOARD_POLL_INTERVAL
	v.SetDefault("BOARD_SNAPSHOT_TTL", "0s")
	v.SetDefault("BOARD_EVENT_BUFFER", 64)

	v.SetDefault("OTEL_SERVICE_NAME", "facility-queue-board")
	v.SetDefault("OTEL_SERVICE_VERSION", "1.0.0")
	v.SetDefault("OTEL_ENDPOINT", "")
	v.SetDefault("OTEL_ENABLED", false)

	v.SetDefault("VAULT_ENABLED", false)
	v.SetDefault("VAULT_MOUNT", "secret")
	v.SetDefault("VAULT_KV_VERSION", 2)
	v.SetDefault("VAULT_TIMEOUT", "5s")
	v.SetDefault("VAULT_OVERWRITE", false)
}

// applyVaultSecrets layers a Vault KV secret over the defaults. Keys set in the
// environment or the config file win unless VAULT_OVERWRITE is set.
func applyVaultSecrets(v *viper.Viper) error {
	if !v.GetBool("VAULT_ENABLED") {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), v.GetDuration("VAULT_TIMEOUT")+time.Second)
	defer cancel()

	values, err := secrets.Fetch(ctx, secrets.VaultConfig{
		Addr:      v.GetString("VAULT_ADDR"),
		Token:     v.GetString("VAULT_TOKEN"),
		Namespace: v.GetString("VAULT_NAMESPACE"),
		Mount:     v.GetString("VAULT_MOUNT"),
		Path:      v.GetString("VAULT_PATH"),
		KVVersion: v.GetInt("VAULT_KV_VERSION"),
		Timeout:   v.GetDuration("VAULT_TIMEOUT"),
	})
	if err != nil {
		return fmt.Errorf("load vault secrets: %w", err)
	}

	overwrite := v.GetBool("VAULT_OVERWRITE")
	for key, value := range values {
		if !overwrite && isExplicit(v, key) {
			continue
		}
		v.Set(key, value)
	}
	return nil
}

// Validate checks that the board timings are usable
func (c *Config) Validate() error {
	var errs []error
	if c.RosterAPI.URL == "" {
		errs = append(errs, errors.New("ROSTER_API_URL is required"))
	}
	if c.Board.DefaultLocationID < 1 {
		errs = append(errs, errors.New("BOARD_DEFAULT_LOCATION_ID must be >= 1"))
	}
	if c.Board.PollInterval <= 0 {
		errs = append(errs, errors.New("BOARD_POLL_INTERVAL must be positive"))
	}
	if c.Board.ScrollTick <= 0 {
		errs = append(errs, errors.New("BOARD_SCROLL_TICK must be positive"))
	}
	if c.Board.ScrollStep <= 0 {
		errs = append(errs, errors.New("BOARD_SCROLL_STEP must be positive"))
	}
	if c.Board.ScrollDwell < 0 {
		errs = append(errs, errors.New("BOARD_SCROLL_DWELL must not be negative"))
	}
	if c.Board.ClockInterval <= 0 {
		errs = append(errs, errors.New("BOARD_CLOCK_INTERVAL must be positive"))
	}
	if c.Board.RowHeight <= 0 {
		errs = append(errs, errors.New("BOARD_ROW_HEIGHT must be positive"))
	}
	if _, err := c.Board.Location(); err != nil {
		errs = append(errs, fmt.Errorf("BOARD_TIMEZONE: %w", err))
	}
	return errors.Join(errs...)
}

// IsDev reports whether the service runs in development mode
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Location resolves the board time zone
func (c *BoardConfig) Location() (*time.Location, error) {
	if c.TimeZone == "" || strings.EqualFold(c.TimeZone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.TimeZone)
}

func isExplicit(v *viper.Viper, key string) bool {
	if _, ok := os.LookupEnv(key); ok {
		return true
	}
	return v.InConfig(key)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func isMissingFile(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}
