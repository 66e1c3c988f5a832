package config

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "/api/doctors/by-department", cfg.RosterAPI.Path)
	assert.Equal(t, 60*time.Second, cfg.Board.PollInterval)
	assert.Equal(t, 50*time.Millisecond, cfg.Board.ScrollTick)
	assert.Equal(t, 1, cfg.Board.ScrollStep)
	assert.Equal(t, 2*time.Second, cfg.Board.ScrollDwell)
	assert.Equal(t, time.Second, cfg.Board.ClockInterval)
	assert.Equal(t, 1, cfg.Board.DefaultLocationID)
	assert.Equal(t, 60*time.Second, cfg.Board.SnapshotTTL)
	assert.False(t, cfg.IsDev())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("ROSTER_API_URL", "http://hims.internal:9000")
	t.Setenv("BOARD_POLL_INTERVAL", "15s")
	t.Setenv("BOARD_SCROLL_STEP", "2")
	t.Setenv("ALLOWED_ORIGINS", "http://kiosk-1, http://kiosk-2")
	t.Setenv("ENV", "development")

	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, "http://hims.internal:9000", cfg.RosterAPI.URL)
	assert.Equal(t, 15*time.Second, cfg.Board.PollInterval)
	assert.Equal(t, 2, cfg.Board.ScrollStep)
	assert.Equal(t, []string{"http://kiosk-1", "http://kiosk-2"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.IsDev())
}

func TestLoad_SnapshotTTLFollowsPollInterval(t *testing.T) {
	tests := []struct {
		name string
		poll string
		ttl  string
		want time.Duration
	}{
		{name: "unset ttl uses poll interval", poll: "15s", want: 15 * time.Second},
		{name: "explicit ttl wins", poll: "15s", ttl: "2m", want: 2 * time.Minute},
		{name: "sub-second poll rounds up", poll: "500ms", want: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BOARD_POLL_INTERVAL", tt.poll)
			if tt.ttl != "" {
				t.Setenv("BOARD_SNAPSHOT_TTL", tt.ttl)
			}

			cfg, err := LoadFile("")
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Board.SnapshotTTL)
		})
	}
}

func TestLoadFile_ReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BOARD_ROW_HEIGHT=64\nREDIS_PORT=6380\n"), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Board.RowHeight)
	assert.Equal(t, "localhost:6380", cfg.Redis.RedisAddr())
}

func TestLoadFile_MissingFileIsIgnored(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestValidate_RejectsBadTimings(t *testing.T) {
	t.Setenv("BOARD_SCROLL_TICK", "0s")
	t.Setenv("BOARD_DEFAULT_LOCATION_ID", "0")

	_, err := LoadFile("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOARD_SCROLL_TICK")
	assert.Contains(t, err.Error(), "BOARD_DEFAULT_LOCATION_ID")
}

func TestBoardConfig_Location(t *testing.T) {
	local := BoardConfig{TimeZone: "Local"}
	loc, err := local.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	utc := BoardConfig{TimeZone: "UTC"}
	loc, err = utc.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	bad := BoardConfig{TimeZone: "Mars/Olympus_Mons"}
	_, err = bad.Location()
	assert.Error(t, err)
}

func TestLoadFile_VaultSecrets(t *testing.T) {
	vault := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"data":{"ROSTER_API_TOKEN":"from-vault","REDIS_PASSWORD":"vault-pass","BOARD_ROW_HEIGHT":64}}}`))
	}))
	defer vault.Close()

	t.Setenv("VAULT_ENABLED", "true")
	t.Setenv("VAULT_ADDR", vault.URL)
	t.Setenv("VAULT_TOKEN", "root")
	t.Setenv("VAULT_PATH", "queueboard")
	t.Setenv("REDIS_PASSWORD", "from-env")

	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, "from-vault", cfg.RosterAPI.Token)
	assert.Equal(t, "from-env", cfg.Redis.Password, "environment wins over vault")
	assert.Equal(t, 64, cfg.Board.RowHeight)
}

func TestLoadFile_VaultFailure(t *testing.T) {
	t.Setenv("VAULT_ENABLED", "true")
	t.Setenv("VAULT_ADDR", "")

	_, err := LoadFile("")
	assert.Error(t, err)
}
