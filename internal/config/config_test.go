package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
)

var envKeys = []string{
	"PORT", "APP_ENV", "LOG_LEVEL", "STORE_DRIVER", "SQLITE_PATH",
	"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
	"REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB",
	"JWT_SECRET", "JWT_ISSUER", "TOKEN_DURATION", "EXPORT_DIR",
	"ENGINE_CONFIG", "WORKER_SHARDS",
}

// clearEnv unsets every variable Load reads and restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad(t *testing.T) {
	t.Run("Success: defaults", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("JWT_SECRET", "s3cret")

		cfg, err := Load("")

		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, DriverPostgres, cfg.StoreDriver)
		assert.Equal(t, 24*time.Hour, cfg.TokenDuration)
		assert.False(t, cfg.Redis.Enabled())
		assert.False(t, cfg.IsProduction())
		assert.Equal(t, DefaultEngine(), cfg.Engine)
	})

	t.Run("Success: environment overrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("STORE_DRIVER", "SQLite")
		t.Setenv("REDIS_HOST", "cache")
		t.Setenv("REDIS_DB", "3")
		t.Setenv("WORKER_SHARDS", "8")
		t.Setenv("DB_USER", "kanso")
		t.Setenv("DB_PASSWORD", "pw")
		t.Setenv("DB_NAME", "progress")

		cfg, err := Load("")

		require.NoError(t, err)
		assert.Equal(t, DriverSQLite, cfg.StoreDriver)
		assert.True(t, cfg.Redis.Enabled())
		assert.Equal(t, 3, cfg.Redis.DB)
		assert.Equal(t, 8, cfg.Engine.WorkerShards)
		assert.Equal(t, "postgres://kanso:pw@localhost:5432/progress?sslmode=disable", cfg.DB.DSN())
	})

	t.Run("Success: env file fills unset variables", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "9000")
		envFile := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(envFile, []byte("JWT_SECRET=from-file\nPORT=1234\n"), 0o600))

		cfg, err := Load(envFile)

		require.NoError(t, err)
		assert.Equal(t, "from-file", cfg.JWTSecret)
		assert.Equal(t, "9000", cfg.Port, "process environment wins")
	})

	t.Run("Edge Case: missing env file is ignored", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("JWT_SECRET", "s3cret")

		_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
		assert.NoError(t, err)
	})

	tests := []struct {
		name    string
		env     map[string]string
		wantErr error
		errText string
	}{
		{name: "Error: missing secret", env: map[string]string{}, wantErr: ErrMissingJWTSecret},
		{name: "Error: unknown driver", env: map[string]string{"JWT_SECRET": "x", "STORE_DRIVER": "mongo"}, wantErr: ErrUnknownDriver},
		{name: "Error: bad shard count", env: map[string]string{"JWT_SECRET": "x", "WORKER_SHARDS": "many"}, errText: "WORKER_SHARDS must be an integer"},
		{name: "Error: zero shards", env: map[string]string{"JWT_SECRET": "x", "WORKER_SHARDS": "0"}, errText: "worker_shards"},
		{name: "Error: bad duration", env: map[string]string{"JWT_SECRET": "x", "TOKEN_DURATION": "tomorrow"}, errText: "TOKEN_DURATION"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("")

			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.errText != "" {
				assert.Contains(t, err.Error(), tt.errText)
			}
		})
	}
}

func TestEngine_LoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("Success: partial file keeps defaults", func(t *testing.T) {
		path := filepath.Join(dir, "engine.yaml")
		body := `
gamification:
  perfect_day_bonus: 75
  ranks:
    - min_level: 10
      rank: S
analytics:
  moving_average_window: 5
export_concurrency: 2
leaderboard_cache_ttl: 90s
`
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

		e := DefaultEngine()
		require.NoError(t, e.LoadFile(path))

		assert.Equal(t, 75, e.Gamification.PerfectDayBonus)
		assert.Equal(t, 500, e.Gamification.MaxDailyXP)
		require.Len(t, e.Gamification.Ranks, 1)
		assert.Equal(t, domain.RankS, e.Gamification.Ranks[0].Rank)
		assert.Equal(t, 5, e.Analytics.MovingAverageWindow)
		assert.Equal(t, 7, e.Analytics.WeightAverageWindow)
		assert.Equal(t, 2, e.ExportConcurrency)
		assert.Equal(t, 90*time.Second, e.LeaderboardCacheTTL)
	})

	t.Run("Error: malformed yaml", func(t *testing.T) {
		path := filepath.Join(dir, "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("gamification: [oops"), 0o600))

		e := DefaultEngine()
		assert.Error(t, e.LoadFile(path))
	})

	t.Run("Error: missing file via ENGINE_CONFIG", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("JWT_SECRET", "x")
		t.Setenv("ENGINE_CONFIG", filepath.Join(dir, "absent.yaml"))

		_, err := Load("")
		assert.ErrorContains(t, err, "read engine config")
	})
}
