// Package config loads process settings from the environment (optionally
// seeded from a .env file) and the engine tuning file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/analytics"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/gamification"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

var (
	ErrMissingJWTSecret = errors.New("JWT_SECRET is required")
	ErrUnknownDriver    = errors.New("STORE_DRIVER must be postgres, sqlite or memory")
)

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether a Redis host was configured at all. Without one
// the leaderboard cache and rate limiting are skipped.
func (c RedisConfig) Enabled() bool { return c.Host != "" }

// Engine groups the tunables read from ENGINE_CONFIG. Keys missing from the
// file keep their defaults.
type Engine struct {
	Analytics    analytics.Config    `yaml:"analytics"`
	Gamification gamification.Config `yaml:"gamification"`

	ExportConcurrency   int           `yaml:"export_concurrency"`
	WorkerShards        int           `yaml:"worker_shards"`
	RequestsPerMinute   int           `yaml:"requests_per_minute"`
	ExportsPerMinute    int           `yaml:"exports_per_minute"`
	LeaderboardCacheTTL time.Duration `yaml:"leaderboard_cache_ttl"`
}

func DefaultEngine() Engine {
	return Engine{
		Analytics:           analytics.DefaultConfig(),
		Gamification:        gamification.DefaultConfig(),
		ExportConcurrency:   4,
		WorkerShards:        4,
		RequestsPerMinute:   100,
		ExportsPerMinute:    5,
		LeaderboardCacheTTL: 5 * time.Minute,
	}
}

type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	StoreDriver string
	SQLitePath  string
	DB          DBConfig
	Redis       RedisConfig

	JWTSecret     string
	JWTIssuer     string
	TokenDuration time.Duration

	ExportDir string
	Engine    Engine
}

func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

// Load reads envFile if it exists, then the environment. Variables already
// set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		AppEnv:      getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),
		SQLitePath:  getEnv("SQLITE_PATH", "kanso.db"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
		},
		Redis: RedisConfig{
			Host:     os.Getenv("REDIS_HOST"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTIssuer: getEnv("JWT_ISSUER", "kanso-progress-engine"),
		ExportDir: getEnv("EXPORT_DIR", "exports"),
		Engine:    DefaultEngine(),
	}

	var err error
	if cfg.Redis.DB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.TokenDuration, err = getEnvDuration("TOKEN_DURATION", 24*time.Hour); err != nil {
		return nil, err
	}

	if path := os.Getenv("ENGINE_CONFIG"); path != "" {
		if err := cfg.Engine.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if cfg.Engine.WorkerShards, err = getEnvInt("WORKER_SHARDS", cfg.Engine.WorkerShards); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("%w: got %q", ErrUnknownDriver, c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if c.Engine.WorkerShards < 1 {
		return errors.New("worker_shards must be at least 1")
	}
	if c.Engine.ExportConcurrency < 1 {
		return errors.New("export_concurrency must be at least 1")
	}
	return nil
}

// LoadFile overlays the YAML file at path onto e.
func (e *Engine) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read engine config: %w", err)
	}
	if err := yaml.Unmarshal(data, e); err != nil {
		return fmt.Errorf("parse engine config %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}
