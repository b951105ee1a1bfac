package main

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	adapterHTTP "github.com/comitanigiacomo/kanso-progress-engine/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/config"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
)

type dayStore interface {
	domain.DayLogRepository
	domain.DayLogWriter
}

type bodyStore interface {
	domain.BodyMetricsRepository
	domain.BodyMetricsWriter
}

type gamificationStore interface {
	domain.LevelRepository
	domain.LeaderboardRepository
	domain.AchievementRepository
	domain.AvatarRepository
}

type stores struct {
	days  dayStore
	body  bodyStore
	game  gamificationStore
	ping  adapterHTTP.PingFunc
	close func()
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		return openSQLite(cfg.SQLitePath, logger)
	case config.DriverMemory:
		return openMemory(logger)
	default:
		return openPostgres(ctx, cfg, logger)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	dsn := cfg.DB.DSN()
	logger.Info("connecting to postgres", zap.String("host", cfg.DB.Host), zap.String("database", cfg.DB.Name))

	pool, err := repository.NewPgxPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	closeAll := func() {
		db.Close()
		pool.Close()
	}
	return &stores{
		days:  repository.NewPostgresDayLogRepository(db),
		body:  repository.NewPostgresBodyMetricsRepository(db),
		game:  repository.NewPostgresGamificationRepository(pool),
		ping:  db.PingContext,
		close: closeAll,
	}, nil
}

func openSQLite(path string, logger *zap.Logger) (*stores, error) {
	logger.Info("opening sqlite store", zap.String("path", path))
	store, err := repository.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	return &stores{
		days:  store,
		body:  store,
		game:  store,
		ping:  store.Ping,
		close: func() { store.Close() },
	}, nil
}

// openMemory keeps logs in process memory. Gamification state still needs
// SQL for the leaderboard aggregation, so it lives in an in-memory sqlite.
func openMemory(logger *zap.Logger) (*stores, error) {
	logger.Warn("using in-memory store, data is lost on restart")
	game, err := repository.NewSQLiteStore(":memory:")
	if err != nil {
		return nil, err
	}
	logs := repository.NewInMemoryLogStore()
	return &stores{
		days:  logs,
		body:  logs,
		game:  game,
		ping:  game.Ping,
		close: func() { game.Close() },
	}, nil
}
