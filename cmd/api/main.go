package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/adapters/cache"
	adapterHTTP "github.com/comitanigiacomo/kanso-progress-engine/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/config"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/gamification"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/services"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/workers"
)

func main() {
	startTime := time.Now()

	cfg, err := config.Load(".env")
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger, startTime); err != nil {
		logger.Fatal("critical error", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
		gin.SetMode(gin.ReleaseMode)
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg.Level = level
	return zcfg.Build()
}

type app struct {
	router  *gin.Engine
	worker  *workers.ProgressWorker
	cleanup []func()
}

func (a *app) Close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
}

// newApp opens the stores, wires services and starts the progress worker.
// Close stops the worker and releases the stores.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, startTime time.Time) (*app, error) {
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a := &app{cleanup: []func(){st.close}}

	var rdb *redis.Client
	levels := domain.LevelRepository(st.game)
	board := domain.LeaderboardRepository(st.game)
	if cfg.Redis.Enabled() {
		rdb, err = cache.NewRedisClient(ctx, cache.Options{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Warn("redis unavailable, running without cache and rate limits", zap.Error(err))
			rdb = nil
		} else {
			a.cleanup = append(a.cleanup, func() { rdb.Close() })
			cached := repository.NewCachedLeaderboardRepository(st.game, st.game, rdb, cfg.Engine.LeaderboardCacheTTL, logger)
			levels, board = cached, cached
			logger.Info("redis connected", zap.String("host", cfg.Redis.Host))
		}
	}

	exports, err := repository.NewFileExportStorage(cfg.ExportDir)
	if err != nil {
		a.Close()
		return nil, err
	}

	engine := cfg.Engine
	analyticsService := services.NewAnalyticsService(st.days, engine.Analytics, logger)
	bodyService := services.NewBodyStatsService(st.body, engine.Analytics)
	xpService := services.NewXPService(levels, engine.Gamification, gamification.Bonuses{}, logger)
	achievementService := services.NewAchievementService(st.game, xpService, logger)
	avatarService := services.NewAvatarService(st.game, st.game, engine.Gamification)
	leaderboardService := services.NewLeaderboardService(board, engine.Gamification)
	exportService := services.NewExportService(analyticsService, exports, engine.ExportConcurrency, logger)

	if err := achievementService.SeedDefaults(ctx); err != nil {
		a.Close()
		return nil, err
	}

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	a.worker = workers.NewProgressWorker(analyticsService, bodyService, xpService, achievementService, avatarService, engine.WorkerShards, logger)
	a.worker.Start(workerCtx)
	a.cleanup = append(a.cleanup, func() {
		cancelWorker()
		a.worker.Wait()
		logger.Info("progress worker stopped")
	})

	logService := services.NewLogService(st.days, st.body, a.worker)

	a.router = adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		AnalyticsHandler: adapterHTTP.NewAnalyticsHandler(analyticsService, bodyService, logger),
		ExportHandler:    adapterHTTP.NewExportHandler(exportService, logger),
		ProgressHandler:  adapterHTTP.NewProgressHandler(logService, a.worker, logger),
		GamificationHandler: adapterHTTP.NewGamificationHandler(adapterHTTP.GamificationDeps{
			XP:           xpService,
			Achievements: achievementService,
			Leaderboard:  leaderboardService,
			Avatars:      avatarService,
			Analytics:    analyticsService,
			Body:         bodyService,
		}, logger),
		Tokens:            services.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenDuration),
		DatabasePing:      st.ping,
		Redis:             rdb,
		RequestsPerMinute: engine.RequestsPerMinute,
		ExportsPerMinute:  engine.ExportsPerMinute,
		Logger:            logger,
		StartTime:         startTime,
	})
	return a, nil
}

func run(cfg *config.Config, logger *zap.Logger, startTime time.Time) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, startTime)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      a.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("kanso progress engine running",
			zap.String("port", cfg.Port),
			zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("stop signal received, shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped gracefully")
	return nil
}
