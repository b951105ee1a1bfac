package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/adapters/handler/http/middleware"
)

const healthTimeout = 2 * time.Second

// PingFunc reports whether a backing store is reachable.
type PingFunc func(ctx context.Context) error

type RouterDependencies struct {
	AnalyticsHandler    *AnalyticsHandler
	ExportHandler       *ExportHandler
	ProgressHandler     *ProgressHandler
	GamificationHandler *GamificationHandler
	Tokens              middleware.TokenValidator
	DatabasePing        PingFunc
	Redis               *redis.Client
	RequestsPerMinute   int
	ExportsPerMinute    int
	Logger              *zap.Logger
	StartTime           time.Time
}

func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(deps.Logger))

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	router.GET("/health", health(deps))

	apiV1 := router.Group("/api/v1")
	apiV1.Use(middleware.AuthMiddleware(deps.Tokens))
	if deps.Redis != nil && deps.RequestsPerMinute > 0 {
		apiV1.Use(middleware.RateLimiterMiddleware(deps.Redis, "api", deps.RequestsPerMinute, time.Minute, deps.Logger))
	}

	deps.AnalyticsHandler.RegisterRoutes(apiV1)
	deps.ProgressHandler.RegisterRoutes(apiV1)
	deps.GamificationHandler.RegisterRoutes(apiV1)

	exports := apiV1.Group("")
	if deps.Redis != nil && deps.ExportsPerMinute > 0 {
		exports.Use(middleware.RateLimiterMiddleware(deps.Redis, "export", deps.ExportsPerMinute, time.Minute, deps.Logger))
	}
	deps.ExportHandler.RegisterRoutes(exports)

	return router
}

func health(deps RouterDependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		dbStatus := "connected"
		if deps.DatabasePing == nil || deps.DatabasePing(ctx) != nil {
			dbStatus = "unreachable"
		}

		redisStatus := "disabled"
		if deps.Redis != nil {
			redisStatus = "connected"
			if deps.Redis.Ping(ctx).Err() != nil {
				redisStatus = "unreachable"
			}
		}

		status, statusCode := "ok", http.StatusOK
		if dbStatus == "unreachable" || redisStatus == "unreachable" {
			status, statusCode = "degraded", http.StatusServiceUnavailable
		}

		c.JSON(statusCode, gin.H{
			"status":   status,
			"database": dbStatus,
			"redis":    redisStatus,
			"uptime":   time.Since(deps.StartTime).String(),
		})
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
