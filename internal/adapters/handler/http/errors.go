package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/gamification"
)

var badRequestErrors = []error{
	domain.ErrInvalidTimeRange,
	domain.ErrInvalidDate,
	domain.ErrFutureDate,
	domain.ErrUnknownTask,
	domain.ErrUnsupportedFormat,
	domain.ErrUnsupportedLeaderboard,
	domain.ErrEmptyBatch,
	domain.ErrInvalidWeight,
	domain.ErrInvalidFasting,
	gamification.ErrInvalidCompletion,
}

var notFoundErrors = []error{
	domain.ErrAvatarNotFound,
	domain.ErrAchievementNotFound,
}

var forbiddenErrors = []error{
	domain.ErrAchievementNotGrantable,
}

// respondError maps domain errors to a status. Anything unknown is logged
// and reported as a 500 without leaking the cause.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
	}

	for _, target := range forbiddenErrors {
		if errors.Is(err, target) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
	}

	logger.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err))

	if errors.Is(err, domain.ErrExportFailed) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": domain.ErrExportFailed.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func requireUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return userID, true
}

func rangeParam(c *gin.Context, fallback domain.TimeRange) (domain.TimeRange, error) {
	raw := c.Query("range")
	if raw == "" {
		return fallback, nil
	}
	return domain.ParseTimeRange(raw)
}
