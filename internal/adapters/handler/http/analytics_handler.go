package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/services"
)

type AnalyticsHandler struct {
	analytics *services.AnalyticsService
	body      *services.BodyStatsService
	logger    *zap.Logger
}

func NewAnalyticsHandler(analytics *services.AnalyticsService, body *services.BodyStatsService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, body: body, logger: logger}
}

func (h *AnalyticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	a := router.Group("/analytics")
	{
		a.GET("", h.Snapshot)
		a.GET("/compare", h.Compare)
		a.GET("/day/:date", h.Day)
		a.GET("/weight", h.Weight)
		a.GET("/fasting", h.Fasting)
	}
}

func today() domain.Date {
	return domain.DateOf(time.Now().UTC())
}

func (h *AnalyticsHandler) Snapshot(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	tr, err := rangeParam(c, domain.TimeRange30D)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	snapshot, err := h.analytics.Snapshot(c.Request.Context(), userID, tr, today())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *AnalyticsHandler) Compare(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	tr, err := rangeParam(c, domain.TimeRange7D)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	cmp, err := h.analytics.Compare(c.Request.Context(), userID, tr, today())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cmp)
}

func (h *AnalyticsHandler) Day(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	date, err := domain.ParseDate(c.Param("date"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	day, err := h.analytics.Day(c.Request.Context(), userID, date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, day)
}

func (h *AnalyticsHandler) Weight(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	stats, err := h.body.Weight(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AnalyticsHandler) Fasting(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	tr, err := rangeParam(c, domain.TimeRange30D)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	stats, err := h.body.Fasting(c.Request.Context(), userID, tr, today())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
