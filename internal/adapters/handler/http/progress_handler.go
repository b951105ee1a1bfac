package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/services"
)

// ProgressHandler accepts the writes that feed the progress pipeline.
type ProgressHandler struct {
	logs     *services.LogService
	progress services.ProgressScheduler
	logger   *zap.Logger
}

func NewProgressHandler(logs *services.LogService, progress services.ProgressScheduler, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{logs: logs, progress: progress, logger: logger}
}

type saveDayRequest struct {
	Tasks map[string]any `json:"tasks" binding:"required"`
}

type weightRequest struct {
	Date   string  `json:"date" binding:"required"`
	Weight float64 `json:"weight" binding:"required"`
	Unit   string  `json:"unit"`
}

type fastingRequest struct {
	Date        string  `json:"date" binding:"required"`
	TargetHours float64 `json:"target_hours" binding:"required"`
	ActualHours float64 `json:"actual_hours"`
	Completed   bool    `json:"completed"`
}

type syncRequest struct {
	Date string `json:"date"`
}

func (h *ProgressHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.PUT("/logs/:date", h.SaveDay)
	router.POST("/body/weight", h.AddWeight)
	router.POST("/body/fasting", h.AddFast)
	router.POST("/progress/sync", h.Sync)
}

func accepted(c *gin.Context, queued bool, body gin.H) {
	body["queued"] = queued
	c.JSON(http.StatusAccepted, body)
}

func (h *ProgressHandler) SaveDay(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	date, err := domain.ParseDate(c.Param("date"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req saveDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	queued, err := h.logs.SaveDay(c.Request.Context(), services.SaveDayInput{
		UserID: userID,
		Date:   date,
		Tasks:  req.Tasks,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	accepted(c, queued, gin.H{"date": date})
}

func (h *ProgressHandler) AddWeight(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req weightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := domain.ParseDate(req.Date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	entry := &domain.WeightEntry{UserID: userID, Date: date, Weight: req.Weight, Unit: req.Unit}
	queued, err := h.logs.AddWeight(c.Request.Context(), entry)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	accepted(c, queued, gin.H{"date": date})
}

func (h *ProgressHandler) AddFast(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req fastingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := domain.ParseDate(req.Date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	entry := &domain.FastingEntry{
		UserID:      userID,
		Date:        date,
		TargetHours: req.TargetHours,
		ActualHours: req.ActualHours,
		Completed:   req.Completed,
	}
	queued, err := h.logs.AddFast(c.Request.Context(), entry)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	accepted(c, queued, gin.H{"date": date})
}

// Sync re-runs the pipeline for one day, today when no date is given.
func (h *ProgressHandler) Sync(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req syncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	date := today()
	if req.Date != "" {
		d, err := domain.ParseDate(req.Date)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		if d.After(date.AddDays(1)) {
			respondError(c, h.logger, domain.ErrFutureDate)
			return
		}
		date = d
	}

	if !h.progress.Enqueue(userID, date) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "progress queue is full, retry later"})
		return
	}
	accepted(c, true, gin.H{"date": date})
}
