package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/export"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/services"
)

const maxBatchUsers = 500

type ExportHandler struct {
	svc    *services.ExportService
	logger *zap.Logger
}

func NewExportHandler(svc *services.ExportService, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{svc: svc, logger: logger}
}

type batchExportRequest struct {
	UserIDs []string `json:"user_ids" binding:"required"`
	Format  string   `json:"format"`
	Range   string   `json:"range"`
}

func (h *ExportHandler) RegisterRoutes(router *gin.RouterGroup) {
	e := router.Group("/export")
	{
		e.GET("", h.Export)
		e.POST("/batch", h.ExportBatch)
	}
}

func (h *ExportHandler) Export(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	f, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	tr, err := rangeParam(c, domain.TimeRange30D)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	includeMetadata := true
	if raw := c.Query("metadata"); raw != "" {
		if includeMetadata, err = strconv.ParseBool(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "metadata must be true or false"})
			return
		}
	}

	res, err := h.svc.Export(c.Request.Context(), userID, f, tr, includeMetadata, time.Now())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *ExportHandler) ExportBatch(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}

	var req batchExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ids := make([]string, 0, len(req.UserIDs))
	for _, id := range req.UserIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		respondError(c, h.logger, domain.ErrEmptyBatch)
		return
	}
	if len(ids) > maxBatchUsers {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many users in one batch"})
		return
	}

	f, err := export.ParseFormat(req.Format)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	tr := domain.TimeRange30D
	if req.Range != "" {
		if tr, err = domain.ParseTimeRange(req.Range); err != nil {
			respondError(c, h.logger, err)
			return
		}
	}

	res, err := h.svc.ExportBatch(c.Request.Context(), ids, f, tr, time.Now())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
