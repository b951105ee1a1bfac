package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/services"
)

// achievementStatsRange matches the window the progress worker checks
// achievements over.
const achievementStatsRange = domain.TimeRange30D

type GamificationHandler struct {
	xp           *services.XPService
	achievements *services.AchievementService
	leaderboard  *services.LeaderboardService
	avatars      *services.AvatarService
	analytics    *services.AnalyticsService
	body         *services.BodyStatsService
	logger       *zap.Logger
}

type GamificationDeps struct {
	XP           *services.XPService
	Achievements *services.AchievementService
	Leaderboard  *services.LeaderboardService
	Avatars      *services.AvatarService
	Analytics    *services.AnalyticsService
	Body         *services.BodyStatsService
}

func NewGamificationHandler(deps GamificationDeps, logger *zap.Logger) *GamificationHandler {
	return &GamificationHandler{
		xp:           deps.XP,
		achievements: deps.Achievements,
		leaderboard:  deps.Leaderboard,
		avatars:      deps.Avatars,
		analytics:    deps.Analytics,
		body:         deps.Body,
		logger:       logger,
	}
}

func (h *GamificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/level", h.GetLevel)
	router.GET("/xp/history", h.History)
	router.GET("/leaderboard", h.Leaderboard)
	router.GET("/avatar", h.GetAvatar)

	a := router.Group("/achievements")
	{
		a.GET("", h.ListAchievements)
		a.POST("/check", h.CheckAchievements)
		a.POST("/:id/grant", h.Grant)
	}
}

func (h *GamificationHandler) GetLevel(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	lvl, err := h.xp.GetLevel(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, lvl)
}

func (h *GamificationHandler) History(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	tr, err := rangeParam(c, domain.TimeRange30D)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	entries, err := h.xp.History(c.Request.Context(), userID, tr, today())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"range": tr, "entries": entries})
}

func (h *GamificationHandler) Leaderboard(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	typ, err := domain.ParseLeaderboardType(c.Query("type"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	tr, err := rangeParam(c, domain.TimeRangeAll)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
	}

	board, err := h.leaderboard.Rank(c.Request.Context(), typ, tr, limit, today())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (h *GamificationHandler) GetAvatar(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	state, err := h.avatars.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *GamificationHandler) ListAchievements(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	list, err := h.achievements.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CheckAchievements evaluates the catalog against the user's last 30 days
// and body metrics, and returns what was newly unlocked.
func (h *GamificationHandler) CheckAchievements(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	day := today()

	stats, err := h.analytics.PeriodStats(ctx, userID, achievementStatsRange, day)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	in := domain.AchievementInput{Stats: stats}
	if ws, err := h.body.Weight(ctx, userID, 0); err == nil {
		in.Weight = &ws
	}
	if fs, err := h.body.Fasting(ctx, userID, achievementStatsRange, day); err == nil {
		in.Fasting = &fs
	}

	unlocked, err := h.achievements.Check(ctx, userID, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if unlocked == nil {
		unlocked = []domain.Achievement{}
	}
	c.JSON(http.StatusOK, gin.H{"unlocked": unlocked})
}

func (h *GamificationHandler) Grant(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	granted, err := h.achievements.Grant(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	status := http.StatusCreated
	if !granted {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"achievementId": c.Param("id"), "granted": granted})
}
