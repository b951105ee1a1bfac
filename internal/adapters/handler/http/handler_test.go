package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	adapterHTTP "github.com/comitanigiacomo/kanso-progress-engine/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/analytics"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/gamification"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/services"
)

type recordingScheduler struct {
	mu     sync.Mutex
	jobs   []string
	reject bool
}

func (s *recordingScheduler) Enqueue(userID string, date domain.Date) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reject {
		return false
	}
	s.jobs = append(s.jobs, userID+"@"+date.String())
	return true
}

type testEnv struct {
	router    *gin.Engine
	logs      *repository.InMemoryLogStore
	store     *repository.SQLiteStore
	scheduler *recordingScheduler
	xp        *services.XPService
	avatars   *services.AvatarService
	exportDir string
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logs := repository.NewInMemoryLogStore()
	store, err := repository.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	exportDir := t.TempDir()
	files, err := repository.NewFileExportStorage(exportDir)
	require.NoError(t, err)

	logger := zap.NewNop()
	gcfg := gamification.DefaultConfig()
	acfg := analytics.DefaultConfig()

	analyticsSvc := services.NewAnalyticsService(logs, acfg, logger)
	bodySvc := services.NewBodyStatsService(logs, acfg)
	xpSvc := services.NewXPService(store, gcfg, gamification.Bonuses{}, logger)
	achievementSvc := services.NewAchievementService(store, xpSvc, logger)
	require.NoError(t, achievementSvc.SeedDefaults(context.Background()))
	avatarSvc := services.NewAvatarService(store, store, gcfg)
	scheduler := &recordingScheduler{}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set(middleware.ContextUserIDKey, userID)
		}
		c.Next()
	})
	api := r.Group("/api/v1")
	adapterHTTP.NewAnalyticsHandler(analyticsSvc, bodySvc, logger).RegisterRoutes(api)
	adapterHTTP.NewExportHandler(services.NewExportService(analyticsSvc, files, 2, logger), logger).RegisterRoutes(api)
	adapterHTTP.NewProgressHandler(services.NewLogService(logs, logs, scheduler), scheduler, logger).RegisterRoutes(api)
	adapterHTTP.NewGamificationHandler(adapterHTTP.GamificationDeps{
		XP:           xpSvc,
		Achievements: achievementSvc,
		Leaderboard:  services.NewLeaderboardService(store, gcfg),
		Avatars:      avatarSvc,
		Analytics:    analyticsSvc,
		Body:         bodySvc,
	}, logger).RegisterRoutes(api)

	return &testEnv{
		router:    r,
		logs:      logs,
		store:     store,
		scheduler: scheduler,
		xp:        xpSvc,
		avatars:   avatarSvc,
		exportDir: exportDir,
	}
}

func (e *testEnv) do(method, path, userID string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seedDays(t *testing.T, userID string, days int, tasks map[string]any) {
	t.Helper()
	today := domain.DateOf(time.Now().UTC())
	for i := 0; i < days; i++ {
		require.NoError(t, e.logs.SaveDay(context.Background(), &domain.RawDayLog{
			UserID: userID, Date: today.AddDays(-i), Tasks: tasks,
		}))
	}
}

var perfectDay = map[string]any{
	"workout1": true, "workout2": true, "diet": true, "water": true, "reading": true, "photo": true,
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestProgressHandler(t *testing.T) {
	env := setupEnv(t)
	today := domain.DateOf(time.Now().UTC())

	t.Run("Success: save day schedules the pipeline", func(t *testing.T) {
		w := env.do("PUT", "/api/v1/logs/"+today.String(), "u1", gin.H{"tasks": gin.H{"diet": true, "water": 1}})

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, true, decode[map[string]any](t, w)["queued"])
		assert.Contains(t, env.scheduler.jobs, "u1@"+today.String())

		day, err := env.logs.GetDay(context.Background(), today, "u1")
		require.NoError(t, err)
		assert.Equal(t, true, day.Tasks["diet"])
	})

	t.Run("Error: unknown task", func(t *testing.T) {
		w := env.do("PUT", "/api/v1/logs/"+today.String(), "u1", gin.H{"tasks": gin.H{"yoga": true}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "unknown task")
	})

	t.Run("Error: future date", func(t *testing.T) {
		w := env.do("PUT", "/api/v1/logs/"+today.AddDays(5).String(), "u1", gin.H{"tasks": gin.H{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Error: malformed date", func(t *testing.T) {
		w := env.do("PUT", "/api/v1/logs/yesterday", "u1", gin.H{"tasks": gin.H{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Error: missing user", func(t *testing.T) {
		w := env.do("PUT", "/api/v1/logs/"+today.String(), "", gin.H{"tasks": gin.H{}})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Success: body metrics", func(t *testing.T) {
		w := env.do("POST", "/api/v1/body/weight", "u1", gin.H{"date": today.String(), "weight": 82.5})
		assert.Equal(t, http.StatusAccepted, w.Code)

		w = env.do("POST", "/api/v1/body/fasting", "u1", gin.H{"date": today.String(), "target_hours": 16, "actual_hours": 17.5, "completed": true})
		assert.Equal(t, http.StatusAccepted, w.Code)

		w = env.do("POST", "/api/v1/body/weight", "u1", gin.H{"date": today.String(), "weight": -3})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Success: sync defaults to today", func(t *testing.T) {
		w := env.do("POST", "/api/v1/progress/sync", "u2", nil)
		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Contains(t, env.scheduler.jobs, "u2@"+today.String())
	})

	t.Run("Error: full queue", func(t *testing.T) {
		env.scheduler.reject = true
		defer func() { env.scheduler.reject = false }()

		w := env.do("POST", "/api/v1/progress/sync", "u2", gin.H{"date": today.AddDays(-1).String()})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestAnalyticsHandler(t *testing.T) {
	env := setupEnv(t)
	env.seedDays(t, "u1", 5, perfectDay)

	t.Run("Success: snapshot", func(t *testing.T) {
		w := env.do("GET", "/api/v1/analytics?range=7D", "u1", nil)
		require.Equal(t, http.StatusOK, w.Code)

		snap := decode[domain.AnalyticsSnapshot](t, w)
		assert.Equal(t, domain.TimeRange7D, snap.TimeRange)
		assert.Equal(t, 5, snap.Stats.PerfectDays)
		assert.Equal(t, 5, snap.Stats.CurrentStreak)
	})

	t.Run("Error: invalid range", func(t *testing.T) {
		w := env.do("GET", "/api/v1/analytics?range=14D", "u1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid time range")
	})

	t.Run("Success: compare", func(t *testing.T) {
		w := env.do("GET", "/api/v1/analytics/compare?range=7D", "u1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		cmp := decode[domain.Comparison](t, w)
		assert.Equal(t, 5, cmp.Deltas.PerfectDays)
	})

	t.Run("Edge Case: day without a log is empty", func(t *testing.T) {
		w := env.do("GET", "/api/v1/analytics/day/2020-01-01", "u1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		day := decode[domain.TaskCompletionData](t, w)
		assert.Equal(t, 0, day.CompletedTasks)
		assert.Equal(t, domain.TotalTasks, day.TotalTasks)
	})

	t.Run("Success: weight and fasting", func(t *testing.T) {
		today := domain.DateOf(time.Now().UTC())
		ctx := context.Background()
		require.NoError(t, env.logs.AddWeight(ctx, &domain.WeightEntry{UserID: "u1", Date: today.AddDays(-1), Weight: 90}))
		require.NoError(t, env.logs.AddWeight(ctx, &domain.WeightEntry{UserID: "u1", Date: today, Weight: 89}))

		w := env.do("GET", "/api/v1/analytics/weight?limit=5", "u1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		ws := decode[domain.WeightStats](t, w)
		assert.Equal(t, 2, ws.Entries)
		assert.Equal(t, -1.0, ws.Change)

		assert.Equal(t, http.StatusBadRequest, env.do("GET", "/api/v1/analytics/weight?limit=zero", "u1", nil).Code)

		w = env.do("GET", "/api/v1/analytics/fasting", "u1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, decode[domain.FastingStats](t, w).TotalFasts)
	})
}

func TestGamificationHandler(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	today := domain.DateOf(time.Now().UTC())

	t.Run("Success: new user starts at level one", func(t *testing.T) {
		w := env.do("GET", "/api/v1/level", "fresh", nil)
		require.Equal(t, http.StatusOK, w.Code)
		lvl := decode[domain.UserLevel](t, w)
		assert.Equal(t, 1, lvl.CurrentLevel)
		assert.Equal(t, domain.RankE, lvl.Rank)
	})

	_, err := env.xp.CalculateDailyXP(ctx, "alice", today, 100)
	require.NoError(t, err)
	_, err = env.xp.CalculateDailyXP(ctx, "bob", today, 50)
	require.NoError(t, err)

	t.Run("Success: level and history", func(t *testing.T) {
		lvl := decode[domain.UserLevel](t, env.do("GET", "/api/v1/level", "alice", nil))
		assert.Equal(t, 150, lvl.TotalXP)

		w := env.do("GET", "/api/v1/xp/history?range=7D", "alice", nil)
		require.Equal(t, http.StatusOK, w.Code)
		history := decode[struct {
			Entries []domain.XPEntry `json:"entries"`
		}](t, w)
		require.Len(t, history.Entries, 1)
		assert.Equal(t, 50, history.Entries[0].BonusXP)
	})

	t.Run("Success: leaderboard positions", func(t *testing.T) {
		w := env.do("GET", "/api/v1/leaderboard?range=ALL&limit=5", "alice", nil)
		require.Equal(t, http.StatusOK, w.Code)
		board := decode[domain.Leaderboard](t, w)
		require.Len(t, board.Entries, 2)
		assert.Equal(t, "alice", board.Entries[0].UserID)
		assert.Equal(t, 1, board.Entries[0].Position)
		assert.Equal(t, 2, board.Entries[1].Position)
	})

	t.Run("Error: unsupported leaderboard", func(t *testing.T) {
		w := env.do("GET", "/api/v1/leaderboard?type=streak", "alice", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Edge Case: avatar before first refresh", func(t *testing.T) {
		w := env.do("GET", "/api/v1/avatar", "alice", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		_, err := env.avatars.Refresh(ctx, "alice", 90, 10)
		require.NoError(t, err)

		w = env.do("GET", "/api/v1/avatar", "alice", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 90, decode[domain.AvatarMoodState](t, w).Triggers.CompletionRate)
	})

	t.Run("Success: achievements check and list", func(t *testing.T) {
		env.seedDays(t, "carol", 3, perfectDay)

		w := env.do("POST", "/api/v1/achievements/check", "carol", nil)
		require.Equal(t, http.StatusOK, w.Code)
		res := decode[struct {
			Unlocked []domain.Achievement `json:"unlocked"`
		}](t, w)
		ids := make([]string, 0, len(res.Unlocked))
		for _, a := range res.Unlocked {
			ids = append(ids, a.ID)
		}
		assert.Contains(t, ids, "first-steps")
		assert.NotContains(t, ids, "week-warrior")

		again := env.do("POST", "/api/v1/achievements/check", "carol", nil)
		assert.JSONEq(t, `{"unlocked":[]}`, again.Body.String(), "unlocks happen once")

		list := decode[[]domain.AchievementStatus](t, env.do("GET", "/api/v1/achievements", "carol", nil))
		for _, s := range list {
			if s.ID == "first-steps" {
				assert.True(t, s.Unlocked)
			}
		}
	})

	t.Run("Success: grant special achievement once", func(t *testing.T) {
		w := env.do("POST", "/api/v1/achievements/early-bird/grant", "carol", nil)
		assert.Equal(t, http.StatusCreated, w.Code)

		w = env.do("POST", "/api/v1/achievements/early-bird/grant", "carol", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, false, decode[map[string]any](t, w)["granted"])

		w = env.do("POST", "/api/v1/achievements/unknown/grant", "carol", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Error: requirement-based achievement cannot be granted", func(t *testing.T) {
		w := env.do("POST", "/api/v1/achievements/ninety-hard/grant", "dave", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, domain.ErrAchievementNotGrantable.Error(), decode[map[string]any](t, w)["error"])

		w = env.do("GET", "/api/v1/level", "dave", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, decode[domain.UserLevel](t, w).TotalXP)
	})
}

func TestExportHandler(t *testing.T) {
	env := setupEnv(t)
	env.seedDays(t, "u1", 2, perfectDay)
	env.seedDays(t, "u2", 1, gin.H{"diet": true})

	t.Run("Success: csv export is written", func(t *testing.T) {
		w := env.do("GET", "/api/v1/export?format=csv&range=7D", "u1", nil)
		require.Equal(t, http.StatusCreated, w.Code)

		res := decode[services.ExportResult](t, w)
		assert.Equal(t, 2, res.Records)
		content, err := os.ReadFile(res.Location)
		require.NoError(t, err)
		assert.Contains(t, string(content), "# 90 Hard Analytics Export")
	})

	t.Run("Success: json export without metadata", func(t *testing.T) {
		w := env.do("GET", "/api/v1/export?format=json&metadata=false", "u1", nil)
		require.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("Error: bad format and flag", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, env.do("GET", "/api/v1/export?format=xml", "u1", nil).Code)
		assert.Equal(t, http.StatusBadRequest, env.do("GET", "/api/v1/export?metadata=maybe", "u1", nil).Code)
	})

	t.Run("Success: batch", func(t *testing.T) {
		w := env.do("POST", "/api/v1/export/batch", "admin", gin.H{"user_ids": []string{"u2", "u1"}, "format": "json", "range": "7D"})
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, 3, decode[services.ExportResult](t, w).Records)
	})

	t.Run("Error: empty batch", func(t *testing.T) {
		w := env.do("POST", "/api/v1/export/batch", "admin", gin.H{"user_ids": []string{" "}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "at least one user")
	})
}

func TestRouter_Health(t *testing.T) {
	env := setupEnv(t)
	logger := zap.NewNop()
	tokens := services.NewTokenService("secret", "kanso", time.Hour)

	build := func(ping adapterHTTP.PingFunc) *gin.Engine {
		return adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
			AnalyticsHandler:    adapterHTTP.NewAnalyticsHandler(nil, nil, logger),
			ExportHandler:       adapterHTTP.NewExportHandler(nil, logger),
			ProgressHandler:     adapterHTTP.NewProgressHandler(nil, env.scheduler, logger),
			GamificationHandler: adapterHTTP.NewGamificationHandler(adapterHTTP.GamificationDeps{}, logger),
			Tokens:              tokens,
			DatabasePing:        ping,
			Logger:              logger,
			StartTime:           time.Now(),
		})
	}

	t.Run("Success: healthy without redis", func(t *testing.T) {
		w := httptest.NewRecorder()
		build(env.store.Ping).ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		body := decode[map[string]any](t, w)
		assert.Equal(t, "connected", body["database"])
		assert.Equal(t, "disabled", body["redis"])
	})

	t.Run("Error: database down", func(t *testing.T) {
		w := httptest.NewRecorder()
		build(func(context.Context) error { return errors.New("down") }).ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("Success: api requires a bearer token", func(t *testing.T) {
		router := build(env.store.Ping)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/progress/sync", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		token, err := tokens.GenerateToken("u9")
		require.NoError(t, err)
		req := httptest.NewRequest("POST", "/api/v1/progress/sync", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusAccepted, w.Code)
	})
}
