package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/analytics"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/services"
)

func rawLog(userID, date string, tasks ...domain.Task) domain.RawDayLog {
	m := make(map[string]any, len(tasks))
	for _, t := range tasks {
		m[string(t)] = true
	}
	return domain.RawDayLog{UserID: userID, Date: domain.MustParseDate(date), Tasks: m}
}

var allTasks = domain.Tasks

func TestAnalyticsService_Snapshot(t *testing.T) {
	ctx := context.Background()
	userID := "user-analytics-1"
	today := domain.MustParseDate("2024-01-14")

	t.Run("Success: builds stats, trend, insights and comparison", func(t *testing.T) {
		repo := new(MockDayLogRepo)
		svc := services.NewAnalyticsService(repo, analytics.DefaultConfig(), zap.NewNop())

		current := []domain.RawDayLog{
			rawLog(userID, "2024-01-14", allTasks...),
			rawLog(userID, "2024-01-08", allTasks[:3]...),
			rawLog(userID, "2024-01-09", allTasks...),
			rawLog(userID, "2024-01-10", allTasks...),
			rawLog(userID, "2024-01-11", allTasks...),
			rawLog(userID, "2024-01-12", allTasks...),
			rawLog(userID, "2024-01-13", allTasks...),
		}
		previous := []domain.RawDayLog{
			rawLog(userID, "2024-01-05", allTasks[:3]...),
		}

		repo.On("GetRange", mock.Anything, domain.MustParseDate("2024-01-08"), today, userID).Return(current, nil)
		repo.On("GetRange", mock.Anything, domain.MustParseDate("2024-01-01"), domain.MustParseDate("2024-01-07"), userID).Return(previous, nil)

		snap, err := svc.Snapshot(ctx, userID, domain.TimeRange7D, today)

		require.NoError(t, err)
		assert.Equal(t, userID, snap.UserID)
		assert.Equal(t, domain.MustParseDate("2024-01-08"), snap.Window.Start)

		assert.Equal(t, 7, snap.Stats.TotalDays)
		assert.Equal(t, 7, snap.Stats.ActiveDays)
		assert.Equal(t, 6, snap.Stats.PerfectDays)
		assert.Equal(t, 93, snap.Stats.AverageCompletion)
		assert.Equal(t, 7, snap.Stats.CurrentStreak)

		require.Len(t, snap.Trend.Points, 7)
		assert.Equal(t, "2024-01-08", snap.Trend.Points[0].Date.String())
		assert.Equal(t, domain.TrendUp, snap.Trend.Trend)

		require.NotNil(t, snap.Comparison)
		assert.Equal(t, 43, snap.Comparison.Deltas.AverageCompletion)
		assert.Equal(t, 6, snap.Comparison.Deltas.PerfectDays)

		types := make([]domain.InsightType, 0, len(snap.Insights))
		for _, in := range snap.Insights {
			types = append(types, in.Type)
		}
		assert.Equal(t, []domain.InsightType{domain.InsightAchievement, domain.InsightAchievement}, types)

		repo.AssertExpectations(t)
	})

	t.Run("Error: repository failure is returned as is", func(t *testing.T) {
		repo := new(MockDayLogRepo)
		svc := services.NewAnalyticsService(repo, analytics.DefaultConfig(), zap.NewNop())
		dbErr := errors.New("connection reset")

		repo.On("GetRange", mock.Anything, mock.Anything, mock.Anything, userID).Return(nil, dbErr)

		snap, err := svc.Snapshot(ctx, userID, domain.TimeRange30D, today)

		assert.Nil(t, snap)
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestAnalyticsService_Day(t *testing.T) {
	ctx := context.Background()
	date := domain.MustParseDate("2024-02-01")

	t.Run("Success: missing log is an empty day", func(t *testing.T) {
		repo := new(MockDayLogRepo)
		svc := services.NewAnalyticsService(repo, analytics.DefaultConfig(), zap.NewNop())
		repo.On("GetDay", ctx, date, "u1").Return(nil, nil)

		day, err := svc.Day(ctx, "u1", date)

		require.NoError(t, err)
		assert.Equal(t, date, day.Date)
		assert.Zero(t, day.CompletionPercentage)
	})

	t.Run("Success: logged day is normalized", func(t *testing.T) {
		repo := new(MockDayLogRepo)
		svc := services.NewAnalyticsService(repo, analytics.DefaultConfig(), zap.NewNop())
		log := rawLog("u1", "2024-02-01", domain.TaskDiet, domain.TaskWater)
		repo.On("GetDay", ctx, date, "u1").Return(&log, nil)

		day, err := svc.Day(ctx, "u1", date)

		require.NoError(t, err)
		assert.Equal(t, 33, day.CompletionPercentage)
		assert.True(t, day.Diet)
	})
}

func TestBodyStatsService(t *testing.T) {
	ctx := context.Background()
	today := domain.MustParseDate("2024-01-31")

	t.Run("Success: weight uses the default limit", func(t *testing.T) {
		repo := new(MockBodyRepo)
		svc := services.NewBodyStatsService(repo, analytics.DefaultConfig())
		repo.On("ListRecentWeights", ctx, "u1", 30).Return([]domain.WeightEntry{
			{UserID: "u1", Date: domain.MustParseDate("2024-01-30"), Weight: 78},
			{UserID: "u1", Date: domain.MustParseDate("2024-01-01"), Weight: 80},
		}, nil)

		stats, err := svc.Weight(ctx, "u1", 0)

		require.NoError(t, err)
		assert.Equal(t, domain.TrendDown, stats.Trend)
		assert.InDelta(t, -2.0, stats.Change, 0.001)
	})

	t.Run("Success: fasting over the window", func(t *testing.T) {
		repo := new(MockBodyRepo)
		svc := services.NewBodyStatsService(repo, analytics.DefaultConfig())
		repo.On("ListFasts", ctx, "u1", domain.MustParseDate("2024-01-25"), today).Return([]domain.FastingEntry{
			{UserID: "u1", Date: domain.MustParseDate("2024-01-26"), TargetHours: 16, ActualHours: 16, Completed: true},
			{UserID: "u1", Date: domain.MustParseDate("2024-01-27"), TargetHours: 18, ActualHours: 18, Completed: true},
			{UserID: "u1", Date: domain.MustParseDate("2024-01-28"), TargetHours: 16, ActualHours: 14, Completed: true},
		}, nil)

		stats, err := svc.Fasting(ctx, "u1", domain.TimeRange7D, today)

		require.NoError(t, err)
		assert.Equal(t, 66.7, stats.SuccessRate)
		assert.Equal(t, 0, stats.CurrentStreak)
		assert.Equal(t, 2, stats.LongestStreak)
	})
}
