package services

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/analytics"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
)

type AnalyticsService struct {
	logs     domain.DayLogRepository
	cfg      analytics.Config
	insights *analytics.InsightGenerator
	logger   *zap.Logger
	now      func() time.Time
}

func NewAnalyticsService(logs domain.DayLogRepository, cfg analytics.Config, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		logs:     logs,
		cfg:      cfg,
		insights: analytics.NewInsightGenerator(cfg),
		logger:   logger,
		now:      time.Now,
	}
}

// CompletionData returns the normalized days of the window, oldest first.
func (s *AnalyticsService) CompletionData(ctx context.Context, userID string, w domain.DateWindow) ([]domain.TaskCompletionData, error) {
	logs, err := s.logs.GetRange(ctx, w.Start, w.End, userID)
	if err != nil {
		return nil, err
	}
	return chronological(logs), nil
}

// CompletionDataForUsers reads many users in one query when the log store
// implements domain.BatchDayLogReader. ok is false when it does not, and the
// caller falls back to CompletionData per user.
func (s *AnalyticsService) CompletionDataForUsers(ctx context.Context, userIDs []string, w domain.DateWindow) (byUser map[string][]domain.TaskCompletionData, ok bool, err error) {
	batch, ok := s.logs.(domain.BatchDayLogReader)
	if !ok {
		return nil, false, nil
	}
	logs, err := batch.GetRangeForUsers(ctx, w.Start, w.End, userIDs)
	if err != nil {
		return nil, true, err
	}
	byUser = make(map[string][]domain.TaskCompletionData, len(userIDs))
	for _, id := range userIDs {
		byUser[id] = chronological(logs[id])
	}
	return byUser, true, nil
}

func chronological(logs []domain.RawDayLog) []domain.TaskCompletionData {
	data := analytics.Transform(logs)
	sort.SliceStable(data, func(i, j int) bool {
		return data[i].Date.Before(data[j].Date)
	})
	return data
}

// Snapshot builds stats, trend, insights and the comparison with the
// previous window. Both windows are fetched concurrently.
func (s *AnalyticsService) Snapshot(ctx context.Context, userID string, tr domain.TimeRange, today domain.Date) (*domain.AnalyticsSnapshot, error) {
	window := tr.Window(today)

	var current, previous []domain.TaskCompletionData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.CompletionData(gctx, userID, window)
		return err
	})
	g.Go(func() error {
		var err error
		previous, err = s.CompletionData(gctx, userID, tr.PreviousWindow(today))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cmp := analytics.Compare(current, previous, tr.Days())
	s.logger.Debug("analytics snapshot built",
		zap.String("user_id", userID),
		zap.String("range", string(tr)),
		zap.Int("days", len(current)))

	return &domain.AnalyticsSnapshot{
		UserID:      userID,
		TimeRange:   tr,
		Window:      window,
		Stats:       cmp.Current,
		Trend:       analytics.CompletionTrend(current, s.cfg),
		Insights:    s.insights.Generate(cmp.Current),
		Comparison:  &cmp,
		GeneratedAt: s.now().UTC(),
	}, nil
}

func (s *AnalyticsService) Compare(ctx context.Context, userID string, tr domain.TimeRange, today domain.Date) (*domain.Comparison, error) {
	current, err := s.CompletionData(ctx, userID, tr.Window(today))
	if err != nil {
		return nil, err
	}
	previous, err := s.CompletionData(ctx, userID, tr.PreviousWindow(today))
	if err != nil {
		return nil, err
	}
	cmp := analytics.Compare(current, previous, tr.Days())
	return &cmp, nil
}

func (s *AnalyticsService) PeriodStats(ctx context.Context, userID string, tr domain.TimeRange, today domain.Date) (domain.PeriodStats, error) {
	data, err := s.CompletionData(ctx, userID, tr.Window(today))
	if err != nil {
		return domain.PeriodStats{}, err
	}
	return analytics.CalculatePeriodStats(data, tr.Days()), nil
}

// Day returns the normalized log of one day. A day without a log is an
// empty day, not an error.
func (s *AnalyticsService) Day(ctx context.Context, userID string, date domain.Date) (domain.TaskCompletionData, error) {
	log, err := s.logs.GetDay(ctx, date, userID)
	if err != nil {
		return domain.TaskCompletionData{}, err
	}
	if log == nil {
		return domain.NewTaskCompletionData(date, nil), nil
	}
	return analytics.TransformDay(*log), nil
}
