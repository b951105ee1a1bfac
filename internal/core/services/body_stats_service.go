package services

import (
	"context"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/analytics"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
)

const defaultWeightLimit = 30

type BodyStatsService struct {
	repo domain.BodyMetricsRepository
	cfg  analytics.Config
}

func NewBodyStatsService(repo domain.BodyMetricsRepository, cfg analytics.Config) *BodyStatsService {
	return &BodyStatsService{repo: repo, cfg: cfg}
}

// Weight summarizes the user's last limit weigh-ins.
func (s *BodyStatsService) Weight(ctx context.Context, userID string, limit int) (domain.WeightStats, error) {
	if limit <= 0 {
		limit = defaultWeightLimit
	}
	entries, err := s.repo.ListRecentWeights(ctx, userID, limit)
	if err != nil {
		return domain.WeightStats{}, err
	}
	return analytics.WeightStats(entries, s.cfg), nil
}

func (s *BodyStatsService) Fasting(ctx context.Context, userID string, tr domain.TimeRange, today domain.Date) (domain.FastingStats, error) {
	w := tr.Window(today)
	entries, err := s.repo.ListFasts(ctx, userID, w.Start, w.End)
	if err != nil {
		return domain.FastingStats{}, err
	}
	return analytics.FastingStats(entries), nil
}
