package services

import (
	"context"
	"time"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/gamification"
)

type LeaderboardService struct {
	repo domain.LeaderboardRepository
	cfg  gamification.Config
	now  func() time.Time
}

func NewLeaderboardService(repo domain.LeaderboardRepository, cfg gamification.Config) *LeaderboardService {
	return &LeaderboardService{repo: repo, cfg: cfg, now: time.Now}
}

// Rank orders users by XP. ALL uses lifetime totals; shorter ranges rank by
// XP earned inside the window ending today.
func (s *LeaderboardService) Rank(ctx context.Context, typ domain.LeaderboardType, tr domain.TimeRange, limit int, today domain.Date) (*domain.Leaderboard, error) {
	if typ != domain.LeaderboardXP {
		return nil, domain.ErrUnsupportedLeaderboard
	}

	var since *domain.Date
	if tr != domain.TimeRangeAll {
		start := tr.Window(today).Start
		since = &start
	}

	rows, err := s.repo.TopByXP(ctx, since, s.cfg.ClampLimit(limit))
	if err != nil {
		return nil, err
	}

	return &domain.Leaderboard{
		Type:        typ,
		TimeRange:   tr,
		Entries:     gamification.Position(rows),
		GeneratedAt: s.now().UTC(),
	}, nil
}
