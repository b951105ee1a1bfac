package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/gamification"
)

// XPService awards XP and keeps the level row in step with the ledger.
//
// Totals are incremented atomically by the repository, so concurrent awards
// for one user never lose an update. Derived level fields are then written
// with a stale-write guard; when a newer award already saved its snapshot the
// older one is dropped.
type XPService struct {
	levels   domain.LevelRepository
	calc     *gamification.XPCalculator
	leveling *gamification.Leveling
	logger   *zap.Logger
	now      func() time.Time
}

func NewXPService(levels domain.LevelRepository, cfg gamification.Config, bonuses gamification.Bonuses, logger *zap.Logger) *XPService {
	return &XPService{
		levels:   levels,
		calc:     gamification.NewXPCalculator(cfg, bonuses),
		leveling: gamification.NewLeveling(cfg),
		logger:   logger,
		now:      time.Now,
	}
}

// CalculateDailyXP awards the XP for one day's completion. Calling it again
// for the same day only tops up the difference to what was already awarded,
// so re-syncing a day never pays twice. A top-up row's BaseXP and BonusXP
// split that delta; the day's full split is kept in the row's metadata.
func (s *XPService) CalculateDailyXP(ctx context.Context, userID string, date domain.Date, completionPercentage float64) (*domain.XPCalculationResult, error) {
	res, err := s.calc.Calculate(userID, date, completionPercentage)
	if err != nil {
		return nil, err
	}

	entries, err := s.levels.ListEntries(ctx, userID, date, date)
	if err != nil {
		return nil, err
	}
	awarded := 0
	for _, e := range entries {
		if e.Source == domain.XPSourceDailyCompletion {
			awarded += e.TotalXP
		}
	}

	delta := res.TotalXP - awarded
	if delta <= 0 {
		lvl, err := s.GetLevel(ctx, userID)
		if err != nil {
			return nil, err
		}
		res.Level = domain.LevelUpdate{
			OldLevel:      lvl.CurrentLevel,
			NewLevel:      lvl.CurrentLevel,
			OldTotalXP:    lvl.TotalXP,
			NewTotalXP:    lvl.TotalXP,
			XPToNextLevel: lvl.XPToNextLevel,
			Rank:          lvl.Rank,
		}
		return &res, nil
	}

	bonus := min(res.BonusXP(), delta)
	entry := domain.NewXPEntry(userID, date, delta-bonus, bonus, delta, domain.XPSourceDailyCompletion, map[string]string{
		"completionPercentage": strconv.FormatFloat(completionPercentage, 'f', -1, 64),
		"dailyTotal":           strconv.Itoa(res.TotalXP),
		"dailyBaseXP":          strconv.Itoa(res.BaseXP),
		"dailyBonusXP":         strconv.Itoa(res.BonusXP()),
		"previouslyAwarded":    strconv.Itoa(awarded),
	})

	upd, err := s.award(ctx, entry)
	if err != nil {
		return nil, err
	}
	res.Entry = entry
	res.Level = upd
	return &res, nil
}

// AwardAchievement credits the achievement's XP reward.
func (s *XPService) AwardAchievement(ctx context.Context, userID string, a domain.Achievement, date domain.Date) (domain.LevelUpdate, error) {
	entry := domain.NewXPEntry(userID, date, 0, a.XPReward, a.XPReward, domain.XPSourceAchievement, map[string]string{
		"achievementId": a.ID,
	})
	return s.award(ctx, entry)
}

// AchievementRewards implements XPAwarder.
func (s *XPService) AchievementRewards(ctx context.Context, userID string, start, end domain.Date) (map[string]bool, error) {
	entries, err := s.levels.ListEntries(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	rewarded := make(map[string]bool)
	for _, e := range entries {
		if e.Source == domain.XPSourceAchievement && e.Metadata["achievementId"] != "" {
			rewarded[e.Metadata["achievementId"]] = true
		}
	}
	return rewarded, nil
}

func (s *XPService) award(ctx context.Context, entry *domain.XPEntry) (domain.LevelUpdate, error) {
	if err := entry.Validate(); err != nil {
		return domain.LevelUpdate{}, err
	}

	prevTotal, newTotal, err := s.levels.AddXP(ctx, entry)
	if err != nil {
		return domain.LevelUpdate{}, err
	}
	upd := s.leveling.Progress(prevTotal, newTotal)

	prev, err := s.levels.GetLevel(ctx, entry.UserID)
	if err != nil && !errors.Is(err, domain.ErrUserLevelNotFound) {
		return domain.LevelUpdate{}, err
	}

	snapshot := s.leveling.Snapshot(entry.UserID, prev, upd, s.now().UTC())
	if err := s.levels.SaveLevel(ctx, snapshot); err != nil {
		if !errors.Is(err, domain.ErrStaleLevelSnapshot) {
			return domain.LevelUpdate{}, err
		}
		s.logger.Debug("newer level snapshot already stored", zap.String("user_id", entry.UserID))
	}

	if upd.LevelUp {
		s.logger.Info("level up",
			zap.String("user_id", entry.UserID),
			zap.Int("level", upd.NewLevel),
			zap.String("rank", string(upd.Rank)),
			zap.String("total_xp", humanize.Comma(int64(upd.NewTotalXP))))
	}
	return upd, nil
}

// GetLevel returns the stored level, or a fresh level 1 row for users who
// never earned XP.
func (s *XPService) GetLevel(ctx context.Context, userID string) (*domain.UserLevel, error) {
	lvl, err := s.levels.GetLevel(ctx, userID)
	if errors.Is(err, domain.ErrUserLevelNotFound) {
		upd := s.leveling.Progress(0, 0)
		return &domain.UserLevel{
			UserID:        userID,
			CurrentLevel:  upd.NewLevel,
			XPToNextLevel: upd.XPToNextLevel,
			Rank:          upd.Rank,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return lvl, nil
}

func (s *XPService) History(ctx context.Context, userID string, tr domain.TimeRange, today domain.Date) ([]domain.XPEntry, error) {
	w := tr.Window(today)
	return s.levels.ListEntries(ctx, userID, w.Start, w.End)
}
