package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/gamification"
)

// XPAwarder credits achievement rewards. XPService implements it.
type XPAwarder interface {
	AwardAchievement(ctx context.Context, userID string, a domain.Achievement, date domain.Date) (domain.LevelUpdate, error)

	// AchievementRewards returns the ids of achievements whose reward is
	// already in the ledger between start and end.
	AchievementRewards(ctx context.Context, userID string, start, end domain.Date) (map[string]bool, error)
}

type AchievementService struct {
	repo   domain.AchievementRepository
	xp     XPAwarder
	logger *zap.Logger
	now    func() time.Time
}

// NewAchievementService wires the engine. xp may be nil, in which case
// unlocks award no XP.
func NewAchievementService(repo domain.AchievementRepository, xp XPAwarder, logger *zap.Logger) *AchievementService {
	return &AchievementService{
		repo:   repo,
		xp:     xp,
		logger: logger,
		now:    time.Now,
	}
}

// Check unlocks every active achievement whose requirement holds and returns
// the newly unlocked ones. The repository's uniqueness constraint makes a
// concurrent duplicate unlock a no-op, so each achievement is unlocked at
// most once per user however often Check runs. Unlocked achievements whose
// reward never reached the ledger are credited first.
func (s *AchievementService) Check(ctx context.Context, userID string, in domain.AchievementInput) ([]domain.Achievement, error) {
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	unlocked, err := s.repo.UnlockedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.reconcileRewards(ctx, userID, active, unlocked); err != nil {
		return nil, err
	}

	matches := gamification.EvaluateAchievements(active, unlocked, in)
	result := make([]domain.Achievement, 0, len(matches))
	for _, m := range matches {
		ok, err := s.unlock(ctx, userID, m.Achievement, m.Metadata())
		if err != nil {
			return result, err
		}
		if ok {
			result = append(result, m.Achievement)
		}
	}
	return result, nil
}

// Grant unlocks a special achievement explicitly. Achievements with an
// automatic requirement are only unlocked by Check. It reports false when
// the achievement was already unlocked.
func (s *AchievementService) Grant(ctx context.Context, userID, achievementID string) (bool, error) {
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return false, err
	}
	a, found := lo.Find(active, func(a domain.Achievement) bool { return a.ID == achievementID })
	if !found {
		return false, domain.ErrAchievementNotFound
	}
	if a.Category != domain.CategorySpecial || a.Requirement != nil {
		return false, domain.ErrAchievementNotGrantable
	}
	return s.unlock(ctx, userID, a, map[string]string{"category": string(a.Category), "granted": "true"})
}

func (s *AchievementService) unlock(ctx context.Context, userID string, a domain.Achievement, metadata map[string]string) (bool, error) {
	ua := domain.NewUserAchievement(userID, a.ID, metadata)
	if err := s.repo.Unlock(ctx, ua); err != nil {
		if errors.Is(err, domain.ErrAchievementAlreadyUnlocked) {
			return false, nil
		}
		return false, err
	}

	s.logger.Info("achievement unlocked",
		zap.String("user_id", userID),
		zap.String("achievement", a.ID))

	if s.xp != nil && a.XPReward > 0 {
		if _, err := s.xp.AwardAchievement(ctx, userID, a, domain.DateOf(ua.UnlockedAt)); err != nil {
			return true, err
		}
	}
	return true, nil
}

// reconcileRewards credits unlocked achievements that have no reward entry.
// The reward is dated on the unlock day, so the ledger lookup only spans the
// unlock dates.
func (s *AchievementService) reconcileRewards(ctx context.Context, userID string, active []domain.Achievement, unlocked map[string]time.Time) error {
	if s.xp == nil || len(unlocked) == 0 {
		return nil
	}
	owed := lo.Filter(active, func(a domain.Achievement, _ int) bool {
		_, done := unlocked[a.ID]
		return done && a.XPReward > 0
	})
	if len(owed) == 0 {
		return nil
	}

	start := domain.DateOf(unlocked[owed[0].ID].UTC())
	end := start
	for _, a := range owed[1:] {
		d := domain.DateOf(unlocked[a.ID].UTC())
		if d.Before(start) {
			start = d
		}
		if d.After(end) {
			end = d
		}
	}

	rewarded, err := s.xp.AchievementRewards(ctx, userID, start, end)
	if err != nil {
		return err
	}
	for _, a := range owed {
		if rewarded[a.ID] {
			continue
		}
		if _, err := s.xp.AwardAchievement(ctx, userID, a, domain.DateOf(unlocked[a.ID].UTC())); err != nil {
			return err
		}
		s.logger.Warn("credited missing achievement reward",
			zap.String("user_id", userID),
			zap.String("achievement", a.ID))
	}
	return nil
}

// List returns every active achievement with the user's unlock state.
// Secret achievements stay hidden until unlocked.
func (s *AchievementService) List(ctx context.Context, userID string) ([]domain.AchievementStatus, error) {
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	unlocked, err := s.repo.UnlockedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	statuses := lo.FilterMap(active, func(a domain.Achievement, _ int) (domain.AchievementStatus, bool) {
		at, done := unlocked[a.ID]
		if a.IsSecret && !done {
			return domain.AchievementStatus{}, false
		}
		st := domain.AchievementStatus{Achievement: a, Unlocked: done}
		if done {
			st.UnlockedAt = &at
		}
		return st, true
	})
	sort.SliceStable(statuses, func(i, j int) bool {
		return statuses[i].Unlocked && !statuses[j].Unlocked
	})
	return statuses, nil
}

// SeedDefaults stores the default catalog, replacing existing definitions
// with the same ids.
func (s *AchievementService) SeedDefaults(ctx context.Context) error {
	for _, a := range gamification.DefaultAchievements() {
		if err := a.Validate(); err != nil {
			return err
		}
		if err := s.repo.Upsert(ctx, &a); err != nil {
			return err
		}
	}
	return nil
}
