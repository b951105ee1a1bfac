package services

import (
	"context"
	"time"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/gamification"
)

type AvatarService struct {
	avatars      domain.AvatarRepository
	achievements domain.AchievementRepository
	cfg          gamification.Config
	now          func() time.Time
}

func NewAvatarService(avatars domain.AvatarRepository, achievements domain.AchievementRepository, cfg gamification.Config) *AvatarService {
	return &AvatarService{
		avatars:      avatars,
		achievements: achievements,
		cfg:          cfg,
		now:          time.Now,
	}
}

// Refresh recomputes the mood from the latest numbers and overwrites the
// stored state.
func (s *AvatarService) Refresh(ctx context.Context, userID string, completionRate, streakLength int) (*domain.AvatarMoodState, error) {
	now := s.now().UTC()
	since := now.AddDate(0, 0, -s.cfg.RecentAchievementDays)

	recent, err := s.achievements.CountUnlockedSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	score := gamification.MoodScore(completionRate, streakLength, recent)
	mood, pose := gamification.SelectMood(s.cfg.Moods, score)

	state := &domain.AvatarMoodState{
		UserID:      userID,
		CurrentMood: mood,
		Pose:        pose,
		Score:       score,
		Triggers: domain.MoodTriggers{
			StreakLength:       streakLength,
			CompletionRate:     completionRate,
			RecentAchievements: recent,
		},
		UpdatedAt: now,
	}
	if err := s.avatars.SaveAvatar(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *AvatarService) Get(ctx context.Context, userID string) (*domain.AvatarMoodState, error) {
	return s.avatars.GetAvatar(ctx, userID)
}
