package gamification

import (
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
)

// Unlock is an achievement whose requirement currently holds.
type Unlock struct {
	Achievement domain.Achievement
	Value       float64
}

// Metadata is what gets stored on the unlock record.
func (u Unlock) Metadata() map[string]string {
	return map[string]string{
		"category": string(u.Achievement.Category),
		"value":    strconv.FormatFloat(u.Value, 'f', -1, 64),
	}
}

// EvaluateAchievements returns the active achievements not yet in unlocked
// whose requirement holds for in. Special achievements are never returned;
// they are granted explicitly.
func EvaluateAchievements(all []domain.Achievement, unlocked map[string]time.Time, in domain.AchievementInput) []Unlock {
	candidates := lo.Filter(all, func(a domain.Achievement, _ int) bool {
		_, done := unlocked[a.ID]
		return a.IsActive && !done && a.Requirement != nil
	})

	return lo.FilterMap(candidates, func(a domain.Achievement, _ int) (Unlock, bool) {
		ok, value := a.Requirement.Evaluate(in)
		return Unlock{Achievement: a, Value: value}, ok
	})
}

// DefaultAchievements is the catalog seeded into empty stores.
func DefaultAchievements() []domain.Achievement {
	return []domain.Achievement{
		{
			ID: "first-steps", Name: "First Steps", Description: "Keep a 3 day streak",
			Icon: "footprints", Category: domain.CategoryStreak,
			Requirement: domain.StreakRequirement{StreakDays: 3}, XPReward: 25, IsActive: true,
		},
		{
			ID: "week-warrior", Name: "Week Warrior", Description: "Keep a 7 day streak",
			Icon: "flame", Category: domain.CategoryStreak,
			Requirement: domain.StreakRequirement{StreakDays: 7}, XPReward: 75, IsActive: true,
		},
		{
			ID: "month-master", Name: "Month Master", Description: "Keep a 30 day streak",
			Icon: "crown", Category: domain.CategoryStreak,
			Requirement: domain.StreakRequirement{StreakDays: 30}, XPReward: 300, IsActive: true,
		},
		{
			ID: "ninety-hard", Name: "90 Hard", Description: "Finish all 90 days",
			Icon: "trophy", Category: domain.CategoryStreak,
			Requirement: domain.StreakRequirement{StreakDays: 90}, XPReward: 1000, IsActive: true,
		},
		{
			ID: "consistent", Name: "Consistent", Description: "Average 80% completion",
			Icon: "chart", Category: domain.CategoryCompletion,
			Requirement: domain.CompletionRequirement{CompletionRate: 80}, XPReward: 100, IsActive: true,
		},
		{
			ID: "perfectionist", Name: "Perfectionist", Description: "Average 100% completion",
			Icon: "star", Category: domain.CategoryCompletion,
			Requirement: domain.CompletionRequirement{CompletionRate: 100}, XPReward: 250, IsActive: true,
		},
		{
			ID: "perfect-ten", Name: "Perfect Ten", Description: "Log 10 perfect days",
			Icon: "medal", Category: domain.CategoryMilestone,
			Requirement: domain.PerfectDaysRequirement{PerfectDays: 10}, XPReward: 150, IsActive: true,
		},
		{
			ID: "down-five", Name: "Down Five", Description: "Lose 5 units of weight",
			Icon: "scale", Category: domain.CategoryWeight,
			Requirement: domain.WeightLossRequirement{Amount: 5}, XPReward: 150, IsActive: true,
		},
		{
			ID: "iron-will", Name: "Iron Will", Description: "Hit your fasting target 7 times in a row",
			Icon: "hourglass", Category: domain.CategoryFasting,
			Requirement: domain.FastingStreakRequirement{StreakDays: 7}, XPReward: 100, IsActive: true,
		},
		{
			ID: "early-bird", Name: "Early Bird", Description: "A secret reward",
			Icon: "sunrise", Category: domain.CategorySpecial,
			XPReward: 50, IsSecret: true, IsActive: true,
		},
	}
}
