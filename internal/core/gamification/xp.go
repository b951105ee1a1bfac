package gamification

import (
	"errors"
	"math"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
)

var ErrInvalidCompletion = errors.New("completion percentage must be between 0 and 100")

type BonusInput struct {
	UserID               string
	Date                 domain.Date
	CompletionPercentage float64
}

// BonusFunc is an extension point for one kind of bonus. A nil func awards 0.
type BonusFunc func(in BonusInput) int

// Bonuses are independent hooks; overriding one leaves the others alone.
type Bonuses struct {
	Streak      BonusFunc
	Milestone   BonusFunc
	Achievement BonusFunc
}

type XPCalculator struct {
	cfg     Config
	bonuses Bonuses
}

func NewXPCalculator(cfg Config, bonuses Bonuses) *XPCalculator {
	return &XPCalculator{cfg: cfg, bonuses: bonuses}
}

// Calculate derives the day's XP. One XP per completion point, a fixed bonus
// for a perfect day, the hook bonuses, all capped at MaxDailyXP.
func (c *XPCalculator) Calculate(userID string, date domain.Date, completionPercentage float64) (domain.XPCalculationResult, error) {
	if math.IsNaN(completionPercentage) || completionPercentage < 0 || completionPercentage > 100 {
		return domain.XPCalculationResult{}, ErrInvalidCompletion
	}

	in := BonusInput{UserID: userID, Date: date, CompletionPercentage: completionPercentage}
	res := domain.XPCalculationResult{
		UserID:           userID,
		Date:             date,
		BaseXP:           int(math.Round(completionPercentage)),
		StreakBonus:      apply(c.bonuses.Streak, in),
		MilestoneBonus:   apply(c.bonuses.Milestone, in),
		AchievementBonus: apply(c.bonuses.Achievement, in),
	}
	if completionPercentage == 100 {
		res.PerfectDayBonus = c.cfg.PerfectDayBonus
	}

	total := max(0, res.BaseXP+res.BonusXP())
	if c.cfg.MaxDailyXP > 0 && total > c.cfg.MaxDailyXP {
		total = c.cfg.MaxDailyXP
		res.Capped = true
	}
	res.TotalXP = total
	return res, nil
}

func apply(fn BonusFunc, in BonusInput) int {
	if fn == nil {
		return 0
	}
	return fn(in)
}
