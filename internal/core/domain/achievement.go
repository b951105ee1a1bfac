package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAchievementNotFound        = errors.New("achievement not found")
	ErrAchievementAlreadyUnlocked = errors.New("achievement already unlocked")
	ErrInvalidRequirement         = errors.New("requirement does not match achievement category")
	ErrAchievementNotGrantable    = errors.New("only special achievements can be granted")
)

type AchievementCategory string

const (
	CategoryStreak     AchievementCategory = "streak"
	CategoryCompletion AchievementCategory = "completion"
	CategoryMilestone  AchievementCategory = "milestone"
	CategoryWeight     AchievementCategory = "weight"
	CategoryFasting    AchievementCategory = "fasting"
	CategorySpecial    AchievementCategory = "special"
)

// AchievementInput carries everything a requirement may be evaluated against.
// Weight and Fasting are optional.
type AchievementInput struct {
	Stats   PeriodStats   `json:"stats"`
	Weight  *WeightStats  `json:"weight,omitempty"`
	Fasting *FastingStats `json:"fasting,omitempty"`
}

// Requirement is a closed set of unlock predicates, one variant per category.
type Requirement interface {
	Category() AchievementCategory
	// Evaluate reports whether the requirement holds and the observed value.
	Evaluate(in AchievementInput) (bool, float64)
	isRequirement()
}

type StreakRequirement struct {
	StreakDays int `json:"streakDays"`
}

func (StreakRequirement) Category() AchievementCategory { return CategoryStreak }
func (StreakRequirement) isRequirement()                {}
func (r StreakRequirement) Evaluate(in AchievementInput) (bool, float64) {
	return in.Stats.CurrentStreak >= r.StreakDays, float64(in.Stats.CurrentStreak)
}

type CompletionRequirement struct {
	CompletionRate int `json:"completionRate"`
}

func (CompletionRequirement) Category() AchievementCategory { return CategoryCompletion }
func (CompletionRequirement) isRequirement()                {}
func (r CompletionRequirement) Evaluate(in AchievementInput) (bool, float64) {
	return in.Stats.AverageCompletion >= r.CompletionRate, float64(in.Stats.AverageCompletion)
}

type PerfectDaysRequirement struct {
	PerfectDays int `json:"perfectDays"`
}

func (PerfectDaysRequirement) Category() AchievementCategory { return CategoryMilestone }
func (PerfectDaysRequirement) isRequirement()                {}
func (r PerfectDaysRequirement) Evaluate(in AchievementInput) (bool, float64) {
	return in.Stats.PerfectDays >= r.PerfectDays, float64(in.Stats.PerfectDays)
}

// WeightLossRequirement holds once the logged weight dropped by at least Amount.
type WeightLossRequirement struct {
	Amount float64 `json:"amount"`
}

func (WeightLossRequirement) Category() AchievementCategory { return CategoryWeight }
func (WeightLossRequirement) isRequirement()                {}
func (r WeightLossRequirement) Evaluate(in AchievementInput) (bool, float64) {
	if in.Weight == nil || in.Weight.Entries < 2 {
		return false, 0
	}
	lost := -in.Weight.Change
	return lost >= r.Amount, lost
}

type FastingStreakRequirement struct {
	StreakDays int `json:"streakDays"`
}

func (FastingStreakRequirement) Category() AchievementCategory { return CategoryFasting }
func (FastingStreakRequirement) isRequirement()                {}
func (r FastingStreakRequirement) Evaluate(in AchievementInput) (bool, float64) {
	if in.Fasting == nil {
		return false, 0
	}
	return in.Fasting.CurrentStreak >= r.StreakDays, float64(in.Fasting.CurrentStreak)
}

// EncodeRequirement serializes a requirement for storage. A nil requirement
// encodes to nil.
func EncodeRequirement(r Requirement) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

// DecodeRequirement rebuilds the variant that belongs to category.
func DecodeRequirement(category AchievementCategory, data []byte) (Requirement, error) {
	if len(data) == 0 || string(data) == "null" {
		if category == CategorySpecial {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: missing requirement for %s", ErrInvalidRequirement, category)
	}

	var (
		req Requirement
		err error
	)
	switch category {
	case CategoryStreak:
		req, err = decodeAs[StreakRequirement](data)
	case CategoryCompletion:
		req, err = decodeAs[CompletionRequirement](data)
	case CategoryMilestone:
		req, err = decodeAs[PerfectDaysRequirement](data)
	case CategoryWeight:
		req, err = decodeAs[WeightLossRequirement](data)
	case CategoryFasting:
		req, err = decodeAs[FastingStreakRequirement](data)
	case CategorySpecial:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidRequirement, category)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s requirement: %w", category, err)
	}
	return req, nil
}

func decodeAs[T Requirement](data []byte) (Requirement, error) {
	var r T
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return r, nil
}

type Achievement struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Icon        string              `json:"icon"`
	Category    AchievementCategory `json:"category"`
	Requirement Requirement         `json:"requirements,omitempty"`
	XPReward    int                 `json:"xpReward"`
	IsSecret    bool                `json:"isSecret"`
	IsActive    bool                `json:"isActive"`
}

// Validate checks that the requirement variant belongs to the category.
// Special achievements carry no requirement.
func (a *Achievement) Validate() error {
	if a.ID == "" {
		return errors.New("achievement id is required")
	}
	if a.Category == CategorySpecial {
		if a.Requirement != nil {
			return ErrInvalidRequirement
		}
		return nil
	}
	if a.Requirement == nil || a.Requirement.Category() != a.Category {
		return ErrInvalidRequirement
	}
	return nil
}

type UserAchievement struct {
	ID            string            `json:"id"`
	UserID        string            `json:"userId"`
	AchievementID string            `json:"achievementId"`
	UnlockedAt    time.Time         `json:"unlockedAt"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

func NewUserAchievement(userID, achievementID string, metadata map[string]string) *UserAchievement {
	return &UserAchievement{
		ID:            uuid.NewString(),
		UserID:        userID,
		AchievementID: achievementID,
		UnlockedAt:    time.Now().UTC(),
		Metadata:      metadata,
	}
}

type AchievementStatus struct {
	Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlockedAt,omitempty"`
}
