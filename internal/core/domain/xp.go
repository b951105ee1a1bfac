package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUserLevelNotFound = errors.New("user level not found")
	ErrInvalidXPEntry    = errors.New("invalid xp entry")
)

type Rank string

const (
	RankE Rank = "E"
	RankD Rank = "D"
	RankC Rank = "C"
	RankB Rank = "B"
	RankA Rank = "A"
	RankS Rank = "S"
)

type XPSource string

const (
	XPSourceDailyCompletion XPSource = "daily_completion"
	XPSourceAchievement     XPSource = "achievement"
)

// XPEntry is one immutable row of the XP ledger. Entries are only ever
// appended. BaseXP and BonusXP always add up to TotalXP, the amount this row
// credited.
type XPEntry struct {
	ID        string            `json:"id" db:"id"`
	UserID    string            `json:"userId" db:"user_id"`
	Date      Date              `json:"date" db:"entry_date"`
	BaseXP    int               `json:"baseXP" db:"base_xp"`
	BonusXP   int               `json:"bonusXP" db:"bonus_xp"`
	TotalXP   int               `json:"totalXP" db:"total_xp"`
	Source    XPSource          `json:"source" db:"source"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt" db:"created_at"`
}

func NewXPEntry(userID string, date Date, baseXP, bonusXP, totalXP int, source XPSource, metadata map[string]string) *XPEntry {
	return &XPEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Date:      date,
		BaseXP:    baseXP,
		BonusXP:   bonusXP,
		TotalXP:   totalXP,
		Source:    source,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
}

func (e *XPEntry) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return errors.New("user_id is required")
	}
	if e.Date.IsZero() {
		return errors.New("entry date is required")
	}
	if e.TotalXP < 0 {
		return ErrInvalidXPEntry
	}
	return nil
}

// UserLevel is the per-user progression row. TotalXP never decreases;
// CurrentXP mirrors TotalXP in this scheme.
type UserLevel struct {
	UserID        string     `json:"userId" db:"user_id"`
	CurrentLevel  int        `json:"currentLevel" db:"current_level"`
	CurrentXP     int        `json:"currentXP" db:"current_xp"`
	TotalXP       int        `json:"totalXP" db:"total_xp"`
	XPToNextLevel int        `json:"xpToNextLevel" db:"xp_to_next_level"`
	Rank          Rank       `json:"rank" db:"rank"`
	LastLevelUp   *time.Time `json:"lastLevelUp,omitempty" db:"last_level_up"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

type LevelUpdate struct {
	OldLevel      int  `json:"oldLevel"`
	NewLevel      int  `json:"newLevel"`
	LevelUp       bool `json:"levelUp"`
	OldTotalXP    int  `json:"oldTotalXP"`
	NewTotalXP    int  `json:"newTotalXP"`
	XPToNextLevel int  `json:"xpToNextLevel"`
	Rank          Rank `json:"rank"`
}

type XPCalculationResult struct {
	UserID           string      `json:"userId"`
	Date             Date        `json:"date"`
	BaseXP           int         `json:"baseXP"`
	PerfectDayBonus  int         `json:"perfectDayBonus"`
	StreakBonus      int         `json:"streakBonus"`
	MilestoneBonus   int         `json:"milestoneBonus"`
	AchievementBonus int         `json:"achievementBonus"`
	TotalXP          int         `json:"totalXP"`
	Capped           bool        `json:"capped"`
	Entry            *XPEntry    `json:"entry,omitempty"`
	Level            LevelUpdate `json:"level"`
}

func (r XPCalculationResult) BonusXP() int {
	return r.PerfectDayBonus + r.StreakBonus + r.MilestoneBonus + r.AchievementBonus
}
