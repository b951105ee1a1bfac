package domain

import (
	"errors"
	"strings"
)

var (
	ErrInvalidWeight  = errors.New("weight must be positive")
	ErrInvalidFasting = errors.New("fasting hours cannot be negative")
)

type WeightEntry struct {
	UserID string  `json:"userId" db:"user_id"`
	Date   Date    `json:"date" db:"entry_date"`
	Weight float64 `json:"weight" db:"weight"`
	Unit   string  `json:"unit" db:"unit"`
}

func (w *WeightEntry) Validate() error {
	if strings.TrimSpace(w.UserID) == "" {
		return errors.New("user_id is required")
	}
	if w.Weight <= 0 {
		return ErrInvalidWeight
	}
	return nil
}

type FastingEntry struct {
	UserID      string  `json:"userId" db:"user_id"`
	Date        Date    `json:"date" db:"entry_date"`
	TargetHours float64 `json:"targetHours" db:"target_hours"`
	ActualHours float64 `json:"actualHours" db:"actual_hours"`
	Completed   bool    `json:"completed" db:"completed"`
}

// MetTarget is the "active day" predicate for fasting streaks.
func (f FastingEntry) MetTarget() bool {
	return f.ActualHours >= f.TargetHours
}

func (f *FastingEntry) Validate() error {
	if strings.TrimSpace(f.UserID) == "" {
		return errors.New("user_id is required")
	}
	if f.TargetHours < 0 || f.ActualHours < 0 {
		return ErrInvalidFasting
	}
	return nil
}

type WeightStats struct {
	Entries       int            `json:"entries"`
	Current       float64        `json:"current"`
	Starting      float64        `json:"starting"`
	Change        float64        `json:"change"`
	Average       float64        `json:"average"`
	MovingAverage float64        `json:"movingAverage"`
	Trend         TrendDirection `json:"trend"`
	Unit          string         `json:"unit,omitempty"`
}

type FastingStats struct {
	TotalFasts       int     `json:"totalFasts"`
	CompletedFasts   int     `json:"completedFasts"`
	SuccessfulFasts  int     `json:"successfulFasts"`
	SuccessRate      float64 `json:"successRate"`
	AverageHours     float64 `json:"averageHours"`
	LongestFastHours float64 `json:"longestFastHours"`
	CurrentStreak    int     `json:"currentStreak"`
	LongestStreak    int     `json:"longestStreak"`
}
