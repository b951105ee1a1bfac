package domain

import (
	"errors"
	"strings"
	"time"
)

var ErrUnsupportedLeaderboard = errors.New("unsupported leaderboard type")

type LeaderboardType string

const LeaderboardXP LeaderboardType = "xp"

func ParseLeaderboardType(s string) (LeaderboardType, error) {
	switch t := LeaderboardType(strings.ToLower(strings.TrimSpace(s))); t {
	case "", LeaderboardXP:
		return LeaderboardXP, nil
	}
	return "", ErrUnsupportedLeaderboard
}

// LeaderboardRow is what storage returns, already ordered by XP descending.
type LeaderboardRow struct {
	UserID       string `json:"userId" db:"user_id"`
	TotalXP      int    `json:"totalXP" db:"total_xp"`
	CurrentLevel int    `json:"currentLevel" db:"current_level"`
	Rank         Rank   `json:"rank" db:"rank"`
}

// LeaderboardEntry adds the derived 1-based position; positions are never stored.
type LeaderboardEntry struct {
	LeaderboardRow
	Position      int    `json:"position"`
	PositionLabel string `json:"positionLabel"`
}

type Leaderboard struct {
	Type        LeaderboardType    `json:"type"`
	TimeRange   TimeRange          `json:"timeRange"`
	Entries     []LeaderboardEntry `json:"entries"`
	GeneratedAt time.Time          `json:"generatedAt"`
}
