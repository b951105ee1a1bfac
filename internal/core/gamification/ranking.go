package gamification

import (
	"github.com/dustin/go-humanize"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
)

// Position assigns 1-based positions in fetch order. Rows are expected to be
// sorted by XP descending already; ties keep their relative order.
func Position(rows []domain.LeaderboardRow) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, len(rows))
	for i, row := range rows {
		entries[i] = domain.LeaderboardEntry{
			LeaderboardRow: row,
			Position:       i + 1,
			PositionLabel:  humanize.Ordinal(i + 1),
		}
	}
	return entries
}

// ClampLimit bounds a requested leaderboard size.
func (c Config) ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return c.LeaderboardDefaultLimit
	case limit > c.LeaderboardMaxLimit:
		return c.LeaderboardMaxLimit
	}
	return limit
}

func MoodScore(completionRate, streakLength, recentAchievements int) int {
	return completionRate + streakLength*5 + recentAchievements*10
}

// SelectMood walks the table top-down and falls back to sad/sleeping.
func SelectMood(table []MoodRule, score int) (domain.Mood, domain.Pose) {
	for _, r := range table {
		if score >= r.MinScore {
			return r.Mood, r.Pose
		}
	}
	return domain.MoodSad, domain.PoseSleeping
}
