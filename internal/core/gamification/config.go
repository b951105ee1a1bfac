// Package gamification holds the pure XP, level, rank, achievement,
// leaderboard and avatar rules. Storage and orchestration live in services.
package gamification

import "github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"

type Config struct {
	// FirstLevelCeiling is the total XP at which level 2 starts; every
	// further level costs LevelStep XP.
	FirstLevelCeiling int `yaml:"first_level_ceiling"`
	LevelStep         int `yaml:"level_step"`

	PerfectDayBonus int `yaml:"perfect_day_bonus"`
	MaxDailyXP      int `yaml:"max_daily_xp"`

	// Ranks are checked top-down; the first MinLevel reached wins.
	Ranks []RankRule `yaml:"ranks"`
	Moods []MoodRule `yaml:"moods"`

	RecentAchievementDays   int `yaml:"recent_achievement_days"`
	LeaderboardDefaultLimit int `yaml:"leaderboard_default_limit"`
	LeaderboardMaxLimit     int `yaml:"leaderboard_max_limit"`
}

type RankRule struct {
	MinLevel int         `yaml:"min_level"`
	Rank     domain.Rank `yaml:"rank"`
}

type MoodRule struct {
	MinScore int         `yaml:"min_score"`
	Mood     domain.Mood `yaml:"mood"`
	Pose     domain.Pose `yaml:"pose"`
}

func DefaultConfig() Config {
	return Config{
		FirstLevelCeiling: 200,
		LevelStep:         100,
		PerfectDayBonus:   50,
		MaxDailyXP:        500,
		Ranks: []RankRule{
			{MinLevel: 50, Rank: domain.RankS},
			{MinLevel: 40, Rank: domain.RankA},
			{MinLevel: 30, Rank: domain.RankB},
			{MinLevel: 20, Rank: domain.RankC},
			{MinLevel: 2, Rank: domain.RankD},
		},
		Moods: []MoodRule{
			{MinScore: 120, Mood: domain.MoodExcited, Pose: domain.PoseCelebrating},
			{MinScore: 80, Mood: domain.MoodHappy, Pose: domain.PoseFlexing},
			{MinScore: 50, Mood: domain.MoodMotivated, Pose: domain.PoseRunning},
			{MinScore: 30, Mood: domain.MoodNeutral, Pose: domain.PoseStanding},
			{MinScore: 20, Mood: domain.MoodTired, Pose: domain.PoseMeditating},
		},
		RecentAchievementDays:   7,
		LeaderboardDefaultLimit: 10,
		LeaderboardMaxLimit:     100,
	}
}
