package domain

import "time"

type Mood string

const (
	MoodExcited   Mood = "excited"
	MoodHappy     Mood = "happy"
	MoodMotivated Mood = "motivated"
	MoodNeutral   Mood = "neutral"
	MoodTired     Mood = "tired"
	MoodSad       Mood = "sad"
)

type Pose string

const (
	PoseCelebrating Pose = "celebrating"
	PoseFlexing     Pose = "flexing"
	PoseRunning     Pose = "running"
	PoseStanding    Pose = "standing"
	PoseMeditating  Pose = "meditating"
	PoseSleeping    Pose = "sleeping"
)

type MoodTriggers struct {
	StreakLength       int `json:"streakLength"`
	CompletionRate     int `json:"completionRate"`
	RecentAchievements int `json:"recentAchievements"`
}

// AvatarMoodState is overwritten on every recomputation.
type AvatarMoodState struct {
	UserID      string       `json:"userId"`
	CurrentMood Mood         `json:"currentMood"`
	Pose        Pose         `json:"pose"`
	Score       int          `json:"score"`
	Triggers    MoodTriggers `json:"triggers"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}
