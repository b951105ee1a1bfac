package domain

import "time"

type PeriodStats struct {
	TotalDays         int          `json:"totalDays"`
	ActiveDays        int          `json:"activeDays"`
	AverageCompletion int          `json:"averageCompletion"`
	PerfectDays       int          `json:"perfectDays"`
	CurrentStreak     int          `json:"currentStreak"`
	LongestStreak     int          `json:"longestStreak"`
	TaskBreakdown     map[Task]int `json:"taskBreakdown"`
}

type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

type TrendPoint struct {
	Date  Date    `json:"date"`
	Value float64 `json:"value"`
}

type TrendData struct {
	Points          []TrendPoint   `json:"data"`
	Trend           TrendDirection `json:"trend"`
	TrendPercentage float64        `json:"trendPercentage"`
	MovingAverage   []float64      `json:"movingAverage"`
}

type ComparisonDeltas struct {
	AverageCompletion int `json:"averageCompletion"`
	PerfectDays       int `json:"perfectDays"`
	CurrentStreak     int `json:"currentStreak"`
}

type Comparison struct {
	Current  PeriodStats      `json:"current"`
	Previous PeriodStats      `json:"previous"`
	Deltas   ComparisonDeltas `json:"changes"`
}

type AnalyticsSnapshot struct {
	UserID      string             `json:"userId"`
	TimeRange   TimeRange          `json:"timeRange"`
	Window      DateWindow         `json:"window"`
	Stats       PeriodStats        `json:"stats"`
	Trend       TrendData          `json:"trend"`
	Insights    []AnalyticsInsight `json:"insights"`
	Comparison  *Comparison        `json:"comparison,omitempty"`
	GeneratedAt time.Time          `json:"generatedAt"`
}
