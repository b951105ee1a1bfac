package domain

import "time"

type InsightType string

const (
	InsightAchievement InsightType = "achievement"
	InsightWarning     InsightType = "warning"
	InsightSuggestion  InsightType = "suggestion"
	InsightMilestone   InsightType = "milestone"
)

type InsightPriority string

const (
	PriorityHigh   InsightPriority = "high"
	PriorityMedium InsightPriority = "medium"
	PriorityLow    InsightPriority = "low"
)

// AnalyticsInsight is generated fresh on every analytics call; callers own
// any deduplication.
type AnalyticsInsight struct {
	ID          string          `json:"id"`
	Type        InsightType     `json:"type"`
	Priority    InsightPriority `json:"priority"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Actionable  bool            `json:"actionable"`
	ActionText  string          `json:"actionText,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}
