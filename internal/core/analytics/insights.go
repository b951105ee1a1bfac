package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
)

// InsightGenerator applies the insight rules to a period. Every rule is
// evaluated independently, so several insights may fire for the same stats.
type InsightGenerator struct {
	cfg   Config
	now   func() time.Time
	newID func() string
}

func NewInsightGenerator(cfg Config) *InsightGenerator {
	return &InsightGenerator{
		cfg:   cfg,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (g *InsightGenerator) Generate(stats domain.PeriodStats) []domain.AnalyticsInsight {
	createdAt := g.now().UTC()
	insights := make([]domain.AnalyticsInsight, 0, 4)

	add := func(in domain.AnalyticsInsight) {
		in.ID = g.newID()
		in.CreatedAt = createdAt
		insights = append(insights, in)
	}

	if stats.CurrentStreak >= g.cfg.StreakInsightDays {
		add(domain.AnalyticsInsight{
			Type:        domain.InsightAchievement,
			Priority:    domain.PriorityHigh,
			Title:       fmt.Sprintf("%d-day streak!", stats.CurrentStreak),
			Description: fmt.Sprintf("You have been active %s in a row. Keep the momentum going.", pluralDays(stats.CurrentStreak)),
		})
	}

	if stats.PerfectDays > 0 {
		add(domain.AnalyticsInsight{
			Type:        domain.InsightAchievement,
			Priority:    domain.PriorityMedium,
			Title:       "Perfect days",
			Description: fmt.Sprintf("You completed every task on %s this period.", pluralDays(stats.PerfectDays)),
		})
	}

	if stats.AverageCompletion < g.cfg.LowCompletionThreshold {
		add(domain.AnalyticsInsight{
			Type:        domain.InsightWarning,
			Priority:    domain.PriorityHigh,
			Title:       "Low completion rate",
			Description: fmt.Sprintf("Your average completion is %d%%, below the %d%% mark.", stats.AverageCompletion, g.cfg.LowCompletionThreshold),
			Actionable:  true,
			ActionText:  "Start with one or two tasks each day and build up from there.",
		})
	}

	if weak := WeakTasks(stats, g.cfg.WeakTaskRatio, g.cfg.MaxWeakTasks); len(weak) > 0 {
		names := lo.Map(weak, func(t domain.Task, _ int) string { return t.DisplayName() })
		add(domain.AnalyticsInsight{
			Type:        domain.InsightSuggestion,
			Priority:    domain.PriorityMedium,
			Title:       "Focus areas",
			Description: fmt.Sprintf("%s were done on fewer than half of the days.", english.WordSeries(names, "and")),
			Actionable:  true,
			ActionText:  fmt.Sprintf("Schedule %s earlier in the day.", strings.ToLower(names[0])),
		})
	}

	return insights
}

// WeakTasks returns up to maxTasks tasks completed on fewer than ratio*TotalDays
// days, least completed first. Ties keep the fixed task order.
func WeakTasks(stats domain.PeriodStats, ratio float64, maxTasks int) []domain.Task {
	limit := float64(stats.TotalDays) * ratio
	weak := lo.Filter(domain.Tasks, func(t domain.Task, _ int) bool {
		return float64(stats.TaskBreakdown[t]) < limit
	})
	sort.SliceStable(weak, func(i, j int) bool {
		return stats.TaskBreakdown[weak[i]] < stats.TaskBreakdown[weak[j]]
	})
	if len(weak) > maxTasks {
		weak = weak[:maxTasks]
	}
	return weak
}

func pluralDays(n int) string {
	return humanize.Comma(int64(n)) + " " + english.PluralWord(n, "day", "")
}
