package analytics

import (
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
)

// CalculatePeriodStats aggregates the supplied days. totalDaysInWindow is the
// size of the requested window and is only echoed back; averages are taken
// over the supplied data.
func CalculatePeriodStats(data []domain.TaskCompletionData, totalDaysInWindow int) domain.PeriodStats {
	stats := domain.PeriodStats{
		TotalDays:     totalDaysInWindow,
		TaskBreakdown: make(map[domain.Task]int, domain.TotalTasks),
	}
	for _, t := range domain.Tasks {
		stats.TaskBreakdown[t] = 0
	}
	if len(data) == 0 {
		return stats
	}

	stats.ActiveDays = lo.CountBy(data, func(d domain.TaskCompletionData) bool {
		return d.CompletedTasks > 0
	})
	stats.PerfectDays = lo.CountBy(data, func(d domain.TaskCompletionData) bool {
		return d.CompletionPercentage == 100
	})

	sum := lo.SumBy(data, func(d domain.TaskCompletionData) int {
		return d.CompletionPercentage
	})
	stats.AverageCompletion = int(math.Round(float64(sum) / float64(len(data))))

	for _, d := range data {
		for _, t := range domain.Tasks {
			if d.Done(t) {
				stats.TaskBreakdown[t]++
			}
		}
	}

	stats.CurrentStreak, stats.LongestStreak = streaks(data,
		func(d domain.TaskCompletionData) domain.Date { return d.Date },
		func(d domain.TaskCompletionData) bool { return d.CompletionPercentage > 0 },
	)
	return stats
}

// streaks scans the items in date order. longest is the best run of active
// items anywhere; current is the trailing run counted back from the most
// recent item, stopping at the first inactive one. Runs count records, not
// calendar days, so gaps in the data do not break a run.
func streaks[T any](items []T, dateOf func(T) domain.Date, active func(T) bool) (current, longest int) {
	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return dateOf(sorted[i]).Before(dateOf(sorted[j]))
	})

	run := 0
	for _, it := range sorted {
		if active(it) {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}

	for i := len(sorted) - 1; i >= 0; i-- {
		if !active(sorted[i]) {
			break
		}
		current++
	}

	return current, longest
}
