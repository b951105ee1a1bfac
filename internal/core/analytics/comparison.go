package analytics

import "github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"

// Compare computes stats for two equally sized windows and reports
// current minus previous for the headline numbers.
func Compare(current, previous []domain.TaskCompletionData, windowDays int) domain.Comparison {
	cur := CalculatePeriodStats(current, windowDays)
	prev := CalculatePeriodStats(previous, windowDays)
	return domain.Comparison{
		Current:  cur,
		Previous: prev,
		Deltas:   Deltas(cur, prev),
	}
}

func Deltas(current, previous domain.PeriodStats) domain.ComparisonDeltas {
	return domain.ComparisonDeltas{
		AverageCompletion: current.AverageCompletion - previous.AverageCompletion,
		PerfectDays:       current.PerfectDays - previous.PerfectDays,
		CurrentStreak:     current.CurrentStreak - previous.CurrentStreak,
	}
}
