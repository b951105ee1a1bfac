package analytics

import (
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
)

// WeightStats summarizes weight entries in any order. The moving average
// covers the N most recent entries regardless of calendar gaps.
func WeightStats(entries []domain.WeightEntry, cfg Config) domain.WeightStats {
	if len(entries) == 0 {
		return domain.WeightStats{Trend: domain.TrendStable}
	}

	sorted := make([]domain.WeightEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	first := sorted[0].Weight
	last := sorted[len(sorted)-1].Weight

	window := cfg.WeightAverageWindow
	if window < 1 || window > len(sorted) {
		window = len(sorted)
	}
	recent := sorted[len(sorted)-window:]

	return domain.WeightStats{
		Entries:       len(sorted),
		Current:       last,
		Starting:      first,
		Change:        round2(last - first),
		Average:       round2(lo.MeanBy(sorted, weightOf)),
		MovingAverage: round2(lo.MeanBy(recent, weightOf)),
		Trend:         WeightTrend(first, last, len(sorted), cfg.WeightStableBand),
		Unit:          sorted[len(sorted)-1].Unit,
	}
}

// WeightTrend uses the absolute difference, not a percentage: a change
// smaller than band units is stable.
func WeightTrend(first, last float64, n int, band float64) domain.TrendDirection {
	diff := last - first
	switch {
	case n < 2 || math.Abs(diff) < band:
		return domain.TrendStable
	case diff > 0:
		return domain.TrendUp
	default:
		return domain.TrendDown
	}
}

// FastingStats computes success rate over completed fasts and target streaks
// over every logged fast in date order.
func FastingStats(entries []domain.FastingEntry) domain.FastingStats {
	stats := domain.FastingStats{TotalFasts: len(entries)}
	if len(entries) == 0 {
		return stats
	}

	completed := lo.Filter(entries, func(f domain.FastingEntry, _ int) bool { return f.Completed })
	stats.CompletedFasts = len(completed)
	stats.SuccessfulFasts = lo.CountBy(completed, domain.FastingEntry.MetTarget)
	if stats.CompletedFasts > 0 {
		stats.SuccessRate = round1(float64(stats.SuccessfulFasts) / float64(stats.CompletedFasts) * 100)
	}

	hours := lo.Map(entries, func(f domain.FastingEntry, _ int) float64 { return f.ActualHours })
	stats.AverageHours = round1(lo.Mean(hours))
	stats.LongestFastHours = lo.Max(hours)

	stats.CurrentStreak, stats.LongestStreak = streaks(entries,
		func(f domain.FastingEntry) domain.Date { return f.Date },
		domain.FastingEntry.MetTarget,
	)
	return stats
}

func weightOf(w domain.WeightEntry) float64 { return w.Weight }
