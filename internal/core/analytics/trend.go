package analytics

import (
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
)

// MovingAverage returns a series of the same length where element i is the
// mean of the last window values up to and including i, rounded to 2 decimals.
func MovingAverage(values []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		n := min(i+1, window)
		out[i] = round2(sum / float64(n))
	}
	return out
}

// ClassifyTrend compares the first and last point of an ordered series.
// Changes within stableBand percent (inclusive) are stable.
func ClassifyTrend(points []domain.TrendPoint, stableBand float64) (domain.TrendDirection, float64) {
	if len(points) < 2 {
		return domain.TrendStable, 0
	}

	first := points[0].Value
	last := points[len(points)-1].Value

	var change float64
	switch {
	case first == 0 && last == 0:
		return domain.TrendStable, 0
	case first == 0 && last > 0:
		change = 100
	case first == 0:
		change = -100
	default:
		change = (last - first) / first * 100
	}

	// The band applies to the raw change; rounding is for reporting only.
	switch {
	case math.Abs(change) <= stableBand:
		return domain.TrendStable, round2(change)
	case change > 0:
		return domain.TrendUp, round2(change)
	default:
		return domain.TrendDown, round2(change)
	}
}

// CompletionTrend builds the completion-percentage trend of the window in
// ascending date order.
func CompletionTrend(data []domain.TaskCompletionData, cfg Config) domain.TrendData {
	points := lo.Map(data, func(d domain.TaskCompletionData, _ int) domain.TrendPoint {
		return domain.TrendPoint{Date: d.Date, Value: float64(d.CompletionPercentage)}
	})
	return BuildTrend(points, cfg.MovingAverageWindow, cfg.TrendStableBand)
}

func BuildTrend(points []domain.TrendPoint, window int, stableBand float64) domain.TrendData {
	sorted := make([]domain.TrendPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	direction, pct := ClassifyTrend(sorted, stableBand)
	values := lo.Map(sorted, func(p domain.TrendPoint, _ int) float64 { return p.Value })

	return domain.TrendData{
		Points:          sorted,
		Trend:           direction,
		TrendPercentage: pct,
		MovingAverage:   MovingAverage(values, window),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
