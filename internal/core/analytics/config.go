// Package analytics turns raw day logs into period statistics, trends,
// insights and comparisons. Everything here is pure: callers fetch the data
// and pass it in.
package analytics

type Config struct {
	// TrendStableBand is the absolute percentage change at or below which a
	// series is reported as stable.
	TrendStableBand     float64 `yaml:"trend_stable_band"`
	MovingAverageWindow int     `yaml:"moving_average_window"`

	StreakInsightDays      int     `yaml:"streak_insight_days"`
	LowCompletionThreshold int     `yaml:"low_completion_threshold"`
	WeakTaskRatio          float64 `yaml:"weak_task_ratio"`
	MaxWeakTasks           int     `yaml:"max_weak_tasks"`

	WeightStableBand    float64 `yaml:"weight_stable_band"`
	WeightAverageWindow int     `yaml:"weight_average_window"`
}

func DefaultConfig() Config {
	return Config{
		TrendStableBand:        5,
		MovingAverageWindow:    3,
		StreakInsightDays:      5,
		LowCompletionThreshold: 30,
		WeakTaskRatio:          0.5,
		MaxWeakTasks:           2,
		WeightStableBand:       0.5,
		WeightAverageWindow:    7,
	}
}
