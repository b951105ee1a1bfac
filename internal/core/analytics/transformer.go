package analytics

import (
	"math"

	"github.com/samber/lo"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
)

// Transform normalizes raw logs into one completion record per log, keeping
// the input order.
func Transform(logs []domain.RawDayLog) []domain.TaskCompletionData {
	return lo.Map(logs, func(log domain.RawDayLog, _ int) domain.TaskCompletionData {
		return TransformDay(log)
	})
}

func TransformDay(log domain.RawDayLog) domain.TaskCompletionData {
	done := make(map[domain.Task]bool, domain.TotalTasks)
	for _, t := range domain.Tasks {
		done[t] = truthy(log.Tasks[string(t)])
	}
	return domain.NewTaskCompletionData(log.Date, done)
}

// truthy follows the client's loose semantics: missing, nil, false, zero,
// NaN and empty strings are not done.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0 && !math.IsNaN(x)
	case float32:
		return x != 0 && !math.IsNaN(float64(x))
	case int:
		return x != 0
	case int64:
		return x != 0
	case int32:
		return x != 0
	}
	return true
}
