package repository

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
)

var (
	_ domain.DayLogRepository      = (*InMemoryLogStore)(nil)
	_ domain.BatchDayLogReader     = (*InMemoryLogStore)(nil)
	_ domain.DayLogWriter          = (*InMemoryLogStore)(nil)
	_ domain.BodyMetricsRepository = (*InMemoryLogStore)(nil)
	_ domain.BodyMetricsWriter     = (*InMemoryLogStore)(nil)
)

type dayKey struct {
	userID string
	date   domain.Date
}

// InMemoryLogStore keeps day logs and body metrics in process memory.
// Stored values are copied on the way in and out.
type InMemoryLogStore struct {
	days    map[dayKey]domain.RawDayLog
	weights map[dayKey]domain.WeightEntry
	fasts   map[dayKey]domain.FastingEntry

	mu sync.RWMutex
}

func NewInMemoryLogStore() *InMemoryLogStore {
	return &InMemoryLogStore{
		days:    make(map[dayKey]domain.RawDayLog),
		weights: make(map[dayKey]domain.WeightEntry),
		fasts:   make(map[dayKey]domain.FastingEntry),
	}
}

func (r *InMemoryLogStore) SaveDay(ctx context.Context, log *domain.RawDayLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *log
	stored.Tasks = maps.Clone(log.Tasks)
	r.days[dayKey{log.UserID, log.Date}] = stored
	return nil
}

func (r *InMemoryLogStore) GetDay(ctx context.Context, date domain.Date, userID string) (*domain.RawDayLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	log, ok := r.days[dayKey{userID, date}]
	if !ok {
		return nil, nil
	}
	log.Tasks = maps.Clone(log.Tasks)
	return &log, nil
}

func (r *InMemoryLogStore) GetRange(ctx context.Context, start, end domain.Date, userID string) ([]domain.RawDayLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.rangeLocked(start, end, userID), nil
}

func (r *InMemoryLogStore) GetRangeForUsers(ctx context.Context, start, end domain.Date, userIDs []string) (map[string][]domain.RawDayLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]domain.RawDayLog, len(userIDs))
	for _, id := range userIDs {
		out[id] = r.rangeLocked(start, end, id)
	}
	return out, nil
}

func (r *InMemoryLogStore) rangeLocked(start, end domain.Date, userID string) []domain.RawDayLog {
	w := domain.DateWindow{Start: start, End: end}
	logs := []domain.RawDayLog{}
	for k, log := range r.days {
		if k.userID == userID && w.Contains(k.date) {
			log.Tasks = maps.Clone(log.Tasks)
			logs = append(logs, log)
		}
	}
	return logs
}

func (r *InMemoryLogStore) AddWeight(ctx context.Context, w *domain.WeightEntry) error {
	if err := w.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *w
	if stored.Unit == "" {
		stored.Unit = "kg"
	}
	r.weights[dayKey{w.UserID, w.Date}] = stored
	return nil
}

func (r *InMemoryLogStore) AddFast(ctx context.Context, f *domain.FastingEntry) error {
	if err := f.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fasts[dayKey{f.UserID, f.Date}] = *f
	return nil
}

func (r *InMemoryLogStore) ListRecentWeights(ctx context.Context, userID string, limit int) ([]domain.WeightEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []domain.WeightEntry
	for k, w := range r.weights {
		if k.userID == userID {
			entries = append(entries, w)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *InMemoryLogStore) ListFasts(ctx context.Context, userID string, start, end domain.Date) ([]domain.FastingEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w := domain.DateWindow{Start: start, End: end}
	var entries []domain.FastingEntry
	for k, f := range r.fasts {
		if k.userID == userID && w.Contains(k.date) {
			entries = append(entries, f)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date)
	})
	return entries, nil
}
