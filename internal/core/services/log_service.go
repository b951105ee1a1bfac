package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
)

// ProgressScheduler queues the post-log pipeline for one user and day.
type ProgressScheduler interface {
	Enqueue(userID string, date domain.Date) bool
}

type SaveDayInput struct {
	UserID string
	Date   domain.Date
	Tasks  map[string]any
}

// LogService ingests day logs and body metrics and schedules the progress
// pipeline after every write.
type LogService struct {
	logs     domain.DayLogWriter
	body     domain.BodyMetricsWriter
	progress ProgressScheduler
	now      func() time.Time
}

func NewLogService(logs domain.DayLogWriter, body domain.BodyMetricsWriter, progress ProgressScheduler) *LogService {
	return &LogService{
		logs:     logs,
		body:     body,
		progress: progress,
		now:      time.Now,
	}
}

// SaveDay replaces the checklist of in.Date. The bool reports whether the
// progress job was queued; a dropped job is picked up by the next write or sync.
func (s *LogService) SaveDay(ctx context.Context, in SaveDayInput) (bool, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return false, errors.New("user_id is required")
	}
	if err := s.checkDate(in.Date); err != nil {
		return false, err
	}
	for key := range in.Tasks {
		if _, err := domain.ParseTask(key); err != nil {
			return false, err
		}
	}

	log := &domain.RawDayLog{
		UserID:    in.UserID,
		Date:      in.Date,
		Tasks:     in.Tasks,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.logs.SaveDay(ctx, log); err != nil {
		return false, err
	}
	return s.progress.Enqueue(in.UserID, in.Date), nil
}

func (s *LogService) AddWeight(ctx context.Context, w *domain.WeightEntry) (bool, error) {
	if err := s.checkDate(w.Date); err != nil {
		return false, err
	}
	if err := s.body.AddWeight(ctx, w); err != nil {
		return false, err
	}
	return s.progress.Enqueue(w.UserID, w.Date), nil
}

func (s *LogService) AddFast(ctx context.Context, f *domain.FastingEntry) (bool, error) {
	if err := s.checkDate(f.Date); err != nil {
		return false, err
	}
	if err := s.body.AddFast(ctx, f); err != nil {
		return false, err
	}
	return s.progress.Enqueue(f.UserID, f.Date), nil
}

// checkDate allows one day past UTC today for users east of Greenwich.
func (s *LogService) checkDate(d domain.Date) error {
	if d.IsZero() {
		return domain.ErrInvalidDate
	}
	if d.After(domain.DateOf(s.now().UTC()).AddDays(1)) {
		return domain.ErrFutureDate
	}
	return nil
}
