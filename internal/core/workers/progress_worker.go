package workers

import (
	"context"
	"hash/fnv"
	"sync"

	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
)

const queueSize = 100

// statsRange is the window achievements and the avatar are evaluated over.
const statsRange = domain.TimeRange30D

type DayReader interface {
	Day(ctx context.Context, userID string, date domain.Date) (domain.TaskCompletionData, error)
	PeriodStats(ctx context.Context, userID string, tr domain.TimeRange, today domain.Date) (domain.PeriodStats, error)
}

type BodyReader interface {
	Weight(ctx context.Context, userID string, limit int) (domain.WeightStats, error)
	Fasting(ctx context.Context, userID string, tr domain.TimeRange, today domain.Date) (domain.FastingStats, error)
}

type XPAwarder interface {
	CalculateDailyXP(ctx context.Context, userID string, date domain.Date, completionPercentage float64) (*domain.XPCalculationResult, error)
}

type AchievementChecker interface {
	Check(ctx context.Context, userID string, in domain.AchievementInput) ([]domain.Achievement, error)
}

type AvatarRefresher interface {
	Refresh(ctx context.Context, userID string, completionRate, streakLength int) (*domain.AvatarMoodState, error)
}

type ProgressJob struct {
	UserID string
	Date   domain.Date
}

// ProgressWorker runs the post-sync pipeline: award the day's XP, check
// achievements and refresh the avatar. Jobs are sharded by user so that one
// user's jobs always run in order on the same goroutine.
type ProgressWorker struct {
	days         DayReader
	body         BodyReader
	xp           XPAwarder
	achievements AchievementChecker
	avatars      AvatarRefresher
	logger       *zap.Logger

	shards []chan ProgressJob
	wg     sync.WaitGroup
}

// NewProgressWorker builds a worker with n shards. body may be nil, in which
// case weight and fasting achievements are never evaluated.
func NewProgressWorker(days DayReader, body BodyReader, xp XPAwarder, achievements AchievementChecker, avatars AvatarRefresher, shards int, logger *zap.Logger) *ProgressWorker {
	if shards < 1 {
		shards = 1
	}
	w := &ProgressWorker{
		days:         days,
		body:         body,
		xp:           xp,
		achievements: achievements,
		avatars:      avatars,
		logger:       logger,
		shards:       make([]chan ProgressJob, shards),
	}
	for i := range w.shards {
		w.shards[i] = make(chan ProgressJob, queueSize)
	}
	return w
}

func (w *ProgressWorker) Start(ctx context.Context) {
	w.logger.Info("progress worker started", zap.Int("shards", len(w.shards)))
	for i, jobs := range w.shards {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for {
				select {
				case job := <-jobs:
					w.processJob(ctx, job)
				case <-ctx.Done():
					w.logger.Debug("progress shard shutting down", zap.Int("shard", i))
					return
				}
			}
		}()
	}
}

// Wait blocks until every shard has stopped after ctx cancellation.
func (w *ProgressWorker) Wait() {
	w.wg.Wait()
}

// Enqueue schedules a job and reports whether it was accepted. A full shard
// drops the job.
func (w *ProgressWorker) Enqueue(userID string, date domain.Date) bool {
	select {
	case w.shards[w.shardFor(userID)] <- ProgressJob{UserID: userID, Date: date}:
		return true
	default:
		w.logger.Warn("progress queue full, dropping job",
			zap.String("user_id", userID),
			zap.String("date", date.String()))
		return false
	}
}

func (w *ProgressWorker) shardFor(userID string) int {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(w.shards)))
}

func (w *ProgressWorker) processJob(ctx context.Context, job ProgressJob) {
	log := w.logger.With(zap.String("user_id", job.UserID), zap.String("date", job.Date.String()))

	day, err := w.days.Day(ctx, job.UserID, job.Date)
	if err != nil {
		log.Error("fetching day log", zap.Error(err))
		return
	}

	if _, err := w.xp.CalculateDailyXP(ctx, job.UserID, job.Date, float64(day.CompletionPercentage)); err != nil {
		log.Error("awarding daily xp", zap.Error(err))
		return
	}

	stats, err := w.days.PeriodStats(ctx, job.UserID, statsRange, job.Date)
	if err != nil {
		log.Error("computing period stats", zap.Error(err))
		return
	}

	in := domain.AchievementInput{Stats: stats}
	if w.body != nil {
		w.attachBodyStats(ctx, log, job, &in)
	}

	unlocked, err := w.achievements.Check(ctx, job.UserID, in)
	if err != nil {
		log.Error("checking achievements", zap.Error(err))
	}

	if _, err := w.avatars.Refresh(ctx, job.UserID, stats.AverageCompletion, stats.CurrentStreak); err != nil {
		log.Error("refreshing avatar", zap.Error(err))
		return
	}

	log.Debug("progress updated",
		zap.Int("completion", day.CompletionPercentage),
		zap.Int("streak", stats.CurrentStreak),
		zap.Int("unlocked", len(unlocked)))
}

// attachBodyStats is best effort; missing body metrics only skip the weight
// and fasting achievements.
func (w *ProgressWorker) attachBodyStats(ctx context.Context, log *zap.Logger, job ProgressJob, in *domain.AchievementInput) {
	if ws, err := w.body.Weight(ctx, job.UserID, 0); err != nil {
		log.Warn("loading weight stats", zap.Error(err))
	} else {
		in.Weight = &ws
	}
	if fs, err := w.body.Fasting(ctx, job.UserID, statsRange, job.Date); err != nil {
		log.Warn("loading fasting stats", zap.Error(err))
	} else {
		in.Fasting = &fs
	}
}
