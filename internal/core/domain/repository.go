package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrExportFailed       = errors.New("export failed")
	ErrUnsupportedFormat  = errors.New("unsupported export format (must be csv or json)")
	ErrEmptyBatch         = errors.New("batch export needs at least one user")
	ErrAvatarNotFound     = errors.New("avatar state not found")
	ErrStaleLevelSnapshot = errors.New("level snapshot is older than stored total")
)

type DayLogRepository interface {
	// GetRange returns the user's day logs between start and end (inclusive),
	// in no particular order.
	GetRange(ctx context.Context, start, end Date, userID string) ([]RawDayLog, error)

	// GetDay returns the log of a single day, or nil when nothing was logged.
	GetDay(ctx context.Context, date Date, userID string) (*RawDayLog, error)
}

// BatchDayLogReader is implemented by stores that can fetch many users in
// one round trip.
type BatchDayLogReader interface {
	GetRangeForUsers(ctx context.Context, start, end Date, userIDs []string) (map[string][]RawDayLog, error)
}

type DayLogWriter interface {
	// SaveDay inserts or replaces the log of log.Date.
	SaveDay(ctx context.Context, log *RawDayLog) error
}

type BodyMetricsWriter interface {
	// AddWeight and AddFast replace any entry of the same user and day.
	AddWeight(ctx context.Context, w *WeightEntry) error
	AddFast(ctx context.Context, f *FastingEntry) error
}

type BodyMetricsRepository interface {
	// ListRecentWeights returns at most limit weight entries, newest first.
	ListRecentWeights(ctx context.Context, userID string, limit int) ([]WeightEntry, error)

	// ListFasts returns fasting entries within the window, oldest first.
	ListFasts(ctx context.Context, userID string, start, end Date) ([]FastingEntry, error)
}

type LevelRepository interface {
	// AddXP appends the ledger entry and increments the user's total XP in a
	// single atomic step, creating the level row on first award. It returns
	// the totals immediately before and after the increment.
	AddXP(ctx context.Context, entry *XPEntry) (previousTotal, newTotal int, err error)

	// SaveLevel persists the derived level fields. Implementations must not
	// let a snapshot with a lower TotalXP overwrite a newer one and report
	// ErrStaleLevelSnapshot instead.
	SaveLevel(ctx context.Context, level *UserLevel) error

	GetLevel(ctx context.Context, userID string) (*UserLevel, error)

	// ListEntries returns ledger rows in the window, oldest first.
	ListEntries(ctx context.Context, userID string, start, end Date) ([]XPEntry, error)
}

type AchievementRepository interface {
	ListActive(ctx context.Context) ([]Achievement, error)

	// UnlockedIDs returns the ids the user has already unlocked.
	UnlockedIDs(ctx context.Context, userID string) (map[string]time.Time, error)

	// Unlock records the unlock. Storage enforces uniqueness of
	// (userID, achievementID); a duplicate returns ErrAchievementAlreadyUnlocked.
	Unlock(ctx context.Context, ua *UserAchievement) error

	CountUnlockedSince(ctx context.Context, userID string, since time.Time) (int, error)

	// Upsert stores or replaces an achievement definition.
	Upsert(ctx context.Context, a *Achievement) error
}

type LeaderboardRepository interface {
	// TopByXP returns up to limit users ordered by XP descending. With a nil
	// since the lifetime total is used, otherwise XP earned on or after since.
	TopByXP(ctx context.Context, since *Date, limit int) ([]LeaderboardRow, error)
}

type AvatarRepository interface {
	SaveAvatar(ctx context.Context, state *AvatarMoodState) error
	GetAvatar(ctx context.Context, userID string) (*AvatarMoodState, error)
}

type ExportStorage interface {
	// Save writes the export under filename and returns where it was stored.
	Save(ctx context.Context, filename string, content []byte) (string, error)
}
