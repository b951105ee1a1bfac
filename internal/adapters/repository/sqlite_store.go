package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
)

var (
	_ domain.DayLogRepository      = (*SQLiteStore)(nil)
	_ domain.DayLogWriter          = (*SQLiteStore)(nil)
	_ domain.BatchDayLogReader     = (*SQLiteStore)(nil)
	_ domain.BodyMetricsRepository = (*SQLiteStore)(nil)
	_ domain.BodyMetricsWriter     = (*SQLiteStore)(nil)
	_ domain.LevelRepository       = (*SQLiteStore)(nil)
	_ domain.AchievementRepository = (*SQLiteStore)(nil)
	_ domain.LeaderboardRepository = (*SQLiteStore)(nil)
	_ domain.AvatarRepository      = (*SQLiteStore)(nil)
)

// Dates are stored as YYYY-MM-DD text so range filters compare lexically.

type dayLogModel struct {
	UserID    string `gorm:"column:user_id;primaryKey"`
	Date      string `gorm:"column:log_date;primaryKey"`
	Tasks     string `gorm:"column:tasks;type:text"`
	UpdatedAt time.Time
}

func (dayLogModel) TableName() string { return "day_logs" }

type weightModel struct {
	UserID string  `gorm:"column:user_id;primaryKey"`
	Date   string  `gorm:"column:entry_date;primaryKey"`
	Weight float64 `gorm:"column:weight"`
	Unit   string  `gorm:"column:unit"`
}

func (weightModel) TableName() string { return "weight_entries" }

type fastModel struct {
	UserID      string  `gorm:"column:user_id;primaryKey"`
	Date        string  `gorm:"column:entry_date;primaryKey"`
	TargetHours float64 `gorm:"column:target_hours"`
	ActualHours float64 `gorm:"column:actual_hours"`
	Completed   bool    `gorm:"column:completed"`
}

func (fastModel) TableName() string { return "fasting_entries" }

type levelModel struct {
	UserID        string     `gorm:"column:user_id;primaryKey"`
	CurrentLevel  int        `gorm:"column:current_level"`
	CurrentXP     int        `gorm:"column:current_xp"`
	TotalXP       int        `gorm:"column:total_xp;index"`
	XPToNextLevel int        `gorm:"column:xp_to_next_level"`
	Rank          string     `gorm:"column:rank"`
	LastLevelUp   *time.Time `gorm:"column:last_level_up"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
}

func (levelModel) TableName() string { return "user_levels" }

type xpEntryModel struct {
	ID        string `gorm:"column:id;primaryKey"`
	UserID    string `gorm:"column:user_id;index:idx_xp_user_date"`
	Date      string `gorm:"column:entry_date;index:idx_xp_user_date;index"`
	BaseXP    int    `gorm:"column:base_xp"`
	BonusXP   int    `gorm:"column:bonus_xp"`
	TotalXP   int    `gorm:"column:total_xp"`
	Source    string `gorm:"column:source"`
	Metadata  string `gorm:"column:metadata;type:text"`
	CreatedAt time.Time
}

func (xpEntryModel) TableName() string { return "xp_entries" }

type achievementModel struct {
	ID           string `gorm:"column:id;primaryKey"`
	Name         string `gorm:"column:name"`
	Description  string `gorm:"column:description"`
	Icon         string `gorm:"column:icon"`
	Category     string `gorm:"column:category"`
	Requirements string `gorm:"column:requirements;type:text"`
	XPReward     int    `gorm:"column:xp_reward"`
	IsSecret     bool   `gorm:"column:is_secret"`
	IsActive     bool   `gorm:"column:is_active;index"`
}

func (achievementModel) TableName() string { return "achievements" }

type userAchievementModel struct {
	ID            string    `gorm:"column:id;primaryKey"`
	UserID        string    `gorm:"column:user_id;uniqueIndex:idx_user_achievement"`
	AchievementID string    `gorm:"column:achievement_id;uniqueIndex:idx_user_achievement"`
	UnlockedAt    time.Time `gorm:"column:unlocked_at;index"`
	Metadata      string    `gorm:"column:metadata;type:text"`
}

func (userAchievementModel) TableName() string { return "user_achievements" }

type avatarModel struct {
	UserID             string    `gorm:"column:user_id;primaryKey"`
	Mood               string    `gorm:"column:mood"`
	Pose               string    `gorm:"column:pose"`
	Score              int       `gorm:"column:score"`
	StreakLength       int       `gorm:"column:streak_length"`
	CompletionRate     int       `gorm:"column:completion_rate"`
	RecentAchievements int       `gorm:"column:recent_achievements"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

func (avatarModel) TableName() string { return "avatar_states" }

// SQLiteStore keeps every engine table in one embedded SQLite file. It is
// meant for single-node deployments and local development.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (or creates) the database at path and migrates it.
// ":memory:" gives a private in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	db = db.Session(&gorm.Session{Logger: logger.Default.LogMode(logger.Silent)})

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// One connection: SQLite has a single writer and every ":memory:"
	// connection is a separate database.
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&dayLogModel{},
		&weightModel{},
		&fastModel{},
		&levelModel{},
		&xpEntryModel{},
		&achievementModel{},
		&userAchievementModel{},
		&avatarModel{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrating sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLiteStore) GetRange(ctx context.Context, start, end domain.Date, userID string) ([]domain.RawDayLog, error) {
	var rows []dayLogModel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND log_date >= ? AND log_date <= ?", userID, start.String(), end.String()).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	logs := make([]domain.RawDayLog, 0, len(rows))
	for _, row := range rows {
		log, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, nil
}

func (s *SQLiteStore) GetRangeForUsers(ctx context.Context, start, end domain.Date, userIDs []string) (map[string][]domain.RawDayLog, error) {
	var rows []dayLogModel
	err := s.db.WithContext(ctx).
		Where("user_id IN ? AND log_date >= ? AND log_date <= ?", userIDs, start.String(), end.String()).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string][]domain.RawDayLog, len(userIDs))
	for _, id := range userIDs {
		out[id] = []domain.RawDayLog{}
	}
	for _, row := range rows {
		log, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out[row.UserID] = append(out[row.UserID], log)
	}
	return out, nil
}

func (s *SQLiteStore) GetDay(ctx context.Context, date domain.Date, userID string) (*domain.RawDayLog, error) {
	var row dayLogModel
	err := s.db.WithContext(ctx).Where("user_id = ? AND log_date = ?", userID, date.String()).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	log, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (s *SQLiteStore) SaveDay(ctx context.Context, log *domain.RawDayLog) error {
	tasks, err := json.Marshal(log.Tasks)
	if err != nil {
		return err
	}
	if log.UpdatedAt.IsZero() {
		log.UpdatedAt = time.Now().UTC()
	}
	row := dayLogModel{UserID: log.UserID, Date: log.Date.String(), Tasks: string(tasks), UpdatedAt: log.UpdatedAt}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "log_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"tasks", "updated_at"}),
	}).Create(&row).Error
}

func (r dayLogModel) toDomain() (domain.RawDayLog, error) {
	date, err := domain.ParseDate(r.Date)
	if err != nil {
		return domain.RawDayLog{}, err
	}
	log := domain.RawDayLog{UserID: r.UserID, Date: date, UpdatedAt: r.UpdatedAt}
	if r.Tasks != "" {
		if err := json.Unmarshal([]byte(r.Tasks), &log.Tasks); err != nil {
			return domain.RawDayLog{}, fmt.Errorf("decode tasks of %s: %w", r.Date, err)
		}
	}
	return log, nil
}

func (s *SQLiteStore) ListRecentWeights(ctx context.Context, userID string, limit int) ([]domain.WeightEntry, error) {
	var rows []weightModel
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("entry_date DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.WeightEntry, 0, len(rows))
	for _, row := range rows {
		date, err := domain.ParseDate(row.Date)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.WeightEntry{UserID: row.UserID, Date: date, Weight: row.Weight, Unit: row.Unit})
	}
	return out, nil
}

func (s *SQLiteStore) ListFasts(ctx context.Context, userID string, start, end domain.Date) ([]domain.FastingEntry, error) {
	var rows []fastModel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND entry_date >= ? AND entry_date <= ?", userID, start.String(), end.String()).
		Order("entry_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.FastingEntry, 0, len(rows))
	for _, row := range rows {
		date, err := domain.ParseDate(row.Date)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.FastingEntry{
			UserID: row.UserID, Date: date,
			TargetHours: row.TargetHours, ActualHours: row.ActualHours, Completed: row.Completed,
		})
	}
	return out, nil
}

func (s *SQLiteStore) AddWeight(ctx context.Context, w *domain.WeightEntry) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(w.Unit) == "" {
		w.Unit = "kg"
	}
	row := weightModel{UserID: w.UserID, Date: w.Date.String(), Weight: w.Weight, Unit: w.Unit}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "entry_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"weight", "unit"}),
	}).Create(&row).Error
}

func (s *SQLiteStore) AddFast(ctx context.Context, f *domain.FastingEntry) error {
	if err := f.Validate(); err != nil {
		return err
	}
	row := fastModel{
		UserID: f.UserID, Date: f.Date.String(),
		TargetHours: f.TargetHours, ActualHours: f.ActualHours, Completed: f.Completed,
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "entry_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"target_hours", "actual_hours", "completed"}),
	}).Create(&row).Error
}

func (s *SQLiteStore) AddXP(ctx context.Context, entry *domain.XPEntry) (prevTotal, newTotal int, err error) {
	if err := entry.Validate(); err != nil {
		return 0, 0, err
	}
	meta, err := encodeMetadata(entry.Metadata)
	if err != nil {
		return 0, 0, err
	}
	now := time.Now().UTC()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := xpEntryModel{
			ID: entry.ID, UserID: entry.UserID, Date: entry.Date.String(),
			BaseXP: entry.BaseXP, BonusXP: entry.BonusXP, TotalXP: entry.TotalXP,
			Source: string(entry.Source), Metadata: string(meta), CreatedAt: entry.CreatedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("inserting xp entry: %w", err)
		}

		lvl := levelModel{
			UserID: entry.UserID, CurrentLevel: 1, CurrentXP: entry.TotalXP, TotalXP: entry.TotalXP,
			Rank: string(domain.RankE), UpdatedAt: now,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"total_xp":   gorm.Expr("total_xp + ?", entry.TotalXP),
				"current_xp": gorm.Expr("current_xp + ?", entry.TotalXP),
				"updated_at": now,
			}),
		}).Create(&lvl).Error
		if err != nil {
			return fmt.Errorf("incrementing total xp: %w", err)
		}

		var totals []int
		if err := tx.Model(&levelModel{}).Where("user_id = ?", entry.UserID).Pluck("total_xp", &totals).Error; err != nil {
			return err
		}
		if len(totals) != 1 {
			return fmt.Errorf("level row for %s missing after increment", entry.UserID)
		}
		newTotal = totals[0]
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return newTotal - entry.TotalXP, newTotal, nil
}

func (s *SQLiteStore) SaveLevel(ctx context.Context, level *domain.UserLevel) error {
	row := levelModel{
		UserID: level.UserID, CurrentLevel: level.CurrentLevel, CurrentXP: level.CurrentXP,
		TotalXP: level.TotalXP, XPToNextLevel: level.XPToNextLevel, Rank: string(level.Rank),
		LastLevelUp: level.LastLevelUp, UpdatedAt: level.UpdatedAt,
	}

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"current_level":    gorm.Expr("excluded.current_level"),
			"current_xp":       gorm.Expr("excluded.current_xp"),
			"total_xp":         gorm.Expr("excluded.total_xp"),
			"xp_to_next_level": gorm.Expr("excluded.xp_to_next_level"),
			"rank":             gorm.Expr("excluded.rank"),
			"last_level_up":    gorm.Expr("COALESCE(excluded.last_level_up, user_levels.last_level_up)"),
			"updated_at":       gorm.Expr("excluded.updated_at"),
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			gorm.Expr("user_levels.total_xp <= excluded.total_xp"),
		}},
	}).Create(&row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrStaleLevelSnapshot
	}
	return nil
}

func (s *SQLiteStore) GetLevel(ctx context.Context, userID string) (*domain.UserLevel, error) {
	var row levelModel
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserLevelNotFound
		}
		return nil, err
	}
	return &domain.UserLevel{
		UserID: row.UserID, CurrentLevel: row.CurrentLevel, CurrentXP: row.CurrentXP,
		TotalXP: row.TotalXP, XPToNextLevel: row.XPToNextLevel, Rank: domain.Rank(row.Rank),
		LastLevelUp: row.LastLevelUp, UpdatedAt: row.UpdatedAt,
	}, nil
}

func (s *SQLiteStore) ListEntries(ctx context.Context, userID string, start, end domain.Date) ([]domain.XPEntry, error) {
	var rows []xpEntryModel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND entry_date >= ? AND entry_date <= ?", userID, start.String(), end.String()).
		Order("entry_date ASC, created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.XPEntry, 0, len(rows))
	for _, row := range rows {
		date, err := domain.ParseDate(row.Date)
		if err != nil {
			return nil, err
		}
		meta, err := decodeMetadata([]byte(row.Metadata))
		if err != nil {
			return nil, err
		}
		out = append(out, domain.XPEntry{
			ID: row.ID, UserID: row.UserID, Date: date,
			BaseXP: row.BaseXP, BonusXP: row.BonusXP, TotalXP: row.TotalXP,
			Source: domain.XPSource(row.Source), Metadata: meta, CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

type leaderboardScan struct {
	UserID       string `gorm:"column:user_id"`
	TotalXP      int    `gorm:"column:total_xp"`
	CurrentLevel int    `gorm:"column:current_level"`
	Rank         string `gorm:"column:rank"`
}

func (s *SQLiteStore) TopByXP(ctx context.Context, since *domain.Date, limit int) ([]domain.LeaderboardRow, error) {
	var scanned []leaderboardScan
	db := s.db.WithContext(ctx)

	var err error
	if since == nil {
		err = db.Model(&levelModel{}).
			Select("user_id, total_xp, current_level, rank").
			Order("total_xp DESC, user_id ASC").
			Limit(limit).
			Scan(&scanned).Error
	} else {
		err = db.Raw(`
			SELECT e.user_id AS user_id, SUM(e.total_xp) AS total_xp,
			       COALESCE(l.current_level, 1) AS current_level, COALESCE(l.rank, 'E') AS rank
			FROM xp_entries e
			LEFT JOIN user_levels l ON l.user_id = e.user_id
			WHERE e.entry_date >= ?
			GROUP BY e.user_id, l.current_level, l.rank
			ORDER BY total_xp DESC, e.user_id ASC
			LIMIT ?`, since.String(), limit).
			Scan(&scanned).Error
	}
	if err != nil {
		return nil, err
	}

	out := make([]domain.LeaderboardRow, 0, len(scanned))
	for _, row := range scanned {
		out = append(out, domain.LeaderboardRow{
			UserID: row.UserID, TotalXP: row.TotalXP, CurrentLevel: row.CurrentLevel, Rank: domain.Rank(row.Rank),
		})
	}
	return out, nil
}

func (s *SQLiteStore) ListActive(ctx context.Context) ([]domain.Achievement, error) {
	var rows []achievementModel
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("xp_reward ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]domain.Achievement, 0, len(rows))
	for _, row := range rows {
		category := domain.AchievementCategory(row.Category)
		req, err := domain.DecodeRequirement(category, []byte(row.Requirements))
		if err != nil {
			return nil, fmt.Errorf("achievement %s: %w", row.ID, err)
		}
		out = append(out, domain.Achievement{
			ID: row.ID, Name: row.Name, Description: row.Description, Icon: row.Icon,
			Category: category, Requirement: req, XPReward: row.XPReward,
			IsSecret: row.IsSecret, IsActive: row.IsActive,
		})
	}
	return out, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, a *domain.Achievement) error {
	if err := a.Validate(); err != nil {
		return err
	}
	req, err := domain.EncodeRequirement(a.Requirement)
	if err != nil {
		return err
	}
	row := achievementModel{
		ID: a.ID, Name: a.Name, Description: a.Description, Icon: a.Icon,
		Category: string(a.Category), Requirements: string(req), XPReward: a.XPReward,
		IsSecret: a.IsSecret, IsActive: a.IsActive,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (s *SQLiteStore) UnlockedIDs(ctx context.Context, userID string) (map[string]time.Time, error) {
	var rows []userAchievementModel
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]time.Time, len(rows))
	for _, row := range rows {
		out[row.AchievementID] = row.UnlockedAt
	}
	return out, nil
}

func (s *SQLiteStore) Unlock(ctx context.Context, ua *domain.UserAchievement) error {
	meta, err := encodeMetadata(ua.Metadata)
	if err != nil {
		return err
	}
	row := userAchievementModel{
		ID: ua.ID, UserID: ua.UserID, AchievementID: ua.AchievementID,
		UnlockedAt: ua.UnlockedAt.UTC(), Metadata: string(meta),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAchievementAlreadyUnlocked
		}
		return err
	}
	return nil
}

func (s *SQLiteStore) CountUnlockedSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&userAchievementModel{}).
		Where("user_id = ? AND unlocked_at >= ?", userID, since.UTC()).
		Count(&n).Error
	return int(n), err
}

func (s *SQLiteStore) SaveAvatar(ctx context.Context, state *domain.AvatarMoodState) error {
	row := avatarModel{
		UserID: state.UserID, Mood: string(state.CurrentMood), Pose: string(state.Pose), Score: state.Score,
		StreakLength: state.Triggers.StreakLength, CompletionRate: state.Triggers.CompletionRate,
		RecentAchievements: state.Triggers.RecentAchievements, UpdatedAt: state.UpdatedAt,
	}
	return s.db.WithContext(ctx).Save(&row).Error
}

func (s *SQLiteStore) GetAvatar(ctx context.Context, userID string) (*domain.AvatarMoodState, error) {
	var row avatarModel
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAvatarNotFound
		}
		return nil, err
	}
	return &domain.AvatarMoodState{
		UserID: row.UserID, CurrentMood: domain.Mood(row.Mood), Pose: domain.Pose(row.Pose), Score: row.Score,
		Triggers: domain.MoodTriggers{
			StreakLength: row.StreakLength, CompletionRate: row.CompletionRate, RecentAchievements: row.RecentAchievements,
		},
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}
