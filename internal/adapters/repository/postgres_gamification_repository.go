package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
)

//go:embed schema.sql
var schema string

// PgConnection is the subset of *pgxpool.Pool the gamification store needs.
// pgxmock pools satisfy it in tests.
type PgConnection interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ domain.LevelRepository       = (*PostgresGamificationRepository)(nil)
	_ domain.AchievementRepository = (*PostgresGamificationRepository)(nil)
	_ domain.LeaderboardRepository = (*PostgresGamificationRepository)(nil)
	_ domain.AvatarRepository      = (*PostgresGamificationRepository)(nil)
)

// NewPgxPool opens a pool and pings it once.
func NewPgxPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return pool, nil
}

// Migrate creates every table the engine uses if it does not exist yet.
func Migrate(ctx context.Context, conn PgConnection) error {
	if _, err := conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// PostgresGamificationRepository stores the XP ledger, levels, achievements
// and avatar state.
type PostgresGamificationRepository struct {
	conn PgConnection
}

func NewPostgresGamificationRepository(conn PgConnection) *PostgresGamificationRepository {
	return &PostgresGamificationRepository{conn: conn}
}

const (
	insertXPEntryQuery = `INSERT INTO xp_entries (id, user_id, entry_date, base_xp, bonus_xp, total_xp, source, metadata, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`

	incrementTotalQuery = `INSERT INTO user_levels (user_id, current_level, current_xp, total_xp, updated_at) VALUES ($1, 1, $2, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET total_xp = user_levels.total_xp + EXCLUDED.total_xp, current_xp = user_levels.current_xp + EXCLUDED.total_xp, updated_at = EXCLUDED.updated_at
		RETURNING total_xp;`

	saveLevelQuery = `INSERT INTO user_levels (user_id, current_level, current_xp, total_xp, xp_to_next_level, rank, last_level_up, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET current_level = EXCLUDED.current_level, current_xp = EXCLUDED.current_xp, total_xp = EXCLUDED.total_xp,
		xp_to_next_level = EXCLUDED.xp_to_next_level, rank = EXCLUDED.rank, last_level_up = COALESCE(EXCLUDED.last_level_up, user_levels.last_level_up), updated_at = EXCLUDED.updated_at
		WHERE user_levels.total_xp <= EXCLUDED.total_xp;`

	getLevelQuery = `SELECT user_id, current_level, current_xp, total_xp, xp_to_next_level, rank, last_level_up, updated_at FROM user_levels WHERE user_id = $1;`

	listEntriesQuery = `SELECT id, user_id, entry_date, base_xp, bonus_xp, total_xp, source, metadata, created_at FROM xp_entries
		WHERE user_id = $1 AND entry_date >= $2 AND entry_date <= $3 ORDER BY entry_date ASC, created_at ASC;`

	topLifetimeQuery = `SELECT user_id, total_xp, current_level, rank FROM user_levels ORDER BY total_xp DESC, user_id ASC LIMIT $1;`

	topWindowQuery = `SELECT e.user_id, SUM(e.total_xp)::int AS xp, COALESCE(l.current_level, 1), COALESCE(l.rank, 'E') FROM xp_entries e
		LEFT JOIN user_levels l ON l.user_id = e.user_id
		WHERE e.entry_date >= $1
		GROUP BY e.user_id, l.current_level, l.rank
		ORDER BY xp DESC, e.user_id ASC LIMIT $2;`

	listActiveQuery = `SELECT id, name, description, icon, category, requirements, xp_reward, is_secret FROM achievements WHERE is_active ORDER BY xp_reward ASC, id ASC;`

	upsertAchievementQuery = `INSERT INTO achievements (id, name, description, icon, category, requirements, xp_reward, is_secret, is_active) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description, icon = EXCLUDED.icon, category = EXCLUDED.category,
		requirements = EXCLUDED.requirements, xp_reward = EXCLUDED.xp_reward, is_secret = EXCLUDED.is_secret, is_active = EXCLUDED.is_active;`

	unlockedIDsQuery = `SELECT achievement_id, unlocked_at FROM user_achievements WHERE user_id = $1;`

	unlockQuery = `INSERT INTO user_achievements (id, user_id, achievement_id, unlocked_at, metadata) VALUES ($1, $2, $3, $4, $5);`

	countUnlockedQuery = `SELECT COUNT(*) FROM user_achievements WHERE user_id = $1 AND unlocked_at >= $2;`

	saveAvatarQuery = `INSERT INTO avatar_states (user_id, mood, pose, score, streak_length, completion_rate, recent_achievements, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET mood = EXCLUDED.mood, pose = EXCLUDED.pose, score = EXCLUDED.score, streak_length = EXCLUDED.streak_length,
		completion_rate = EXCLUDED.completion_rate, recent_achievements = EXCLUDED.recent_achievements, updated_at = EXCLUDED.updated_at;`

	getAvatarQuery = `SELECT user_id, mood, pose, score, streak_length, completion_rate, recent_achievements, updated_at FROM avatar_states WHERE user_id = $1;`
)

func (r *PostgresGamificationRepository) AddXP(ctx context.Context, entry *domain.XPEntry) (prevTotal, newTotal int, err error) {
	if err := entry.Validate(); err != nil {
		return 0, 0, err
	}
	meta, err := encodeMetadata(entry.Metadata)
	if err != nil {
		return 0, 0, err
	}

	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin xp transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx, insertXPEntryQuery,
		entry.ID, entry.UserID, entry.Date.Time(), entry.BaseXP, entry.BonusXP, entry.TotalXP,
		string(entry.Source), meta, entry.CreatedAt)
	if err != nil {
		return 0, 0, fmt.Errorf("inserting xp entry: %w", err)
	}

	if err = tx.QueryRow(ctx, incrementTotalQuery, entry.UserID, entry.TotalXP, time.Now().UTC()).Scan(&newTotal); err != nil {
		return 0, 0, fmt.Errorf("incrementing total xp: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("commit xp transaction: %w", err)
	}
	return newTotal - entry.TotalXP, newTotal, nil
}

func (r *PostgresGamificationRepository) SaveLevel(ctx context.Context, level *domain.UserLevel) error {
	ct, err := r.conn.Exec(ctx, saveLevelQuery,
		level.UserID, level.CurrentLevel, level.CurrentXP, level.TotalXP, level.XPToNextLevel,
		string(level.Rank), level.LastLevelUp, level.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving level: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrStaleLevelSnapshot
	}
	return nil
}

func (r *PostgresGamificationRepository) GetLevel(ctx context.Context, userID string) (*domain.UserLevel, error) {
	var (
		lvl  domain.UserLevel
		rank string
	)
	err := r.conn.QueryRow(ctx, getLevelQuery, userID).Scan(
		&lvl.UserID, &lvl.CurrentLevel, &lvl.CurrentXP, &lvl.TotalXP, &lvl.XPToNextLevel,
		&rank, &lvl.LastLevelUp, &lvl.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserLevelNotFound
		}
		return nil, fmt.Errorf("getting level: %w", err)
	}
	lvl.Rank = domain.Rank(rank)
	return &lvl, nil
}

func (r *PostgresGamificationRepository) ListEntries(ctx context.Context, userID string, start, end domain.Date) ([]domain.XPEntry, error) {
	rows, err := r.conn.Query(ctx, listEntriesQuery, userID, start.Time(), end.Time())
	if err != nil {
		return nil, fmt.Errorf("listing xp entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.XPEntry, 0)
	for rows.Next() {
		var (
			e      domain.XPEntry
			date   time.Time
			source string
			meta   []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &date, &e.BaseXP, &e.BonusXP, &e.TotalXP, &source, &meta, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("xp entry row parsing: %w", err)
		}
		e.Date = domain.DateOf(date.UTC())
		e.Source = domain.XPSource(source)
		if e.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("xp entry rows: %w", err)
	}
	return entries, nil
}

func (r *PostgresGamificationRepository) TopByXP(ctx context.Context, since *domain.Date, limit int) ([]domain.LeaderboardRow, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if since == nil {
		rows, err = r.conn.Query(ctx, topLifetimeQuery, limit)
	} else {
		rows, err = r.conn.Query(ctx, topWindowQuery, since.Time(), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard: %w", err)
	}
	defer rows.Close()

	out := make([]domain.LeaderboardRow, 0, limit)
	for rows.Next() {
		var (
			row  domain.LeaderboardRow
			rank string
		)
		if err := rows.Scan(&row.UserID, &row.TotalXP, &row.CurrentLevel, &rank); err != nil {
			return nil, fmt.Errorf("leaderboard row parsing: %w", err)
		}
		row.Rank = domain.Rank(rank)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leaderboard rows: %w", err)
	}
	return out, nil
}

func (r *PostgresGamificationRepository) ListActive(ctx context.Context) ([]domain.Achievement, error) {
	rows, err := r.conn.Query(ctx, listActiveQuery)
	if err != nil {
		return nil, fmt.Errorf("listing achievements: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Achievement, 0)
	for rows.Next() {
		var (
			a        domain.Achievement
			category string
			req      []byte
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.Icon, &category, &req, &a.XPReward, &a.IsSecret); err != nil {
			return nil, fmt.Errorf("achievement row parsing: %w", err)
		}
		a.Category = domain.AchievementCategory(category)
		a.IsActive = true
		if a.Requirement, err = domain.DecodeRequirement(a.Category, req); err != nil {
			return nil, fmt.Errorf("achievement %s: %w", a.ID, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("achievement rows: %w", err)
	}
	return out, nil
}

func (r *PostgresGamificationRepository) Upsert(ctx context.Context, a *domain.Achievement) error {
	if err := a.Validate(); err != nil {
		return err
	}
	req, err := domain.EncodeRequirement(a.Requirement)
	if err != nil {
		return err
	}
	_, err = r.conn.Exec(ctx, upsertAchievementQuery,
		a.ID, a.Name, a.Description, a.Icon, string(a.Category), req, a.XPReward, a.IsSecret, a.IsActive)
	if err != nil {
		return fmt.Errorf("upserting achievement: %w", err)
	}
	return nil
}

func (r *PostgresGamificationRepository) UnlockedIDs(ctx context.Context, userID string) (map[string]time.Time, error) {
	rows, err := r.conn.Query(ctx, unlockedIDsQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("listing unlocks: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var (
			id string
			at time.Time
		)
		if err := rows.Scan(&id, &at); err != nil {
			return nil, fmt.Errorf("unlock row parsing: %w", err)
		}
		out[id] = at
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unlock rows: %w", err)
	}
	return out, nil
}

func (r *PostgresGamificationRepository) Unlock(ctx context.Context, ua *domain.UserAchievement) error {
	meta, err := encodeMetadata(ua.Metadata)
	if err != nil {
		return err
	}
	_, err = r.conn.Exec(ctx, unlockQuery, ua.ID, ua.UserID, ua.AchievementID, ua.UnlockedAt, meta)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			// Unique violation
			case "23505":
				return domain.ErrAchievementAlreadyUnlocked
			// FK violation
			case "23503":
				return domain.ErrAchievementNotFound
			}
		}
		return fmt.Errorf("unlocking achievement: %w", err)
	}
	return nil
}

func (r *PostgresGamificationRepository) CountUnlockedSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int
	if err := r.conn.QueryRow(ctx, countUnlockedQuery, userID, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting unlocks: %w", err)
	}
	return n, nil
}

func (r *PostgresGamificationRepository) SaveAvatar(ctx context.Context, s *domain.AvatarMoodState) error {
	_, err := r.conn.Exec(ctx, saveAvatarQuery,
		s.UserID, string(s.CurrentMood), string(s.Pose), s.Score,
		s.Triggers.StreakLength, s.Triggers.CompletionRate, s.Triggers.RecentAchievements, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving avatar: %w", err)
	}
	return nil
}

func (r *PostgresGamificationRepository) GetAvatar(ctx context.Context, userID string) (*domain.AvatarMoodState, error) {
	var (
		s          domain.AvatarMoodState
		mood, pose string
	)
	err := r.conn.QueryRow(ctx, getAvatarQuery, userID).Scan(
		&s.UserID, &mood, &pose, &s.Score,
		&s.Triggers.StreakLength, &s.Triggers.CompletionRate, &s.Triggers.RecentAchievements, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAvatarNotFound
		}
		return nil, fmt.Errorf("getting avatar: %w", err)
	}
	s.CurrentMood = domain.Mood(mood)
	s.Pose = domain.Pose(pose)
	return &s, nil
}

// encodeMetadata returns nil for empty metadata so the column stays NULL.
func encodeMetadata(m map[string]string) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

func decodeMetadata(data []byte) (map[string]string, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return m, nil
}
