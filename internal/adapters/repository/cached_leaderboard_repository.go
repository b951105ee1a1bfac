package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/adapters/cache"
	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
)

var (
	_ domain.LeaderboardRepository = (*CachedLeaderboardRepository)(nil)
	_ domain.LevelRepository       = (*CachedLeaderboardRepository)(nil)
)

const leaderboardGenKey = "leaderboard:gen"

// CachedLeaderboardRepository serves TopByXP from Redis. Level writes go
// through it so that every XP change bumps the key generation and the next
// read misses.
type CachedLeaderboardRepository struct {
	board  domain.LeaderboardRepository
	levels domain.LevelRepository
	cache  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedLeaderboardRepository(board domain.LeaderboardRepository, levels domain.LevelRepository, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedLeaderboardRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedLeaderboardRepository{
		board:  board,
		levels: levels,
		cache:  rdb,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *CachedLeaderboardRepository) cacheKey(gen int64, since *domain.Date, limit int) string {
	window := "all"
	if since != nil {
		window = since.String()
	}
	return fmt.Sprintf("leaderboard:%d:%s:%d", gen, window, limit)
}

func (r *CachedLeaderboardRepository) invalidate(ctx context.Context) {
	if err := cache.Bump(ctx, r.cache, leaderboardGenKey); err != nil {
		r.logger.Warn("leaderboard cache invalidation failed", zap.Error(err))
	}
}

func (r *CachedLeaderboardRepository) TopByXP(ctx context.Context, since *domain.Date, limit int) ([]domain.LeaderboardRow, error) {
	gen, err := cache.Generation(ctx, r.cache, leaderboardGenKey)
	if err != nil {
		r.logger.Warn("redis read error, bypassing leaderboard cache", zap.Error(err))
		return r.board.TopByXP(ctx, since, limit)
	}
	key := r.cacheKey(gen, since, limit)

	val, err := r.cache.Get(ctx, key).Bytes()
	if err == nil {
		var rows []domain.LeaderboardRow
		if err := json.Unmarshal(val, &rows); err == nil {
			return rows, nil
		}

		r.logger.Warn("corrupted leaderboard cache entry, cleaning up", zap.String("key", key))
		r.cache.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		r.logger.Warn("redis read error", zap.Error(err))
	}

	rows, err := r.board.TopByXP(ctx, since, limit)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(rows); err == nil {
		if setErr := r.cache.Set(ctx, key, data, r.ttl).Err(); setErr != nil {
			r.logger.Warn("redis set error", zap.Error(setErr))
		}
	}

	return rows, nil
}

func (r *CachedLeaderboardRepository) AddXP(ctx context.Context, entry *domain.XPEntry) (int, int, error) {
	prev, next, err := r.levels.AddXP(ctx, entry)
	if err != nil {
		return prev, next, err
	}
	r.invalidate(ctx)
	return prev, next, nil
}

func (r *CachedLeaderboardRepository) SaveLevel(ctx context.Context, level *domain.UserLevel) error {
	if err := r.levels.SaveLevel(ctx, level); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *CachedLeaderboardRepository) GetLevel(ctx context.Context, userID string) (*domain.UserLevel, error) {
	return r.levels.GetLevel(ctx, userID)
}

func (r *CachedLeaderboardRepository) ListEntries(ctx context.Context, userID string, start, end domain.Date) ([]domain.XPEntry, error) {
	return r.levels.ListEntries(ctx, userID, start, end)
}
