package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/comitanigiacomo/kanso-progress-engine/internal/core/domain"
)

type MockDayLogRepo struct {
	mock.Mock
}

func (m *MockDayLogRepo) GetRange(ctx context.Context, start, end domain.Date, userID string) ([]domain.RawDayLog, error) {
	args := m.Called(ctx, start, end, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RawDayLog), args.Error(1)
}

func (m *MockDayLogRepo) GetDay(ctx context.Context, date domain.Date, userID string) (*domain.RawDayLog, error) {
	args := m.Called(ctx, date, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RawDayLog), args.Error(1)
}

type MockBodyRepo struct {
	mock.Mock
}

func (m *MockBodyRepo) ListRecentWeights(ctx context.Context, userID string, limit int) ([]domain.WeightEntry, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.WeightEntry), args.Error(1)
}

func (m *MockBodyRepo) ListFasts(ctx context.Context, userID string, start, end domain.Date) ([]domain.FastingEntry, error) {
	args := m.Called(ctx, userID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FastingEntry), args.Error(1)
}

type MockLevelRepo struct {
	mock.Mock
}

func (m *MockLevelRepo) AddXP(ctx context.Context, entry *domain.XPEntry) (int, int, error) {
	args := m.Called(ctx, entry)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *MockLevelRepo) SaveLevel(ctx context.Context, level *domain.UserLevel) error {
	args := m.Called(ctx, level)
	return args.Error(0)
}

func (m *MockLevelRepo) GetLevel(ctx context.Context, userID string) (*domain.UserLevel, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserLevel), args.Error(1)
}

func (m *MockLevelRepo) ListEntries(ctx context.Context, userID string, start, end domain.Date) ([]domain.XPEntry, error) {
	args := m.Called(ctx, userID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.XPEntry), args.Error(1)
}

type MockAchievementRepo struct {
	mock.Mock
}

func (m *MockAchievementRepo) ListActive(ctx context.Context) ([]domain.Achievement, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Achievement), args.Error(1)
}

func (m *MockAchievementRepo) UnlockedIDs(ctx context.Context, userID string) (map[string]time.Time, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]time.Time), args.Error(1)
}

func (m *MockAchievementRepo) Unlock(ctx context.Context, ua *domain.UserAchievement) error {
	args := m.Called(ctx, ua)
	return args.Error(0)
}

func (m *MockAchievementRepo) CountUnlockedSince(ctx context.Context, userID string, since time.Time) (int, error) {
	args := m.Called(ctx, userID, since)
	return args.Int(0), args.Error(1)
}

func (m *MockAchievementRepo) Upsert(ctx context.Context, a *domain.Achievement) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

type MockLeaderboardRepo struct {
	mock.Mock
}

func (m *MockLeaderboardRepo) TopByXP(ctx context.Context, since *domain.Date, limit int) ([]domain.LeaderboardRow, error) {
	args := m.Called(ctx, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LeaderboardRow), args.Error(1)
}

type MockAvatarRepo struct {
	mock.Mock
}

func (m *MockAvatarRepo) SaveAvatar(ctx context.Context, state *domain.AvatarMoodState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *MockAvatarRepo) GetAvatar(ctx context.Context, userID string) (*domain.AvatarMoodState, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AvatarMoodState), args.Error(1)
}

type MockExportStorage struct {
	mock.Mock
}

func (m *MockExportStorage) Save(ctx context.Context, filename string, content []byte) (string, error) {
	args := m.Called(ctx, filename, content)
	return args.String(0), args.Error(1)
}

type MockXPAwarder struct {
	mock.Mock
}

func (m *MockXPAwarder) AwardAchievement(ctx context.Context, userID string, a domain.Achievement, date domain.Date) (domain.LevelUpdate, error) {
	args := m.Called(ctx, userID, a, date)
	return args.Get(0).(domain.LevelUpdate), args.Error(1)
}

func (m *MockXPAwarder) AchievementRewards(ctx context.Context, userID string, start, end domain.Date) (map[string]bool, error) {
	args := m.Called(ctx, userID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

// MockBatchDayLogRepo adds the single-query batch read to MockDayLogRepo.
type MockBatchDayLogRepo struct {
	MockDayLogRepo
}

func (m *MockBatchDayLogRepo) GetRangeForUsers(ctx context.Context, start, end domain.Date, userIDs []string) (map[string][]domain.RawDayLog, error) {
	args := m.Called(ctx, start, end, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]domain.RawDayLog), args.Error(1)
}

type MockDayLogWriter struct {
	mock.Mock
}

func (m *MockDayLogWriter) SaveDay(ctx context.Context, log *domain.RawDayLog) error {
	return m.Called(ctx, log).Error(0)
}

type MockBodyWriter struct {
	mock.Mock
}

func (m *MockBodyWriter) AddWeight(ctx context.Context, w *domain.WeightEntry) error {
	return m.Called(ctx, w).Error(0)
}

func (m *MockBodyWriter) AddFast(ctx context.Context, f *domain.FastingEntry) error {
	return m.Called(ctx, f).Error(0)
}

type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) Enqueue(userID string, date domain.Date) bool {
	return m.Called(userID, date).Bool(0)
}
