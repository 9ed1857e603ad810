package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/studyflow/internal/models"
)

// MockHistoryRepository is a mock implementation of repository.HistoryRepository
type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Append(ctx context.Context, user string, entry models.HistoryEntry) error {
	args := m.Called(ctx, user, entry)
	return args.Error(0)
}

func (m *MockHistoryRepository) List(ctx context.Context, user string) ([]models.HistoryEntry, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.HistoryEntry), args.Error(1)
}

// MockAchievementRepository is a mock implementation of repository.AchievementRepository
type MockAchievementRepository struct {
	mock.Mock
}

func (m *MockAchievementRepository) Append(ctx context.Context, user, dateKey string, entry models.AchievementEntry) error {
	args := m.Called(ctx, user, dateKey, entry)
	return args.Error(0)
}

func (m *MockAchievementRepository) Day(ctx context.Context, user, dateKey string) (*models.DayLog, error) {
	args := m.Called(ctx, user, dateKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DayLog), args.Error(1)
}

func (m *MockAchievementRepository) Range(ctx context.Context, user string, from, to time.Time, loc *time.Location) (map[string]models.DayLog, error) {
	args := m.Called(ctx, user, from, to, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.DayLog), args.Error(1)
}
