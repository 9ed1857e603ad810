package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/studyflow/internal/models"
)

// MockLogService is a mock implementation of services.LogService
type MockLogService struct {
	mock.Mock
}

func (m *MockLogService) AppendHistory(ctx context.Context, user string, entry models.HistoryEntry) error {
	args := m.Called(ctx, user, entry)
	return args.Error(0)
}

func (m *MockLogService) LogAchievement(ctx context.Context, user string, at time.Time, entry models.AchievementEntry) error {
	args := m.Called(ctx, user, at, entry)
	return args.Error(0)
}

func (m *MockLogService) GetHistory(ctx context.Context, user string) ([]models.HistoryEntry, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.HistoryEntry), args.Error(1)
}

func (m *MockLogService) GetMonthAchievements(ctx context.Context, user string, year, month int) (map[string]models.DayLog, error) {
	args := m.Called(ctx, user, year, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.DayLog), args.Error(1)
}

func (m *MockLogService) Location() *time.Location {
	args := m.Called()
	if loc, ok := args.Get(0).(*time.Location); ok {
		return loc
	}
	return time.UTC
}
