package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/studyflow/internal/models"
)

// MockJobQueue is a mock implementation of jobs.JobQueue
type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) EnqueueHistory(user string, entry models.HistoryEntry) error {
	args := m.Called(user, entry)
	return args.Error(0)
}

func (m *MockJobQueue) EnqueueAchievement(user string, at time.Time, entry models.AchievementEntry) error {
	args := m.Called(user, at, entry)
	return args.Error(0)
}
