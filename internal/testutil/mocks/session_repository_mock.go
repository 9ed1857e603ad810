package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/studyflow/internal/models"
)

// MockSessionRepository is a mock implementation of repository.SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Get(ctx context.Context, user, sessionType string) (*models.FocusSession, error) {
	args := m.Called(ctx, user, sessionType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FocusSession), args.Error(1)
}

func (m *MockSessionRepository) Save(ctx context.Context, user string, session models.FocusSession) error {
	args := m.Called(ctx, user, session)
	return args.Error(0)
}

func (m *MockSessionRepository) Delete(ctx context.Context, user, sessionType string) error {
	args := m.Called(ctx, user, sessionType)
	return args.Error(0)
}

// Subscribe delivers the session configured as the first return value, if
// any, before handing back the unsubscribe func.
func (m *MockSessionRepository) Subscribe(ctx context.Context, user, sessionType string, fn func(*models.FocusSession)) (func(), error) {
	args := m.Called(ctx, user, sessionType, fn)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	if initial, ok := args.Get(0).(*models.FocusSession); ok {
		fn(initial)
	} else {
		fn(nil)
	}
	return func() {}, nil
}
