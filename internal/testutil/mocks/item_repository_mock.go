package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/studyflow/internal/models"
)

// MockItemRepository is a mock implementation of repository.ItemRepository
type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) Get(ctx context.Context, user, id string) (models.Item, bool, error) {
	args := m.Called(ctx, user, id)
	return args.Get(0).(models.Item), args.Bool(1), args.Error(2)
}

func (m *MockItemRepository) List(ctx context.Context, user string) ([]models.Item, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Item), args.Error(1)
}

func (m *MockItemRepository) ListBySubject(ctx context.Context, user, subject string) ([]models.Item, error) {
	args := m.Called(ctx, user, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Item), args.Error(1)
}

func (m *MockItemRepository) Save(ctx context.Context, user string, item models.Item) error {
	args := m.Called(ctx, user, item)
	return args.Error(0)
}

func (m *MockItemRepository) Delete(ctx context.Context, user, id string) error {
	args := m.Called(ctx, user, id)
	return args.Error(0)
}

func (m *MockItemRepository) DeleteBySubject(ctx context.Context, user, subject string) (int, error) {
	args := m.Called(ctx, user, subject)
	return args.Int(0), args.Error(1)
}
