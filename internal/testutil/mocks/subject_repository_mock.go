package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/studyflow/internal/models"
)

// MockSubjectRepository is a mock implementation of repository.SubjectRepository
type MockSubjectRepository struct {
	mock.Mock
}

func (m *MockSubjectRepository) Get(ctx context.Context, user, code string) (*models.Subject, error) {
	args := m.Called(ctx, user, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subject), args.Error(1)
}

func (m *MockSubjectRepository) List(ctx context.Context, user string) ([]models.Subject, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Subject), args.Error(1)
}

func (m *MockSubjectRepository) Save(ctx context.Context, user string, subject models.Subject) error {
	args := m.Called(ctx, user, subject)
	return args.Error(0)
}

func (m *MockSubjectRepository) Delete(ctx context.Context, user, code string) error {
	args := m.Called(ctx, user, code)
	return args.Error(0)
}
