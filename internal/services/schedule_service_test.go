package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	apperrors "github.com/vytor/studyflow/internal/errors"
	"github.com/vytor/studyflow/internal/models"
	"github.com/vytor/studyflow/internal/scheduler"
	"github.com/vytor/studyflow/internal/services"
	"github.com/vytor/studyflow/internal/testutil/mocks"
)

var now = time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)

func newScheduleService() (services.ScheduleService, *mocks.MockSubjectRepository, *mocks.MockItemRepository) {
	subjects := new(mocks.MockSubjectRepository)
	items := new(mocks.MockItemRepository)
	engine := scheduler.New(scheduler.DefaultIntervals(), time.UTC)
	return services.NewScheduleService(subjects, items, engine), subjects, items
}

func TestScheduleService_GetNewSuggestions(t *testing.T) {
	svc, subjects, items := newScheduleService()
	ctx := context.Background()

	subjects.On("List", ctx, "u1").Return([]models.Subject{{Code: "ANA", TotalItemCount: 5}, {Code: "BIO", TotalItemCount: 0}}, nil)
	started := models.NewItem("ANA", 1)
	started.Stage = 1
	items.On("List", ctx, "u1").Return([]models.Item{started}, nil)

	got, err := svc.GetNewSuggestions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ANA_2", got[0].ID)
	assert.Equal(t, 0, got[0].Stage)
}

func TestScheduleService_GetDueItems(t *testing.T) {
	svc, _, items := newScheduleService()
	ctx := context.Background()

	due := models.NewItem("ANA", 1)
	due.Stage = 1
	due.NextReviewAt = models.ReviewOn(now.Add(10 * time.Hour))
	later := models.NewItem("ANA", 2)
	later.Stage = 1
	later.NextReviewAt = models.ReviewOn(now.AddDate(0, 0, 2))
	done := models.NewItem("ANA", 3)
	done.Stage = 5
	done.IsCompleted = true
	done.NextReviewAt = models.ReviewCompleted()
	items.On("List", ctx, "u1").Return([]models.Item{later, done, due}, nil)

	got, err := svc.GetDueItems(ctx, "u1", now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ANA_1", got[0].ID)
}

func TestScheduleService_GetDueItems_StoreError(t *testing.T) {
	svc, _, items := newScheduleService()
	ctx := context.Background()
	items.On("List", ctx, "u1").Return(nil, apperrors.NewTransientStoreError("list", errors.New("offline")))

	_, err := svc.GetDueItems(ctx, "u1", now)
	assert.True(t, apperrors.IsTransient(err))
}

func TestScheduleService_ManualSetStage(t *testing.T) {
	svc, _, items := newScheduleService()
	ctx := context.Background()

	items.On("Get", ctx, "u1", "ANA_2").Return(models.NewItem("ANA", 2), false, nil)
	items.On("Save", ctx, "u1", mock.MatchedBy(func(it models.Item) bool {
		return it.ID == "ANA_2" && it.Stage == 3 && !it.IsCompleted
	})).Return(nil)

	got, err := svc.ManualSetStage(ctx, "u1", "ANA", 2, 3, now)
	require.NoError(t, err)
	next, ok := got.NextReviewAt.Time()
	require.True(t, ok)
	assert.True(t, next.Equal(now.AddDate(0, 0, 4)))
	items.AssertExpectations(t)
}

func TestScheduleService_ManualSetStage_ResetClearsScheduling(t *testing.T) {
	svc, _, items := newScheduleService()
	ctx := context.Background()

	stored := models.NewItem("ANA", 1)
	stored.Stage = 2
	stored.LastStudiedAt = &now
	stored.NextReviewAt = models.ReviewOn(now.AddDate(0, 0, 2))
	items.On("Get", ctx, "u1", "ANA_1").Return(stored, true, nil)
	items.On("Save", ctx, "u1", mock.Anything).Return(nil)

	got, err := svc.ManualSetStage(ctx, "u1", "ANA", 1, 0, now)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stage)
	assert.Nil(t, got.LastStudiedAt)
	assert.True(t, got.NextReviewAt.IsZero())
	assert.False(t, got.IsCompleted)
}

func TestScheduleService_ManualSetStage_Validation(t *testing.T) {
	svc, _, _ := newScheduleService()
	ctx := context.Background()

	_, err := svc.ManualSetStage(ctx, "u1", "ANA", 0, 1, now)
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.CodeOf(err))

	_, err = svc.ManualSetStage(ctx, "u1", "ANA", 1, -1, now)
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.CodeOf(err))
}

func TestScheduleService_ResetSubject(t *testing.T) {
	svc, _, items := newScheduleService()
	ctx := context.Background()
	items.On("DeleteBySubject", ctx, "u1", "ANA").Return(4, nil)

	n, err := svc.ResetSubject(ctx, "u1", "ANA")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = svc.ResetSubject(ctx, "u1", "AN_A")
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.CodeOf(err))
}

func TestScheduleService_SaveSubject(t *testing.T) {
	svc, subjects, _ := newScheduleService()
	ctx := context.Background()
	subjects.On("Save", ctx, "u1", models.Subject{Code: "ANA", TotalItemCount: 5}).Return(nil)

	require.NoError(t, svc.SaveSubject(ctx, "u1", models.Subject{Code: " ANA ", TotalItemCount: 5}))

	tests := []models.Subject{
		{Code: "", TotalItemCount: 1},
		{Code: "A_B", TotalItemCount: 1},
		{Code: "ANA", TotalItemCount: -1},
	}
	for _, subject := range tests {
		err := svc.SaveSubject(ctx, "u1", subject)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.CodeOf(err), "%+v", subject)
	}
	subjects.AssertNumberOfCalls(t, "Save", 1)
}

func TestScheduleService_CreateTask(t *testing.T) {
	svc, _, items := newScheduleService()
	ctx := context.Background()
	items.On("Save", ctx, "u1", mock.MatchedBy(func(it models.Item) bool {
		return it.Kind == models.KindTask && it.Title == "Read chapter 3"
	})).Return(nil)

	item, err := svc.CreateTask(ctx, "u1", services.TaskInput{Title: "  Read chapter 3 ", Difficulty: "easy"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(item.ID, "task-"))
	assert.False(t, item.Recurring())

	_, err = svc.CreateTask(ctx, "u1", services.TaskInput{Title: " "})
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.CodeOf(err))

	_, err = svc.CreateTask(ctx, "u1", services.TaskInput{Title: "x", Difficulty: "brutal"})
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.CodeOf(err))
}

func TestScheduleService_ResolveItems(t *testing.T) {
	svc, _, items := newScheduleService()
	ctx := context.Background()
	items.On("Get", ctx, "u1", "ANA_1").Return(models.NewItem("ANA", 1), false, nil).Once()
	items.On("Get", ctx, "u1", "BIO_2").Return(models.NewItem("BIO", 2), false, nil).Once()

	got, err := svc.ResolveItems(ctx, "u1", []string{"ANA_1", "BIO_2", "ANA_1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ANA_1", got[0].ID)
	assert.Equal(t, "BIO_2", got[1].ID)
	items.AssertExpectations(t)
}
