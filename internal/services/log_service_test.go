package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	apperrors "github.com/vytor/studyflow/internal/errors"
	"github.com/vytor/studyflow/internal/models"
	"github.com/vytor/studyflow/internal/services"
	"github.com/vytor/studyflow/internal/testutil/mocks"
)

func TestLogService_AppendHistoryAssignsID(t *testing.T) {
	history := new(mocks.MockHistoryRepository)
	svc := services.NewLogService(history, new(mocks.MockAchievementRepository), nil)
	ctx := context.Background()

	history.On("Append", ctx, "u1", mock.MatchedBy(func(e models.HistoryEntry) bool {
		return e.ID != "" && e.ItemID == "ANA_1" && e.StageCompleted == 0
	})).Return(nil)

	require.NoError(t, svc.AppendHistory(ctx, "u1", models.HistoryEntry{ItemID: "ANA_1", CompletedAt: now}))
	history.AssertExpectations(t)
}

func TestLogService_LogAchievementUsesLocalDay(t *testing.T) {
	achievements := new(mocks.MockAchievementRepository)
	tokyo := time.FixedZone("JST", 9*60*60)
	svc := services.NewLogService(new(mocks.MockHistoryRepository), achievements, tokyo)
	ctx := context.Background()

	// 20:00 UTC on the 10th is already the 11th in JST.
	at := time.Date(2025, 5, 10, 20, 0, 0, 0, time.UTC)
	achievements.On("Append", ctx, "u1", "2025-05-11", mock.MatchedBy(func(e models.AchievementEntry) bool {
		return e.ID != "" && e.Timestamp.Equal(at) && e.Type == models.AchievementStudy
	})).Return(nil)

	require.NoError(t, svc.LogAchievement(ctx, "u1", at, models.AchievementEntry{Type: models.AchievementStudy}))
	achievements.AssertExpectations(t)
}

func TestLogService_GetMonthAchievements(t *testing.T) {
	achievements := new(mocks.MockAchievementRepository)
	svc := services.NewLogService(new(mocks.MockHistoryRepository), achievements, time.UTC)
	ctx := context.Background()

	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	days := map[string]models.DayLog{"2024-02-29": {Date: "2024-02-29"}}
	achievements.On("Range", ctx, "u1", from, to, time.UTC).Return(days, nil)

	got, err := svc.GetMonthAchievements(ctx, "u1", 2024, 2)
	require.NoError(t, err)
	assert.Equal(t, days, got)

	_, err = svc.GetMonthAchievements(ctx, "u1", 2024, 13)
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.CodeOf(err))
}

func TestLogService_GetHistory(t *testing.T) {
	history := new(mocks.MockHistoryRepository)
	svc := services.NewLogService(history, new(mocks.MockAchievementRepository), nil)
	ctx := context.Background()

	entries := []models.HistoryEntry{{ID: "h2"}, {ID: "h1"}}
	history.On("List", ctx, "u1").Return(entries, nil)

	got, err := svc.GetHistory(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, entries, got)
	assert.Equal(t, time.UTC, svc.Location())
}
