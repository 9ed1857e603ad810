package jobs_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vytor/studyflow/internal/jobs"
	"github.com/vytor/studyflow/internal/models"
	"github.com/vytor/studyflow/internal/testutil/mocks"
	"github.com/vytor/studyflow/internal/worker"
)

func TestWorkerQueue_RunsLogRetries(t *testing.T) {
	writer := new(mocks.MockLogService)
	at := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
	history := models.HistoryEntry{ID: "h1", ItemID: "ANA_1"}
	achievement := models.AchievementEntry{ID: "a1", Type: models.AchievementStudy}
	writer.On("AppendHistory", mock.Anything, "u1", history).Return(nil).Once()
	writer.On("LogAchievement", mock.Anything, "u1", at, achievement).Return(nil).Once()

	pool := worker.NewPool(1, 4)
	pool.Start(context.Background())
	queue := jobs.NewWorkerQueue(pool, writer, worker.RetryPolicy{Attempts: 2, Delay: time.Millisecond})

	require.NoError(t, queue.EnqueueHistory("u1", history))
	require.NoError(t, queue.EnqueueAchievement("u1", at, achievement))
	pool.Stop()

	writer.AssertExpectations(t)
}

func TestWorkerQueue_StoppedPool(t *testing.T) {
	pool := worker.NewPool(1, 1)
	pool.Stop()
	queue := jobs.NewWorkerQueue(pool, new(mocks.MockLogService), worker.DefaultRetryPolicy)

	assert.ErrorIs(t, queue.EnqueueHistory("u1", models.HistoryEntry{ID: "h1"}), worker.ErrStopped)
}
