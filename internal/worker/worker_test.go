package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	apperrors "github.com/vytor/studyflow/internal/errors"
	"github.com/vytor/studyflow/internal/models"
	"github.com/vytor/studyflow/internal/testutil/mocks"
	"github.com/vytor/studyflow/internal/worker"
)

var fast = worker.RetryPolicy{Attempts: 3, Delay: time.Millisecond}

func transient() error {
	return apperrors.NewTransientStoreError("set", errors.New("database is locked"))
}

func TestPool_RunsSubmittedJobs(t *testing.T) {
	pool := worker.NewPool(2, 8)
	pool.Start(context.Background())

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Submit(worker.FuncJob{Label: "count", Fn: func(context.Context) error {
			ran.Add(1)
			return nil
		}}))
	}
	pool.Stop()

	assert.Equal(t, int32(5), ran.Load())
}

func TestPool_SubmitAfterStop(t *testing.T) {
	pool := worker.NewPool(1, 1)
	pool.Start(context.Background())
	pool.Stop()
	pool.Stop()

	err := pool.Submit(worker.FuncJob{Label: "late", Fn: func(context.Context) error { return nil }})
	assert.ErrorIs(t, err, worker.ErrStopped)
}

func TestPool_SubmitWhenFull(t *testing.T) {
	pool := worker.NewPool(1, 1)
	noop := worker.FuncJob{Label: "noop", Fn: func(context.Context) error { return nil }}

	// Not started: the single slot fills and stays full.
	require.NoError(t, pool.Submit(noop))
	assert.ErrorIs(t, pool.Submit(noop), worker.ErrQueueFull)
	assert.Equal(t, 1, pool.QueueSize())
}

func TestRetry_RetriesTransientErrors(t *testing.T) {
	calls := 0
	err := worker.Retry(context.Background(), fast, func(context.Context) error {
		calls++
		if calls < 3 {
			return transient()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_GivesUpAfterAttempts(t *testing.T) {
	calls := 0
	err := worker.Retry(context.Background(), fast, func(context.Context) error {
		calls++
		return transient()
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsTransient(err))
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := worker.Retry(context.Background(), fast, func(context.Context) error {
		calls++
		return apperrors.NewInvariantViolation("item %s is not queued", "ANA_1")
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsInvariantViolation(err))
	assert.Equal(t, 1, calls)
}

func TestHistoryJob_RetriesUntilWritten(t *testing.T) {
	writer := new(mocks.MockLogService)
	entry := models.HistoryEntry{ID: "h1", ItemID: "ANA_1"}
	writer.On("AppendHistory", mock.Anything, "u1", entry).Return(transient()).Once()
	writer.On("AppendHistory", mock.Anything, "u1", entry).Return(nil).Once()

	job := &worker.HistoryJob{Writer: writer, Policy: fast, User: "u1", Entry: entry}
	assert.Equal(t, "append_history", job.Name())
	require.NoError(t, job.Run(context.Background()))
	writer.AssertExpectations(t)
}

func TestAchievementJob_Run(t *testing.T) {
	writer := new(mocks.MockLogService)
	at := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
	entry := models.AchievementEntry{ID: "a1", Type: models.AchievementStudy}
	writer.On("LogAchievement", mock.Anything, "u1", at, entry).Return(nil).Once()

	job := &worker.AchievementJob{Writer: writer, Policy: fast, User: "u1", At: at, Entry: entry}
	require.NoError(t, job.Run(context.Background()))
	writer.AssertExpectations(t)
}
