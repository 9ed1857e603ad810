package jobs

import (
	"time"

	"github.com/vytor/studyflow/internal/models"
	"github.com/vytor/studyflow/internal/worker"
)

// WorkerQueue implements JobQueue using a worker pool
type WorkerQueue struct {
	pool   *worker.Pool
	writer worker.LogWriter
	policy worker.RetryPolicy
}

// NewWorkerQueue creates a new WorkerQueue implementation
func NewWorkerQueue(pool *worker.Pool, writer worker.LogWriter, policy worker.RetryPolicy) JobQueue {
	return &WorkerQueue{pool: pool, writer: writer, policy: policy}
}

func (q *WorkerQueue) EnqueueHistory(user string, entry models.HistoryEntry) error {
	return q.pool.Submit(&worker.HistoryJob{
		Writer: q.writer,
		Policy: q.policy,
		User:   user,
		Entry:  entry,
	})
}

func (q *WorkerQueue) EnqueueAchievement(user string, at time.Time, entry models.AchievementEntry) error {
	return q.pool.Submit(&worker.AchievementJob{
		Writer: q.writer,
		Policy: q.policy,
		User:   user,
		At:     at,
		Entry:  entry,
	})
}
