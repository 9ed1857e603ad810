package worker

import (
	"context"
	"time"

	"github.com/vytor/studyflow/internal/logger"
	"github.com/vytor/studyflow/internal/models"
)

// HistoryJob re-appends a history entry whose first write failed. The entry
// keeps its id, so a write that did land is overwritten rather than doubled.
type HistoryJob struct {
	Writer LogWriter
	Policy RetryPolicy
	User   string
	Entry  models.HistoryEntry
}

func (j *HistoryJob) Name() string { return "append_history" }

func (j *HistoryJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithFields(map[string]any{
		"user_id": j.User,
		"item_id": j.Entry.ItemID,
	})
	log.Debug("retrying history append: entry_id=%s", j.Entry.ID)

	return Retry(ctx, j.Policy, func(ctx context.Context) error {
		return j.Writer.AppendHistory(ctx, j.User, j.Entry)
	})
}

// AchievementJob re-appends an achievement entry whose first write failed.
type AchievementJob struct {
	Writer LogWriter
	Policy RetryPolicy
	User   string
	At     time.Time
	Entry  models.AchievementEntry
}

func (j *AchievementJob) Name() string { return "log_achievement" }

func (j *AchievementJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithFields(map[string]any{
		"user_id": j.User,
		"type":    string(j.Entry.Type),
	})
	log.Debug("retrying achievement append: entry_id=%s", j.Entry.ID)

	return Retry(ctx, j.Policy, func(ctx context.Context) error {
		return j.Writer.LogAchievement(ctx, j.User, j.At, j.Entry)
	})
}

// FuncJob adapts a plain function to Job.
type FuncJob struct {
	Label string
	Fn    func(context.Context) error
}

func (j FuncJob) Name() string { return j.Label }

func (j FuncJob) Run(ctx context.Context) error { return j.Fn(ctx) }
