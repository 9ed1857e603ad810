package worker

import (
	"context"
	"time"

	"github.com/vytor/studyflow/internal/models"
)

// LogWriter is the part of the log service that background jobs retry.
// It is declared here so this package does not import services.
type LogWriter interface {
	AppendHistory(ctx context.Context, user string, entry models.HistoryEntry) error
	LogAchievement(ctx context.Context, user string, at time.Time, entry models.AchievementEntry) error
}
