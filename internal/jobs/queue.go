package jobs

import (
	"time"

	"github.com/vytor/studyflow/internal/models"
)

// JobQueue provides an abstraction for enqueueing background retries of
// log writes that failed inline
type JobQueue interface {
	EnqueueHistory(user string, entry models.HistoryEntry) error
	EnqueueAchievement(user string, at time.Time, entry models.AchievementEntry) error
}
