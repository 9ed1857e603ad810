package repository

import (
	"context"
	"time"

	"github.com/vytor/studyflow/internal/models"
)

// SubjectRepository handles subject configuration
type SubjectRepository interface {
	Get(ctx context.Context, user, code string) (*models.Subject, error)
	List(ctx context.Context, user string) ([]models.Subject, error)
	Save(ctx context.Context, user string, subject models.Subject) error
	Delete(ctx context.Context, user, code string) error
}

// ItemRepository handles item records. Get never reports a missing review
// item: an absent record comes back as the stage 0 default.
type ItemRepository interface {
	Get(ctx context.Context, user, id string) (models.Item, bool, error)
	List(ctx context.Context, user string) ([]models.Item, error)
	ListBySubject(ctx context.Context, user, subject string) ([]models.Item, error)
	Save(ctx context.Context, user string, item models.Item) error
	Delete(ctx context.Context, user, id string) error
	DeleteBySubject(ctx context.Context, user, subject string) (int, error)
}

// HistoryRepository handles the append-only completion log
type HistoryRepository interface {
	Append(ctx context.Context, user string, entry models.HistoryEntry) error
	List(ctx context.Context, user string) ([]models.HistoryEntry, error)
}

// AchievementRepository handles per-day achievement buckets
type AchievementRepository interface {
	Append(ctx context.Context, user, dateKey string, entry models.AchievementEntry) error
	Day(ctx context.Context, user, dateKey string) (*models.DayLog, error)
	Range(ctx context.Context, user string, from, to time.Time, loc *time.Location) (map[string]models.DayLog, error)
}

// SessionRepository handles the single live focus session per session type
type SessionRepository interface {
	Get(ctx context.Context, user, sessionType string) (*models.FocusSession, error)
	Save(ctx context.Context, user string, session models.FocusSession) error
	Delete(ctx context.Context, user, sessionType string) error
	Subscribe(ctx context.Context, user, sessionType string, fn func(*models.FocusSession)) (func(), error)
}
