package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/studyflow/internal/errors"
	"github.com/vytor/studyflow/internal/logger"
	"github.com/vytor/studyflow/internal/models"
	"github.com/vytor/studyflow/internal/repository"
)

// LogService writes and reads the history and achievement logs
type LogService interface {
	AppendHistory(ctx context.Context, user string, entry models.HistoryEntry) error
	LogAchievement(ctx context.Context, user string, at time.Time, entry models.AchievementEntry) error
	GetHistory(ctx context.Context, user string) ([]models.HistoryEntry, error)
	GetMonthAchievements(ctx context.Context, user string, year, month int) (map[string]models.DayLog, error)
	Location() *time.Location
}

type logService struct {
	history      repository.HistoryRepository
	achievements repository.AchievementRepository
	loc          *time.Location
}

// NewLogService creates a new LogService. Day buckets are keyed in loc.
func NewLogService(history repository.HistoryRepository, achievements repository.AchievementRepository, loc *time.Location) LogService {
	if loc == nil {
		loc = time.UTC
	}
	return &logService{history: history, achievements: achievements, loc: loc}
}

func (s *logService) Location() *time.Location { return s.loc }

// AppendHistory stores entry, assigning an id when it has none. Calling it
// twice for the same completion records two entries.
func (s *logService) AppendHistory(ctx context.Context, user string, entry models.HistoryEntry) error {
	log := logger.FromContext(ctx)
	log.Debug("appending history: item_id=%s, stage_completed=%d", entry.ItemID, entry.StageCompleted)

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if err := s.history.Append(ctx, user, entry); err != nil {
		log.Error("failed to append history: %v", err)
		return err
	}
	return nil
}

// LogAchievement appends entry to the day bucket containing at.
func (s *logService) LogAchievement(ctx context.Context, user string, at time.Time, entry models.AchievementEntry) error {
	log := logger.FromContext(ctx)
	key := models.DateKey(at, s.loc)
	log.Debug("logging achievement: date=%s, type=%s", key, entry.Type)

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = at
	}
	if err := s.achievements.Append(ctx, user, key, entry); err != nil {
		log.Error("failed to log achievement: %v", err)
		return err
	}
	return nil
}

func (s *logService) GetHistory(ctx context.Context, user string) ([]models.HistoryEntry, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting history: user=%s", user)

	entries, err := s.history.List(ctx, user)
	if err != nil {
		log.Error("failed to list history: %v", err)
		return nil, err
	}
	return entries, nil
}

// GetMonthAchievements returns the buckets of every day in the month that has
// one. Days without entries are omitted.
func (s *logService) GetMonthAchievements(ctx context.Context, user string, year, month int) (map[string]models.DayLog, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting month achievements: year=%d, month=%d", year, month)

	if month < 1 || month > 12 {
		return nil, errors.NewValidationError("month", "must be between 1 and 12")
	}
	if year < 1 {
		return nil, errors.NewValidationError("year", "must be positive")
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.loc)
	last := first.AddDate(0, 1, -1)
	days, err := s.achievements.Range(ctx, user, first, last, s.loc)
	if err != nil {
		log.Error("failed to read achievements: %v", err)
		return nil, err
	}
	log.Debug("found %d days with achievements", len(days))
	return days, nil
}
