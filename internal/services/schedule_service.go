package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/studyflow/internal/errors"
	"github.com/vytor/studyflow/internal/logger"
	"github.com/vytor/studyflow/internal/models"
	"github.com/vytor/studyflow/internal/repository"
	"github.com/vytor/studyflow/internal/scheduler"
)

// ScheduleService handles subjects, items and the scheduling reads built on them
type ScheduleService interface {
	ListSubjects(ctx context.Context, user string) ([]models.Subject, error)
	SaveSubject(ctx context.Context, user string, subject models.Subject) error
	DeleteSubject(ctx context.Context, user, code string) error
	ResetSubject(ctx context.Context, user, code string) (int, error)

	GetItem(ctx context.Context, user, subject string, ordinal int) (models.Item, error)
	GetDueItems(ctx context.Context, user string, now time.Time) ([]models.Item, error)
	GetNewSuggestions(ctx context.Context, user string) ([]models.Item, error)
	ManualSetStage(ctx context.Context, user, subject string, ordinal, stage int, now time.Time) (models.Item, error)
	CreateTask(ctx context.Context, user string, task TaskInput) (models.Item, error)
	ResolveItems(ctx context.Context, user string, ids []string) ([]models.Item, error)

	Engine() scheduler.Engine
}

// TaskInput describes a one-off task.
type TaskInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Difficulty  string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

type scheduleService struct {
	subjects repository.SubjectRepository
	items    repository.ItemRepository
	engine   scheduler.Engine
}

// NewScheduleService creates a new ScheduleService
func NewScheduleService(subjects repository.SubjectRepository, items repository.ItemRepository, engine scheduler.Engine) ScheduleService {
	return &scheduleService{subjects: subjects, items: items, engine: engine}
}

func (s *scheduleService) Engine() scheduler.Engine { return s.engine }

func (s *scheduleService) ListSubjects(ctx context.Context, user string) ([]models.Subject, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing subjects: user=%s", user)

	subjects, err := s.subjects.List(ctx, user)
	if err != nil {
		log.Error("failed to list subjects: %v", err)
		return nil, err
	}
	return subjects, nil
}

func (s *scheduleService) SaveSubject(ctx context.Context, user string, subject models.Subject) error {
	log := logger.FromContext(ctx)
	log.Debug("saving subject: code=%s", subject.Code)

	subject.Code = strings.TrimSpace(subject.Code)
	if err := ValidateStruct(subject); err != nil {
		log.Warn("invalid subject: %v", err)
		return err
	}
	if err := s.subjects.Save(ctx, user, subject); err != nil {
		log.Error("failed to save subject: %v", err)
		return err
	}
	return nil
}

// DeleteSubject removes the subject configuration. Its items are kept.
func (s *scheduleService) DeleteSubject(ctx context.Context, user, code string) error {
	log := logger.FromContext(ctx)
	log.Debug("deleting subject: code=%s", code)

	if err := s.subjects.Delete(ctx, user, code); err != nil {
		log.Error("failed to delete subject: %v", err)
		return err
	}
	return nil
}

// ResetSubject deletes every stored item of the subject.
func (s *scheduleService) ResetSubject(ctx context.Context, user, code string) (int, error) {
	log := logger.FromContext(ctx)
	log.Info("resetting subject: code=%s", code)

	if code == "" || strings.ContainsAny(code, "_/") {
		return 0, errors.NewValidationError("code", "must be a subject code")
	}
	n, err := s.items.DeleteBySubject(ctx, user, code)
	if err != nil {
		log.Error("failed to reset subject: %v", err)
		return 0, err
	}
	return n, nil
}

func (s *scheduleService) GetItem(ctx context.Context, user, subject string, ordinal int) (models.Item, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting item: subject=%s, ordinal=%d", subject, ordinal)

	if ordinal < 1 {
		return models.Item{}, errors.NewValidationError("ordinal", "must be at least 1")
	}
	item, _, err := s.items.Get(ctx, user, models.ItemID(subject, ordinal))
	if err != nil {
		log.Error("failed to get item: %v", err)
		return models.Item{}, err
	}
	return item, nil
}

// GetDueItems returns the items due by the end of now's day, earliest first.
func (s *scheduleService) GetDueItems(ctx context.Context, user string, now time.Time) ([]models.Item, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting due items: user=%s", user)

	items, err := s.items.List(ctx, user)
	if err != nil {
		log.Error("failed to list items: %v", err)
		return nil, err
	}
	due := s.engine.SelectDue(items, now)
	log.Debug("found %d due items out of %d", len(due), len(items))
	return due, nil
}

// GetNewSuggestions returns at most one unstarted item per subject.
func (s *scheduleService) GetNewSuggestions(ctx context.Context, user string) ([]models.Item, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting new suggestions: user=%s", user)

	subjects, err := s.subjects.List(ctx, user)
	if err != nil {
		log.Error("failed to list subjects: %v", err)
		return nil, err
	}
	items, err := s.items.List(ctx, user)
	if err != nil {
		log.Error("failed to list items: %v", err)
		return nil, err
	}
	return scheduler.SelectNewSuggestions(subjects, items), nil
}

// ManualSetStage corrects an item's stage without recording a completion.
func (s *scheduleService) ManualSetStage(ctx context.Context, user, subject string, ordinal, stage int, now time.Time) (models.Item, error) {
	log := logger.FromContext(ctx)
	log.Info("setting stage manually: subject=%s, ordinal=%d, stage=%d", subject, ordinal, stage)

	if ordinal < 1 {
		return models.Item{}, errors.NewValidationError("ordinal", "must be at least 1")
	}
	if stage < 0 {
		return models.Item{}, errors.NewValidationError("stage", "must not be negative")
	}
	item, _, err := s.items.Get(ctx, user, models.ItemID(subject, ordinal))
	if err != nil {
		log.Error("failed to load item: %v", err)
		return models.Item{}, err
	}
	updated := s.engine.ManualSetStage(item, stage, now)
	if err := s.items.Save(ctx, user, updated); err != nil {
		log.Error("failed to save item: %v", err)
		return models.Item{}, err
	}
	return updated, nil
}

func (s *scheduleService) CreateTask(ctx context.Context, user string, task TaskInput) (models.Item, error) {
	log := logger.FromContext(ctx)
	log.Debug("creating task: title=%q", task.Title)

	task.Title = strings.TrimSpace(task.Title)
	if err := ValidateStruct(task); err != nil {
		return models.Item{}, err
	}
	item := models.Item{
		ID:          "task-" + uuid.NewString(),
		Kind:        models.KindTask,
		Title:       task.Title,
		Description: task.Description,
		Difficulty:  task.Difficulty,
	}
	if err := s.items.Save(ctx, user, item); err != nil {
		log.Error("failed to save task: %v", err)
		return models.Item{}, err
	}
	log.Info("created task: id=%s", item.ID)
	return item, nil
}

// ResolveItems loads each id with get-or-default semantics, dropping
// duplicates and keeping the given order.
func (s *scheduleService) ResolveItems(ctx context.Context, user string, ids []string) ([]models.Item, error) {
	seen := make(map[string]bool, len(ids))
	out := make([]models.Item, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		item, _, err := s.items.Get(ctx, user, id)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
