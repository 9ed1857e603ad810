package docstore

import (
	"context"

	"github.com/vytor/studyflow/internal/logger"
	"github.com/vytor/studyflow/internal/models"
	"github.com/vytor/studyflow/internal/repository"
	"github.com/vytor/studyflow/internal/store"
)

type subjectRepository struct {
	store store.Store
}

// NewSubjectRepository creates a new SubjectRepository implementation
func NewSubjectRepository(s store.Store) repository.SubjectRepository {
	return &subjectRepository{store: s}
}

func (r *subjectRepository) Get(ctx context.Context, user, code string) (*models.Subject, error) {
	log := logger.FromContext(ctx).WithPrefix("subject_repo")
	log.Debug("getting subject: user=%s, code=%s", user, code)

	var s models.Subject
	found, err := load(ctx, r.store, path(user, store.Subjects, code), &s)
	if err != nil {
		log.Error("failed to get subject: %v", err)
		return nil, err
	}
	if !found {
		log.Debug("subject not found: code=%s", code)
		return nil, nil
	}
	return &s, nil
}

func (r *subjectRepository) List(ctx context.Context, user string) ([]models.Subject, error) {
	log := logger.FromContext(ctx).WithPrefix("subject_repo")
	log.Debug("listing subjects: user=%s", user)

	entries, err := r.store.List(ctx, user, store.Subjects, "")
	if err != nil {
		log.Error("failed to list subjects: %v", err)
		return nil, err
	}
	return decodeAll[models.Subject](entries)
}

func (r *subjectRepository) Save(ctx context.Context, user string, s models.Subject) error {
	log := logger.FromContext(ctx).WithPrefix("subject_repo")
	log.Debug("saving subject: code=%s, total_item_count=%d", s.Code, s.TotalItemCount)

	if err := put(ctx, r.store, path(user, store.Subjects, s.Code), s); err != nil {
		log.Error("failed to save subject: %v", err)
		return err
	}
	return nil
}

func (r *subjectRepository) Delete(ctx context.Context, user, code string) error {
	log := logger.FromContext(ctx).WithPrefix("subject_repo")
	log.Debug("deleting subject: code=%s", code)

	if err := r.store.Delete(ctx, path(user, store.Subjects, code)); err != nil {
		log.Error("failed to delete subject: %v", err)
		return err
	}
	return nil
}
