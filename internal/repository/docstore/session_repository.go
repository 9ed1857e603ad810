package docstore

import (
	"context"

	apperrors "github.com/vytor/studyflow/internal/errors"
	"github.com/vytor/studyflow/internal/logger"
	"github.com/vytor/studyflow/internal/models"
	"github.com/vytor/studyflow/internal/repository"
	"github.com/vytor/studyflow/internal/store"
)

type sessionRepository struct {
	store store.Store
}

// NewSessionRepository creates a new SessionRepository implementation
func NewSessionRepository(s store.Store) repository.SessionRepository {
	return &sessionRepository{store: s}
}

func (r *sessionRepository) Get(ctx context.Context, user, sessionType string) (*models.FocusSession, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("getting session: user=%s, type=%s", user, sessionType)

	var s models.FocusSession
	found, err := load(ctx, r.store, path(user, store.Sessions, sessionType), &s)
	if err != nil {
		log.Error("failed to get session: %v", err)
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &s, nil
}

// Save overwrites the whole session document.
func (r *sessionRepository) Save(ctx context.Context, user string, s models.FocusSession) error {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("saving session: type=%s, queue=%d, is_free=%t", s.Type, len(s.Queue), s.IsFree)

	if s.Type == "" {
		return apperrors.NewValidationError("type", "must not be empty")
	}
	if s.Queue == nil {
		s.Queue = []models.Item{}
	}
	if err := put(ctx, r.store, path(user, store.Sessions, s.Type), s); err != nil {
		log.Error("failed to save session: %v", err)
		return err
	}
	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, user, sessionType string) error {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("deleting session: type=%s", sessionType)

	if err := r.store.Delete(ctx, path(user, store.Sessions, sessionType)); err != nil {
		log.Error("failed to delete session: %v", err)
		return err
	}
	return nil
}

// Subscribe calls fn with the current session and every later change; nil
// means no session. An undecodable document arrives as an Unreadable session.
func (r *sessionRepository) Subscribe(ctx context.Context, user, sessionType string, fn func(*models.FocusSession)) (func(), error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("subscribing to session: user=%s, type=%s", user, sessionType)

	unsubscribe, err := r.store.Subscribe(ctx, path(user, store.Sessions, sessionType), func(doc store.Document) {
		if doc == nil {
			fn(nil)
			return
		}
		var s models.FocusSession
		if err := doc.Decode(&s); err != nil {
			log.Warn("undecodable session document: %v", err)
			fn(&models.FocusSession{Type: sessionType, Unreadable: true})
			return
		}
		fn(&s)
	})
	if err != nil {
		log.Error("failed to subscribe to session: %v", err)
		return nil, err
	}
	return unsubscribe, nil
}
