package docstore

import (
	"context"
	"sort"

	apperrors "github.com/vytor/studyflow/internal/errors"
	"github.com/vytor/studyflow/internal/logger"
	"github.com/vytor/studyflow/internal/models"
	"github.com/vytor/studyflow/internal/repository"
	"github.com/vytor/studyflow/internal/store"
)

type historyRepository struct {
	store store.Store
}

// NewHistoryRepository creates a new HistoryRepository implementation
func NewHistoryRepository(s store.Store) repository.HistoryRepository {
	return &historyRepository{store: s}
}

// Append stores entry under its own id. There is no dedup.
func (r *historyRepository) Append(ctx context.Context, user string, entry models.HistoryEntry) error {
	log := logger.FromContext(ctx).WithPrefix("history_repo")
	log.Debug("appending history: item_id=%s, stage_completed=%d", entry.ItemID, entry.StageCompleted)

	if entry.ID == "" {
		return apperrors.NewValidationError("id", "must not be empty")
	}
	if err := put(ctx, r.store, path(user, store.History, entry.ID), entry); err != nil {
		log.Error("failed to append history: %v", err)
		return err
	}
	return nil
}

// List returns every entry, newest first.
func (r *historyRepository) List(ctx context.Context, user string) ([]models.HistoryEntry, error) {
	log := logger.FromContext(ctx).WithPrefix("history_repo")
	log.Debug("listing history: user=%s", user)

	entries, err := r.store.List(ctx, user, store.History, "")
	if err != nil {
		log.Error("failed to list history: %v", err)
		return nil, err
	}
	history, err := decodeAll[models.HistoryEntry](entries)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(history, func(i, j int) bool {
		if !history[i].CompletedAt.Equal(history[j].CompletedAt) {
			return history[i].CompletedAt.After(history[j].CompletedAt)
		}
		return history[i].ID < history[j].ID
	})
	log.Debug("found %d history entries", len(history))
	return history, nil
}
