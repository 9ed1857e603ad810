package docstore

import (
	"context"

	apperrors "github.com/vytor/studyflow/internal/errors"
	"github.com/vytor/studyflow/internal/logger"
	"github.com/vytor/studyflow/internal/models"
	"github.com/vytor/studyflow/internal/repository"
	"github.com/vytor/studyflow/internal/store"
)

type itemRepository struct {
	store store.Store
}

// NewItemRepository creates a new ItemRepository implementation
func NewItemRepository(s store.Store) repository.ItemRepository {
	return &itemRepository{store: s}
}

func (r *itemRepository) Get(ctx context.Context, user, id string) (models.Item, bool, error) {
	log := logger.FromContext(ctx).WithPrefix("item_repo")
	log.Debug("getting item: user=%s, id=%s", user, id)

	var item models.Item
	found, err := load(ctx, r.store, path(user, store.Items, id), &item)
	if err != nil {
		log.Error("failed to get item: %v", err)
		return models.Item{}, false, err
	}
	if found {
		if item.Kind == "" {
			item.Kind = models.KindReview
		}
		return item, true, nil
	}

	subject, ordinal, perr := models.ParseItemID(id)
	if perr != nil {
		log.Debug("item not found and id is not a review id: %s", id)
		return models.Item{}, false, apperrors.NewNotFoundError("item", id)
	}
	log.Debug("item not stored, using stage 0 default: id=%s", id)
	return models.NewItem(subject, ordinal), false, nil
}

func (r *itemRepository) List(ctx context.Context, user string) ([]models.Item, error) {
	return r.list(ctx, user, "")
}

func (r *itemRepository) ListBySubject(ctx context.Context, user, subject string) ([]models.Item, error) {
	return r.list(ctx, user, subject+"_")
}

func (r *itemRepository) list(ctx context.Context, user, prefix string) ([]models.Item, error) {
	log := logger.FromContext(ctx).WithPrefix("item_repo")
	log.Debug("listing items: user=%s, prefix=%q", user, prefix)

	entries, err := r.store.List(ctx, user, store.Items, prefix)
	if err != nil {
		log.Error("failed to list items: %v", err)
		return nil, err
	}
	items, err := decodeAll[models.Item](entries)
	if err != nil {
		log.Error("failed to decode items: %v", err)
		return nil, err
	}
	for i := range items {
		if items[i].Kind == "" {
			items[i].Kind = models.KindReview
		}
	}
	log.Debug("found %d items", len(items))
	return items, nil
}

func (r *itemRepository) Save(ctx context.Context, user string, item models.Item) error {
	log := logger.FromContext(ctx).WithPrefix("item_repo")
	log.Debug("saving item: id=%s, stage=%d, next_review_at=%s", item.ID, item.Stage, item.NextReviewAt)

	if item.ID == "" {
		return apperrors.NewValidationError("id", "must not be empty")
	}
	if err := put(ctx, r.store, path(user, store.Items, item.ID), item); err != nil {
		log.Error("failed to save item: %v", err)
		return err
	}
	return nil
}

func (r *itemRepository) Delete(ctx context.Context, user, id string) error {
	log := logger.FromContext(ctx).WithPrefix("item_repo")
	log.Debug("deleting item: id=%s", id)

	if err := r.store.Delete(ctx, path(user, store.Items, id)); err != nil {
		log.Error("failed to delete item: %v", err)
		return err
	}
	return nil
}

func (r *itemRepository) DeleteBySubject(ctx context.Context, user, subject string) (int, error) {
	log := logger.FromContext(ctx).WithPrefix("item_repo")
	log.Debug("deleting items of subject: user=%s, subject=%s", user, subject)

	n, err := r.store.DeletePrefix(ctx, user, store.Items, subject+"_")
	if err != nil {
		log.Error("failed to delete subject items: %v", err)
		return 0, err
	}
	log.Info("deleted %d items of subject %s", n, subject)
	return n, nil
}
