package docstore

import (
	"context"
	"time"

	"github.com/vytor/studyflow/internal/logger"
	"github.com/vytor/studyflow/internal/models"
	"github.com/vytor/studyflow/internal/repository"
	"github.com/vytor/studyflow/internal/store"
)

type achievementRepository struct {
	store store.Store
}

// NewAchievementRepository creates a new AchievementRepository implementation
func NewAchievementRepository(s store.Store) repository.AchievementRepository {
	return &achievementRepository{store: s}
}

// Append adds entry to the bucket for dateKey. When the store cannot append
// atomically this falls back to read-modify-write, and two writers racing on
// the same day can lose one entry.
func (r *achievementRepository) Append(ctx context.Context, user, dateKey string, entry models.AchievementEntry) error {
	log := logger.FromContext(ctx).WithPrefix("achievement_repo")
	log.Debug("logging achievement: date=%s, type=%s, item_id=%s", dateKey, entry.Type, entry.ItemID)

	p := path(user, store.Achievements, dateKey)
	seed, err := store.Encode(models.DayLog{Date: dateKey, Items: []models.AchievementEntry{}})
	if err != nil {
		return err
	}

	if appender, ok := r.store.(store.Appender); ok {
		if err := appender.AtomicAppend(ctx, p, "items", entry, seed); err != nil {
			log.Error("failed to append achievement: %v", err)
			return err
		}
		return nil
	}

	log.Debug("store has no atomic append, using read-modify-write")
	current, err := r.store.Get(ctx, p)
	if err != nil {
		log.Error("failed to read achievement day: %v", err)
		return err
	}
	next, err := store.AppendField(current, seed, "items", entry)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, p, next, false); err != nil {
		log.Error("failed to write achievement day: %v", err)
		return err
	}
	return nil
}

func (r *achievementRepository) Day(ctx context.Context, user, dateKey string) (*models.DayLog, error) {
	log := logger.FromContext(ctx).WithPrefix("achievement_repo")
	log.Debug("reading achievement day: date=%s", dateKey)

	var d models.DayLog
	found, err := load(ctx, r.store, path(user, store.Achievements, dateKey), &d)
	if err != nil {
		log.Error("failed to read achievement day: %v", err)
		return nil, err
	}
	if !found {
		return nil, nil
	}
	if d.Date == "" {
		d.Date = dateKey
	}
	return &d, nil
}

// Range reads each calendar day from from to to (inclusive, in loc). Days
// without a bucket are omitted.
func (r *achievementRepository) Range(ctx context.Context, user string, from, to time.Time, loc *time.Location) (map[string]models.DayLog, error) {
	if loc == nil {
		loc = time.UTC
	}
	start := from.In(loc)
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	last := models.DateKey(to, loc)

	out := make(map[string]models.DayLog)
	for {
		key := day.Format(models.DateKeyLayout)
		if key > last {
			break
		}
		d, err := r.Day(ctx, user, key)
		if err != nil {
			return nil, err
		}
		if d != nil {
			out[key] = *d
		}
		day = day.AddDate(0, 0, 1)
	}
	return out, nil
}
