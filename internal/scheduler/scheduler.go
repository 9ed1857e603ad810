// Package scheduler holds the stage/interval review algorithm and the due and
// new-item selection rules. Every function is pure: callers supply the clock
// and persist the results.
package scheduler

import (
	"sort"
	"time"

	"github.com/vytor/studyflow/internal/models"
)

const day = 24 * time.Hour

// Engine applies an interval table. Location decides where a calendar day
// ends for due cutoffs; nil means UTC.
type Engine struct {
	Table    IntervalTable
	Location *time.Location
}

// New returns an Engine for table in loc.
func New(table IntervalTable, loc *time.Location) Engine {
	if len(table) == 0 {
		table = DefaultIntervals()
	}
	if loc == nil {
		loc = time.UTC
	}
	return Engine{Table: table, Location: loc}
}

func (e Engine) location() *time.Location {
	if e.Location == nil {
		return time.UTC
	}
	return e.Location
}

// AdvanceStage records one successful study of item at now. The caller owns
// persisting the result and emitting the history entry with the old stage.
func (e Engine) AdvanceStage(item models.Item, now time.Time) models.Item {
	return e.place(item, item.Stage+1, now)
}

// ManualSetStage moves item straight to stage. Stage 0 clears all scheduling
// fields. Negative stages are treated as 0.
func (e Engine) ManualSetStage(item models.Item, stage int, now time.Time) models.Item {
	if stage <= 0 {
		item.Stage = 0
		item.LastStudiedAt = nil
		item.NextReviewAt = models.ReviewAt{}
		item.IsCompleted = false
		return item
	}
	return e.place(item, stage, now)
}

func (e Engine) place(item models.Item, stage int, now time.Time) models.Item {
	studied := now
	item.Stage = stage
	item.LastStudiedAt = &studied
	if offset, ok := e.Table.OffsetForStage(stage); ok {
		item.NextReviewAt = models.ReviewOn(now.Add(time.Duration(offset) * day))
		item.IsCompleted = false
		return item
	}
	item.NextReviewAt = models.ReviewCompleted()
	item.IsCompleted = true
	return item
}

// EndOfDay returns the last instant of now's calendar day in the engine's
// location.
func (e Engine) EndOfDay(now time.Time) time.Time {
	loc := e.location()
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	return midnight.Add(-time.Nanosecond)
}

// SelectDueItems returns the incomplete items whose next review is at or
// before cutoff, earliest first, ties broken by id. Items outside the current
// subject configuration are still returned.
func SelectDueItems(items []models.Item, cutoff time.Time) []models.Item {
	due := make([]models.Item, 0)
	for _, it := range items {
		if it.IsCompleted {
			continue
		}
		at, ok := it.NextReviewAt.Time()
		if !ok || at.After(cutoff) {
			continue
		}
		due = append(due, it)
	}
	sort.SliceStable(due, func(i, j int) bool {
		a, _ := due[i].NextReviewAt.Time()
		b, _ := due[j].NextReviewAt.Time()
		if !a.Equal(b) {
			return a.Before(b)
		}
		return due[i].ID < due[j].ID
	})
	return due
}

// SelectDue is SelectDueItems with the cutoff at the end of now's day.
func (e Engine) SelectDue(items []models.Item, now time.Time) []models.Item {
	return SelectDueItems(items, e.EndOfDay(now))
}

// SelectNewSuggestions returns, per subject in order, the first ordinal that
// has no record or a stage 0 record. Subjects whose ordinals have all been
// started contribute nothing.
func SelectNewSuggestions(subjects []models.Subject, items []models.Item) []models.Item {
	byID := make(map[string]models.Item, len(items))
	for _, it := range items {
		if !it.Recurring() {
			continue
		}
		byID[it.ID] = it
	}

	out := make([]models.Item, 0, len(subjects))
	for _, s := range subjects {
		for ordinal := 1; ordinal <= s.TotalItemCount; ordinal++ {
			id := models.ItemID(s.Code, ordinal)
			stored, ok := byID[id]
			if !ok {
				out = append(out, models.NewItem(s.Code, ordinal))
				break
			}
			if stored.Stage == 0 {
				out = append(out, stored)
				break
			}
		}
	}
	return out
}
