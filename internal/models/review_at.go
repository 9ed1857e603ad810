package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// CompletedMarker is the stored value of next_review_at once an item has
// exhausted the interval table.
const CompletedMarker = "COMPLETED"

// ReviewAt is the value of Item.NextReviewAt: unset, a real timestamp, or the
// COMPLETED marker. The zero value is unset.
type ReviewAt struct {
	at        time.Time
	set       bool
	completed bool
}

// ReviewOn returns a ReviewAt holding t.
func ReviewOn(t time.Time) ReviewAt {
	return ReviewAt{at: t, set: true}
}

// ReviewCompleted returns the COMPLETED marker.
func ReviewCompleted() ReviewAt {
	return ReviewAt{completed: true}
}

// IsZero reports whether no review is scheduled.
func (r ReviewAt) IsZero() bool { return !r.set && !r.completed }

// IsCompleted reports whether r is the COMPLETED marker.
func (r ReviewAt) IsCompleted() bool { return r.completed }

// Time returns the scheduled timestamp; ok is false for unset and COMPLETED.
func (r ReviewAt) Time() (t time.Time, ok bool) {
	return r.at, r.set
}

func (r ReviewAt) String() string {
	switch {
	case r.completed:
		return CompletedMarker
	case r.set:
		return r.at.Format(time.RFC3339)
	default:
		return "<none>"
	}
}

func (r ReviewAt) MarshalJSON() ([]byte, error) {
	switch {
	case r.completed:
		return json.Marshal(CompletedMarker)
	case r.set:
		return json.Marshal(r.at)
	default:
		return []byte("null"), nil
	}
}

func (r *ReviewAt) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = ReviewAt{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("next_review_at: %w", err)
	}
	if s == CompletedMarker {
		*r = ReviewCompleted()
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("next_review_at: %w", err)
	}
	*r = ReviewOn(t)
	return nil
}
