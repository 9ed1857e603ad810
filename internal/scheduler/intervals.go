package scheduler

import "fmt"

// IntervalTable maps a stage to the number of days until the next review.
// Entry i holds the offset for stage i+1.
type IntervalTable []int

// DefaultIntervals is the spacing used when none is configured.
func DefaultIntervals() IntervalTable {
	return IntervalTable{1, 2, 4, 7}
}

// NewIntervalTable validates days and returns them as a table. Offsets must be
// positive and strictly ascending.
func NewIntervalTable(days ...int) (IntervalTable, error) {
	if len(days) == 0 {
		return nil, fmt.Errorf("interval table is empty")
	}
	for i, d := range days {
		if d <= 0 {
			return nil, fmt.Errorf("interval %d must be positive, got %d", i+1, d)
		}
		if i > 0 && d <= days[i-1] {
			return nil, fmt.Errorf("intervals must be ascending: %d after %d", d, days[i-1])
		}
	}
	t := make(IntervalTable, len(days))
	copy(t, days)
	return t, nil
}

// Len is the number of schedulable stages. Stages above it are completed.
func (t IntervalTable) Len() int { return len(t) }

// OffsetForStage returns the day offset for stage. ok is false when stage is
// outside 1..Len, which callers treat as completion.
func (t IntervalTable) OffsetForStage(stage int) (days int, ok bool) {
	if stage < 1 || stage > len(t) {
		return 0, false
	}
	return t[stage-1], true
}
