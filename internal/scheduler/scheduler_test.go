package scheduler_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/studyflow/internal/models"
	"github.com/vytor/studyflow/internal/scheduler"
)

var now = time.Date(2025, 5, 10, 14, 30, 0, 0, time.UTC)

func engine() scheduler.Engine {
	return scheduler.New(scheduler.DefaultIntervals(), time.UTC)
}

func itemAt(stage int) models.Item {
	it := models.NewItem("ANA", 1)
	if stage > 0 {
		it = engine().ManualSetStage(it, stage, now.Add(-72*time.Hour))
	}
	return it
}

func TestNewIntervalTable(t *testing.T) {
	table, err := scheduler.NewIntervalTable(1, 3, 8)
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())

	for _, bad := range [][]int{nil, {0, 1}, {2, 2}, {3, 1}, {-1}} {
		_, err := scheduler.NewIntervalTable(bad...)
		assert.Error(t, err, "%v", bad)
	}
}

func TestOffsetForStage(t *testing.T) {
	table := scheduler.DefaultIntervals()

	tests := []struct {
		stage  int
		days   int
		inside bool
	}{
		{stage: 0, inside: false},
		{stage: 1, days: 1, inside: true},
		{stage: 2, days: 2, inside: true},
		{stage: 3, days: 4, inside: true},
		{stage: 4, days: 7, inside: true},
		{stage: 5, inside: false},
	}
	for _, tt := range tests {
		days, ok := table.OffsetForStage(tt.stage)
		assert.Equal(t, tt.inside, ok, "stage %d", tt.stage)
		assert.Equal(t, tt.days, days, "stage %d", tt.stage)
	}
}

func TestAdvanceStage_WithinTable(t *testing.T) {
	table := scheduler.DefaultIntervals()
	for stage := 1; stage <= table.Len(); stage++ {
		t.Run(fmt.Sprintf("stage %d", stage), func(t *testing.T) {
			before := itemAt(stage - 1)

			after := engine().AdvanceStage(before, now)

			require.NotNil(t, after.LastStudiedAt)
			assert.Equal(t, stage, after.Stage)
			assert.False(t, after.IsCompleted)
			assert.True(t, after.LastStudiedAt.Equal(now))
			next, ok := after.NextReviewAt.Time()
			require.True(t, ok)
			assert.True(t, next.Equal(after.LastStudiedAt.Add(time.Duration(table[stage-1])*24*time.Hour)))
			assert.Equal(t, stage-1, before.Stage, "input must not be mutated")
		})
	}
}

func TestAdvanceStage_BeyondTableCompletes(t *testing.T) {
	after := engine().AdvanceStage(itemAt(4), now)

	assert.Equal(t, 5, after.Stage)
	assert.True(t, after.IsCompleted)
	assert.True(t, after.NextReviewAt.IsCompleted())
	_, ok := after.NextReviewAt.Time()
	assert.False(t, ok)
}

func TestAdvanceStage_CustomTable(t *testing.T) {
	table, err := scheduler.NewIntervalTable(3, 10)
	require.NoError(t, err)
	e := scheduler.New(table, time.UTC)

	first := e.AdvanceStage(models.NewItem("BIO", 2), now)
	next, _ := first.NextReviewAt.Time()
	assert.True(t, next.Equal(now.Add(72*time.Hour)))

	done := e.AdvanceStage(e.AdvanceStage(first, now), now)
	assert.True(t, done.IsCompleted)
	assert.Equal(t, 3, done.Stage)
}

func TestManualSetStage(t *testing.T) {
	e := engine()

	set := e.ManualSetStage(models.NewItem("ANA", 3), 3, now)
	next, ok := set.NextReviewAt.Time()
	require.True(t, ok)
	assert.Equal(t, 3, set.Stage)
	assert.True(t, next.Equal(now.Add(4*24*time.Hour)))

	done := e.ManualSetStage(set, 9, now)
	assert.True(t, done.IsCompleted)
	assert.True(t, done.NextReviewAt.IsCompleted())

	reset := e.ManualSetStage(done, 0, now)
	assert.Equal(t, 0, reset.Stage)
	assert.Nil(t, reset.LastStudiedAt)
	assert.True(t, reset.NextReviewAt.IsZero())
	assert.False(t, reset.IsCompleted)
	assert.Equal(t, "ANA_3", reset.ID)

	negative := e.ManualSetStage(set, -2, now)
	assert.Equal(t, 0, negative.Stage)
}

func TestEndOfDay(t *testing.T) {
	eod := engine().EndOfDay(now)
	assert.True(t, eod.Equal(time.Date(2025, 5, 10, 23, 59, 59, 999999999, time.UTC)), eod.String())

	sp := time.FixedZone("BRT", -3*60*60)
	local := scheduler.New(nil, sp).EndOfDay(time.Date(2025, 5, 11, 1, 0, 0, 0, time.UTC))
	assert.True(t, local.Equal(time.Date(2025, 5, 10, 23, 59, 59, 999999999, sp)), local.String())
}

func TestSelectDueItems(t *testing.T) {
	cutoff := engine().EndOfDay(now)
	mk := func(id string, next models.ReviewAt, completed bool) models.Item {
		return models.Item{ID: id, Stage: 1, NextReviewAt: next, IsCompleted: completed}
	}

	items := []models.Item{
		mk("late", models.ReviewOn(now.Add(-2*time.Hour)), false),
		mk("tonight", models.ReviewOn(cutoff), false),
		mk("tomorrow", models.ReviewOn(cutoff.Add(time.Nanosecond)), false),
		mk("done", models.ReviewCompleted(), true),
		mk("b-early", models.ReviewOn(now.Add(-48*time.Hour)), false),
		mk("a-early", models.ReviewOn(now.Add(-48*time.Hour)), false),
		mk("never", models.ReviewAt{}, false),
		mk("flagged", models.ReviewOn(now.Add(-time.Hour)), true),
	}

	due := scheduler.SelectDueItems(items, cutoff)

	ids := make([]string, 0, len(due))
	for _, it := range due {
		ids = append(ids, it.ID)
		assert.False(t, it.IsCompleted)
	}
	assert.Equal(t, []string{"a-early", "b-early", "late", "tonight"}, ids)
}

func TestSelectDue_CompletedNeverReturns(t *testing.T) {
	e := engine()
	it := e.AdvanceStage(itemAt(4), now)
	require.Equal(t, 5, it.Stage)

	for _, offset := range []time.Duration{0, 24 * time.Hour, 365 * 24 * time.Hour} {
		assert.Empty(t, e.SelectDue([]models.Item{it}, now.Add(offset)))
	}
}

func TestSelectDue_IgnoresSubjectConfiguration(t *testing.T) {
	e := engine()
	// Ordinal 40 no longer exists in a subject shrunk to 10 items.
	orphan := e.ManualSetStage(models.NewItem("ANA", 40), 1, now.Add(-48*time.Hour))

	due := e.SelectDue([]models.Item{orphan}, now)

	require.Len(t, due, 1)
	assert.Equal(t, "ANA_40", due[0].ID)
}

func TestSelectNewSuggestions(t *testing.T) {
	e := engine()
	subjects := []models.Subject{
		{Code: "ANA", TotalItemCount: 5},
		{Code: "BIO", TotalItemCount: 2},
		{Code: "EMPTY", TotalItemCount: 0},
		{Code: "CHE", TotalItemCount: 3},
	}
	items := []models.Item{
		e.ManualSetStage(models.NewItem("ANA", 1), 2, now),
		models.NewItem("ANA", 2), // stored but never studied
		e.ManualSetStage(models.NewItem("BIO", 1), 1, now),
		e.ManualSetStage(models.NewItem("BIO", 2), 5, now),
		e.ManualSetStage(models.NewItem("CHE", 2), 1, now),
		{ID: "task-1", Kind: models.KindTask, Subject: "CHE", Ordinal: 1, Stage: 3},
	}

	got := scheduler.SelectNewSuggestions(subjects, items)

	ids := make([]string, 0, len(got))
	for _, it := range got {
		ids = append(ids, it.ID)
		assert.Equal(t, 0, it.Stage)
	}
	assert.Equal(t, []string{"ANA_2", "CHE_1"}, ids)
}

func TestSelectNewSuggestions_Scenario(t *testing.T) {
	e := engine()
	subjects := []models.Subject{{Code: "ANA", TotalItemCount: 5}}

	first := scheduler.SelectNewSuggestions(subjects, nil)
	require.Len(t, first, 1)
	assert.Equal(t, "ANA_1", first[0].ID)
	assert.Equal(t, 0, first[0].Stage)

	studied := e.AdvanceStage(first[0], now)
	next, _ := studied.NextReviewAt.Time()
	assert.True(t, next.Equal(now.Add(24*time.Hour)))

	second := scheduler.SelectNewSuggestions(subjects, []models.Item{studied})
	require.Len(t, second, 1)
	assert.Equal(t, "ANA_2", second[0].ID)
}
