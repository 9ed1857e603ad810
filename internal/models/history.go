package models

import "time"

// HistoryEntry records one completion. Entries are never updated.
type HistoryEntry struct {
	ID             string    `json:"id"`
	ItemID         string    `json:"item_id"`
	Subject        string    `json:"subject"`
	Ordinal        int       `json:"ordinal"`
	TitleSnapshot  string    `json:"title_snapshot"`
	CompletedAt    time.Time `json:"completed_at"`
	StageCompleted int       `json:"stage_completed"`
}

type AchievementType string

const (
	AchievementStudy AchievementType = "study"
	AchievementTask  AchievementType = "task"
)

type AchievementEntry struct {
	ID        string          `json:"id"`
	Type      AchievementType `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	ItemID    string          `json:"item_id,omitempty"`
	Subject   string          `json:"subject,omitempty"`
	Ordinal   int             `json:"ordinal,omitempty"`
	Title     string          `json:"title,omitempty"`
	Stage     int             `json:"stage,omitempty"`
}

// DayLog is the achievement bucket for one calendar date.
type DayLog struct {
	Date  string             `json:"date"`
	Items []AchievementEntry `json:"items"`
}

// DateKeyLayout formats day bucket keys (YYYY-MM-DD).
const DateKeyLayout = "2006-01-02"

// DateKey returns the bucket key for t in loc.
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateKeyLayout)
}

// MonthSummary counts a month's achievements by type.
type MonthSummary struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Days  int `json:"days"`
	Study int `json:"study"`
	Tasks int `json:"tasks"`
	Total int `json:"total"`
}

// Summarize totals the buckets returned for a month.
func Summarize(year, month int, days map[string]DayLog) MonthSummary {
	s := MonthSummary{Year: year, Month: month, Days: len(days)}
	for _, d := range days {
		for _, e := range d.Items {
			switch e.Type {
			case AchievementStudy:
				s.Study++
			case AchievementTask:
				s.Tasks++
			}
			s.Total++
		}
	}
	return s
}
