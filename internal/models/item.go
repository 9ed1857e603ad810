package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ItemKind separates stage-scheduled review units from one-off tasks.
type ItemKind string

const (
	KindReview ItemKind = "review"
	KindTask   ItemKind = "task"
)

type Subject struct {
	Code           string `json:"code" validate:"required,max=32,excludesall=_/"`
	DisplayName    string `json:"display_name" validate:"max=128"`
	TotalItemCount int    `json:"total_item_count" validate:"gte=0"`
}

type Item struct {
	ID            string     `json:"id"`
	Kind          ItemKind   `json:"kind,omitempty"`
	Subject       string     `json:"subject"`
	Ordinal       int        `json:"ordinal"`
	Stage         int        `json:"stage"`
	LastStudiedAt *time.Time `json:"last_studied_at"`
	NextReviewAt  ReviewAt   `json:"next_review_at"`
	IsCompleted   bool       `json:"is_completed"`
	Title         string     `json:"title,omitempty"`
	Description   string     `json:"description,omitempty"`
	Difficulty    string     `json:"difficulty,omitempty"`
}

// Recurring reports whether the item advances through stages on completion.
// Records written before Kind existed are review items.
func (i Item) Recurring() bool {
	return i.Kind != KindTask
}

// ItemID builds the composite id "<subject>_<ordinal>".
func ItemID(subject string, ordinal int) string {
	return subject + "_" + strconv.Itoa(ordinal)
}

// ParseItemID splits a composite review item id. The subject is everything
// before the last underscore.
func ParseItemID(id string) (subject string, ordinal int, err error) {
	idx := strings.LastIndex(id, "_")
	if idx <= 0 || idx == len(id)-1 {
		return "", 0, fmt.Errorf("malformed item id %q", id)
	}
	ordinal, err = strconv.Atoi(id[idx+1:])
	if err != nil || ordinal < 1 {
		return "", 0, fmt.Errorf("malformed item id %q", id)
	}
	return id[:idx], ordinal, nil
}

// NewItem returns the implicit never-studied record for subject/ordinal.
func NewItem(subject string, ordinal int) Item {
	return Item{
		ID:      ItemID(subject, ordinal),
		Kind:    KindReview,
		Subject: subject,
		Ordinal: ordinal,
	}
}
