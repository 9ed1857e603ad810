package models

import "time"

// FocusSession is the persisted, cross-device form of an active session.
// Queue entries are snapshots, not references to stored items. Revision is
// a fresh token on every write.
type FocusSession struct {
	Type      string    `json:"type"`
	StartTime time.Time `json:"start_time"`
	IsFree    bool      `json:"is_free"`
	Queue     []Item    `json:"queue"`
	Revision  string    `json:"revision,omitempty"`

	// Unreadable marks a stored document that could not be decoded. It is
	// never written.
	Unreadable bool `json:"-"`
}

// IndexOf returns the queue position of id, or -1.
func (s FocusSession) IndexOf(id string) int {
	for i, it := range s.Queue {
		if it.ID == id {
			return i
		}
	}
	return -1
}
