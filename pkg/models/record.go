package models

import (
	"time"

	"github.com/google/uuid"
)

// Record is one embedded chunk of a user's indexed content. Records are
// immutable once written; re-indexing a URL replaces all of its records.
type Record struct {
	ID         string    `json:"id"`
	CreateTime int64     `json:"create_time"` // epoch milliseconds
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Image      string    `json:"image,omitempty"`
	Text       string    `json:"text"`
	Vector     []float32 `json:"vector,omitempty"`
}

// NewRecordID returns a fresh unique record ID.
func NewRecordID() string {
	return uuid.NewString()
}

// TimeMillis converts a time to the epoch-millisecond representation used
// for Record.CreateTime.
func TimeMillis(t time.Time) int64 {
	return t.UnixMilli()
}
