// Package todos holds the task collection and its mutation contract.
package todos

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned by Toggle and Edit when the id is absent.
	ErrNotFound = errors.New("todo not found")
	// ErrNotReady is returned by mutations issued before Load.
	ErrNotReady = errors.New("store not loaded")
	// ErrAmbiguousID is returned by Resolve when a prefix matches several ids.
	ErrAmbiguousID = errors.New("ambiguous todo id")
)

// Todo is one list item. ID and CreatedAt never change after creation.
type Todo struct {
	ID          string    `yaml:"id"`
	Text        string    `yaml:"text"`
	IsCompleted bool      `yaml:"isCompleted"`
	CreatedAt   time.Time `yaml:"createdAt"`
}

// todoRecord is the persisted shape: createdAt is milliseconds since the epoch.
type todoRecord struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	IsCompleted bool   `json:"isCompleted"`
	CreatedAt   int64  `json:"createdAt"`
}

func (t Todo) MarshalJSON() ([]byte, error) {
	return json.Marshal(todoRecord{
		ID:          t.ID,
		Text:        t.Text,
		IsCompleted: t.IsCompleted,
		CreatedAt:   t.CreatedAt.UnixMilli(),
	})
}

func (t *Todo) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var rec todoRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return err
	}
	*t = Todo{
		ID:          rec.ID,
		Text:        rec.Text,
		IsCompleted: rec.IsCompleted,
		CreatedAt:   time.UnixMilli(rec.CreatedAt),
	}
	return nil
}

// newTodo builds a fresh record. CreatedAt is truncated to the precision
// the snapshot keeps, so a loaded record equals the one that was saved.
func newTodo(id, text string, now time.Time) Todo {
	return Todo{
		ID:        id,
		Text:      text,
		CreatedAt: time.UnixMilli(now.UnixMilli()),
	}
}

// NewID returns a time-based (version 1) UUID string.
func NewID() string {
	id, err := uuid.NewUUID()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
