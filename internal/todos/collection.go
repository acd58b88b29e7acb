package todos

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Collection maps id to Todo, iterating newest first.
type Collection struct {
	items *orderedmap.OrderedMap[string, Todo]
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{items: orderedmap.New[string, Todo]()}
}

// DecodeCollection parses a persisted snapshot. An empty or null snapshot
// yields an empty collection, and null entries are skipped. Object key order
// is kept as iteration order.
func DecodeCollection(data []byte) (*Collection, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return NewCollection(), nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("decode snapshot: invalid JSON")
	}
	if data[0] != '{' {
		return nil, fmt.Errorf("decode snapshot: expected object, got %q", data[0])
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	c := NewCollection()
	if err := c.items.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	for key, raw := range entries {
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			slog.Warn("snapshot entry is null, skipping", "key", key)
			c.items.Delete(key)
		}
	}

	// The object key is authoritative for the id.
	for p := c.items.Oldest(); p != nil; p = p.Next() {
		if p.Value.ID != p.Key {
			if p.Value.ID != "" {
				slog.Warn("snapshot entry id mismatch, using key", "key", p.Key, "id", p.Value.ID)
			}
			p.Value.ID = p.Key
		}
	}
	return c, nil
}

// MarshalJSON encodes the collection as the persisted snapshot object.
func (c *Collection) MarshalJSON() ([]byte, error) {
	return c.items.MarshalJSON()
}

// Len returns the number of entries.
func (c *Collection) Len() int { return c.items.Len() }

// Get returns the entry for id.
func (c *Collection) Get(id string) (Todo, bool) {
	return c.items.Get(id)
}

// Has reports whether id is present.
func (c *Collection) Has(id string) bool {
	_, ok := c.items.Get(id)
	return ok
}

// Prepend inserts t ahead of every existing entry.
func (c *Collection) Prepend(t Todo) {
	c.items.Set(t.ID, t)
	if err := c.items.MoveToFront(t.ID); err != nil {
		// Unreachable: the key was just set.
		panic(err)
	}
}

// Remove deletes id and reports whether it was present.
func (c *Collection) Remove(id string) bool {
	_, present := c.items.Delete(id)
	return present
}

// Update applies fn to the entry for id in place.
func (c *Collection) Update(id string, fn func(*Todo)) (Todo, bool) {
	p := c.items.GetPair(id)
	if p == nil {
		return Todo{}, false
	}
	fn(&p.Value)
	return p.Value, true
}

// Values returns a copy of every entry in iteration order.
func (c *Collection) Values() []Todo {
	out := make([]Todo, 0, c.items.Len())
	for p := c.items.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Value)
	}
	return out
}

// IDs returns every id in iteration order.
func (c *Collection) IDs() []string {
	out := make([]string, 0, c.items.Len())
	for p := c.items.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}
