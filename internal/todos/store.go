package todos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dohr-michael/hellotodo/internal/events"
	"github.com/dohr-michael/hellotodo/internal/storage"
)

// corruptSuffix is appended to the slot key when an unreadable snapshot is
// copied aside during Load.
const corruptSuffix = ".corrupt"

// Persister receives the full encoded collection after every mutation.
// Persist must not block the caller.
type Persister interface {
	Persist(snapshot []byte)
}

// Options configures a Store.
type Options struct {
	Key   string           // slot key holding the snapshot
	Bus   *events.Bus      // optional
	Now   func() time.Time // defaults to time.Now
	NewID func() string    // defaults to NewID
}

// Stats summarizes the collection.
type Stats struct {
	Total     int `json:"total" yaml:"total"`
	Completed int `json:"completed" yaml:"completed"`
}

// Pending returns the number of entries not yet completed.
func (s Stats) Pending() int { return s.Total - s.Completed }

// Store owns the task collection and keeps the persisted snapshot in step
// with it. A Store belongs to a single goroutine and is not safe for
// concurrent use.
type Store struct {
	slot      storage.Slot
	persister Persister
	key       string
	bus       *events.Bus
	now       func() time.Time
	newID     func() string

	items *Collection
	ready bool
}

// NewStore creates a store reading from slot and saving through persister.
// The store is empty and rejects mutations until Load is called.
func NewStore(slot storage.Slot, persister Persister, opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = NewID
	}
	return &Store{
		slot:      slot,
		persister: persister,
		key:       opts.Key,
		bus:       opts.Bus,
		now:       opts.Now,
		newID:     opts.NewID,
		items:     NewCollection(),
	}
}

// Load replaces the collection with the persisted snapshot. A missing or
// unreadable snapshot yields an empty collection. An unparseable one is
// copied to "<key>.corrupt" first, as are the stored bytes behind a slot
// layer that failed to decode them. Load never fails: problems are logged
// and published, and the store is ready afterwards.
func (s *Store) Load(ctx context.Context) {
	defer func() { s.ready = true }()

	data, err := s.slot.Get(ctx, s.key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.items = NewCollection()
		s.publishLoaded()
		return
	case err != nil:
		quarantined := s.quarantineRaw(ctx)
		slog.Error("load snapshot, starting empty", "key", s.key, "error", err, "quarantined", quarantined)
		s.items = NewCollection()
		s.publish(events.StoreLoadFailedPayload{Key: s.key, Error: err.Error(), Quarantined: quarantined})
		return
	}

	items, err := DecodeCollection(data)
	if err != nil {
		quarantined := s.quarantine(ctx, data)
		slog.Error("parse snapshot, starting empty", "key", s.key, "error", err, "quarantined", quarantined)
		s.items = NewCollection()
		s.publish(events.StoreLoadFailedPayload{Key: s.key, Error: err.Error(), Quarantined: quarantined})
		return
	}

	s.items = items
	s.publishLoaded()
}

// CorruptKey returns the slot key an unparseable snapshot stored under key is
// copied to.
func CorruptKey(key string) string { return key + corruptSuffix }

func (s *Store) quarantine(ctx context.Context, data []byte) string {
	key := CorruptKey(s.key)
	if err := s.slot.Set(ctx, key, data); err != nil {
		slog.Warn("quarantine snapshot", "key", key, "error", err)
		return ""
	}
	return key
}

// quarantineRaw copies the undecoded bytes of the snapshot aside when the
// slot wraps another one, e.g. an AgeSlot whose identity no longer matches.
// A plain slot that failed to read has nothing to copy.
func (s *Store) quarantineRaw(ctx context.Context) string {
	w, ok := s.slot.(interface{ Unwrap() storage.Slot })
	if !ok {
		return ""
	}
	raw := storage.Raw(w.Unwrap())
	data, err := raw.Get(ctx, s.key)
	if err != nil {
		slog.Warn("read raw snapshot", "key", s.key, "error", err)
		return ""
	}
	key := CorruptKey(s.key)
	if err := raw.Set(ctx, key, data); err != nil {
		slog.Warn("quarantine snapshot", "key", key, "error", err)
		return ""
	}
	return key
}

func (s *Store) publishLoaded() {
	slog.Debug("snapshot loaded", "key", s.key, "count", s.items.Len())
	s.publish(events.StoreLoadedPayload{Key: s.key, Count: s.items.Len()})
}

// Ready reports whether Load has completed.
func (s *Store) Ready() bool { return s.ready }

// Add creates a todo ahead of all existing ones. Any text, including the
// empty string, is accepted.
func (s *Store) Add(text string) (Todo, error) {
	if !s.ready {
		return Todo{}, ErrNotReady
	}

	id := s.newID()
	for s.items.Has(id) {
		id = s.newID()
	}

	t := newTodo(id, text, s.now())
	s.items.Prepend(t)
	s.publish(events.TodoAddedPayload{ID: t.ID, Text: t.Text})
	s.persist()
	return t, nil
}

// Delete removes id. Deleting an absent id is not an error.
func (s *Store) Delete(id string) error {
	if !s.ready {
		return ErrNotReady
	}

	existed := s.items.Remove(id)
	s.publish(events.TodoDeletedPayload{ID: id, Existed: existed})
	s.persist()
	return nil
}

// Toggle flips the completion flag of id.
func (s *Store) Toggle(id string) (Todo, error) {
	if !s.ready {
		return Todo{}, ErrNotReady
	}

	t, ok := s.items.Update(id, func(t *Todo) { t.IsCompleted = !t.IsCompleted })
	if !ok {
		return Todo{}, fmt.Errorf("toggle %s: %w", id, ErrNotFound)
	}
	s.publish(events.TodoToggledPayload{ID: id, IsCompleted: t.IsCompleted})
	s.persist()
	return t, nil
}

// Edit replaces the text of id.
func (s *Store) Edit(id, text string) (Todo, error) {
	if !s.ready {
		return Todo{}, ErrNotReady
	}

	t, ok := s.items.Update(id, func(t *Todo) { t.Text = text })
	if !ok {
		return Todo{}, fmt.Errorf("edit %s: %w", id, ErrNotFound)
	}
	s.publish(events.TodoEditedPayload{ID: id, Text: text})
	s.persist()
	return t, nil
}

// Get returns the todo for id.
func (s *Store) Get(id string) (Todo, bool) { return s.items.Get(id) }

// List returns every todo, newest first.
func (s *Store) List() []Todo { return s.items.Values() }

// Len returns the number of todos.
func (s *Store) Len() int { return s.items.Len() }

// Stats counts total and completed todos.
func (s *Store) Stats() Stats {
	st := Stats{Total: s.items.Len()}
	for _, t := range s.items.Values() {
		if t.IsCompleted {
			st.Completed++
		}
	}
	return st
}

// Snapshot encodes the collection in its persisted form.
func (s *Store) Snapshot() ([]byte, error) {
	return s.items.MarshalJSON()
}

// Resolve expands an id prefix to the full id it identifies.
func (s *Store) Resolve(prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("resolve %q: %w", prefix, ErrNotFound)
	}
	if s.items.Has(prefix) {
		return prefix, nil
	}

	var match string
	for _, id := range s.items.IDs() {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("resolve %q: %w", prefix, ErrAmbiguousID)
		}
		match = id
	}
	if match == "" {
		return "", fmt.Errorf("resolve %q: %w", prefix, ErrNotFound)
	}
	return match, nil
}

// persist hands the whole collection to the persister. The cost is linear in
// the collection size on every mutation.
func (s *Store) persist() {
	data, err := s.items.MarshalJSON()
	if err != nil {
		slog.Error("encode snapshot", "key", s.key, "error", err)
		s.publish(events.SnapshotFailedPayload{Key: s.key, Error: err.Error()})
		return
	}
	s.persister.Persist(data)
}

func (s *Store) publish(p events.EventPayload) {
	s.bus.Publish(events.NewTypedEvent(events.SourceStore, p))
}
