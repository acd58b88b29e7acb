package todos

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"filippo.io/age"

	"github.com/dohr-michael/hellotodo/internal/events"
	"github.com/dohr-michael/hellotodo/internal/storage"
)

// capturePersister keeps every snapshot it is given.
type capturePersister struct {
	snapshots [][]byte
}

func (c *capturePersister) Persist(snapshot []byte) {
	c.snapshots = append(c.snapshots, snapshot)
}

func (c *capturePersister) last(t *testing.T) []byte {
	t.Helper()
	if len(c.snapshots) == 0 {
		t.Fatal("no snapshot persisted")
	}
	return c.snapshots[len(c.snapshots)-1]
}

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time {
	c.t = c.t.Add(1500 * time.Microsecond)
	return c.t
}

func newTestStore(t *testing.T) (*Store, *capturePersister) {
	t.Helper()
	clock := &testClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	seq := 0
	p := &capturePersister{}
	s := NewStore(storage.NewMemorySlot(), p, Options{
		Key: "toDos",
		Now: clock.Now,
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%03d", seq)
		},
	})
	s.Load(context.Background())
	return s, p
}

func TestAdd_DistinctIDs(t *testing.T) {
	s := NewStore(storage.NewMemorySlot(), &capturePersister{}, Options{Key: "toDos"})
	s.Load(context.Background())

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		todo, err := s.Add(fmt.Sprintf("task %d", i))
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if seen[todo.ID] {
			t.Fatalf("duplicate id %s", todo.ID)
		}
		seen[todo.ID] = true
	}
	if s.Len() != 50 {
		t.Errorf("Len = %d, want 50", s.Len())
	}
}

func TestAdd_RegeneratesCollidingID(t *testing.T) {
	ids := []string{"same", "same", "other"}
	s := NewStore(storage.NewMemorySlot(), &capturePersister{}, Options{
		Key: "toDos",
		NewID: func() string {
			id := ids[0]
			ids = ids[1:]
			return id
		},
	})
	s.Load(context.Background())

	a, _ := s.Add("a")
	b, _ := s.Add("b")
	if a.ID == b.ID {
		t.Fatalf("colliding id reused: %s", a.ID)
	}
}

func TestAdd_NewestFirst(t *testing.T) {
	s, _ := newTestStore(t)

	first, _ := s.Add("first")
	second, _ := s.Add("second")
	third, _ := s.Add("third")

	list := s.List()
	want := []string{third.ID, second.ID, first.ID}
	if len(list) != len(want) {
		t.Fatalf("List len = %d, want %d", len(list), len(want))
	}
	for i, todo := range list {
		if todo.ID != want[i] {
			t.Errorf("List[%d] = %s, want %s", i, todo.ID, want[i])
		}
	}
}

func TestAdd_Defaults(t *testing.T) {
	s, p := newTestStore(t)

	todo, err := s.Add("")
	if err != nil {
		t.Fatalf("Add empty text: %v", err)
	}
	if todo.Text != "" || todo.IsCompleted {
		t.Errorf("unexpected new todo %+v", todo)
	}
	if todo.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
	if todo.CreatedAt.Nanosecond()%int(time.Millisecond) != 0 {
		t.Errorf("CreatedAt not truncated to ms: %v", todo.CreatedAt)
	}
	if len(p.snapshots) != 1 {
		t.Errorf("expected 1 snapshot, got %d", len(p.snapshots))
	}
}

func TestDelete_Idempotent(t *testing.T) {
	s, p := newTestStore(t)

	keep, _ := s.Add("keep")
	drop, _ := s.Add("drop")

	if err := s.Delete(drop.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := s.Get(drop.ID); ok {
		t.Fatal("deleted todo still present")
	}
	once := string(p.last(t))

	if err := s.Delete(drop.ID); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if twice := string(p.last(t)); twice != once {
		t.Errorf("second Delete changed state:\n%s\n%s", once, twice)
	}
	if _, ok := s.Get(keep.ID); !ok {
		t.Error("unrelated todo removed")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestToggle_Involution(t *testing.T) {
	s, _ := newTestStore(t)
	todo, _ := s.Add("flip me")

	once, err := s.Toggle(todo.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !once.IsCompleted {
		t.Error("first toggle should complete")
	}
	twice, err := s.Toggle(todo.ID)
	if err != nil {
		t.Fatal(err)
	}
	if twice != todo {
		t.Errorf("double toggle = %+v, want %+v", twice, todo)
	}
}

func TestToggle_NotFound(t *testing.T) {
	s, p := newTestStore(t)
	s.Add("present")
	before := len(p.snapshots)

	_, err := s.Toggle("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Toggle missing: err = %v, want ErrNotFound", err)
	}
	if len(p.snapshots) != before {
		t.Error("failed Toggle persisted a snapshot")
	}
}

func TestEdit_OnlyText(t *testing.T) {
	s, _ := newTestStore(t)
	todo, _ := s.Add("draft")
	s.Toggle(todo.ID)

	edited, err := s.Edit(todo.ID, "final")
	if err != nil {
		t.Fatal(err)
	}
	if edited.Text != "final" {
		t.Errorf("Text = %q, want final", edited.Text)
	}
	if edited.ID != todo.ID || !edited.CreatedAt.Equal(todo.CreatedAt) {
		t.Errorf("identity changed: %+v vs %+v", edited, todo)
	}
	if !edited.IsCompleted {
		t.Error("Edit changed IsCompleted")
	}
}

func TestEdit_NotFound(t *testing.T) {
	s, p := newTestStore(t)
	before := len(p.snapshots)

	if _, err := s.Edit("missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Edit missing: err = %v, want ErrNotFound", err)
	}
	if len(p.snapshots) != before {
		t.Error("failed Edit persisted a snapshot")
	}
}

func TestMutationsBeforeLoad(t *testing.T) {
	p := &capturePersister{}
	s := NewStore(storage.NewMemorySlot(), p, Options{Key: "toDos"})

	if s.Ready() {
		t.Fatal("store ready before Load")
	}
	if _, err := s.Add("x"); !errors.Is(err, ErrNotReady) {
		t.Errorf("Add before Load: %v", err)
	}
	if err := s.Delete("x"); !errors.Is(err, ErrNotReady) {
		t.Errorf("Delete before Load: %v", err)
	}
	if _, err := s.Toggle("x"); !errors.Is(err, ErrNotReady) {
		t.Errorf("Toggle before Load: %v", err)
	}
	if _, err := s.Edit("x", "y"); !errors.Is(err, ErrNotReady) {
		t.Errorf("Edit before Load: %v", err)
	}
	if len(p.snapshots) != 0 {
		t.Error("snapshot persisted before Load")
	}
}

func TestScenario_BuyMilk(t *testing.T) {
	s, p := newTestStore(t)

	todo, err := s.Add("buy milk")
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 1 || todo.Text != "buy milk" || todo.IsCompleted {
		t.Fatalf("after Add: len=%d todo=%+v", s.Len(), todo)
	}

	todo, _ = s.Toggle(todo.ID)
	if !todo.IsCompleted {
		t.Fatal("after Toggle: not completed")
	}

	todo, _ = s.Edit(todo.ID, "buy oat milk")
	if todo.Text != "buy oat milk" || !todo.IsCompleted {
		t.Fatalf("after Edit: %+v", todo)
	}

	if err := s.Delete(todo.ID); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 {
		t.Fatalf("after Delete: len=%d", s.Len())
	}

	if len(p.snapshots) != 4 {
		t.Errorf("expected one snapshot per mutation, got %d", len(p.snapshots))
	}
	if string(p.last(t)) != "{}" {
		t.Errorf("final snapshot = %s, want {}", p.last(t))
	}
}

func TestLoad_PersistedSnapshot(t *testing.T) {
	ctx := context.Background()
	slot := storage.NewMemorySlot()
	snapshot := `{"b":{"id":"b","text":"newer","isCompleted":true,"createdAt":1700000001000},` +
		`"a":{"id":"a","text":"older","isCompleted":false,"createdAt":1700000000000}}`
	if err := slot.Set(ctx, "toDos", []byte(snapshot)); err != nil {
		t.Fatal(err)
	}

	s := NewStore(slot, &capturePersister{}, Options{Key: "toDos"})
	s.Load(ctx)

	list := s.List()
	if len(list) != 2 || list[0].ID != "b" || list[1].ID != "a" {
		t.Fatalf("unexpected list %+v", list)
	}
	if !list[0].IsCompleted || list[0].CreatedAt.UnixMilli() != 1700000001000 {
		t.Errorf("unexpected first entry %+v", list[0])
	}
	if st := s.Stats(); st.Total != 2 || st.Completed != 1 || st.Pending() != 1 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestLoad_InvalidSnapshot(t *testing.T) {
	ctx := context.Background()
	slot := storage.NewMemorySlot()
	if err := slot.Set(ctx, "toDos", []byte("not json {")); err != nil {
		t.Fatal(err)
	}

	bus := events.NewBus(8)
	defer bus.Close()
	failures, unsub := bus.SubscribeChan(1, events.EventStoreLoadFailed)
	defer unsub()

	s := NewStore(slot, &capturePersister{}, Options{Key: "toDos", Bus: bus})
	s.Load(ctx)

	if !s.Ready() {
		t.Fatal("store not ready after failed load")
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d, want empty collection", s.Len())
	}

	saved, err := slot.Get(ctx, "toDos.corrupt")
	if err != nil {
		t.Fatalf("corrupt snapshot not quarantined: %v", err)
	}
	if string(saved) != "not json {" {
		t.Errorf("quarantined = %q", saved)
	}

	select {
	case e := <-failures:
		p, ok := events.GetStoreLoadFailedPayload(e)
		if !ok || p.Quarantined != "toDos.corrupt" {
			t.Errorf("unexpected payload %+v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for store.load_failed")
	}
}

// failingSlot fails every read.
type failingSlot struct{ storage.MemorySlot }

func (*failingSlot) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("permission denied")
}

func TestLoad_ReadError(t *testing.T) {
	s := NewStore(&failingSlot{}, &capturePersister{}, Options{Key: "toDos"})
	s.Load(context.Background())

	if !s.Ready() || s.Len() != 0 {
		t.Fatalf("ready=%v len=%d, want ready and empty", s.Ready(), s.Len())
	}
	if _, err := s.Add("still works"); err != nil {
		t.Fatalf("Add after failed load: %v", err)
	}
}

func loadTestIdentity(t *testing.T, name string) *age.X25519Identity {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := storage.GenerateIdentity(path); err != nil {
		t.Fatal(err)
	}
	id, err := storage.LoadIdentity(path)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestLoad_UndecryptableSnapshotIsSetAside(t *testing.T) {
	ctx := context.Background()
	inner := storage.NewMemorySlot()
	if err := storage.NewAgeSlot(inner, loadTestIdentity(t, "old-key")).Set(ctx, "toDos", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	original, err := inner.Get(ctx, "toDos")
	if err != nil {
		t.Fatal(err)
	}

	bus := events.NewBus(8)
	defer bus.Close()
	failures, unsub := bus.SubscribeChan(1, events.EventStoreLoadFailed)
	defer unsub()

	slot := storage.NewAgeSlot(inner, loadTestIdentity(t, "new-key"))
	writer := storage.NewSnapshotWriter(slot, "toDos", nil)
	s := NewStore(slot, writer, Options{Key: "toDos", Bus: bus})
	s.Load(ctx)

	if !s.Ready() || s.Len() != 0 {
		t.Fatalf("ready=%v len=%d, want ready and empty", s.Ready(), s.Len())
	}
	if _, err := s.Add("after key rotation"); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(ctx); err != nil {
		t.Fatal(err)
	}

	kept, err := inner.Get(ctx, "toDos.corrupt")
	if err != nil {
		t.Fatalf("corrupt copy: %v", err)
	}
	if string(kept) != string(original) {
		t.Error("corrupt copy differs from the stored ciphertext")
	}

	select {
	case e := <-failures:
		p, ok := events.GetStoreLoadFailedPayload(e)
		if !ok || p.Quarantined != "toDos.corrupt" {
			t.Errorf("load_failed payload = %+v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for load_failed")
	}
}

func TestLoad_NullSnapshot(t *testing.T) {
	ctx := context.Background()
	slot := storage.NewMemorySlot()
	slot.Set(ctx, "toDos", []byte("null"))

	s := NewStore(slot, &capturePersister{}, Options{Key: "toDos"})
	s.Load(ctx)

	if s.Len() != 0 {
		t.Fatalf("Len = %d, want 0", s.Len())
	}
	if _, err := slot.Get(ctx, "toDos.corrupt"); !errors.Is(err, storage.ErrNotFound) {
		t.Error("null snapshot should not be quarantined")
	}
}

func TestRoundTrip_ThroughWriter(t *testing.T) {
	ctx := context.Background()
	slot := storage.NewMemorySlot()
	w := storage.NewSnapshotWriter(slot, "toDos", nil)

	s := NewStore(slot, w, Options{Key: "toDos"})
	s.Load(ctx)
	a, _ := s.Add("one")
	b, _ := s.Add("two")
	s.Toggle(a.ID)
	s.Edit(b.ID, "two!")

	if err := w.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reloaded := NewStore(slot, &capturePersister{}, Options{Key: "toDos"})
	reloaded.Load(ctx)

	got, want := reloaded.List(), s.List()
	if len(got) != len(want) {
		t.Fatalf("reloaded %d todos, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Text != want[i].Text ||
			got[i].IsCompleted != want[i].IsCompleted || !got[i].CreatedAt.Equal(want[i].CreatedAt) {
			t.Errorf("entry %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestResolve(t *testing.T) {
	ids := []string{"abc123", "abd456", "xyz789"}
	s := NewStore(storage.NewMemorySlot(), &capturePersister{}, Options{
		Key: "toDos",
		NewID: func() string {
			id := ids[0]
			ids = ids[1:]
			return id
		},
	})
	s.Load(context.Background())
	for _, text := range []string{"a", "b", "c"} {
		if _, err := s.Add(text); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		prefix string
		want   string
		err    error
	}{
		{"abd456", "abd456", nil},
		{"abc", "abc123", nil},
		{"x", "xyz789", nil},
		{"ab", "", ErrAmbiguousID},
		{"q", "", ErrNotFound},
		{"", "", ErrNotFound},
	}
	for _, tt := range tests {
		got, err := s.Resolve(tt.prefix)
		if tt.err != nil {
			if !errors.Is(err, tt.err) {
				t.Errorf("Resolve(%q) err = %v, want %v", tt.prefix, err, tt.err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Resolve(%q) = %q, %v, want %q", tt.prefix, got, err, tt.want)
		}
	}
}

func TestMutationEventsPublished(t *testing.T) {
	bus := events.NewBus(16)
	defer bus.Close()
	ch, unsub := bus.SubscribeChan(8, events.EventTodoAdded, events.EventTodoToggled)
	defer unsub()

	s := NewStore(storage.NewMemorySlot(), &capturePersister{}, Options{Key: "toDos", Bus: bus})
	s.Load(context.Background())
	todo, _ := s.Add("observe me")
	s.Toggle(todo.ID)

	seen := map[events.EventType]bool{}
	timeout := time.After(time.Second)
	for len(seen) < 2 {
		select {
		case e := <-ch:
			seen[e.Type] = true
		case <-timeout:
			t.Fatalf("saw %v, want added and toggled", seen)
		}
	}
}
