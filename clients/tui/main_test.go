package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dohr-michael/hellotodo/clients/tui/organisms"
	"github.com/dohr-michael/hellotodo/internal/storage"
	"github.com/dohr-michael/hellotodo/internal/todos"
)

type nopPersister struct{ count int }

func (p *nopPersister) Persist([]byte) { p.count++ }

func newTestModel(t *testing.T, snapshot string) (MainModel, *todos.Store, *nopPersister) {
	t.Helper()
	slot := storage.NewMemorySlot()
	if snapshot != "" {
		if err := slot.Set(context.Background(), "toDos", []byte(snapshot)); err != nil {
			t.Fatalf("seed slot: %v", err)
		}
	}
	p := &nopPersister{}
	store := todos.NewStore(slot, p, todos.Options{Key: "toDos"})
	m := NewMainModel(context.Background(), store, Options{Title: "Hello Todo", Storage: "memory:toDos"})
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	return m, store, p
}

func update(t *testing.T, m MainModel, msg tea.Msg) MainModel {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(MainModel)
}

// press sends a key and feeds the message produced by the resulting command
// back into the model. Only used for keys whose command is a plain request.
func press(t *testing.T, m MainModel, k tea.KeyMsg) MainModel {
	t.Helper()
	next, cmd := m.Update(k)
	m = next.(MainModel)
	if cmd == nil {
		return m
	}
	if msg := cmd(); msg != nil {
		m = update(t, m, msg)
	}
	return m
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func loaded(t *testing.T, m MainModel) MainModel {
	t.Helper()
	return update(t, m, m.load()())
}

func TestLoadGate(t *testing.T) {
	m, store, p := newTestModel(t, `{"a":{"id":"a","text":"saved","isCompleted":false,"createdAt":1}}`)

	if m.Mode() != organisms.ModeLoading {
		t.Fatalf("mode = %v, want loading", m.Mode())
	}
	if !strings.Contains(m.View(), "Loading tasks") {
		t.Error("expected spinner while loading")
	}

	// Keys are ignored until the snapshot is read.
	m = update(t, m, runes("x"))
	m = update(t, m, enter)
	if store.Ready() || p.count != 0 {
		t.Fatalf("store touched before load: ready=%v persisted=%d", store.Ready(), p.count)
	}

	m = loaded(t, m)
	if m.Mode() != organisms.ModeInput {
		t.Fatalf("mode = %v, want input", m.Mode())
	}
	if got := m.list.Items(); len(got) != 1 || got[0].Text != "saved" {
		t.Fatalf("items = %+v", got)
	}
	if !strings.Contains(m.View(), "saved") {
		t.Error("loaded task not rendered")
	}
}

func TestCtrlCQuitsWhileLoading(t *testing.T) {
	m, _, _ := newTestModel(t, "")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestSubmitAddsNewestFirst(t *testing.T) {
	m, store, p := newTestModel(t, "")
	m = loaded(t, m)

	m = update(t, m, runes("buy milk"))
	m = press(t, m, enter)
	m = update(t, m, runes("walk dog"))
	m = press(t, m, enter)

	list := store.List()
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].Text != "walk dog" || list[1].Text != "buy milk" {
		t.Errorf("order = %q, %q", list[0].Text, list[1].Text)
	}
	if p.count != 2 {
		t.Errorf("persisted %d times, want 2", p.count)
	}
	if m.input.Value() != "" {
		t.Errorf("input not cleared: %q", m.input.Value())
	}
}

func TestSubmitEmptyText(t *testing.T) {
	m, store, _ := newTestModel(t, "")
	m = loaded(t, m)

	press(t, m, enter)
	if store.Len() != 1 {
		t.Fatalf("len = %d, want 1", store.Len())
	}
	if got := store.List()[0].Text; got != "" {
		t.Errorf("text = %q, want empty", got)
	}
}

func TestQTypesInInput(t *testing.T) {
	m, _, _ := newTestModel(t, "")
	m = loaded(t, m)

	m = update(t, m, runes("q"))
	if m.input.Value() != "q" {
		t.Errorf("input = %q, want %q", m.input.Value(), "q")
	}
}

func TestListActions(t *testing.T) {
	m, store, _ := newTestModel(t, "")
	m = loaded(t, m)
	m = update(t, m, runes("first"))
	m = press(t, m, enter)
	m = update(t, m, runes("second"))
	m = press(t, m, enter)

	m = update(t, m, tab)
	if m.Mode() != organisms.ModeList {
		t.Fatalf("mode = %v, want list", m.Mode())
	}

	// Cursor starts on the newest task.
	m = press(t, m, space)
	list := store.List()
	if !list[0].IsCompleted || list[1].IsCompleted {
		t.Fatalf("toggle hit the wrong task: %+v", list)
	}

	m = update(t, m, runes("j"))
	if m.list.Cursor() != 1 {
		t.Fatalf("cursor = %d, want 1", m.list.Cursor())
	}

	m = update(t, m, runes("e"))
	if m.Mode() != organisms.ModeEditing {
		t.Fatalf("mode = %v, want editing", m.Mode())
	}
	m = update(t, m, runes("!"))
	m = press(t, m, enter)
	if m.Mode() != organisms.ModeList {
		t.Fatalf("mode = %v, want list", m.Mode())
	}
	if got := store.List()[1].Text; got != "first!" {
		t.Errorf("edited text = %q, want %q", got, "first!")
	}

	m = press(t, m, runes("d"))
	if store.Len() != 1 || store.List()[0].Text != "second" {
		t.Errorf("after delete: %+v", store.List())
	}
	if m.list.Cursor() != 0 {
		t.Errorf("cursor = %d, want 0", m.list.Cursor())
	}
}

func TestEditCancel(t *testing.T) {
	m, store, p := newTestModel(t, "")
	m = loaded(t, m)
	m = update(t, m, runes("keep"))
	m = press(t, m, enter)
	m = update(t, m, tab)

	m = update(t, m, runes("e"))
	m = update(t, m, runes("xyz"))
	m = update(t, m, esc)

	if m.Mode() != organisms.ModeList {
		t.Fatalf("mode = %v, want list", m.Mode())
	}
	if got := store.List()[0].Text; got != "keep" {
		t.Errorf("text = %q, want unchanged", got)
	}
	if p.count != 1 {
		t.Errorf("persisted %d times, want 1", p.count)
	}
}

func TestQuitFromList(t *testing.T) {
	m, _, _ := newTestModel(t, "")
	m = loaded(t, m)
	m = update(t, m, tab)

	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestMissingTaskShowsNotice(t *testing.T) {
	m, _, _ := newTestModel(t, "")
	m = loaded(t, m)

	m = update(t, m, organisms.ToggleRequestMsg{ID: "gone"})
	if m.info.Notice() != "task no longer exists" {
		t.Errorf("notice = %q", m.info.Notice())
	}
}

func TestSaveFailureInStatusBar(t *testing.T) {
	m, _, _ := newTestModel(t, "")
	m = loaded(t, m)

	m = update(t, m, SnapshotFailedMsg{Error: "disk full"})
	if m.info.SaveError() != "disk full" {
		t.Fatalf("save error = %q", m.info.SaveError())
	}
	if !strings.Contains(m.View(), "not saved: disk full") {
		t.Error("status bar does not show the failure")
	}

	m = update(t, m, SnapshotSavedMsg{Bytes: 2})
	if m.info.SaveError() != "" {
		t.Errorf("save error not cleared: %q", m.info.SaveError())
	}
}

func TestLoadFailureNotice(t *testing.T) {
	m, _, _ := newTestModel(t, "")
	m = loaded(t, m)

	m = update(t, m, LoadFailedMsg{Error: "bad json", Quarantined: "toDos.corrupt"})
	if !strings.Contains(m.info.Notice(), "toDos.corrupt") {
		t.Errorf("notice = %q", m.info.Notice())
	}
}
