package tui

import (
	"testing"

	"github.com/dohr-michael/hellotodo/internal/events"
)

func TestProject(t *testing.T) {
	failed := Project(events.NewTypedEvent(events.SourceWriter, events.SnapshotFailedPayload{Key: "toDos", Error: "disk full"}))
	if msg, ok := failed.(SnapshotFailedMsg); !ok || msg.Error != "disk full" {
		t.Errorf("snapshot.failed projected to %#v", failed)
	}

	saved := Project(events.NewTypedEvent(events.SourceWriter, events.SnapshotSavedPayload{Key: "toDos", Bytes: 42}))
	if msg, ok := saved.(SnapshotSavedMsg); !ok || msg.Bytes != 42 {
		t.Errorf("snapshot.saved projected to %#v", saved)
	}

	loadFailed := Project(events.NewTypedEvent(events.SourceStore, events.StoreLoadFailedPayload{Key: "toDos", Error: "bad", Quarantined: "toDos.corrupt"}))
	if msg, ok := loadFailed.(LoadFailedMsg); !ok || msg.Quarantined != "toDos.corrupt" {
		t.Errorf("store.load_failed projected to %#v", loadFailed)
	}

	if msg := Project(events.NewTypedEvent(events.SourceStore, events.TodoAddedPayload{ID: "a"})); msg != nil {
		t.Errorf("todo.added projected to %#v, want nil", msg)
	}
}

func TestListenSkipsAndCloses(t *testing.T) {
	ch := make(chan events.Event, 2)
	ch <- events.NewTypedEvent(events.SourceStore, events.TodoAddedPayload{ID: "a"})
	ch <- events.NewTypedEvent(events.SourceWriter, events.SnapshotFailedPayload{Error: "boom"})

	if msg, ok := listen(ch)().(SnapshotFailedMsg); !ok || msg.Error != "boom" {
		t.Fatalf("listen returned %#v", msg)
	}

	close(ch)
	if _, ok := listen(ch)().(busClosedMsg); !ok {
		t.Error("expected busClosedMsg after close")
	}

	if listen(nil) != nil {
		t.Error("listen(nil) should return nil")
	}
}
