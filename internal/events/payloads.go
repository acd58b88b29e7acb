package events

import (
	"encoding/json"
	"time"
)

// EventPayload is the interface all typed payloads implement.
type EventPayload interface {
	EventType() EventType
}

// Store lifecycle.

// StoreLoadedPayload reports how many tasks Load found under Key.
type StoreLoadedPayload struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

func (StoreLoadedPayload) EventType() EventType { return EventStoreLoaded }

// StoreLoadFailedPayload reports a snapshot that could not be read or parsed.
type StoreLoadFailedPayload struct {
	Key         string `json:"key"`
	Error       string `json:"error"`
	Quarantined string `json:"quarantined,omitempty"` // key the unreadable snapshot was copied to
}

func (StoreLoadFailedPayload) EventType() EventType { return EventStoreLoadFailed }

// Mutations carry the task id they touched.

type TodoAddedPayload struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (TodoAddedPayload) EventType() EventType { return EventTodoAdded }

// TodoDeletedPayload is published for every delete; Existed is false for an
// absent id.
type TodoDeletedPayload struct {
	ID      string `json:"id"`
	Existed bool   `json:"existed"`
}

func (TodoDeletedPayload) EventType() EventType { return EventTodoDeleted }

type TodoToggledPayload struct {
	ID          string `json:"id"`
	IsCompleted bool   `json:"is_completed"`
}

func (TodoToggledPayload) EventType() EventType { return EventTodoToggled }

type TodoEditedPayload struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (TodoEditedPayload) EventType() EventType { return EventTodoEdited }

// SnapshotSavedPayload reports a completed snapshot write.
type SnapshotSavedPayload struct {
	Key      string        `json:"key"`
	Bytes    int           `json:"bytes"`
	Duration time.Duration `json:"duration"`
}

func (SnapshotSavedPayload) EventType() EventType { return EventSnapshotSaved }

// SnapshotFailedPayload reports a snapshot write the slot rejected.
type SnapshotFailedPayload struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

func (SnapshotFailedPayload) EventType() EventType { return EventSnapshotFailed }

// NewTypedEvent builds an event from payload, stamping it with a fresh id and
// the current time. The payload is stored as its JSON object form.
func NewTypedEvent(source EventSource, payload EventPayload) Event {
	return Event{
		ID:        generateEventID(),
		Type:      payload.EventType(),
		Timestamp: time.Now(),
		Source:    source,
		Payload:   toMap(payload),
	}
}

func toMap(v any) map[string]any {
	var result map[string]any
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

// ExtractPayload decodes the payload of e as T. It reports false when e is
// not of T's event type or the payload does not decode.
func ExtractPayload[T EventPayload](e Event) (T, bool) {
	var result T
	if e.Type != result.EventType() {
		return result, false
	}
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, false
	}
	return result, true
}

func GetSnapshotFailedPayload(e Event) (SnapshotFailedPayload, bool) {
	return ExtractPayload[SnapshotFailedPayload](e)
}

func GetSnapshotSavedPayload(e Event) (SnapshotSavedPayload, bool) {
	return ExtractPayload[SnapshotSavedPayload](e)
}

func GetStoreLoadFailedPayload(e Event) (StoreLoadFailedPayload, bool) {
	return ExtractPayload[StoreLoadFailedPayload](e)
}
