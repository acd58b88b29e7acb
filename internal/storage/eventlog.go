package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/dohr-michael/hellotodo/internal/events"
)

// EventLogger appends every bus event to a JSONL file, giving a durable
// trail of mutations and persistence failures.
type EventLogger struct {
	mu          sync.Mutex
	path        string
	unsubscribe func()
}

// NewEventLogger subscribes to all bus events and appends them to path.
func NewEventLogger(path string, bus *events.Bus) (*EventLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create event log dir: %w", err)
	}
	el := &EventLogger{path: path}
	el.unsubscribe = bus.Subscribe(el.handleEvent)
	return el, nil
}

// Close unsubscribes the logger from the event bus. Close the bus first so
// queued events still reach the file.
func (el *EventLogger) Close() {
	if el.unsubscribe != nil {
		el.unsubscribe()
	}
}

func (el *EventLogger) handleEvent(e events.Event) {
	if err := el.writeEvent(e); err != nil {
		slog.Warn("append event log", "path", el.path, "type", e.Type, "error", err)
	}
}

func (el *EventLogger) writeEvent(e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	el.mu.Lock()
	defer el.mu.Unlock()

	f, err := os.OpenFile(el.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}

// TailEventLog returns the last n events recorded at path, oldest first. A
// missing log yields no events. Lines that do not decode are skipped.
func TailEventLog(path string, n int) ([]events.Event, error) {
	if n <= 0 {
		return nil, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	recent := events.NewRingBuffer(n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e events.Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			slog.Debug("skip event log line", "path", path, "error", err)
			continue
		}
		recent.Add(e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}
	return recent.Get(n), nil
}
