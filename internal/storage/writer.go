package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dohr-michael/hellotodo/internal/events"
)

// SnapshotWriter persists snapshots to one slot key from a background
// goroutine. Persist never blocks; when several snapshots are queued before
// the goroutine gets to them, only the newest is written.
type SnapshotWriter struct {
	slot Slot
	key  string
	bus  *events.Bus

	mu         sync.Mutex
	pending    []byte
	hasPending bool
	queued     uint64 // sequence of the newest Persist call
	written    uint64 // sequence of the newest finished write
	lastErr    error
	changed    chan struct{} // closed and replaced after each write
	closed     bool

	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
}

// NewSnapshotWriter starts a writer for key. bus may be nil.
func NewSnapshotWriter(slot Slot, key string, bus *events.Bus) *SnapshotWriter {
	w := &SnapshotWriter{
		slot:    slot,
		key:     key,
		bus:     bus,
		changed: make(chan struct{}),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go w.run()
	return w
}

// Persist queues snapshot for writing and returns immediately.
func (w *SnapshotWriter) Persist(snapshot []byte) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		slog.Warn("snapshot dropped, writer closed", "key", w.key, "bytes", len(snapshot))
		return
	}
	w.pending = snapshot
	w.hasPending = true
	w.queued++
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Flush waits until every snapshot queued before the call has been written
// and returns the error of the most recent write.
func (w *SnapshotWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	target := w.queued
	w.mu.Unlock()

	for {
		w.mu.Lock()
		if w.written >= target {
			err := w.lastErr
			w.mu.Unlock()
			return err
		}
		ch := w.changed
		w.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close writes any queued snapshot and stops the goroutine. It does not
// close the slot.
func (w *SnapshotWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.done)
	}
	w.mu.Unlock()

	select {
	case <-w.stopped:
	case <-ctx.Done():
		return ctx.Err()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

func (w *SnapshotWriter) run() {
	defer close(w.stopped)
	for {
		select {
		case <-w.wake:
			w.writePending()
		case <-w.done:
			w.writePending()
			return
		}
	}
}

func (w *SnapshotWriter) writePending() {
	w.mu.Lock()
	if !w.hasPending {
		w.mu.Unlock()
		return
	}
	data, seq := w.pending, w.queued
	w.pending, w.hasPending = nil, false
	w.mu.Unlock()

	start := time.Now()
	err := w.slot.Set(context.Background(), w.key, data)
	elapsed := time.Since(start)

	if err != nil {
		slog.Error("snapshot write failed", "key", w.key, "error", err)
		w.bus.Publish(events.NewTypedEvent(events.SourceWriter, events.SnapshotFailedPayload{
			Key:   w.key,
			Error: err.Error(),
		}))
	} else {
		slog.Debug("snapshot written", "key", w.key, "bytes", len(data), "duration", elapsed)
		w.bus.Publish(events.NewTypedEvent(events.SourceWriter, events.SnapshotSavedPayload{
			Key:      w.key,
			Bytes:    len(data),
			Duration: elapsed,
		}))
	}

	w.mu.Lock()
	w.written = seq
	w.lastErr = err
	close(w.changed)
	w.changed = make(chan struct{})
	w.mu.Unlock()
}
