package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/hellotodo/internal/config"
	"github.com/dohr-michael/hellotodo/internal/events"
	"github.com/dohr-michael/hellotodo/internal/storage"
	"github.com/dohr-michael/hellotodo/internal/todos"
)

// runtime wires config, storage, the event bus and the store for one
// command invocation.
type runtime struct {
	cfg      *config.Config
	bus      *events.Bus
	slot     storage.Slot
	writer   *storage.SnapshotWriter
	eventLog *storage.EventLogger
	store    *todos.Store
}

// loadConfig reads the config file named by --config and applies CLI overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	configPath := cmd.String("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		slog.Debug("config not found, using defaults", "path", configPath)
		cfg = config.Default()
	}

	// CLI flags override config
	if cmd.IsSet("driver") {
		cfg.Storage.Driver = cmd.String("driver")
	}
	if cmd.Bool("ephemeral") {
		cfg.Storage.Driver = config.DriverMemory
	}
	return cfg, nil
}

// setupLogging installs the default slog handler writing to w.
func setupLogging(cmd *cli.Command, w io.Writer) {
	level := slog.LevelWarn
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// openRuntime builds the runtime. With load set, the store is loaded before
// returning; otherwise the caller loads it. The caller must Close it.
func openRuntime(ctx context.Context, cfg *config.Config, load bool) (*runtime, error) {
	slot, err := storage.Open(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	bus := events.NewBus(cfg.Events.BufferSize)

	var eventLog *storage.EventLogger
	if cfg.Storage.Driver != config.DriverMemory {
		eventLog, err = storage.NewEventLogger(eventLogPath(cfg), bus)
		if err != nil {
			slog.Warn("event log disabled", "error", err)
		}
	}

	writer := storage.NewSnapshotWriter(slot, cfg.Storage.Key, bus)
	store := todos.NewStore(slot, writer, todos.Options{
		Key: cfg.Storage.Key,
		Bus: bus,
	})
	if load {
		store.Load(ctx)
	}

	return &runtime{
		cfg:      cfg,
		bus:      bus,
		slot:     slot,
		writer:   writer,
		eventLog: eventLog,
		store:    store,
	}, nil
}

// eventLogPath is where bus events are appended for persistent drivers.
func eventLogPath(cfg *config.Config) string {
	return filepath.Join(cfg.Storage.Dir, "events.jsonl")
}

// Close writes any pending snapshot, then releases the bus and storage.
// The returned error is the last snapshot write failure, if any.
func (r *runtime) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Storage.FlushTimeout.Duration())
	defer cancel()

	writeErr := r.writer.Close(ctx)
	// Closing the bus delivers queued events, so the log sees the final save.
	r.bus.Close()
	if r.eventLog != nil {
		r.eventLog.Close()
	}
	if err := r.slot.Close(); err != nil {
		slog.Warn("close storage", "error", err)
	}

	if writeErr != nil {
		return fmt.Errorf("save tasks: %w", writeErr)
	}
	return nil
}

// withRuntime runs fn against a freshly loaded store and closes it afterwards.
func withRuntime(ctx context.Context, cmd *cli.Command, fn func(*runtime) error) (err error) {
	setupLogging(cmd, os.Stderr)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rt, err := openRuntime(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(rt)
}
