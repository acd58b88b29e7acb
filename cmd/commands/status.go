package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/hellotodo/internal/config"
	"github.com/dohr-michael/hellotodo/internal/events"
	"github.com/dohr-michael/hellotodo/internal/storage"
	"github.com/dohr-michael/hellotodo/internal/todos"
)

// NewStatusCommand returns the status subcommand.
func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show where tasks are kept and how many are done",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "events", Value: 5, Usage: "Recent events to show from the event log"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withRuntime(ctx, cmd, func(rt *runtime) error {
				w := stdout(cmd)
				st := rt.cfg.Storage
				stats := rt.store.Stats()

				fmt.Fprintf(w, "Storage:   %s\n", describeStorage(st))
				fmt.Fprintf(w, "Key:       %s\n", st.Key)
				fmt.Fprintf(w, "Encrypted: %t\n", st.Encrypt)
				fmt.Fprintf(w, "Tasks:     %d (%d done, %d pending)\n", stats.Total, stats.Completed, stats.Pending())

				corrupt := todos.CorruptKey(st.Key)
				if _, err := storage.Raw(rt.slot).Get(ctx, corrupt); err == nil {
					fmt.Fprintf(w, "Warning:   an unreadable snapshot was set aside as %q\n", corrupt)
				} else if !errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("check %s: %w", corrupt, err)
				}

				if rt.eventLog == nil {
					return nil
				}
				recent, err := storage.TailEventLog(eventLogPath(rt.cfg), cmd.Int("events"))
				if err != nil {
					return err
				}
				writeEvents(w, recent)
				return nil
			})
		},
	}
}

func describeStorage(st config.StorageConfig) string {
	switch st.Driver {
	case config.DriverMemory:
		return "memory (not persisted)"
	case config.DriverSQLite:
		return "sqlite " + filepath.Join(st.Dir, storage.SQLiteFile)
	default:
		return "file " + st.Dir
	}
}

// writeEvents prints events from earlier runs, oldest first.
func writeEvents(w io.Writer, recent []events.Event) {
	if len(recent) == 0 {
		return
	}
	fmt.Fprintln(w, "Recent events:")
	for _, e := range recent {
		fmt.Fprintf(w, "  %s  %-17s %s\n", e.Timestamp.Local().Format(time.DateTime), e.Type, eventSubject(e))
	}
}

func eventSubject(e events.Event) string {
	if msg, ok := e.Payload["error"].(string); ok && msg != "" {
		return msg
	}
	if id, ok := e.Payload["id"].(string); ok {
		return shortID(id)
	}
	key, _ := e.Payload["key"].(string)
	return key
}
