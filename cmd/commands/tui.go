package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/hellotodo/clients/tui"
	"github.com/dohr-michael/hellotodo/internal/events"
)

// NewTUICommand returns the tui subcommand.
func NewTUICommand() *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Launch the interactive task list",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			// The alternate screen owns stdout/stderr; logs go to a file.
			if err := os.MkdirAll(filepath.Dir(cfg.TUI.LogFile), 0o700); err != nil {
				return fmt.Errorf("create log dir: %w", err)
			}
			logFile, err := os.OpenFile(cfg.TUI.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer logFile.Close()
			setupLogging(cmd, logFile)

			rt, err := openRuntime(ctx, cfg, false)
			if err != nil {
				return err
			}

			ch, unsubscribe := rt.bus.SubscribeChan(16,
				events.EventSnapshotSaved,
				events.EventSnapshotFailed,
				events.EventStoreLoadFailed,
			)
			defer unsubscribe()

			runErr := tui.Run(ctx, rt.store, tui.Options{
				Title:   cfg.TUI.Title,
				Storage: describeStorage(cfg.Storage),
				Events:  ch,
			})

			if err := rt.Close(); err != nil {
				slog.Error("tasks not saved on exit", "error", err)
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			}
			return runErr
		},
	}
}
