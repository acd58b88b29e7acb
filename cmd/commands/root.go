package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/hellotodo/internal/config"
)

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "hellotodo",
		Usage: "A small task list kept on this machine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.StringFlag{
				Name:  "driver",
				Usage: "Storage driver (file, sqlite, memory)",
			},
			&cli.BoolFlag{
				Name:  "ephemeral",
				Usage: "Keep tasks in memory only",
			},
		},
		Commands: []*cli.Command{
			NewTUICommand(),
			NewListCommand(),
			NewAddCommand(),
			NewToggleCommand(),
			NewEditCommand(),
			NewDeleteCommand(),
			NewExportCommand(),
			NewStatusCommand(),
		},
		DefaultCommand: "tui",
	}
}
