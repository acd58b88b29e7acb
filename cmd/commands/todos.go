package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/dohr-michael/hellotodo/internal/todos"
)

var (
	doneMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E7D32")).Render("●")
	pendingMark = lipgloss.NewStyle().Foreground(lipgloss.Color("#F23657")).Render("○")
	doneText    = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).Strikethrough(true)
)

func formatFlag(formats ...string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format (" + strings.Join(formats, ", ") + ")",
		Value:   formats[0],
		Validator: func(v string) error {
			for _, f := range formats {
				if v == f {
					return nil
				}
			}
			return fmt.Errorf("unsupported format %q", v)
		},
	}
}

// NewListCommand returns the list subcommand.
func NewListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List tasks, newest first",
		Flags: []cli.Flag{
			formatFlag("table", "json", "yaml"),
			&cli.BoolFlag{Name: "pending", Usage: "Only tasks not yet completed"},
			&cli.BoolFlag{Name: "done", Usage: "Only completed tasks"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withRuntime(ctx, cmd, func(rt *runtime) error {
				list := filterTodos(rt.store.List(), cmd.Bool("pending"), cmd.Bool("done"))
				w := stdout(cmd)
				return writeTodos(w, list, cmd.String("format"), isTerminal(w))
			})
		},
	}
}

// NewAddCommand returns the add subcommand.
func NewAddCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add a task",
		ArgsUsage: "<text...>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			text := strings.Join(cmd.Args().Slice(), " ")
			return withRuntime(ctx, cmd, func(rt *runtime) error {
				t, err := rt.store.Add(text)
				if err != nil {
					return fmt.Errorf("add task: %w", err)
				}
				fmt.Fprintln(stdout(cmd), t.ID)
				return nil
			})
		},
	}
}

// NewToggleCommand returns the toggle subcommand.
func NewToggleCommand() *cli.Command {
	return &cli.Command{
		Name:      "toggle",
		Aliases:   []string{"done"},
		Usage:     "Flip a task between pending and completed",
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			prefix := cmd.Args().First()
			if prefix == "" {
				return fmt.Errorf("usage: hellotodo toggle <id>")
			}
			return withRuntime(ctx, cmd, func(rt *runtime) error {
				id, err := rt.store.Resolve(prefix)
				if err != nil {
					return err
				}
				t, err := rt.store.Toggle(id)
				if err != nil {
					return err
				}
				state := "pending"
				if t.IsCompleted {
					state = "completed"
				}
				fmt.Fprintf(stdout(cmd), "Task %s is %s.\n", shortID(t.ID), state)
				return nil
			})
		},
	}
}

// NewEditCommand returns the edit subcommand.
func NewEditCommand() *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Replace the text of a task",
		ArgsUsage: "<id> <text...>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()
			if len(args) == 0 {
				return fmt.Errorf("usage: hellotodo edit <id> <text...>")
			}
			text := strings.Join(args[1:], " ")
			return withRuntime(ctx, cmd, func(rt *runtime) error {
				id, err := rt.store.Resolve(args[0])
				if err != nil {
					return err
				}
				if _, err := rt.store.Edit(id, text); err != nil {
					return err
				}
				fmt.Fprintf(stdout(cmd), "Task %s updated.\n", shortID(id))
				return nil
			})
		},
	}
}

// NewDeleteCommand returns the delete subcommand.
func NewDeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete a task",
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			prefix := cmd.Args().First()
			if prefix == "" {
				return fmt.Errorf("usage: hellotodo delete <id>")
			}
			return withRuntime(ctx, cmd, func(rt *runtime) error {
				id, err := rt.store.Resolve(prefix)
				missing := errors.Is(err, todos.ErrNotFound)
				switch {
				case missing:
					// Deleting an unknown task is a no-op.
					id = prefix
				case err != nil:
					return err
				}
				if err := rt.store.Delete(id); err != nil {
					return err
				}
				if missing {
					fmt.Fprintf(stdout(cmd), "No task matches %s.\n", prefix)
					return nil
				}
				fmt.Fprintf(stdout(cmd), "Task %s deleted.\n", shortID(id))
				return nil
			})
		},
	}
}

// NewExportCommand returns the export subcommand.
func NewExportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Print the persisted snapshot",
		Flags: []cli.Flag{
			formatFlag("json", "yaml"),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withRuntime(ctx, cmd, func(rt *runtime) error {
				if cmd.String("format") == "yaml" {
					return writeTodos(stdout(cmd), rt.store.List(), "yaml", false)
				}
				data, err := rt.store.Snapshot()
				if err != nil {
					return fmt.Errorf("encode snapshot: %w", err)
				}
				var buf bytes.Buffer
				if err := json.Indent(&buf, data, "", "  "); err != nil {
					return fmt.Errorf("indent snapshot: %w", err)
				}
				buf.WriteByte('\n')
				_, err = buf.WriteTo(stdout(cmd))
				return err
			})
		},
	}
}

func filterTodos(list []todos.Todo, pendingOnly, doneOnly bool) []todos.Todo {
	if pendingOnly == doneOnly {
		return list
	}
	out := list[:0:0]
	for _, t := range list {
		if t.IsCompleted == doneOnly {
			out = append(out, t)
		}
	}
	return out
}

func writeTodos(w io.Writer, list []todos.Todo, format string, color bool) error {
	switch format {
	case "json":
		if list == nil {
			list = []todos.Todo{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(list)

	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(list); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()

	default:
		if len(list) == 0 {
			_, err := fmt.Fprintln(w, "No tasks.")
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tDONE\tCREATED\tTEXT")
		for _, t := range list {
			mark, text := "[ ]", t.Text
			if t.IsCompleted {
				mark = "[x]"
			}
			if color {
				mark = pendingMark
				if t.IsCompleted {
					mark = doneMark
					text = doneText.Render(text)
				}
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				shortID(t.ID),
				mark,
				t.CreatedAt.Format("2006-01-02 15:04"),
				text,
			)
		}
		return tw.Flush()
	}
}

// shortID returns the first segment of a UUID, enough to resolve by prefix
// in small lists.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// stdout returns the writer commands print results to.
func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
