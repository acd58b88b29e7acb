package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/hellotodo/clients/tui/atoms"
	"github.com/dohr-michael/hellotodo/clients/tui/molecules"
	"github.com/dohr-michael/hellotodo/clients/tui/organisms"
	"github.com/dohr-michael/hellotodo/internal/events"
	"github.com/dohr-michael/hellotodo/internal/todos"
)

// Options configures the TUI.
type Options struct {
	Title   string
	Storage string              // shown in the status bar
	Events  <-chan events.Event // optional; persistence outcomes
}

// MainModel is the root bubbletea model for the task list.
//
// The store is loaded by a command issued from Init; until LoadedMsg arrives
// the model shows a spinner and ignores every key but quit, so no mutation
// can reach the store before its snapshot is read.
type MainModel struct {
	ctx    context.Context
	store  *todos.Store
	events <-chan events.Event
	title  string

	mode   organisms.Mode
	width  int
	height int

	spinner atoms.Spinner
	input   molecules.TaskInput
	list    organisms.TodoList
	info    organisms.InformationPanel
	help    help.Model
	keys    keyMap
}

// NewMainModel creates the root model. The store must not be loaded yet.
func NewMainModel(ctx context.Context, store *todos.Store, opts Options) MainModel {
	list := organisms.NewTodoList(molecules.RowStyles{
		Pending:  lipgloss.NewStyle().Foreground(ColorPending),
		Done:     lipgloss.NewStyle().Foreground(ColorDone).Strikethrough(true),
		Selected: lipgloss.NewStyle().Foreground(ColorAccent).Bold(true),
		Circle:   atoms.NewCircle(ColorDone, ColorAccent),
	}, MutedStyle, ColorMuted)

	info := organisms.NewInformationPanel(StatusBarStyle, ErrorStyle)
	info.SetStorage(opts.Storage)

	title := opts.Title
	if title == "" {
		title = "Hello Todo"
	}

	return MainModel{
		ctx:     ctx,
		store:   store,
		events:  opts.Events,
		title:   title,
		mode:    organisms.ModeLoading,
		spinner: atoms.NewSpinner(ColorAccent, "Loading tasks..."),
		input:   molecules.NewTaskInput("New To Do", ColorMuted),
		list:    list,
		info:    info,
		help:    help.New(),
		keys:    newKeyMap(list.KeyMap()),
	}
}

// Init starts the spinner, the load and the event listener.
func (m MainModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Init(), m.load(), listen(m.events))
}

func (m MainModel) load() tea.Cmd {
	ctx, store := m.ctx, m.store
	return func() tea.Msg {
		store.Load(ctx)
		return LoadedMsg{Count: store.Len()}
	}
}

// Update processes all incoming messages.
func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.mode == organisms.ModeLoading {
			return m, nil
		}
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.mode != organisms.ModeLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case LoadedMsg:
		m.refresh()
		slog.Debug("tasks loaded", "count", msg.Count)
		return m, m.setMode(organisms.ModeInput)

	case molecules.SubmitMsg:
		if _, err := m.store.Add(msg.Content); err != nil {
			m.info.SetNotice(err.Error())
			return m, nil
		}
		m.info.SetNotice("")
		m.refresh()
		m.list.SelectFirst()
		return m, nil

	case organisms.ToggleRequestMsg:
		_, err := m.store.Toggle(msg.ID)
		m.applied(err)
		return m, nil

	case organisms.EditRequestMsg:
		_, err := m.store.Edit(msg.ID, msg.Text)
		m.applied(err)
		if m.mode == organisms.ModeEditing {
			return m, m.setMode(organisms.ModeList)
		}
		return m, nil

	case organisms.DeleteRequestMsg:
		m.applied(m.store.Delete(msg.ID))
		return m, nil

	case SnapshotSavedMsg:
		m.info.SetSaveError("")
		return m, listen(m.events)

	case SnapshotFailedMsg:
		m.info.SetSaveError(msg.Error)
		return m, listen(m.events)

	case LoadFailedMsg:
		notice := "saved tasks unreadable, starting empty"
		if msg.Quarantined != "" {
			notice += fmt.Sprintf(" (kept as %s)", msg.Quarantined)
		}
		m.info.SetNotice(notice)
		return m, listen(m.events)

	case busClosedMsg:
		return m, nil
	}

	// Cursor blink and other input-internal messages.
	var cmd tea.Cmd
	switch m.mode {
	case organisms.ModeInput:
		m.input, cmd = m.input.Update(msg)
	case organisms.ModeEditing:
		m.list, cmd = m.list.Update(msg)
	}
	return m, cmd
}

func (m MainModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Focus) && m.mode != organisms.ModeLoading {
		next := organisms.ModeList
		if m.mode != organisms.ModeInput {
			next = organisms.ModeInput
		}
		// Leaving a row being edited saves it.
		commit := m.list.CommitEdit()
		return m, tea.Batch(commit, m.setMode(next))
	}

	var cmd tea.Cmd
	switch m.mode {
	case organisms.ModeInput:
		m.input, cmd = m.input.Update(msg)

	case organisms.ModeList:
		if msg.String() == "q" {
			return m, tea.Quit
		}
		m.list, cmd = m.list.Update(msg)
		if m.list.Editing() {
			m.mode = organisms.ModeEditing
			m.syncMode()
		}

	case organisms.ModeEditing:
		m.list, cmd = m.list.Update(msg)
		if !m.list.Editing() {
			m.mode = organisms.ModeList
			m.syncMode()
		}
	}
	return m, cmd
}

// setMode moves focus between the new-task field and the list.
func (m *MainModel) setMode(mode organisms.Mode) tea.Cmd {
	m.mode = mode
	m.syncMode()
	if mode == organisms.ModeInput {
		return m.input.Focus()
	}
	m.input.Blur()
	return nil
}

func (m *MainModel) syncMode() {
	m.info.SetMode(m.mode)
	m.keys.mode = m.mode
}

// applied refreshes the rows after a mutation request, surfacing store errors
// in the status bar.
func (m *MainModel) applied(err error) {
	switch {
	case errors.Is(err, todos.ErrNotFound):
		m.info.SetNotice("task no longer exists")
	case err != nil:
		m.info.SetNotice(err.Error())
	default:
		m.info.SetNotice("")
	}
	m.refresh()
}

func (m *MainModel) refresh() {
	m.list.SetItems(m.store.List())
	stats := m.store.Stats()
	m.info.SetCounts(stats.Total, stats.Completed)
}

const (
	titleHeight  = 2 // title + blank line
	cardChrome   = 3 // top border, separator, bottom border
	inputHeight  = 1
	footerHeight = 2 // help + status bar
)

func (m *MainModel) resize() {
	inner := max(m.width-4, 1) // border + padding
	m.input.SetWidth(inner)
	m.list.SetSize(inner, m.height-titleHeight-cardChrome-inputHeight-footerHeight)
	m.info.SetWidth(m.width)
	m.help.Width = m.width
}

// View renders the title, the card holding the input and the rows, the help
// line and the status bar.
func (m MainModel) View() string {
	title := TitleStyle.Render(m.title)

	if m.mode == organisms.ModeLoading {
		return lipgloss.JoinVertical(lipgloss.Left, title, "", m.spinner.View())
	}

	inner := max(m.width-4, 1)
	sep := lipgloss.NewStyle().Foreground(ColorBorder).Render(strings.Repeat("─", inner))
	card := CardStyle.Width(max(m.width-2, 1)).Render(lipgloss.JoinVertical(lipgloss.Left,
		m.input.View(),
		sep,
		m.list.View(m.mode == organisms.ModeList || m.mode == organisms.ModeEditing),
	))

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		card,
		m.help.View(m.keys),
		m.info.View(),
	)
}

// Mode returns the current interaction mode.
func (m MainModel) Mode() organisms.Mode { return m.mode }

// Run starts the program on the alternate screen and blocks until the user
// quits or ctx is cancelled.
func Run(ctx context.Context, store *todos.Store, opts Options) error {
	p := tea.NewProgram(NewMainModel(ctx, store, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
