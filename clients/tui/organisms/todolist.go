// Package organisms provides the composite panels of the TUI.
package organisms

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/hellotodo/clients/tui/molecules"
	"github.com/dohr-michael/hellotodo/internal/todos"
)

// ToggleRequestMsg asks for a task's completion state to be flipped.
type ToggleRequestMsg struct {
	ID string
}

// EditRequestMsg carries the new text for a task.
type EditRequestMsg struct {
	ID   string
	Text string
}

// DeleteRequestMsg asks for a task to be removed.
type DeleteRequestMsg struct {
	ID string
}

// ListKeyMap defines the bindings handled by the list.
type ListKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	Edit   key.Binding
	Delete key.Binding
	Commit key.Binding
	Cancel key.Binding
}

// DefaultListKeyMap returns the standard list bindings.
func DefaultListKeyMap() ListKeyMap {
	return ListKeyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Toggle: key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "toggle")),
		Edit:   key.NewBinding(key.WithKeys("e", "enter"), key.WithHelp("e", "edit")),
		Delete: key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Commit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// TodoList renders the tasks and turns key presses into mutation requests.
// It never mutates tasks itself; the owner applies requests and calls
// SetItems with the result.
type TodoList struct {
	items  []todos.Todo
	cursor int
	offset int
	width  int
	height int

	editing bool
	editID  string
	editor  molecules.TaskInput

	keys   ListKeyMap
	styles molecules.RowStyles
	empty  lipgloss.Style
}

// NewTodoList creates an empty list.
func NewTodoList(styles molecules.RowStyles, empty lipgloss.Style, placeholderColor lipgloss.TerminalColor) TodoList {
	return TodoList{
		keys:   DefaultListKeyMap(),
		styles: styles,
		empty:  empty,
		editor: molecules.NewTaskInput("", placeholderColor),
		height: 1,
	}
}

// SetItems replaces the rows, keeping the cursor on the same task when it
// still exists.
func (l *TodoList) SetItems(items []todos.Todo) {
	selected := l.SelectedID()
	l.items = items
	l.cursor = 0
	for i, t := range items {
		if t.ID == selected {
			l.cursor = i
			break
		}
	}
	l.clamp()
}

// Items returns the rows in display order.
func (l *TodoList) Items() []todos.Todo { return l.items }

// SetSize sets the area the list may draw in.
func (l *TodoList) SetSize(width, height int) {
	l.width = width
	l.height = max(height, 1)
	l.editor.SetWidth(width - 4)
	l.clamp()
}

// Cursor returns the index of the selected row.
func (l *TodoList) Cursor() int { return l.cursor }

// SelectFirst moves the cursor to the top row.
func (l *TodoList) SelectFirst() {
	l.cursor = 0
	l.clamp()
}

// SelectedID returns the id under the cursor, or "" when the list is empty.
func (l *TodoList) SelectedID() string {
	if l.cursor < 0 || l.cursor >= len(l.items) {
		return ""
	}
	return l.items[l.cursor].ID
}

// Editing reports whether a row is being edited.
func (l *TodoList) Editing() bool { return l.editing }

// KeyMap returns the list bindings, for help rendering.
func (l *TodoList) KeyMap() ListKeyMap { return l.keys }

// CommitEdit ends editing and requests the edited text be saved.
// It returns nil when no row is being edited.
func (l *TodoList) CommitEdit() tea.Cmd {
	if !l.editing {
		return nil
	}
	req := EditRequestMsg{ID: l.editID, Text: l.editor.Value()}
	l.stopEditing()
	return func() tea.Msg { return req }
}

func (l *TodoList) startEditing() tea.Cmd {
	id := l.SelectedID()
	if id == "" {
		return nil
	}
	l.editing = true
	l.editID = id
	l.editor.SetValue(l.items[l.cursor].Text)
	return l.editor.Focus()
}

func (l *TodoList) stopEditing() {
	l.editing = false
	l.editID = ""
	l.editor.Blur()
	l.editor.Reset()
}

// Update handles key events while the list has focus.
func (l TodoList) Update(msg tea.Msg) (TodoList, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if l.editing {
			var cmd tea.Cmd
			l.editor, cmd = l.editor.Update(msg)
			return l, cmd
		}
		return l, nil
	}

	if l.editing {
		switch {
		case key.Matches(keyMsg, l.keys.Commit):
			return l, l.CommitEdit()
		case key.Matches(keyMsg, l.keys.Cancel):
			l.stopEditing()
			return l, nil
		}
		var cmd tea.Cmd
		l.editor, cmd = l.editor.Update(msg)
		return l, cmd
	}

	switch {
	case key.Matches(keyMsg, l.keys.Up):
		l.cursor--
		l.clamp()
	case key.Matches(keyMsg, l.keys.Down):
		l.cursor++
		l.clamp()
	case key.Matches(keyMsg, l.keys.Toggle):
		if id := l.SelectedID(); id != "" {
			return l, func() tea.Msg { return ToggleRequestMsg{ID: id} }
		}
	case key.Matches(keyMsg, l.keys.Edit):
		return l, l.startEditing()
	case key.Matches(keyMsg, l.keys.Delete):
		if id := l.SelectedID(); id != "" {
			return l, func() tea.Msg { return DeleteRequestMsg{ID: id} }
		}
	}
	return l, nil
}

// clamp keeps the cursor on a row and the row inside the visible window.
func (l *TodoList) clamp() {
	if l.cursor >= len(l.items) {
		l.cursor = len(l.items) - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+l.height {
		l.offset = l.cursor - l.height + 1
	}
	if l.offset > max(len(l.items)-l.height, 0) {
		l.offset = max(len(l.items)-l.height, 0)
	}
}

// View renders the visible rows. focused highlights the cursor row.
func (l TodoList) View(focused bool) string {
	if len(l.items) == 0 {
		return l.empty.Render("Nothing to do.")
	}

	end := min(l.offset+l.height, len(l.items))
	rows := make([]string, 0, end-l.offset)
	for i := l.offset; i < end; i++ {
		t := l.items[i]
		var editor *molecules.TaskInput
		if l.editing && t.ID == l.editID {
			editor = &l.editor
		}
		rows = append(rows, molecules.RenderRow(t, focused && i == l.cursor, editor, l.width, l.styles))
	}
	return strings.Join(rows, "\n")
}
