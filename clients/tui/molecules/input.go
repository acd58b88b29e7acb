// Package molecules provides mid-level TUI components.
package molecules

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SubmitMsg is sent when the user presses Enter in the new-task field.
type SubmitMsg struct {
	Content string
}

// TaskInput wraps a textinput with Enter-to-submit semantics.
type TaskInput struct {
	input textinput.Model
}

// NewTaskInput creates a single-line input with the given placeholder.
func NewTaskInput(placeholder string, placeholderColor lipgloss.TerminalColor) TaskInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "> "
	ti.CharLimit = 0
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(placeholderColor)
	return TaskInput{input: ti}
}

// SetWidth sets the input width.
func (c *TaskInput) SetWidth(w int) {
	// prompt + cursor
	c.input.Width = max(w-3, 1)
}

// Focus gives focus to the input.
func (c *TaskInput) Focus() tea.Cmd {
	return c.input.Focus()
}

// Blur removes focus from the input.
func (c *TaskInput) Blur() {
	c.input.Blur()
}

// Focused reports whether the input receives key events.
func (c *TaskInput) Focused() bool {
	return c.input.Focused()
}

// SetValue replaces the input text and moves the cursor to the end.
func (c *TaskInput) SetValue(s string) {
	c.input.SetValue(s)
	c.input.CursorEnd()
}

// Reset clears the input.
func (c *TaskInput) Reset() {
	c.input.Reset()
}

// Value returns the current input text.
func (c *TaskInput) Value() string {
	return c.input.Value()
}

// Update handles key events. Enter submits the text as typed, empty included,
// and clears the field.
func (c TaskInput) Update(msg tea.Msg) (TaskInput, tea.Cmd) {
	if !c.input.Focused() {
		return c, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter {
		content := c.input.Value()
		c.input.Reset()
		return c, func() tea.Msg { return SubmitMsg{Content: content} }
	}

	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return c, cmd
}

// View renders the input line.
func (c TaskInput) View() string {
	return c.input.View()
}
