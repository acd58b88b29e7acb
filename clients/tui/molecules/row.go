package molecules

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/hellotodo/clients/tui/atoms"
	"github.com/dohr-michael/hellotodo/internal/todos"
)

// RowStyles holds the styles a task row is drawn with.
type RowStyles struct {
	Pending  lipgloss.Style
	Done     lipgloss.Style
	Selected lipgloss.Style
	Circle   atoms.Circle
}

// RenderRow draws one task: completion marker, then the text, struck through
// once completed. editor replaces the text while the row is being edited.
func RenderRow(t todos.Todo, selected bool, editor *TaskInput, width int, s RowStyles) string {
	cursor := "  "
	if selected {
		cursor = s.Selected.Render("› ")
	}

	var text string
	switch {
	case editor != nil:
		text = editor.View()
	case t.IsCompleted:
		text = s.Done.Render(truncate(t.Text, width-4))
	default:
		text = s.Pending.Render(truncate(t.Text, width-4))
	}

	return cursor + s.Circle.View(t.IsCompleted) + " " + text
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
