package atoms

import "github.com/charmbracelet/lipgloss"

// Circle is the completion marker drawn at the start of each row.
type Circle struct {
	done    lipgloss.Style
	pending lipgloss.Style
}

// NewCircle creates a marker with distinct colors for each state.
func NewCircle(done, pending lipgloss.TerminalColor) Circle {
	return Circle{
		done:    lipgloss.NewStyle().Foreground(done),
		pending: lipgloss.NewStyle().Foreground(pending),
	}
}

// View renders a filled circle for completed tasks and a hollow one otherwise.
func (c Circle) View(completed bool) string {
	if completed {
		return c.done.Render("●")
	}
	return c.pending.Render("○")
}
