package organisms

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// InformationPanel displays the status bar with counts, mode, storage and
// the last save problem.
type InformationPanel struct {
	total     int
	completed int
	storage   string
	mode      Mode
	saveErr   string
	notice    string
	width     int
	style     lipgloss.Style
	errStyle  lipgloss.Style
}

// NewInformationPanel creates a new status bar panel.
func NewInformationPanel(style, errStyle lipgloss.Style) InformationPanel {
	return InformationPanel{style: style, errStyle: errStyle}
}

// Setters

// SetCounts updates the task counters.
func (p *InformationPanel) SetCounts(total, completed int) {
	p.total = total
	p.completed = completed
}

// SetStorage names where tasks are kept (e.g. "file:toDos").
func (p *InformationPanel) SetStorage(s string) { p.storage = s }

// SetMode updates the displayed interaction mode.
func (p *InformationPanel) SetMode(mode Mode) { p.mode = mode }

// SetSaveError records a failed write. An empty string clears it.
func (p *InformationPanel) SetSaveError(err string) { p.saveErr = err }

// SetNotice sets a one-off message shown until the next mutation.
func (p *InformationPanel) SetNotice(msg string) { p.notice = msg }

// SetWidth updates the rendering width.
func (p *InformationPanel) SetWidth(w int) { p.width = w }

// Getters

// SaveError returns the last write failure, or "".
func (p *InformationPanel) SaveError() string { return p.saveErr }

// Notice returns the current notice, or "".
func (p *InformationPanel) Notice() string { return p.notice }

// View renders the status bar.
func (p InformationPanel) View() string {
	bar := fmt.Sprintf(" %d tasks | %d done | %s", p.total, p.completed, p.mode)
	if p.storage != "" {
		bar += " | " + p.storage
	}

	style := p.style
	switch {
	case p.saveErr != "":
		bar += " | not saved: " + p.saveErr
		style = p.errStyle.Padding(0, 1)
	case p.notice != "":
		bar += " | " + p.notice
	}
	return style.Width(p.width).Render(bar + " ")
}
