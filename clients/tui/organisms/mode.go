package organisms

// Mode represents the current interaction state.
type Mode int

const (
	ModeLoading Mode = iota // waiting for the snapshot
	ModeInput               // typing a new task
	ModeList                // moving through the rows
	ModeEditing             // rewriting a row's text
)

// String returns the label shown in the status bar.
func (m Mode) String() string {
	switch m {
	case ModeLoading:
		return "loading"
	case ModeInput:
		return "new"
	case ModeList:
		return "list"
	case ModeEditing:
		return "editing"
	default:
		return "unknown"
	}
}
