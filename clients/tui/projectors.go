package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dohr-michael/hellotodo/internal/events"
)

// Project converts a bus event into a typed tea.Msg.
// Returns nil for events that don't map to a TUI message.
func Project(evt events.Event) tea.Msg {
	switch evt.Type {
	case events.EventSnapshotSaved:
		payload, ok := events.GetSnapshotSavedPayload(evt)
		if !ok {
			return nil
		}
		return SnapshotSavedMsg{Bytes: payload.Bytes}

	case events.EventSnapshotFailed:
		payload, ok := events.GetSnapshotFailedPayload(evt)
		if !ok {
			return nil
		}
		return SnapshotFailedMsg{Error: payload.Error}

	case events.EventStoreLoadFailed:
		payload, ok := events.GetStoreLoadFailedPayload(evt)
		if !ok {
			return nil
		}
		return LoadFailedMsg{Error: payload.Error, Quarantined: payload.Quarantined}

	default:
		return nil
	}
}

// listen waits for the next projectable event on ch. The model re-issues it
// after every delivered message.
func listen(ch <-chan events.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		for evt := range ch {
			if msg := Project(evt); msg != nil {
				return msg
			}
		}
		return busClosedMsg{}
	}
}
