package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/dohr-michael/hellotodo/clients/tui/organisms"
)

// keyMap holds the bindings shown in the help line. The list bindings are
// owned by the list organism.
type keyMap struct {
	Quit  key.Binding
	Focus key.Binding
	Add   key.Binding
	list  organisms.ListKeyMap
	mode  organisms.Mode
}

func newKeyMap(list organisms.ListKeyMap) keyMap {
	return keyMap{
		Quit:  key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
		Focus: key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "switch")),
		Add:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add")),
		list:  list,
	}
}

// ShortHelp implements help.KeyMap for the current mode.
func (k keyMap) ShortHelp() []key.Binding {
	switch k.mode {
	case organisms.ModeInput:
		return []key.Binding{k.Add, k.Focus, k.Quit}
	case organisms.ModeList:
		return []key.Binding{k.list.Up, k.list.Down, k.list.Toggle, k.list.Edit, k.list.Delete, k.Focus, k.Quit}
	case organisms.ModeEditing:
		return []key.Binding{k.list.Commit, k.list.Cancel}
	default:
		return nil
	}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
