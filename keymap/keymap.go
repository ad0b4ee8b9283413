package keymap

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type Mapping struct {
	CycleFocus key.Binding
	FocusBack  key.Binding
	Prev       key.Binding
	Next       key.Binding
	Toggle     key.Binding
	Run        key.Binding
	Quit       key.Binding
}

var DefaultMapping = Mapping{
	CycleFocus: key.NewBinding(
		key.WithKeys(tea.KeyTab.String(), "down"),
		key.WithHelp("tab/↓", "next field"),
	),
	FocusBack: key.NewBinding(
		key.WithKeys(tea.KeyShiftTab.String(), "up"),
		key.WithHelp("shift+tab/↑", "previous field"),
	),
	Prev: key.NewBinding(
		key.WithKeys("left"),
		key.WithHelp("←", "previous option"),
	),
	Next: key.NewBinding(
		key.WithKeys("right"),
		key.WithHelp("→", "next option"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" ", "space"),
		key.WithHelp("space", "toggle"),
	),
	Run: key.NewBinding(
		key.WithKeys(tea.KeyEnter.String()),
		key.WithHelp("enter", "transform"),
	),
	Quit: key.NewBinding(
		key.WithKeys(tea.KeyCtrlC.String(), "esc"),
		key.WithHelp("ctrl+c/esc", "quit"),
	),
}

// ShortHelp implements help.KeyMap.
func (m Mapping) ShortHelp() []key.Binding {
	return []key.Binding{m.CycleFocus, m.Next, m.Run, m.Quit}
}

// FullHelp implements help.KeyMap.
func (m Mapping) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.CycleFocus, m.FocusBack},
		{m.Prev, m.Next, m.Toggle},
		{m.Run, m.Quit},
	}
}
