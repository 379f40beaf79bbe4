package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the key bindings for the TUI.
type KeyMap struct {
	// Navigation
	Up   key.Binding
	Down key.Binding

	// Stack operations
	PushTop    key.Binding
	PushCentre key.Binding
	PushBottom key.Binding
	PushTimed  key.Binding
	Replace    key.Binding
	Remove     key.Binding
	RemoveUpTo key.Binding
	RemoveLast key.Binding
	Clear      key.Binding
	Pause      key.Binding
	Measure    key.Binding

	// Clipboard
	CopyYAML key.Binding
	CopyJSON key.Binding

	// Global
	Back key.Binding
	Quit key.Binding
	Help key.Binding
}

// ShortHelp returns a short help message.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PushTop, k.PushCentre, k.PushBottom, k.RemoveLast, k.Help, k.Quit}
}

// FullHelp returns a full help message.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.PushTop, k.PushCentre, k.PushBottom, k.PushTimed, k.Replace},
		{k.Remove, k.RemoveUpTo, k.RemoveLast, k.Clear},
		{k.Pause, k.Measure, k.CopyYAML, k.CopyJSON},
		{k.Back, k.Help, k.Quit},
	}
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		PushTop: key.NewBinding(
			key.WithKeys("1", "t"),
			key.WithHelp("1/t", "push top"),
		),
		PushCentre: key.NewBinding(
			key.WithKeys("2", "c"),
			key.WithHelp("2/c", "push centre"),
		),
		PushBottom: key.NewBinding(
			key.WithKeys("3", "b"),
			key.WithHelp("3/b", "push bottom"),
		),
		PushTimed: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "push timed toast"),
		),
		Replace: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "re-show selected type"),
		),
		Remove: key.NewBinding(
			key.WithKeys("d", "x"),
			key.WithHelp("d", "dismiss selected"),
		),
		RemoveUpTo: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "dismiss up to selected"),
		),
		RemoveLast: key.NewBinding(
			key.WithKeys("backspace", "p"),
			key.WithHelp("p", "pop top"),
		),
		Clear: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "clear stack"),
		),
		Pause: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "pause/resume timer"),
		),
		Measure: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "measure selected"),
		),
		CopyYAML: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy as YAML"),
		),
		CopyJSON: key.NewBinding(
			key.WithKeys("Y"),
			key.WithHelp("Y", "copy as JSON"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}
