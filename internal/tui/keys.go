package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the editor's key bindings.
type KeyMap struct {
	CopyLink key.Binding
	OpenLink key.Binding
	Back     key.Binding
	Forward  key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		CopyLink: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("ctrl+y", "copy link"),
		),
		OpenLink: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "open link from clipboard"),
		),
		Back: key.NewBinding(
			key.WithKeys("alt+left"),
			key.WithHelp("alt+←", "back"),
		),
		Forward: key.NewBinding(
			key.WithKeys("alt+right"),
			key.WithHelp("alt+→", "forward"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.CopyLink, k.OpenLink, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.CopyLink, k.OpenLink},
		{k.Back, k.Forward, k.Quit},
	}
}
