// Package keymap defines keybindings for the TUI.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings for the progress view.
type KeyMap struct {
	// Stop requests cooperative cancellation. Pressing ctrl+c a second
	// time while stopping aborts the view.
	Stop key.Binding

	// Quit leaves the view once the run is over.
	Quit key.Binding

	// Open reveals the archive folder.
	Open key.Binding

	// Help toggles the full key list.
	Help key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Stop: key.NewBinding(
			key.WithKeys("s", "ctrl+c"),
			key.WithHelp("s/ctrl+c", "stop"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "quit"),
		),
		Open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open archive"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

// ShortHelp returns the compact hint list.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Stop, k.Quit, k.Help}
}

// RunningHelp returns the hints shown while a run is active.
func (k *KeyMap) RunningHelp() []key.Binding {
	return []key.Binding{k.Stop, k.Help}
}

// DoneHelp returns the hints shown after the run.
func (k *KeyMap) DoneHelp() []key.Binding {
	return []key.Binding{k.Open, k.Quit}
}

// FullHelp returns every binding.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Stop, k.Quit},
		{k.Open, k.Help},
	}
}

// Matches checks if a key string matches a binding.
func Matches(keyStr string, binding key.Binding) bool {
	for _, k := range binding.Keys() {
		if k == keyStr {
			return true
		}
	}
	return false
}
