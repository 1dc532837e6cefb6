package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Match  key.Binding
	Stop   key.Binding
	Back   key.Binding
	Start  key.Binding
	Visual key.Binding
	Audio  key.Binding
	Dual   key.Binding
	Quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Match: key.NewBinding(
			key.WithKeys(" ", "m"),
			key.WithHelp("space", "match"),
		),
		Stop: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "stop"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "home"),
		),
		Start: key.NewBinding(
			key.WithKeys("enter", "s"),
			key.WithHelp("enter", "start"),
		),
		Visual: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "visual"),
		),
		Audio: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "audio"),
		),
		Dual: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "dual"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// setPhase enables the bindings that apply to the current screen.
func (k *keyMap) setPhase(running, finished bool) {
	k.Match.SetEnabled(running)
	k.Stop.SetEnabled(running)
	k.Back.SetEnabled(finished)
	k.Start.SetEnabled(!running)
	k.Visual.SetEnabled(!running)
	k.Audio.SetEnabled(!running)
	k.Dual.SetEnabled(!running)
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Match, k.Stop, k.Back, k.Start, k.Visual, k.Audio, k.Dual, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
