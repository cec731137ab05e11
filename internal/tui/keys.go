package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/verte-zerg/impromptu/internal/model"
)

type keyMap struct {
	Quit     key.Binding
	Generate key.Binding
	Up       key.Binding
	Down     key.Binding
	Toggle   key.Binding
	Dataset  key.Binding
	Preset   key.Binding
	Settings key.Binding
	History  key.Binding
	Consent  key.Binding

	Run    key.Binding
	Reset  key.Binding
	Skip   key.Binding
	Return key.Binding

	Left  key.Binding
	Right key.Binding
	Back  key.Binding

	Replay key.Binding
	Clear  key.Binding
	Yes    key.Binding
	No     key.Binding

	ConsentNone      key.Binding
	ConsentEssential key.Binding
	ConsentAll       key.Binding
}

var keys = keyMap{
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Generate: key.NewBinding(key.WithKeys("enter", "g"), key.WithHelp("enter", "generate")),
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Toggle:   key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "toggle")),
	Dataset:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "dataset")),
	Preset:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "preset")),
	Settings: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "settings")),
	History:  key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "history")),
	Consent:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "privacy")),

	Run:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "start/pause")),
	Reset:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
	Skip:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "skip prep")),
	Return: key.NewBinding(key.WithKeys("esc", "enter"), key.WithHelp("esc", "done")),

	Left:  key.NewBinding(key.WithKeys("left", "h", "-"), key.WithHelp("←/-", "less")),
	Right: key.NewBinding(key.WithKeys("right", "l", "+", "="), key.WithHelp("→/+", "more")),
	Back:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),

	Replay: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "replay")),
	Clear:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear all")),
	Yes:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
	No:     key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "cancel")),

	ConsentNone:      key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "nothing")),
	ConsentEssential: key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "settings")),
	ConsentAll:       key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "settings + history")),
}

// helpKeys adapts a flat binding list to help.KeyMap.
type helpKeys []key.Binding

func (h helpKeys) ShortHelp() []key.Binding { return h }

func (h helpKeys) FullHelp() [][]key.Binding { return [][]key.Binding{h} }

func (m *Model) helpFor() helpKeys {
	switch {
	case m.screen == screenConsent:
		return helpKeys{keys.ConsentNone, keys.ConsentEssential, keys.ConsentAll}
	case m.ctrl.Mode() != model.PhaseIdle:
		if m.ctrl.Mode() == model.PhasePreparation {
			return helpKeys{keys.Run, keys.Reset, keys.Skip, keys.Return}
		}
		return helpKeys{keys.Run, keys.Reset, keys.Return}
	case m.screen == screenSettings:
		return helpKeys{keys.Up, keys.Down, keys.Left, keys.Right, keys.Back}
	case m.screen == screenHistory && m.confirmClear:
		return helpKeys{keys.Yes, keys.No}
	case m.screen == screenHistory:
		return helpKeys{keys.Up, keys.Down, keys.Replay, keys.Clear, keys.Back}
	default:
		return helpKeys{keys.Generate, keys.Toggle, keys.Dataset, keys.Preset, keys.Settings, keys.History, keys.Consent, keys.Quit}
	}
}
