package app

import (
	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Material key.Binding
	Band     key.Binding
	Stats    key.Binding
	Clear    key.Binding
	Left     key.Binding
	Right    key.Binding
	ZoomIn   key.Binding
	ZoomOut  key.Binding
	Live     key.Binding
	Save     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Material, k.Band, k.Stats, k.Clear, k.Save, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Material, k.Band, k.Clear},
		{k.Left, k.Right, k.ZoomIn, k.ZoomOut, k.Live},
		{k.Stats, k.Save, k.Help, k.Quit},
	}
}

var keys = keyMap{
	Material: key.NewBinding(
		key.WithKeys("1", "2", "3", "4", "5", "6", "7"),
		key.WithHelp("1-7", "material"),
	),
	Band: key.NewBinding(
		key.WithKeys("b"),
		key.WithHelp("b", "band"),
	),
	Stats: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "stats"),
	),
	Clear: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "clear"),
	),
	Left: key.NewBinding(
		key.WithKeys("left"),
		key.WithHelp("←", "pan left"),
	),
	Right: key.NewBinding(
		key.WithKeys("right"),
		key.WithHelp("→", "pan right"),
	),
	ZoomIn: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "zoom in"),
	),
	ZoomOut: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "zoom out"),
	),
	Live: key.NewBinding(
		key.WithKeys("home"),
		key.WithHelp("home", "live"),
	),
	Save: key.NewBinding(
		key.WithKeys("w"),
		key.WithHelp("w", "save csv"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q/ctrl+c", "save & quit"),
	),
}
