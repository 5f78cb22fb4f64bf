package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds every binding of the browser. It implements help.KeyMap.
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Expand   key.Binding
	Collapse key.Binding
	Select   key.Binding
	Toggle   key.Binding
	ShowAll  key.Binding
	Search   key.Binding
	Back     key.Binding
	Focus    key.Binding
	NextPage key.Binding
	PrevPage key.Binding
	Plane    key.Binding
	CopyView key.Binding
	CopyLink key.Binding
	Goto     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Expand: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "expand"),
	),
	Collapse: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "collapse"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "hide/show region"),
	),
	ShowAll: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "hide/show all"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Focus: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch pane"),
	),
	NextPage: key.NewBinding(
		key.WithKeys("n", "pgdown"),
		key.WithHelp("n", "next page"),
	),
	PrevPage: key.NewBinding(
		key.WithKeys("p", "pgup"),
		key.WithHelp("p", "prev page"),
	),
	Plane: key.NewBinding(
		key.WithKeys("v"),
		key.WithHelp("v", "view plane"),
	),
	CopyView: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "copy view"),
	),
	CopyLink: key.NewBinding(
		key.WithKeys("Y"),
		key.WithHelp("Y", "copy dandiset link"),
	),
	Goto: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("g", "go to hash"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Search, k.Back, k.Focus, k.CopyView, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Expand, k.Collapse, k.Select},
		{k.Toggle, k.ShowAll, k.NextPage, k.PrevPage},
		{k.Search, k.Back, k.Focus, k.Plane},
		{k.CopyView, k.CopyLink, k.Goto, k.Help, k.Quit},
	}
}
