package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/verte-zerg/tuigrid/internal/model"
)

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Next     key.Binding
	Select   key.Binding
	Cancel   key.Binding
	Correct  key.Binding
	Wrong    key.Binding
	EndTrial key.Binding
	Download key.Binding
	Dismiss  key.Binding
	Return   key.Binding
	Quit     key.Binding
}

func newKeyMap(mode model.ActionMode) keyMap {
	km := keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		Next:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next")),
		Select:   key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "select")),
		Cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Correct:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "mark correct")),
		Wrong:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "mark incorrect")),
		EndTrial: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "end trial")),
		Download: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "download data")),
		Dismiss:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		Return:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "return")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
	switch mode {
	case model.ModeClick:
		km.Select.SetHelp("enter", "choose")
		km.Cancel.SetEnabled(false)
		km.Correct.SetEnabled(false)
		km.Wrong.SetEnabled(false)
	case model.ModeClickAndDrag:
		km.Select.SetHelp("enter", "pick up/drop")
		km.Correct.SetEnabled(false)
		km.Wrong.SetEnabled(false)
	case model.ModeManualDataEntry:
		for _, b := range []*key.Binding{&km.Up, &km.Down, &km.Left, &km.Right, &km.Next, &km.Select, &km.Cancel} {
			b.SetEnabled(false)
		}
	}
	return km
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Cancel, k.Correct, k.Wrong, k.EndTrial, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.Next},
		{k.Select, k.Cancel, k.Correct, k.Wrong},
		{k.EndTrial, k.Download, k.Return, k.Quit},
	}
}

func (k keyMap) summaryHelp() []key.Binding {
	return []key.Binding{k.Download, k.Return, k.Dismiss, k.Quit}
}
