package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/TimelordUK/logsrc/internal/config"
)

// keyMap holds the pager's bindings.
type keyMap struct {
	Quit       key.Binding
	Up         key.Binding
	Down       key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	Top        key.Binding
	Bottom     key.Binding
	Search     key.Binding
	NextMatch  key.Binding
	PrevMatch  key.Binding
	Follow     key.Binding
	GotoLine   key.Binding
	GotoTime   key.Binding
	TextFilter key.Binding
	Levels     key.Binding
	ClearLevel key.Binding
	SetMark    key.Binding
	JumpMark   key.Binding
	Slice      key.Binding
	Revert     key.Binding
	LineNums   key.Binding

	Confirm key.Binding
	Escape  key.Binding
}

func binding(keys []string, desc string) key.Binding {
	return key.NewBinding(
		key.WithKeys(keys...),
		key.WithHelp(strings.Join(keys, "/"), desc),
	)
}

// newKeyMap builds bindings from the configured key lists.
func newKeyMap(kb config.KeybindingConfig) keyMap {
	return keyMap{
		Quit:       binding(kb.Quit, "quit"),
		Up:         binding(kb.ScrollUp, "up"),
		Down:       binding(kb.ScrollDown, "down"),
		PageUp:     binding(kb.PageUp, "page up"),
		PageDown:   binding(kb.PageDown, "page down"),
		Top:        binding(kb.Top, "top"),
		Bottom:     binding(kb.Bottom, "bottom"),
		Search:     binding(kb.Search, "search"),
		NextMatch:  binding(kb.NextMatch, "next match"),
		PrevMatch:  binding(kb.PrevMatch, "prev match"),
		Follow:     binding(kb.Follow, "follow"),
		GotoLine:   binding(kb.GotoLine, "goto line"),
		GotoTime:   binding(kb.GotoTime, "goto time"),
		TextFilter: binding([]string{"&"}, "filter text"),
		Levels: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6"),
			key.WithHelp("1-6", "toggle level"),
		),
		ClearLevel: binding([]string{"0"}, "clear filter"),
		SetMark:    binding([]string{"m"}, "set mark"),
		JumpMark:   binding([]string{"'"}, "jump to mark"),
		Slice:      binding([]string{"S"}, "slice from here"),
		Revert:     binding([]string{"R"}, "revert slice"),
		LineNums:   binding([]string{"l"}, "line numbers"),
		Confirm:    binding([]string{"enter"}, "confirm"),
		Escape:     binding([]string{"esc"}, "cancel"),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Follow, k.GotoLine, k.GotoTime, k.Levels, k.Slice, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom},
		{k.Search, k.NextMatch, k.PrevMatch, k.TextFilter},
		{k.Follow, k.GotoLine, k.GotoTime, k.Levels, k.ClearLevel},
		{k.SetMark, k.JumpMark, k.Slice, k.Revert, k.LineNums, k.Quit},
	}
}
