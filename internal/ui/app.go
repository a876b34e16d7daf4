package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/TimelordUK/logsrc/internal/config"
	"github.com/TimelordUK/logsrc/pkg/logformat"
)

// Mode represents the current UI mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeSearch
	ModeGoto
	ModeGotoTime
	ModeFilter
	ModeSetMark
	ModeJumpMark
)

// statusTick refreshes indexing progress while nothing else happens.
type statusTick struct{}

const statusInterval = time.Second

// Model is the main application model
type Model struct {
	pane   *Pane
	config *config.Config
	keys   keyMap
	help   help.Model
	input  textinput.Model

	mode   Mode
	width  int
	height int

	message string
}

// NewModel creates a new application model following path
func NewModel(path string, cfg *config.Config) (*Model, error) {
	pane, err := NewPane(path, cfg)
	if err != nil {
		return nil, err
	}

	ti := textinput.New()
	ti.CharLimit = 256

	return &Model{
		pane:   pane,
		config: cfg,
		keys:   newKeyMap(cfg.Keybindings),
		help:   help.New(),
		input:  ti,
	}, nil
}

func tickStatus() tea.Cmd {
	return tea.Tick(statusInterval, func(time.Time) tea.Msg { return statusTick{} })
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.pane.WaitForChange(), tickStatus())
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		// Reserve 2 lines for status bar and help
		m.pane.SetSize(msg.Width, msg.Height-2)
		return m, nil

	case sourceChangedMsg:
		m.pane.ApplyChanges()
		return m, m.pane.WaitForChange()

	case statusTick:
		return m, tickStatus()
	}

	return m, nil
}

func (m *Model) prompt(mode Mode, placeholder string) (tea.Model, tea.Cmd) {
	m.mode = mode
	m.message = ""
	m.input.SetValue("")
	m.input.Placeholder = placeholder
	m.input.Focus()
	return m, textinput.Blink
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case ModeSearch, ModeGoto, ModeGotoTime, ModeFilter:
		return m.handleInputKey(msg)
	case ModeSetMark, ModeJumpMark:
		return m.handleMarkKey(msg)
	}

	vp := m.pane.Viewport()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Down):
		vp.ScrollDown(1)
	case key.Matches(msg, m.keys.Up):
		m.pane.StopFollowing()
		vp.ScrollUp(1)
	case key.Matches(msg, m.keys.PageDown):
		vp.PageDown()
	case key.Matches(msg, m.keys.PageUp):
		m.pane.StopFollowing()
		vp.PageUp()
	case key.Matches(msg, m.keys.Top):
		m.pane.StopFollowing()
		vp.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		vp.GotoBottom()

	case key.Matches(msg, m.keys.Follow):
		if m.pane.ToggleFollowing() {
			m.message = "following"
		} else {
			m.message = "follow off"
		}

	case key.Matches(msg, m.keys.Search):
		return m.prompt(ModeSearch, "Search...")
	case key.Matches(msg, m.keys.GotoLine):
		return m.prompt(ModeGoto, "Line number...")
	case key.Matches(msg, m.keys.GotoTime):
		return m.prompt(ModeGotoTime, "Time (15:04:05, -5m, 2006-01-02 15:04)...")
	case key.Matches(msg, m.keys.TextFilter):
		return m.prompt(ModeFilter, "Filter text...")

	case key.Matches(msg, m.keys.NextMatch):
		m.pane.NextSearchResult()
	case key.Matches(msg, m.keys.PrevMatch):
		m.pane.PrevSearchResult()

	case key.Matches(msg, m.keys.Levels):
		n, _ := strconv.Atoi(msg.String())
		levels := logformat.Levels()
		if n >= 1 && n <= len(levels) {
			m.pane.Filtered().ToggleLevel(levels[n-1])
			m.pane.Viewport().Clamp()
		}
	case key.Matches(msg, m.keys.ClearLevel):
		m.pane.Filtered().ClearFilter()
		m.pane.Viewport().Clamp()

	case key.Matches(msg, m.keys.SetMark):
		m.mode = ModeSetMark
	case key.Matches(msg, m.keys.JumpMark):
		m.mode = ModeJumpMark

	case key.Matches(msg, m.keys.Slice):
		info, err := m.pane.SliceFromCurrent(context.Background())
		if err != nil {
			m.message = "slice failed: " + err.Error()
		} else {
			m.message = fmt.Sprintf("slice %d lines from line %d", info.Lines, info.StartLine+1)
		}
	case key.Matches(msg, m.keys.Revert):
		if err := m.pane.RevertSlice(); err != nil {
			m.message = "revert failed: " + err.Error()
		}

	case key.Matches(msg, m.keys.LineNums):
		vp.SetShowLineNumbers(!vp.ShowLineNumbers())
	}

	return m, nil
}

func (m *Model) endInput() {
	m.mode = ModeNormal
	m.input.Blur()
}

func (m *Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		value := strings.TrimSpace(m.input.Value())
		switch m.mode {
		case ModeSearch:
			m.pane.PerformSearch(value)
			if value != "" && len(m.pane.SearchResults()) == 0 {
				m.message = "pattern not found"
			}
		case ModeGoto:
			n, err := strconv.Atoi(value)
			if err != nil || !m.pane.GotoLine(n) {
				m.message = "no such line: " + value
			}
		case ModeGotoTime:
			if !m.pane.GotoTime(value) {
				m.message = "no line at " + value
			}
		case ModeFilter:
			m.pane.Filtered().SetTextFilter(value)
			m.pane.Viewport().Clamp()
		}
		m.endInput()
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.endInput()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleMarkKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	mode := m.mode
	m.mode = ModeNormal

	s := msg.String()
	if len(s) != 1 || s[0] < 'a' || s[0] > 'z' {
		return m, nil
	}
	char := rune(s[0])
	if mode == ModeSetMark {
		m.pane.SetMark(char)
		m.message = fmt.Sprintf("mark %c set", char)
	} else if !m.pane.JumpToMark(char) {
		m.message = fmt.Sprintf("mark %c not set", char)
	}
	return m, nil
}

// View implements tea.Model
func (m *Model) View() string {
	var builder strings.Builder

	builder.WriteString(m.pane.Render())
	builder.WriteString("\n")

	statusStyle := lipgloss.NewStyle().
		Background(lipgloss.Color(m.config.Theme.StatusBar)).
		Foreground(lipgloss.Color(m.config.Theme.StatusBarText)).
		Width(m.width)

	var status string
	switch m.mode {
	case ModeSearch:
		status = "/" + m.input.View()
	case ModeGoto:
		status = ":" + m.input.View()
	case ModeGotoTime:
		status = "@" + m.input.View()
	case ModeFilter:
		status = "&" + m.input.View()
	case ModeSetMark:
		status = " mark: "
	case ModeJumpMark:
		status = " goto mark: "
	default:
		status = m.statusLine()
	}

	builder.WriteString(statusStyle.Render(status))
	builder.WriteString("\n")
	builder.WriteString(m.help.View(m.keys))

	return builder.String()
}

func (m *Model) statusLine() string {
	vp := m.pane.Viewport()
	filtered := m.pane.Filtered()

	var parts []string
	name := m.pane.Filename()
	if m.pane.HasSlice() {
		name += " [slice]"
	}
	parts = append(parts, name)
	parts = append(parts, fmt.Sprintf("L%d/%d", vp.CurrentLine()+1, filtered.LineCount()))
	parts = append(parts, fmt.Sprintf("%.0f%%", vp.PercentScrolled()))

	if filtered.IsFiltered() {
		var names []string
		for _, level := range logformat.Levels() {
			if filtered.ActiveLevels()[level] {
				names = append(names, level.String())
			}
		}
		if text := filtered.TextFilter(); text != "" {
			names = append(names, strconv.Quote(text))
		}
		parts = append(parts, "filter:"+strings.Join(names, ","))
	}
	if term := m.pane.SearchTerm(); term != "" {
		parts = append(parts, fmt.Sprintf("[%d matches]", len(m.pane.SearchResults())))
	}
	if m.pane.IsFollowing() {
		parts = append(parts, "FOLLOW")
	}
	if s := m.pane.Status(); s != "" {
		parts = append(parts, s)
	}
	if m.message != "" {
		parts = append(parts, m.message)
	}
	return " " + strings.Join(parts, "  ")
}

// Close cleans up resources
func (m *Model) Close() error {
	return m.pane.Close()
}
