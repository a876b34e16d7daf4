package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/TimelordUK/logsrc/internal/render"
	"github.com/TimelordUK/logsrc/internal/source"
)

// Viewport manages the visible portion of content.
// It knows nothing about log formats, filters, or file sources.
// It only knows how to display lines from a LineProvider.
type Viewport struct {
	provider source.LineProvider
	renderer render.Renderer

	width  int
	height int

	scrollOffset int

	lineNumberStyle lipgloss.Style
	markStyle       lipgloss.Style
	highlightStyle  lipgloss.Style

	showLineNumbers bool

	// original line index to highlight, -1 for none
	highlightedLine int
	// original line index -> mark rune
	marks map[int]rune
}

// NewViewport creates a new viewport
func NewViewport(width, height int) *Viewport {
	return &Viewport{
		width:           width,
		height:          height,
		showLineNumbers: true,
		lineNumberStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		markStyle:       lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		highlightStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true),
		renderer:        render.NewPlainRenderer(),
		highlightedLine: -1,
	}
}

// SetHighlightedLine sets which original line index to highlight (-1 for none)
func (v *Viewport) SetHighlightedLine(originalIndex int) {
	v.highlightedLine = originalIndex
}

// ClearHighlight removes any line highlight
func (v *Viewport) ClearHighlight() {
	v.highlightedLine = -1
}

// SetMarks sets the marks shown in the gutter, keyed by original line index.
func (v *Viewport) SetMarks(marks map[int]rune) {
	v.marks = marks
}

// SetRenderer sets the line renderer
func (v *Viewport) SetRenderer(r render.Renderer) {
	v.renderer = r
}

// SetProvider sets the line provider
func (v *Viewport) SetProvider(provider source.LineProvider) {
	v.provider = provider
	v.scrollOffset = 0
}

// SetLineNumberColor restyles the gutter.
func (v *Viewport) SetLineNumberColor(color string) {
	v.lineNumberStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// SetSize updates viewport dimensions
func (v *Viewport) SetSize(width, height int) {
	v.width = width
	v.height = max(height, 1)
	v.clampScroll()
}

// Height returns the number of visible rows.
func (v *Viewport) Height() int {
	return v.height
}

// ScrollDown scrolls down by n lines
func (v *Viewport) ScrollDown(n int) {
	v.scrollOffset += n
	v.clampScroll()
}

// ScrollUp scrolls up by n lines
func (v *Viewport) ScrollUp(n int) {
	v.scrollOffset -= n
	v.clampScroll()
}

// PageDown scrolls down by one page
func (v *Viewport) PageDown() {
	v.ScrollDown(max(v.height-1, 1))
}

// PageUp scrolls up by one page
func (v *Viewport) PageUp() {
	v.ScrollUp(max(v.height-1, 1))
}

// GotoTop scrolls to the beginning
func (v *Viewport) GotoTop() {
	v.scrollOffset = 0
}

// GotoBottom scrolls so the last line is on the bottom row
func (v *Viewport) GotoBottom() {
	if v.provider == nil {
		return
	}
	v.scrollOffset = v.provider.LineCount() - v.height
	v.clampScroll()
}

// AtBottom reports whether the last line is visible.
func (v *Viewport) AtBottom() bool {
	if v.provider == nil {
		return true
	}
	return v.scrollOffset+v.height >= v.provider.LineCount()
}

// GotoLine scrolls to a specific line
func (v *Viewport) GotoLine(line int) {
	v.scrollOffset = line
	v.clampScroll()
}

// CurrentLine returns the current top line number
func (v *Viewport) CurrentLine() int {
	return v.scrollOffset
}

// Clamp re-applies scroll bounds after the provider shrank.
func (v *Viewport) Clamp() {
	v.clampScroll()
}

func (v *Viewport) clampScroll() {
	if v.provider == nil {
		v.scrollOffset = 0
		return
	}
	maxScroll := max(v.provider.LineCount()-v.height, 0)
	v.scrollOffset = min(max(v.scrollOffset, 0), maxScroll)
}

// Render returns the viewport content as a string
func (v *Viewport) Render() string {
	if v.provider == nil {
		return ""
	}

	lines, err := v.provider.GetLines(v.scrollOffset, v.height)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}

	var b strings.Builder
	lineNumWidth := len(fmt.Sprintf("%d", v.provider.LineCount()))

	for i, line := range lines {
		if i > 0 {
			b.WriteString("\n")
		}

		highlighted := v.highlightedLine >= 0 && line.OriginalIndex == v.highlightedLine
		if v.showLineNumbers {
			gutter := fmt.Sprintf("%*d", lineNumWidth, line.OriginalIndex+1)
			switch {
			case highlighted:
				b.WriteString(v.highlightStyle.Render(gutter + ">"))
			case v.marks[line.OriginalIndex] != 0:
				b.WriteString(v.markStyle.Render(gutter + string(v.marks[line.OriginalIndex])))
			default:
				b.WriteString(v.lineNumberStyle.Render(gutter + " "))
			}
		}
		// TODO: truncate to width once rendering is ANSI-aware
		b.WriteString(v.renderer.Render(line))
	}

	for i := len(lines); i < v.height; i++ {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("~")
	}

	return b.String()
}

// PercentScrolled returns how far through the file we are
func (v *Viewport) PercentScrolled() float64 {
	if v.provider == nil || v.provider.LineCount() == 0 {
		return 0
	}

	total := v.provider.LineCount()
	if total <= v.height {
		return 100
	}

	return float64(v.scrollOffset) / float64(total-v.height) * 100
}

// SetShowLineNumbers toggles line numbers
func (v *Viewport) SetShowLineNumbers(show bool) {
	v.showLineNumbers = show
}

// ShowLineNumbers reports whether the gutter is drawn.
func (v *Viewport) ShowLineNumbers() bool {
	return v.showLineNumbers
}
