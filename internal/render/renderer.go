package render

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/TimelordUK/logsrc/internal/config"
	"github.com/TimelordUK/logsrc/internal/source"
	"github.com/TimelordUK/logsrc/pkg/logformat"
)

// Renderer applies styling to lines
type Renderer interface {
	Render(line *source.Line) string
}

// LogLevelRenderer colors lines based on log level
type LogLevelRenderer struct {
	detector *logformat.LevelDetector
	styles   map[logformat.LogLevel]lipgloss.Style
	tabs     *tabExpander
}

// NewLogLevelRenderer creates a renderer with config
func NewLogLevelRenderer(cfg *config.Config) *LogLevelRenderer {
	colors := cfg.Theme.Levels
	fg := func(c string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(c)) }

	return &LogLevelRenderer{
		detector: logformat.NewLevelDetector(&cfg.LogLevels),
		styles: map[logformat.LogLevel]lipgloss.Style{
			logformat.LevelUnknown: lipgloss.NewStyle(),
			logformat.LevelTrace:   fg(colors.Trace),
			logformat.LevelDebug:   fg(colors.Debug),
			logformat.LevelInfo:    fg(colors.Info),
			logformat.LevelWarn:    fg(colors.Warn),
			logformat.LevelError:   fg(colors.Error),
			logformat.LevelFatal:   fg(colors.Fatal).Bold(true),
		},
		tabs: newTabExpander(cfg.Display.TabWidth),
	}
}

// Render applies log level styling to a line
func (r *LogLevelRenderer) Render(line *source.Line) string {
	level := r.detector.Detect(line.Content)
	return r.styles[level].Render(r.tabs.expand(line.Content))
}

// PlainRenderer renders without styling
type PlainRenderer struct {
	tabs *tabExpander
}

// NewPlainRenderer creates a plain renderer
func NewPlainRenderer() *PlainRenderer {
	return &PlainRenderer{tabs: newTabExpander(4)}
}

// Render returns the line content as-is
func (r *PlainRenderer) Render(line *source.Line) string {
	return r.tabs.expand(line.Content)
}
