package view

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimelordUK/logsrc/internal/config"
	"github.com/TimelordUK/logsrc/internal/notify"
	"github.com/TimelordUK/logsrc/internal/source"
	"github.com/TimelordUK/logsrc/pkg/logformat"
)

// memProvider serves lines from a slice.
type memProvider struct {
	lines []string
	reads int
}

func (m *memProvider) LineCount() int { return len(m.lines) }

func (m *memProvider) GetLine(i int) (*source.Line, error) {
	lines, err := m.GetLines(i, 1)
	if len(lines) == 0 {
		return nil, err
	}
	return lines[0], err
}

func (m *memProvider) GetLines(start, count int) ([]*source.Line, error) {
	m.reads++
	var out []*source.Line
	for i := max(start, 0); i < start+count && i < len(m.lines); i++ {
		out = append(out, &source.Line{Content: []byte(m.lines[i]), OriginalIndex: i})
	}
	return out, nil
}

func detector() LevelDetectFunc {
	return logformat.NewLevelDetector(&config.DefaultConfig().LogLevels).Detect
}

func TestFilteredProvider_Levels(t *testing.T) {
	mem := &memProvider{lines: []string{"[INF] a", "[ERR] b", "[DBG] c", "[ERR] d", "[WRN] e"}}
	f := NewFilteredProvider(mem, detector())

	assert.Equal(t, 5, f.LineCount())
	assert.False(t, f.IsFiltered())

	f.SetLevelAndAbove(logformat.LevelWarn)
	assert.Equal(t, 3, f.LineCount())
	assert.Equal(t, 1, f.OriginalLineNumber(0))
	assert.Equal(t, 4, f.OriginalLineNumber(2))
	assert.Equal(t, -1, f.OriginalLineNumber(3))
	assert.Equal(t, 1, f.FilteredIndexFor(2))
	assert.Equal(t, -1, f.FilteredIndexFor(5))

	lines, err := f.GetLines(1, 5)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "[ERR] d", string(lines[0].Content))

	f.ClearFilter()
	f.ToggleLevel(logformat.LevelDebug)
	assert.Equal(t, 1, f.LineCount())
	f.ToggleLevel(logformat.LevelDebug)
	assert.False(t, f.IsFiltered())
}

func TestFilteredProvider_TextAndIncremental(t *testing.T) {
	mem := &memProvider{lines: []string{"alpha", "beta", "alphabet"}}
	f := NewFilteredProvider(mem, detector())
	f.SetTextFilter("alpha")
	require.Equal(t, 2, f.LineCount())
	assert.Equal(t, "alpha", f.TextFilter())

	mem.lines = append(mem.lines, "gamma", "alpha again")
	f.Apply(notify.Appended(3, 2))
	reads := mem.reads
	assert.Equal(t, 3, f.LineCount())
	assert.Equal(t, reads+1, mem.reads, "only the new lines are examined")

	// the tentative last line changed under us
	mem.lines[4] = "omega"
	f.Apply(notify.Removed(4, 1))
	f.Apply(notify.Appended(4, 1))
	assert.Equal(t, 2, f.LineCount())

	mem.lines = []string{"alpha"}
	f.Apply(notify.Reset())
	assert.Equal(t, 1, f.LineCount())
}

func TestViewport_ScrollAndRender(t *testing.T) {
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}
	mem := &memProvider{lines: lines}

	v := NewViewport(40, 5)
	v.SetProvider(mem)

	v.ScrollDown(3)
	assert.Equal(t, 3, v.CurrentLine())
	v.GotoBottom()
	assert.Equal(t, 15, v.CurrentLine())
	assert.True(t, v.AtBottom())
	assert.InDelta(t, 100, v.PercentScrolled(), 0.01)
	v.ScrollDown(10)
	assert.Equal(t, 15, v.CurrentLine())
	v.GotoTop()
	assert.False(t, v.AtBottom())
	v.ScrollUp(3)
	assert.Equal(t, 0, v.CurrentLine())

	v.SetMarks(map[int]rune{1: 'a'})
	v.SetHighlightedLine(2)
	out := v.Render()
	rows := strings.Split(out, "\n")
	require.Len(t, rows, 5)
	assert.Contains(t, rows[0], "line 0")
	assert.Contains(t, rows[1], "a")
	assert.Contains(t, rows[2], ">")

	v.SetShowLineNumbers(false)
	assert.Equal(t, "line 0", strings.Split(v.Render(), "\n")[0])

	mem.lines = mem.lines[:2]
	v.GotoLine(10)
	assert.Equal(t, 0, v.CurrentLine())
	rows = strings.Split(v.Render(), "\n")
	assert.Equal(t, "~", rows[4])
}

func TestFindLineAtTime(t *testing.T) {
	mem := &memProvider{lines: []string{
		"2024-01-15 10:00:00 start",
		"  continuation",
		"2024-01-15 10:05:00 tick",
		"2024-01-15 10:10:00 tick",
		"  trace",
		"2024-01-15 10:20:00 end",
	}}
	parser := logformat.NewTimestampParser()
	at := func(hm string) time.Time {
		ts, err := time.ParseInLocation("2006-01-02 15:04", "2024-01-15 "+hm, time.Local)
		require.NoError(t, err)
		return ts
	}

	assert.Equal(t, 0, FindLineAtTime(mem, parser, at("09:00")))
	assert.Equal(t, 2, FindLineAtTime(mem, parser, at("10:01")))
	assert.Equal(t, 3, FindLineAtTime(mem, parser, at("10:10")))
	assert.Equal(t, 5, FindLineAtTime(mem, parser, at("10:11")))
	assert.Equal(t, -1, FindLineAtTime(mem, parser, at("11:00")))

	first, ok := FirstTimestamp(mem, parser)
	require.True(t, ok)
	assert.True(t, at("10:00").Equal(first))
}
