package ui

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/TimelordUK/logsrc/internal/config"
	"github.com/TimelordUK/logsrc/pkg/logformat"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const sample = "2024-03-01 10:00:00 INFO starting\n" +
	"2024-03-01 10:00:05 DEBUG config loaded\n" +
	"2024-03-01 10:01:00 WARN disk at 80%\n" +
	"2024-03-01 10:02:00 ERROR request failed\n" +
	"2024-03-01 10:03:00 INFO request retried\n"

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Source.IdleIntervalMs = 5
	cfg.Source.ReadIdleIntervalMs = 5
	cfg.Source.Watch = false
	cfg.Notify.MaxWaitMs = 0
	return cfg
}

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// settle waits for the source to index and folds its changes into the pane.
func settle(t *testing.T, p *Pane) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Source().WaitScanned(ctx))
	p.ApplyChanges()
}

func newTestPane(t *testing.T, content string) *Pane {
	t.Helper()
	p, err := NewPane(writeLog(t, content), testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	p.SetSize(80, 1)
	settle(t, p)
	return p
}

func TestPane_IndexesAndNavigates(t *testing.T) {
	p := newTestPane(t, sample)
	assert.Equal(t, 5, p.Filtered().LineCount())

	require.True(t, p.GotoLine(3))
	assert.Equal(t, 2, p.Viewport().CurrentLine())
	assert.False(t, p.IsFollowing())

	assert.False(t, p.GotoLine(0))
	assert.False(t, p.GotoLine(99))
}

func TestPane_FollowsAppends(t *testing.T) {
	p := newTestPane(t, sample)
	require.True(t, p.IsFollowing())

	f, err := os.OpenFile(p.Source().Path(), os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err = f.WriteString("2024-03-01 10:04:00 INFO more\n")
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())

	settle(t, p)
	assert.Equal(t, 10, p.Filtered().LineCount())
	assert.True(t, p.Viewport().AtBottom())
}

func TestPane_Search(t *testing.T) {
	p := newTestPane(t, sample)

	p.PerformSearch("request")
	assert.Equal(t, []int{3, 4}, p.SearchResults())
	assert.Equal(t, 3, p.Viewport().CurrentLine())

	p.NextSearchResult()
	assert.Equal(t, 4, p.Viewport().CurrentLine())
	p.NextSearchResult()
	assert.Equal(t, 3, p.Viewport().CurrentLine())
	p.PrevSearchResult()
	assert.Equal(t, 4, p.Viewport().CurrentLine())

	p.PerformSearch("nothing like this")
	assert.Empty(t, p.SearchResults())

	p.ClearSearch()
	assert.Empty(t, p.SearchTerm())
}

func TestPane_LevelFilterAndMarks(t *testing.T) {
	p := newTestPane(t, sample)

	p.GotoLine(4)
	p.SetMark('a')

	p.Filtered().SetLevelAndAbove(logformat.LevelWarn)
	assert.Equal(t, 2, p.Filtered().LineCount())

	require.True(t, p.JumpToMark('a'))
	assert.Equal(t, 1, p.Viewport().CurrentLine())
	assert.False(t, p.JumpToMark('z'))
}

func TestPane_GotoTime(t *testing.T) {
	p := newTestPane(t, sample)

	require.True(t, p.GotoTime("10:01:30"))
	assert.Equal(t, 3, p.Viewport().CurrentLine())

	assert.False(t, p.GotoTime("not a time"))
}

func TestPane_SliceAndRevert(t *testing.T) {
	p := newTestPane(t, sample)

	p.GotoLine(3)
	info, err := p.SliceFromCurrent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, info.Lines)
	assert.True(t, p.HasSlice())

	settle(t, p)
	assert.Equal(t, 3, p.Filtered().LineCount())

	require.NoError(t, p.RevertSlice())
	assert.False(t, p.HasSlice())
	settle(t, p)
	assert.Equal(t, 5, p.Filtered().LineCount())

	_, err = os.Stat(info.OutputPath)
	assert.True(t, os.IsNotExist(err))
}

func TestModel_Keys(t *testing.T) {
	path := writeLog(t, sample)
	m, err := NewModel(path, testConfig())
	require.NoError(t, err)
	defer m.Close()

	m.Update(tea.WindowSizeMsg{Width: 80, Height: 3})
	settle(t, m.pane)

	press := func(s string) {
		var msg tea.KeyMsg
		switch s {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
		}
		m.Update(msg)
	}

	press(":")
	assert.Equal(t, ModeGoto, m.mode)
	press("2")
	press("enter")
	assert.Equal(t, ModeNormal, m.mode)
	assert.Equal(t, 1, m.pane.Viewport().CurrentLine())

	press("5")
	assert.True(t, m.pane.Filtered().IsFiltered())
	assert.Equal(t, 1, m.pane.Filtered().LineCount())
	press("0")
	assert.False(t, m.pane.Filtered().IsFiltered())

	press("F")
	assert.True(t, m.pane.IsFollowing())
	assert.Contains(t, m.View(), "FOLLOW")
}
