package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TimelordUK/logsrc/internal/config"
	"github.com/TimelordUK/logsrc/internal/source"
)

func TestTabExpander(t *testing.T) {
	tabs := newTabExpander(4)
	assert.Equal(t, "a   b", tabs.expand([]byte("a\tb")))
	assert.Equal(t, "abcd    e", tabs.expand([]byte("abcd\te")))
	assert.Equal(t, "none", tabs.expand([]byte("none")))
	assert.Equal(t, 4, newTabExpander(0).width)
}

func TestRenderers_KeepContent(t *testing.T) {
	line := &source.Line{Content: []byte("2024-01-15 [ERR]\tboom")}

	plain := NewPlainRenderer().Render(line)
	assert.Equal(t, "2024-01-15 [ERR]    boom", plain)

	levels := NewLogLevelRenderer(config.DefaultConfig()).Render(line)
	assert.Contains(t, levels, "boom")

	syntax := NewSyntaxRenderer("main.go").Render(&source.Line{Content: []byte("func main() {}")})
	assert.Contains(t, syntax, "main")
	assert.NotContains(t, syntax, "\n")
}

func TestIsSyntaxHighlightable(t *testing.T) {
	assert.True(t, IsSyntaxHighlightable("x/main.go"))
	assert.True(t, IsSyntaxHighlightable("Makefile"))
	assert.False(t, IsSyntaxHighlightable("app.log"))
	assert.False(t, IsSyntaxHighlightable("app.log.1"))
	assert.False(t, IsSyntaxHighlightable("notes.txt"))
}
