package render

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/TimelordUK/logsrc/internal/source"
)

// SyntaxRenderer applies syntax highlighting based on file type. Lines are
// highlighted one at a time, so multi-line constructs are not tracked.
type SyntaxRenderer struct {
	lexer     chroma.Lexer
	style     *chroma.Style
	formatter chroma.Formatter
	tabs      *tabExpander
}

// NewSyntaxRenderer creates a syntax highlighting renderer for the given filename
func NewSyntaxRenderer(filename string) *SyntaxRenderer {
	lexer := lexers.Match(filename)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return &SyntaxRenderer{
		lexer:     chroma.Coalesce(lexer),
		style:     styles.Get("monokai"),
		formatter: formatters.Get("terminal16m"),
		tabs:      newTabExpander(4),
	}
}

// Render applies syntax highlighting to a line
func (r *SyntaxRenderer) Render(line *source.Line) string {
	content := r.tabs.expand(line.Content)
	if content == "" {
		return ""
	}

	it, err := r.lexer.Tokenise(nil, content)
	if err != nil {
		return content
	}
	var buf bytes.Buffer
	if err := r.formatter.Format(&buf, r.style, it); err != nil {
		return content
	}

	highlighted := strings.ReplaceAll(buf.String(), "\n", "")
	return strings.ReplaceAll(highlighted, "\r", "")
}

// IsSyntaxHighlightable reports whether filename names source code or
// structured text that chroma has a lexer for. Logs are never highlighted
// this way; they get level colouring instead.
func IsSyntaxHighlightable(filename string) bool {
	base := strings.ToLower(filepath.Base(filename))
	if strings.HasSuffix(base, ".log") || strings.Contains(base, ".log.") {
		return false
	}
	lexer := lexers.Match(filename)
	return lexer != nil && lexer.Config().Name != "plaintext"
}
