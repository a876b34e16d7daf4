package render

import (
	"bytes"
	"strings"
)

// tabExpander replaces tabs with spaces; terminals disagree on tab stops
// inside styled text.
type tabExpander struct {
	width int
}

func newTabExpander(width int) *tabExpander {
	if width < 1 {
		width = 4
	}
	return &tabExpander{width: width}
}

func (t *tabExpander) expand(content []byte) string {
	if bytes.IndexByte(content, '\t') < 0 {
		return string(content)
	}
	var b strings.Builder
	col := 0
	for _, r := range string(content) {
		if r == '\t' {
			n := t.width - col%t.width
			b.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		b.WriteRune(r)
		col++
	}
	return b.String()
}
