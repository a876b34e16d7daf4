package view

import (
	"bytes"
	"sort"

	"github.com/TimelordUK/logsrc/internal/notify"
	"github.com/TimelordUK/logsrc/internal/source"
	"github.com/TimelordUK/logsrc/pkg/logformat"
)

// LevelDetectFunc detects log level from content
type LevelDetectFunc func(content []byte) logformat.LogLevel

const filterChunk = 1000

// FilteredProvider wraps a LineProvider and filters by log level and text.
// It follows a growing source incrementally: Apply feeds it the source's
// modifications so only new lines are examined.
type FilteredProvider struct {
	source   source.LineProvider
	detector LevelDetectFunc

	// Level filter: if set, only show lines with these levels
	levelFilter map[logformat.LogLevel]bool
	textFilter  []byte

	// original line numbers that pass, ascending
	filteredIndices []int
	// lines below scanned have been examined
	scanned int
	dirty   bool
}

// NewFilteredProvider creates a filtered provider
func NewFilteredProvider(src source.LineProvider, detector LevelDetectFunc) *FilteredProvider {
	return &FilteredProvider{
		source:      src,
		detector:    detector,
		levelFilter: make(map[logformat.LogLevel]bool),
		dirty:       true,
	}
}

// ToggleLevel toggles a level in the filter
func (f *FilteredProvider) ToggleLevel(level logformat.LogLevel) {
	if f.levelFilter[level] {
		delete(f.levelFilter, level)
	} else {
		f.levelFilter[level] = true
	}
	f.dirty = true
}

// SetLevelAndAbove sets filter to show this level and all higher severity
func (f *FilteredProvider) SetLevelAndAbove(level logformat.LogLevel) {
	f.levelFilter = make(map[logformat.LogLevel]bool)
	for _, l := range logformat.Levels() {
		if l >= level {
			f.levelFilter[l] = true
		}
	}
	f.dirty = true
}

// ClearFilter removes all level filters
func (f *FilteredProvider) ClearFilter() {
	f.levelFilter = make(map[logformat.LogLevel]bool)
	f.dirty = true
}

// SetTextFilter sets the text substring filter
func (f *FilteredProvider) SetTextFilter(text string) {
	f.textFilter = nil
	if text != "" {
		f.textFilter = []byte(text)
	}
	f.dirty = true
}

// TextFilter returns the current text filter
func (f *FilteredProvider) TextFilter() string {
	return string(f.textFilter)
}

// ActiveLevels returns the active level filters
func (f *FilteredProvider) ActiveLevels() map[logformat.LogLevel]bool {
	return f.levelFilter
}

// IsFiltered returns true if any filter is active
func (f *FilteredProvider) IsFiltered() bool {
	return len(f.levelFilter) > 0 || len(f.textFilter) > 0
}

// Apply updates the filtered index after a change to the source.
func (f *FilteredProvider) Apply(m notify.Modification) {
	switch m.Kind {
	case notify.KindReset:
		f.dirty = true
	case notify.KindRemoved:
		cut := sort.SearchInts(f.filteredIndices, m.Start)
		f.filteredIndices = f.filteredIndices[:cut]
		f.scanned = min(f.scanned, m.Start)
	case notify.KindAppended:
		// picked up by extend on next access
	}
}

func (f *FilteredProvider) passes(line *source.Line) bool {
	if len(f.textFilter) > 0 && !bytes.Contains(line.Content, f.textFilter) {
		return false
	}
	if len(f.levelFilter) > 0 {
		level := logformat.LevelUnknown
		if f.detector != nil {
			level = f.detector(line.Content)
		}
		if !f.levelFilter[level] {
			return false
		}
	}
	return true
}

// sync brings the filtered index up to date with the source.
func (f *FilteredProvider) sync() {
	if f.dirty {
		f.filteredIndices = nil
		f.scanned = 0
		f.dirty = false
	}
	if !f.IsFiltered() {
		return
	}

	total := f.source.LineCount()
	for f.scanned < total {
		lines, err := f.source.GetLines(f.scanned, min(filterChunk, total-f.scanned))
		if err != nil || len(lines) == 0 {
			return
		}
		for _, line := range lines {
			if f.passes(line) {
				f.filteredIndices = append(f.filteredIndices, line.OriginalIndex)
			}
		}
		f.scanned = lines[len(lines)-1].OriginalIndex + 1
	}
}

// LineCount returns total number of filtered lines
func (f *FilteredProvider) LineCount() int {
	f.sync()
	if !f.IsFiltered() {
		return f.source.LineCount()
	}
	return len(f.filteredIndices)
}

// GetLine returns line at filtered index
func (f *FilteredProvider) GetLine(index int) (*source.Line, error) {
	lines, err := f.GetLines(index, 1)
	if err != nil || len(lines) == 0 {
		return nil, err
	}
	return lines[0], nil
}

// GetLines returns a range of filtered lines
func (f *FilteredProvider) GetLines(start, count int) ([]*source.Line, error) {
	f.sync()
	if !f.IsFiltered() {
		return f.source.GetLines(start, count)
	}

	var lines []*source.Line
	for i := max(start, 0); i < start+count && i < len(f.filteredIndices); i++ {
		line, err := f.source.GetLine(f.filteredIndices[i])
		if err != nil {
			return lines, err
		}
		if line != nil {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// OriginalLineNumber returns the original line number for a filtered index
func (f *FilteredProvider) OriginalLineNumber(filteredIndex int) int {
	f.sync()
	if !f.IsFiltered() {
		if filteredIndex < 0 || filteredIndex >= f.source.LineCount() {
			return -1
		}
		return filteredIndex
	}
	if filteredIndex < 0 || filteredIndex >= len(f.filteredIndices) {
		return -1
	}
	return f.filteredIndices[filteredIndex]
}

// FilteredIndexFor returns the position of the first visible line at or
// after original, or -1 if there is none.
func (f *FilteredProvider) FilteredIndexFor(original int) int {
	f.sync()
	if original < 0 {
		original = 0
	}
	if !f.IsFiltered() {
		if original >= f.source.LineCount() {
			return -1
		}
		return original
	}
	i := sort.SearchInts(f.filteredIndices, original)
	if i >= len(f.filteredIndices) {
		return -1
	}
	return i
}
