package ui

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/TimelordUK/logsrc/internal/config"
	"github.com/TimelordUK/logsrc/internal/notify"
	"github.com/TimelordUK/logsrc/internal/render"
	"github.com/TimelordUK/logsrc/internal/slice"
	"github.com/TimelordUK/logsrc/internal/source"
	"github.com/TimelordUK/logsrc/internal/view"
	"github.com/TimelordUK/logsrc/pkg/logformat"
)

// sourceChangedMsg tells the model that its source announced changes.
type sourceChangedMsg struct{}

// changeQueue collects modifications from the scan activity until the UI
// goroutine picks them up.
type changeQueue struct {
	mu     sync.Mutex
	mods   []notify.Modification
	signal chan struct{}
}

func newChangeQueue() *changeQueue {
	return &changeQueue{signal: make(chan struct{}, 1)}
}

func (q *changeQueue) OnModified(m notify.Modification) {
	q.mu.Lock()
	q.mods = append(q.mods, m)
	q.mu.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *changeQueue) take() []notify.Modification {
	q.mu.Lock()
	defer q.mu.Unlock()
	mods := q.mods
	q.mods = nil
	return mods
}

// wait is a tea.Cmd that blocks until the next change arrives.
func (q *changeQueue) wait() tea.Cmd {
	return func() tea.Msg {
		<-q.signal
		return sourceChangedMsg{}
	}
}

// Pane represents a single file view with its own state
type Pane struct {
	viewport *view.Viewport
	source   *source.Source
	filtered *view.FilteredProvider
	config   *config.Config
	opts     source.Options
	changes  *changeQueue
	unlisten func()

	filename   string
	sourcePath string

	following bool

	slicer     *slice.Slicer
	sliceStack []*slice.Info

	// marks (a-z) store original line numbers
	marks map[rune]int

	searchTerm    string
	searchResults []int // filtered positions
	searchIndex   int

	timestamps *logformat.TimestampParser
}

// NewPane opens path and creates a pane following it
func NewPane(path string, cfg *config.Config) (*Pane, error) {
	opts, err := cfg.ToSourceOptions()
	if err != nil {
		return nil, err
	}

	p := &Pane{
		viewport:   view.NewViewport(80, 24),
		config:     cfg,
		opts:       opts,
		changes:    newChangeQueue(),
		filename:   filepath.Base(path),
		sourcePath: path,
		following:  cfg.Display.Follow,
		slicer:     slice.NewSlicer(),
		marks:      make(map[rune]int),
		timestamps: logformat.NewTimestampParser(),
	}
	p.viewport.SetShowLineNumbers(cfg.Display.ShowLineNumbers)
	p.viewport.SetLineNumberColor(cfg.Theme.LineNumbers)
	if render.IsSyntaxHighlightable(path) {
		p.viewport.SetRenderer(render.NewSyntaxRenderer(path))
	} else {
		p.viewport.SetRenderer(render.NewLogLevelRenderer(cfg))
	}

	if err := p.attach(path); err != nil {
		return nil, err
	}
	return p, nil
}

// attach opens path as the pane's source, replacing any current one.
func (p *Pane) attach(path string) error {
	src, err := source.Open(path, p.opts)
	if err != nil {
		return err
	}
	p.detach()

	detector := logformat.NewLevelDetector(&p.config.LogLevels)
	p.source = src
	p.filtered = view.NewFilteredProvider(src, detector.Detect)
	p.viewport.SetProvider(p.filtered)
	p.unlisten = src.AddListener(p.changes, p.config.NotifyMaxWait(), p.config.Notify.MaxLines)
	p.ClearSearch()
	return nil
}

func (p *Pane) detach() {
	if p.unlisten != nil {
		p.unlisten()
		p.unlisten = nil
	}
	if p.source != nil {
		p.source.Close()
		p.source = nil
	}
	p.changes.take()
}

// WaitForChange returns the command that delivers the next sourceChangedMsg.
func (p *Pane) WaitForChange() tea.Cmd {
	return p.changes.wait()
}

// ApplyChanges folds announced modifications into the view.
func (p *Pane) ApplyChanges() {
	for _, m := range p.changes.take() {
		p.filtered.Apply(m)
		if m.Kind == notify.KindReset {
			p.searchResults = nil
		}
	}
	if p.following {
		p.viewport.GotoBottom()
	} else {
		p.viewport.Clamp()
	}
}

// SetSize sets the viewport size
func (p *Pane) SetSize(width, height int) {
	p.viewport.SetSize(width, height)
}

// Render returns the rendered viewport content
func (p *Pane) Render() string {
	var reverse map[int]rune
	if len(p.marks) > 0 {
		reverse = make(map[int]rune, len(p.marks))
		for char, line := range p.marks {
			reverse[line] = char
		}
	}
	p.viewport.SetMarks(reverse)
	return p.viewport.Render()
}

// Close cleans up pane resources
func (p *Pane) Close() error {
	p.detach()
	for len(p.sliceStack) > 0 {
		p.slicer.Cleanup(p.sliceStack[len(p.sliceStack)-1])
		p.sliceStack = p.sliceStack[:len(p.sliceStack)-1]
	}
	return nil
}

// Viewport returns the pane's viewport
func (p *Pane) Viewport() *view.Viewport {
	return p.viewport
}

// Source returns the pane's source
func (p *Pane) Source() *source.Source {
	return p.source
}

// Filtered returns the pane's filtered provider
func (p *Pane) Filtered() *view.FilteredProvider {
	return p.filtered
}

// Filename returns the display filename
func (p *Pane) Filename() string {
	return p.filename
}

// IsFollowing returns whether follow mode is active
func (p *Pane) IsFollowing() bool {
	return p.following
}

// ToggleFollowing toggles follow mode
func (p *Pane) ToggleFollowing() bool {
	p.following = !p.following
	if p.following {
		p.viewport.GotoBottom()
	}
	return p.following
}

// StopFollowing leaves follow mode, e.g. when the user scrolls up.
func (p *Pane) StopFollowing() {
	p.following = false
}

// Status summarises the source state for the status bar.
func (p *Pane) Status() string {
	props := p.source.Properties()
	if props.EmptyReason != source.EmptyReasonNone {
		return props.EmptyReason.String()
	}
	if props.PercentageProcessed < 100 {
		return fmt.Sprintf("indexing %.0f%%", props.PercentageProcessed)
	}
	return ""
}

// PerformSearch finds every visible line containing term
func (p *Pane) PerformSearch(term string) {
	p.searchTerm = term
	p.searchResults = nil
	if term == "" {
		p.viewport.ClearHighlight()
		return
	}

	needle := []byte(term)
	total := p.filtered.LineCount()
	for start := 0; start < total; start += 1000 {
		lines, err := p.filtered.GetLines(start, min(1000, total-start))
		if err != nil {
			break
		}
		for i, line := range lines {
			if bytes.Contains(line.Content, needle) {
				p.searchResults = append(p.searchResults, start+i)
			}
		}
	}

	if len(p.searchResults) > 0 {
		p.searchIndex = 0
		p.jumpTo(p.searchResults[0])
	} else {
		p.viewport.ClearHighlight()
	}
}

// NextSearchResult jumps to next search result
func (p *Pane) NextSearchResult() {
	if len(p.searchResults) == 0 {
		return
	}
	p.searchIndex = (p.searchIndex + 1) % len(p.searchResults)
	p.jumpTo(p.searchResults[p.searchIndex])
}

// PrevSearchResult jumps to previous search result
func (p *Pane) PrevSearchResult() {
	if len(p.searchResults) == 0 {
		return
	}
	p.searchIndex = (p.searchIndex - 1 + len(p.searchResults)) % len(p.searchResults)
	p.jumpTo(p.searchResults[p.searchIndex])
}

// SearchTerm returns the current search term
func (p *Pane) SearchTerm() string {
	return p.searchTerm
}

// SearchResults returns the search results
func (p *Pane) SearchResults() []int {
	return p.searchResults
}

// ClearSearch clears search state
func (p *Pane) ClearSearch() {
	p.searchTerm = ""
	p.searchResults = nil
	p.searchIndex = 0
	p.viewport.ClearHighlight()
}

// jumpTo scrolls to a filtered position and highlights it.
func (p *Pane) jumpTo(filteredIndex int) {
	p.following = false
	p.viewport.GotoLine(filteredIndex)
	if original := p.filtered.OriginalLineNumber(filteredIndex); original >= 0 {
		p.viewport.SetHighlightedLine(original)
	}
}

// jumpToOriginal scrolls to the first visible line at or after original.
func (p *Pane) jumpToOriginal(original int) bool {
	idx := p.filtered.FilteredIndexFor(original)
	if idx < 0 {
		return false
	}
	p.jumpTo(idx)
	return true
}

// GotoLine jumps to a 1-based line number of the source
func (p *Pane) GotoLine(lineNum int) bool {
	if lineNum < 1 {
		return false
	}
	return p.jumpToOriginal(lineNum - 1)
}

// GotoTime navigates to the first line stamped at or after the given time
func (p *Pane) GotoTime(input string) bool {
	ref := time.Now()
	if first, ok := view.FirstTimestamp(p.filtered, p.timestamps); ok {
		ref = first
	}
	target, ok := logformat.ParseUserTime(input, ref)
	if !ok {
		return false
	}
	idx := view.FindLineAtTime(p.filtered, p.timestamps, target)
	if idx < 0 {
		return false
	}
	p.jumpTo(idx)
	return true
}

// SetMark sets a mark at the current line
func (p *Pane) SetMark(char rune) {
	if original := p.filtered.OriginalLineNumber(p.viewport.CurrentLine()); original >= 0 {
		p.marks[char] = original
	}
}

// JumpToMark jumps to a mark
func (p *Pane) JumpToMark(char rune) bool {
	original, ok := p.marks[char]
	if !ok {
		return false
	}
	return p.jumpToOriginal(original)
}

// ClearMarks clears all marks
func (p *Pane) ClearMarks() {
	p.marks = make(map[rune]int)
	p.viewport.ClearHighlight()
}

// SliceFromCurrent exports the current line to the end and switches the
// pane to the exported file.
func (p *Pane) SliceFromCurrent(ctx context.Context) (*slice.Info, error) {
	start := max(p.filtered.OriginalLineNumber(p.viewport.CurrentLine()), 0)
	info, err := p.slicer.SliceToEnd(ctx, p.source, start)
	if err != nil {
		return nil, err
	}
	if len(p.sliceStack) > 0 {
		info.Parent = p.sliceStack[len(p.sliceStack)-1]
	}
	if err := p.attach(info.OutputPath); err != nil {
		p.slicer.Cleanup(info)
		return nil, err
	}
	p.sliceStack = append(p.sliceStack, info)
	p.following = false
	p.viewport.GotoTop()
	return info, nil
}

// HasSlice returns whether the pane shows a slice
func (p *Pane) HasSlice() bool {
	return len(p.sliceStack) > 0
}

// RevertSlice returns to the parent file or slice
func (p *Pane) RevertSlice() error {
	if len(p.sliceStack) == 0 {
		return nil
	}
	current := p.sliceStack[len(p.sliceStack)-1]
	p.sliceStack = p.sliceStack[:len(p.sliceStack)-1]

	path := p.sourcePath
	if current.Parent != nil {
		path = current.Parent.OutputPath
	}
	if err := p.attach(path); err != nil {
		return err
	}
	p.slicer.Cleanup(current)
	p.viewport.GotoTop()
	return nil
}
