package consolidate

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/TimelordUK/logsrc/internal/debug"
	"github.com/TimelordUK/logsrc/internal/notify"
	"github.com/TimelordUK/logsrc/internal/source"
)

// Follower is a source the writer can follow. *source.Source satisfies it.
type Follower interface {
	Path() string
	LineCount() int
	ReadLines(ctx context.Context, sel source.Selection, dst []string) int
	AddListener(l notify.Listener, maxWait time.Duration, maxLines int) (remove func())
}

// feed tracks a single source for the consolidated writer
type feed struct {
	src      Follower
	name     string // display name (basename)
	position int    // next line to write
	enabled  bool
	baseline bool // the registration reset has been handled
	remove   func()
}

type event struct {
	feed *feed
	mod  notify.Modification
}

// Writer merges several followed sources into one output stream. Each
// source's listener only queues modifications; Run turns them into reads
// and writes, so a slow output never holds up a scan.
type Writer struct {
	out      *bufio.Writer
	prefix   bool // add "[name:line] " to each line
	maxWait  time.Duration
	maxLines int
	chunk    int

	mu    sync.Mutex
	feeds []*feed
	queue []event

	signal chan struct{}
}

// Option configures a Writer.
type Option func(*Writer)

// WithPrefix toggles the "[name:line] " prefix.
func WithPrefix(on bool) Option {
	return func(w *Writer) { w.prefix = on }
}

// WithBatching sets how listeners batch appends.
func WithBatching(maxWait time.Duration, maxLines int) Option {
	return func(w *Writer) { w.maxWait, w.maxLines = maxWait, maxLines }
}

// NewWriter creates a writer emitting to out.
func NewWriter(out io.Writer, opts ...Option) *Writer {
	w := &Writer{
		out:      bufio.NewWriter(out),
		prefix:   true,
		maxWait:  100 * time.Millisecond,
		maxLines: 10000,
		chunk:    1000,
		signal:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Add starts following src. The last prime lines already in the source
// are written first; later lines are written as they are announced. Add
// must not run concurrently with Run.
func (w *Writer) Add(ctx context.Context, src Follower, prime int) error {
	f := &feed{
		src:     src,
		name:    filepath.Base(src.Path()),
		enabled: true,
	}

	n := src.LineCount()
	start := max(n-prime, 0)
	w.mu.Lock()
	w.feeds = append(w.feeds, f)
	w.mu.Unlock()

	if err := w.copyLines(ctx, f, start, n); err != nil {
		return err
	}
	f.position = n
	if err := w.out.Flush(); err != nil {
		return err
	}

	f.remove = src.AddListener(notify.ListenerFunc(func(m notify.Modification) {
		if m.Kind == notify.KindAppended && !w.enabledFeed(f) {
			return
		}
		w.enqueue(event{feed: f, mod: m})
	}), w.maxWait, w.maxLines)
	return nil
}

func (w *Writer) enqueue(ev event) {
	w.mu.Lock()
	w.queue = append(w.queue, ev)
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// Run writes announced lines until ctx is done.
func (w *Writer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return w.out.Flush()
		case <-w.signal:
		}
		if err := w.drain(ctx); err != nil {
			return err
		}
	}
}

func (w *Writer) drain(ctx context.Context) error {
	w.mu.Lock()
	events := w.queue
	w.queue = nil
	w.mu.Unlock()

	for _, ev := range events {
		if err := w.apply(ctx, ev); err != nil {
			return err
		}
	}
	return w.out.Flush()
}

func (w *Writer) apply(ctx context.Context, ev event) error {
	f := ev.feed
	m := ev.mod

	switch m.Kind {
	case notify.KindReset:
		if f.baseline {
			debug.Log("TAIL", "%s reset", f.name)
			if w.enabledFeed(f) {
				if _, err := fmt.Fprintf(w.out, "[%s] --- reset ---\n", f.name); err != nil {
					return err
				}
			}
			f.position = 0
		}
		f.baseline = true
		// catch up with lines indexed before the reset reached us
		end := f.src.LineCount()
		err := w.copyLines(ctx, f, f.position, end)
		f.position = max(f.position, end)
		return err

	case notify.KindRemoved:
		f.position = min(f.position, m.Start)
		return nil

	case notify.KindAppended:
		from := max(f.position, m.Start)
		if from >= m.End() {
			return nil
		}
		err := w.copyLines(ctx, f, from, m.End())
		f.position = m.End()
		return err
	}
	return nil
}

// copyLines writes lines [from, to) of f, unless f is disabled.
func (w *Writer) copyLines(ctx context.Context, f *feed, from, to int) error {
	if !w.enabledFeed(f) {
		return nil
	}
	buf := make([]string, min(w.chunk, max(to-from, 0)))
	for pos := from; pos < to; pos += w.chunk {
		dst := buf[:min(w.chunk, to-pos)]
		n := f.src.ReadLines(ctx, source.Range(pos, len(dst)), dst)
		if n < len(dst) {
			log.Printf("tail %s: lines %d-%d no longer available", f.name, pos+n+1, pos+len(dst))
		}
		for i, line := range dst[:n] {
			if w.prefix {
				if _, err := fmt.Fprintf(w.out, "[%s:%d] ", f.name, pos+i+1); err != nil {
					return err
				}
			}
			if _, err := w.out.WriteString(line); err != nil {
				return err
			}
			if err := w.out.WriteByte('\n'); err != nil {
				return err
			}
		}
		if n < len(dst) {
			return nil
		}
	}
	return nil
}

func (w *Writer) enabledFeed(f *feed) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return f.enabled
}

// SourceCount returns the number of followed sources
func (w *Writer) SourceCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.feeds)
}

// SetEnabled enables or disables a source by name
func (w *Writer) SetEnabled(name string, enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, f := range w.feeds {
		if f.name == name {
			f.enabled = enabled
			return
		}
	}
}

// Close unregisters from every source. The sources themselves stay open,
// and output still buffered is flushed when Run returns.
func (w *Writer) Close() error {
	w.mu.Lock()
	feeds := w.feeds
	w.mu.Unlock()

	for _, f := range feeds {
		if f.remove != nil {
			f.remove()
		}
	}
	return nil
}
