// Package source exposes a text log file as a randomly addressable,
// continuously growing sequence of lines.
//
// A Source owns two background activities. The scan activity follows the
// file, indexes the byte offset of every line and tells listeners what
// changed. The read activity serves content reads from its own handle. The
// line index between them is the only shared state.
package source

import (
	"context"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/TimelordUK/logsrc/internal/debug"
	"github.com/TimelordUK/logsrc/internal/index"
	lsio "github.com/TimelordUK/logsrc/internal/io"
	"github.com/TimelordUK/logsrc/internal/notify"
	"github.com/TimelordUK/logsrc/internal/scheduler"
	"github.com/TimelordUK/logsrc/internal/textenc"
	"github.com/TimelordUK/logsrc/internal/watch"
)

// Source is a streaming view of one log file.
type Source struct {
	path string
	opts Options
	fs   lsio.FileSystem
	enc  *textenc.Encoding

	index    *index.LineIndex
	notifier *notify.Notifier
	props    *propertyStore
	reader   *readCoordinator
	idle     idleSignal

	// st is touched only by the scan activity.
	st scanState

	sched     Scheduler
	ownSched  *scheduler.Scheduler
	scanTaskH scheduler.Handle
	readTaskH scheduler.Handle
	watcher   *watch.Watcher

	ctx       context.Context
	cancel    context.CancelFunc
	closing   chan struct{}
	closeOnce sync.Once
}

// Open starts following path. The file need not exist yet: a missing file
// is reported through Properties and picked up once it appears.
func Open(path string, opts Options) (*Source, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.FS == nil {
		opts.FS = lsio.OS{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	idx := index.NewLineIndex(0)
	s := &Source{
		path:     path,
		opts:     opts,
		fs:       opts.FS,
		enc:      opts.Encoding,
		index:    idx,
		notifier: notify.NewNotifier(),
		props:    newPropertyStore(opts.Encoding.Name()),
		reader:   newReadCoordinator(path, idx, opts),
		ctx:      ctx,
		cancel:   cancel,
		closing:  make(chan struct{}),
	}

	s.sched = opts.Scheduler
	if s.sched == nil {
		s.ownSched = scheduler.New()
		s.sched = s.ownSched
	}
	s.scanTaskH = s.sched.StartPeriodic("scan "+path, s.scanTask)
	s.readTaskH = s.sched.StartPeriodic("read "+path, s.reader.serve)

	if opts.Watch {
		w, err := watch.New(path, func() { s.sched.Wake(s.scanTaskH) })
		if err != nil {
			// Polling still works; the watcher only cuts latency.
			log.Printf("source %s: watch disabled: %v", path, err)
		} else {
			s.watcher = w
		}
	}

	debug.Log("SOURCE", "opened %s encoding=%s mode=%s", path, opts.Encoding.Name(), opts.ReadMode)
	return s, nil
}

// Path returns the path the source follows.
func (s *Source) Path() string {
	return s.path
}

// Properties returns the latest published snapshot.
func (s *Source) Properties() Properties {
	return s.props.load()
}

// Property returns a single property of the latest snapshot.
func (s *Source) Property(key Property) any {
	return s.props.load().Get(key)
}

// LineCount returns the number of indexed lines. A tentative last line is
// included.
func (s *Source) LineCount() int {
	return s.index.LineCount()
}

// AddListener registers l. It first receives a Reset, then appends batched
// by maxWait and maxLines, with resets and removals delivered immediately.
// Registering a listener twice has no effect. The returned func removes it.
//
// The Reset carries no line count. A listener added to a source that
// already has lines takes LineCount after registering as its baseline.
// A scan committing at that moment may still announce lines the baseline
// covers, so followers resume from max(baseline, event start).
func (s *Source) AddListener(l notify.Listener, maxWait time.Duration, maxLines int) (remove func()) {
	return s.notifier.AddListener(l, maxWait, maxLines)
}

// RemoveListener stops delivery to l.
func (s *Source) RemoveListener(l notify.Listener) {
	s.notifier.RemoveListener(l)
}

// ReadLines reads the selected lines into dst, which must have room for
// sel.Len() entries; surplus selection is ignored. It returns the number of
// lines actually read. Lines that could not be served are left empty.
//
// A ctx without deadline is bounded by Options.ReadTimeout. On timeout,
// cancellation or close the whole of dst is reset and 0 returned.
func (s *Source) ReadLines(ctx context.Context, sel Selection, dst []string) int {
	n, _ := s.read(ctx, sel, dst, nil)
	return n
}

// Offsets returns the byte offset of each selected line, or -1 for lines
// outside the index. It never touches the file.
func (s *Source) Offsets(sel Selection) []int64 {
	out := make([]int64, sel.Len())
	if sel.Contiguous() {
		s.index.CopyRange(sel.Start(), out)
	} else {
		s.index.CopyOffsets(sel.indices, out)
	}
	return out
}

// Entries returns the selected lines with the requested columns filled in;
// with no columns, all of them. Content is only read from the file when
// ColumnRawContent is requested.
func (s *Source) Entries(ctx context.Context, sel Selection, cols ...Column) []Entry {
	n := sel.Len()
	entries := make([]Entry, n)
	content := len(cols) == 0 || slices.Contains(cols, ColumnRawContent)

	var lines []string
	var offsets []int64
	if content {
		lines = make([]string, n)
		offsets = make([]int64, n)
		s.read(ctx, sel, lines, offsets)
	} else {
		offsets = s.Offsets(sel)
	}

	for i := range entries {
		if offsets[i] == index.InvalidOffset {
			entries[i] = invalidEntry()
			continue
		}
		line := sel.At(i)
		entries[i] = Entry{
			Index:         line,
			LineNumber:    line + 1,
			Offset:        offsets[i],
			LogEntryIndex: line,
		}
		if content {
			entries[i].RawContent = lines[i]
		}
	}
	return entries
}

// Column returns one column for the selected lines.
func (s *Source) Column(ctx context.Context, sel Selection, col Column) []any {
	entries := s.Entries(ctx, sel, col)
	out := make([]any, len(entries))
	for i, e := range entries {
		out[i] = e.get(col)
	}
	return out
}

// read submits one request to the read activity and waits for it.
func (s *Source) read(ctx context.Context, sel Selection, dst []string, offsets []int64) (int, error) {
	if sel.Len() > len(dst) {
		sel = sel.head(len(dst))
	}
	dst = dst[:sel.Len()]
	if offsets != nil {
		offsets = offsets[:sel.Len()]
		for i := range offsets {
			offsets[i] = index.InvalidOffset
		}
	}
	if sel.Len() == 0 {
		return 0, nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ReadTimeout)
		defer cancel()
	}

	req := newReadRequest(sel, dst, offsets)
	if !s.reader.submit(req) {
		clear(dst)
		return 0, ErrClosed
	}
	s.sched.Wake(s.readTaskH)

	n := req.wait(ctx, s.closing)
	if n == 0 && ctx.Err() != nil {
		debug.Log("READ", "%s: %d lines from %d abandoned: %v", s.path, sel.Len(), sel.Start(), ctx.Err())
		return 0, ctx.Err()
	}
	return n, nil
}

// WaitScanned blocks until a scan cycle that began after the call finds no
// more work, meaning everything on disk at that point is indexed and
// announced.
func (s *Source) WaitScanned(ctx context.Context) error {
	select {
	case <-s.closing:
		return ErrClosed
	default:
	}
	return s.idle.wait(ctx, s.closing, func() { s.sched.Wake(s.scanTaskH) })
}

// Close stops both activities, fails outstanding reads and releases the
// file. Further reads return nothing. Close is idempotent.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		close(s.closing)

		if s.watcher != nil {
			if err := s.watcher.Close(); err != nil {
				log.Printf("source %s: close watcher: %v", s.path, err)
			}
		}
		s.sched.StopPeriodic(s.scanTaskH)
		s.sched.StopPeriodic(s.readTaskH)
		s.reader.close()
		s.index.Clear()
		if s.ownSched != nil {
			s.ownSched.Close()
		}
		debug.Log("SOURCE", "closed %s", s.path)
	})
	return nil
}

// stopping reports whether the current cycle should end early.
func (s *Source) stopping(ctx context.Context) bool {
	return ctx.Err() != nil || s.ctx.Err() != nil
}
