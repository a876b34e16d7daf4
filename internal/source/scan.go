package source

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/TimelordUK/logsrc/internal/debug"
	"github.com/TimelordUK/logsrc/internal/index"
	lsio "github.com/TimelordUK/logsrc/internal/io"
)

// headBytes is how much of the start of the file is hashed to recognise a
// replaced file.
const headBytes = 4096

// scanState is owned by the scan activity.
type scanState struct {
	last lsio.Fingerprint
	seen bool

	// nextStart is where the first line not yet in the index begins, valid
	// while tentative is false. With tentative set, the last indexed line
	// had no terminator when it was found and is rescanned next time.
	nextStart int64
	tentative bool
	consumed  int64

	headLen  int64
	headHash uint64
}

// scanTask is the scan activity. It returns the delay before the next
// cycle: short while the file keeps producing work, the idle interval once
// a cycle found nothing to do.
func (s *Source) scanTask(ctx context.Context) time.Duration {
	cycle := s.idle.begin()
	worked := s.scanOnce(ctx)
	if worked {
		s.notifier.Flush(false)
		return s.opts.ScanInterval
	}
	s.notifier.Flush(true)
	s.idle.finish(cycle)
	return s.opts.IdleInterval
}

// scanOnce runs one cycle and reports whether it did any work.
func (s *Source) scanOnce(ctx context.Context) bool {
	if s.stopping(ctx) {
		return false
	}

	fp, err := s.fs.Stat(s.path)
	if err != nil {
		s.abandon("stat", err)
		return false
	}
	if s.st.seen && fp.Equal(s.st.last) {
		return false
	}
	if s.st.seen && fp.Size < s.st.last.Size {
		s.restart("truncated")
	}

	h, err := s.fs.Open(s.path, lsio.ReadModeFile)
	if err != nil {
		s.abandon("open", err)
		return false
	}
	defer h.Close()

	if s.opts.DetectReplacement && s.st.headLen > 0 {
		sum, err := hashHead(h, s.st.headLen)
		if err != nil || sum != s.st.headHash {
			s.restart("replaced")
		}
	}

	if s.st.tentative && fp.Size == s.st.consumed {
		// Only the timestamps moved; the unterminated tail is unchanged.
		s.st.last = fp
		s.publish(fp, s.st.consumed)
		return false
	}

	if err := s.scanFrom(ctx, h, fp); err != nil {
		if s.stopping(ctx) {
			return false
		}
		s.abandon("scan", err)
		return false
	}

	s.st.last = fp
	s.st.seen = true
	s.rememberHead(h)
	return true
}

// scanFrom indexes every line that starts at or after the resume point.
func (s *Source) scanFrom(ctx context.Context, h lsio.ReadHandle, fp lsio.Fingerprint) error {
	start := s.st.nextStart
	replace := -1
	if s.st.tentative {
		if last, off, ok := s.index.Last(); ok {
			start, replace = off, last
		}
	}
	if s.index.LineCount() == 0 {
		pre, err := index.DetectPreamble(h, s.enc)
		if err != nil {
			return err
		}
		start, replace = pre, -1
	}
	if start > fp.Size {
		start = fp.Size
	}

	sc := index.NewOffsetScanner(io.NewSectionReader(h, start, fp.Size-start), start, s.enc, s.opts.ChunkSize)
	batch := make([]int64, 0, s.opts.ScanBatchSize)
	lineStart := start

	for {
		if s.stopping(ctx) {
			return ErrClosed
		}
		next, err := sc.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		batch = append(batch, lineStart)
		lineStart = next

		if len(batch) == cap(batch) {
			s.commit(batch, &replace, fp, lineStart)
			s.st.nextStart, s.st.tentative = lineStart, false
			batch = batch[:0]
		}
	}

	consumed := sc.Consumed()
	tentative := lineStart < consumed
	if tentative {
		batch = append(batch, lineStart)
	}
	s.commit(batch, &replace, fp, consumed)
	s.st.nextStart, s.st.tentative, s.st.consumed = lineStart, tentative, consumed
	return nil
}

// commit moves a batch of discovered line starts into the index and
// announces them. When the batch starts by re-discovering the tentative
// last line, that line is first withdrawn with a Removed notification since
// its extent has changed.
func (s *Source) commit(batch []int64, replace *int, fp lsio.Fingerprint, consumed int64) {
	if *replace >= 0 && len(batch) > 0 {
		if s.index.ByteOffset(*replace) == batch[0] {
			s.index.Truncate(*replace)
			s.notifier.Removed(*replace, 1)
		}
		*replace = -1
	}

	first := s.index.Append(batch...)
	s.publish(fp, consumed)
	if len(batch) > 0 {
		s.notifier.Appended(first, len(batch))
	}
}

func (s *Source) publish(fp lsio.Fingerprint, consumed int64) {
	count := s.index.LineCount()
	s.props.update(func(p *Properties) {
		p.Size = fp.Size
		p.Created = fp.Created
		p.LastModified = fp.LastModified
		p.PercentageProcessed = percentage(consumed, fp.Size)
		p.LineCount = count
		p.LogEntryCount = count
		p.EmptyReason = EmptyReasonNone
		p.LastError = nil
		p.LastScan = time.Now()
	})
}

// restart forgets everything and starts over from byte zero within the
// current cycle.
func (s *Source) restart(why string) {
	debug.Log("SCAN", "%s %s, rescanning from start", s.path, why)
	s.index.Clear()
	s.st = scanState{}
	s.notifier.Reset()
}

// abandon handles a cycle that could not look at the file. The index is
// dropped (announcing a Reset if there was anything to drop) and the next
// cycle starts from scratch.
func (s *Source) abandon(op string, err error) {
	reason := SourceCannotBeAccessed
	if errors.Is(err, lsio.ErrNotFound) {
		reason = SourceDoesNotExist
	}

	hadContent := s.st.seen || s.index.LineCount() > 0
	prev := s.props.load()
	if hadContent {
		s.index.Clear()
		s.notifier.Reset()
	}
	s.st = scanState{}

	scanErr := &ScanError{Op: op, Path: s.path, Reason: reason, Underlying: err}
	if hadContent || prev.EmptyReason != reason {
		log.Printf("source: %v", scanErr)
	}
	s.props.update(func(p *Properties) {
		p.Size = 0
		p.Created = time.Time{}
		p.LastModified = time.Time{}
		p.PercentageProcessed = 0
		p.LineCount = 0
		p.LogEntryCount = 0
		p.EmptyReason = reason
		p.LastError = scanErr
		p.LastScan = time.Now()
	})
}

// rememberHead records a hash of the first bytes already indexed so a later
// cycle can tell an appended file from a replaced one.
func (s *Source) rememberHead(h lsio.ReadHandle) {
	if !s.opts.DetectReplacement {
		return
	}
	want := min(int64(headBytes), s.st.consumed)
	if want <= s.st.headLen {
		return
	}
	sum, err := hashHead(h, want)
	if err != nil {
		return
	}
	s.st.headLen, s.st.headHash = want, sum
}

func hashHead(h io.ReaderAt, n int64) (uint64, error) {
	buf := make([]byte, n)
	if _, err := h.ReadAt(buf, 0); err != nil {
		return 0, err
	}
	return xxhash.Sum64(buf), nil
}

// idleSignal lets callers wait for a scan cycle that started after they
// began waiting and found nothing left to do.
type idleSignal struct {
	mu      sync.Mutex
	started uint64
	idle    uint64
	ch      chan struct{}
}

func (sig *idleSignal) begin() uint64 {
	sig.mu.Lock()
	defer sig.mu.Unlock()
	sig.started++
	return sig.started
}

func (sig *idleSignal) finish(cycle uint64) {
	sig.mu.Lock()
	defer sig.mu.Unlock()
	sig.idle = cycle
	if sig.ch != nil {
		close(sig.ch)
		sig.ch = nil
	}
}

func (sig *idleSignal) wait(ctx context.Context, closing <-chan struct{}, kick func()) error {
	sig.mu.Lock()
	target := sig.started + 1
	for sig.idle < target {
		if sig.ch == nil {
			sig.ch = make(chan struct{})
		}
		ch := sig.ch
		sig.mu.Unlock()

		kick()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		case <-closing:
			return ErrClosed
		}
		sig.mu.Lock()
	}
	sig.mu.Unlock()
	return nil
}
