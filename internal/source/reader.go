package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"math"
	"sync"
	"time"

	"github.com/TimelordUK/logsrc/internal/debug"
	"github.com/TimelordUK/logsrc/internal/index"
	lsio "github.com/TimelordUK/logsrc/internal/io"
	"github.com/TimelordUK/logsrc/internal/textenc"
)

// readCoordinator queues read requests and serves them from the read
// activity, which owns its own handle to the file.
type readCoordinator struct {
	path  string
	fs    lsio.FileSystem
	mode  lsio.ReadMode
	enc   *textenc.Encoding
	index *index.LineIndex
	opts  Options

	mu     sync.Mutex
	queue  []*readRequest
	closed bool

	// handle and lines are touched only by the read activity.
	handle lsio.ReadHandle
	lines  *lineReader
}

func newReadCoordinator(path string, idx *index.LineIndex, opts Options) *readCoordinator {
	return &readCoordinator{
		path:  path,
		fs:    opts.FS,
		mode:  opts.ReadMode,
		enc:   opts.Encoding,
		index: idx,
		opts:  opts,
	}
}

// submit queues req. It reports false once the coordinator is closed.
func (rc *readCoordinator) submit(req *readRequest) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.closed {
		return false
	}
	req.enqueue()
	rc.queue = append(rc.queue, req)
	return true
}

func (rc *readCoordinator) drain() []*readRequest {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	reqs := rc.queue
	rc.queue = nil
	return reqs
}

// pending returns the number of queued requests.
func (rc *readCoordinator) pending() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.queue)
}

// serve is the read activity. It handles every request queued at the time
// it runs, in submission order.
func (rc *readCoordinator) serve(ctx context.Context) time.Duration {
	reqs := rc.drain()
	if len(reqs) == 0 {
		return rc.opts.ReadIdleInterval
	}

	if err := rc.ensureHandle(); err != nil {
		// Never leave callers to time out on a file that is gone.
		debug.Log("READ", "%s unavailable, failing %d requests: %v", rc.path, len(reqs), err)
		for _, req := range reqs {
			req.complete(nil, nil, 0)
		}
		return rc.opts.ReadIdleInterval
	}

	for _, req := range reqs {
		if ctx.Err() != nil {
			req.cancel()
			continue
		}
		rc.serveOne(req)
	}
	return 0
}

// ensureHandle opens the read handle or reuses it if it still refers to
// the file currently at path.
func (rc *readCoordinator) ensureHandle() error {
	fp, err := rc.fs.Stat(rc.path)
	if err != nil {
		rc.closeHandle()
		return err
	}
	if rc.handle != nil && !rc.handle.Matches(fp) {
		debug.Log("READ", "%s changed identity, reopening", rc.path)
		rc.closeHandle()
	}
	if rc.handle != nil {
		return nil
	}

	h, err := rc.fs.Open(rc.path, rc.mode)
	if err != nil {
		return err
	}
	rc.handle = h
	rc.lines = newLineReader(h, rc.enc, rc.opts.MaxLineBytes)
	return nil
}

func (rc *readCoordinator) closeHandle() {
	if rc.handle == nil {
		return
	}
	if err := rc.handle.Close(); err != nil {
		log.Printf("read %s: close: %v", rc.path, err)
	}
	rc.handle = nil
	rc.lines = nil
}

func (rc *readCoordinator) serveOne(req *readRequest) {
	if !req.begin() {
		return
	}
	if rc.lines == nil {
		// An earlier request in this batch lost the handle.
		if err := rc.ensureHandle(); err != nil {
			req.complete(nil, nil, 0)
			return
		}
	}
	// Sequential reuse only holds within one request. Bytes buffered by an
	// earlier request may predate a grown tail or an in-place rewrite.
	rc.lines.invalidate()

	n := req.sel.Len()
	offsets := make([]int64, n)
	if req.sel.Contiguous() {
		rc.index.CopyRange(req.sel.Start(), offsets)
	} else {
		rc.index.CopyOffsets(req.sel.indices, offsets)
	}

	lines := make([]string, n)
	read := 0
	for i, off := range offsets {
		if off == index.InvalidOffset {
			continue
		}
		// A contiguous request seeks once and then reads sequentially; any
		// position mismatch (fragmented request, concurrent reset, clipped
		// line) forces a seek.
		if rc.lines.pos != off {
			rc.lines.seek(off)
		}
		raw, err := rc.lines.readLine()
		if err != nil && len(raw) == 0 {
			if !errors.Is(err, io.EOF) {
				log.Printf("read %s: line %d: %v", rc.path, req.sel.At(i), err)
				rc.closeHandle()
				break
			}
			// The line vanished under us, most likely a truncation the
			// scan activity has not seen yet.
			offsets[i] = index.InvalidOffset
			continue
		}
		lines[i] = rc.enc.Decode(raw)
		read++
	}

	if !req.complete(lines, offsets, read) {
		debug.Log("READ", "request cancelled after %v", req.age())
	}
}

// close rejects new requests, cancels queued ones and releases the handle.
// It must only run after the read activity has stopped.
func (rc *readCoordinator) close() {
	rc.mu.Lock()
	rc.closed = true
	reqs := rc.queue
	rc.queue = nil
	rc.mu.Unlock()

	for _, req := range reqs {
		req.cancel()
	}
	rc.closeHandle()
}

// lineReader reads whole lines from a handle starting at a known offset.
type lineReader struct {
	h       io.ReaderAt
	br      *bufio.Reader
	pos     int64
	term    []byte
	unit    int
	maxLine int
	buf     []byte
}

func newLineReader(h io.ReaderAt, enc *textenc.Encoding, maxLine int) *lineReader {
	return &lineReader{
		h:       h,
		br:      bufio.NewReaderSize(nil, 16*1024),
		pos:     index.InvalidOffset,
		term:    enc.Terminator(),
		unit:    enc.Unit(),
		maxLine: maxLine,
	}
}

func (lr *lineReader) seek(off int64) {
	lr.br.Reset(io.NewSectionReader(lr.h, off, math.MaxInt64-off))
	lr.pos = off
}

// invalidate makes the next readLine seek, dropping buffered bytes.
func (lr *lineReader) invalidate() {
	lr.pos = index.InvalidOffset
}

// readLine returns the next line including its terminator. The final line
// of the file may lack one. Lines longer than maxLine are clipped, and the
// reader then needs a seek before the next line.
func (lr *lineReader) readLine() ([]byte, error) {
	lr.buf = lr.buf[:0]
	last := lr.term[len(lr.term)-1]

	for {
		chunk, err := lr.br.ReadSlice(last)
		lr.buf = append(lr.buf, chunk...)
		lr.pos += int64(len(chunk))

		if len(lr.buf) >= lr.maxLine {
			lr.pos = index.InvalidOffset
			return lr.buf[:lr.maxLine], nil
		}
		switch {
		case err == nil:
			if bytes.HasSuffix(lr.buf, lr.term) && (len(lr.buf)-len(lr.term))%lr.unit == 0 {
				return lr.buf, nil
			}
		case errors.Is(err, bufio.ErrBufferFull):
		case errors.Is(err, io.EOF) && len(lr.buf) > 0:
			return lr.buf, nil
		default:
			return lr.buf, err
		}
	}
}
