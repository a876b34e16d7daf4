package source

import (
	"context"
	"sync"
	"time"
)

type requestState int

const (
	requestCreated requestState = iota
	requestEnqueued
	requestServing
	requestCompleted
	requestCancelled
)

// readRequest carries one read from a caller to the read activity.
//
// The caller owns dst until the request completes or is cancelled. The
// worker fills its own scratch buffers and copies into dst under mu, so a
// cancellation either happens before the copy (and the copy is skipped) or
// after it (and observes the completed result); it never interleaves.
type readRequest struct {
	sel     Selection
	dst     []string
	offsets []int64
	created time.Time

	mu    sync.Mutex
	state requestState
	read  int
	done  chan struct{}
}

func newReadRequest(sel Selection, dst []string, offsets []int64) *readRequest {
	return &readRequest{
		sel:     sel,
		dst:     dst,
		offsets: offsets,
		created: time.Now(),
		done:    make(chan struct{}),
	}
}

func (r *readRequest) enqueue() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == requestCreated {
		r.state = requestEnqueued
	}
}

// begin moves the request to serving. It reports false if the caller gave
// up already.
func (r *readRequest) begin() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != requestEnqueued {
		return false
	}
	r.state = requestServing
	return true
}

// complete copies the result into the caller's buffers, unless the request
// was cancelled first. lines and offsets may be shorter than the selection;
// the remaining positions get default values.
func (r *readRequest) complete(lines []string, offsets []int64, read int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == requestCancelled || r.state == requestCompleted {
		return false
	}

	n := copy(r.dst, lines)
	clear(r.dst[n:])
	if r.offsets != nil {
		n = copy(r.offsets, offsets)
		for i := n; i < len(r.offsets); i++ {
			r.offsets[i] = -1
		}
	}
	r.read = read
	r.state = requestCompleted
	close(r.done)
	return true
}

// cancel abandons the request. If it had already completed the result
// stands and is returned with ok set.
func (r *readRequest) cancel() (read int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case requestCompleted:
		return r.read, true
	case requestCancelled:
		return 0, false
	}
	r.state = requestCancelled
	close(r.done)
	return 0, false
}

// wait blocks until the request finishes, ctx ends or the source closes.
// On timeout the request is cancelled and the buffers reset to defaults.
func (r *readRequest) wait(ctx context.Context, closing <-chan struct{}) int {
	select {
	case <-r.done:
	case <-ctx.Done():
	case <-closing:
	}

	read, ok := r.cancel()
	if ok {
		return read
	}
	clear(r.dst)
	for i := range r.offsets {
		r.offsets[i] = -1
	}
	return 0
}

// age is how long the request has existed; used in diagnostics.
func (r *readRequest) age() time.Duration {
	return time.Since(r.created)
}
