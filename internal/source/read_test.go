package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimelordUK/logsrc/internal/scheduler"
)

// manualScheduler never runs anything by itself; tests drive each activity
// explicitly.
type manualScheduler struct {
	mu    sync.Mutex
	next  scheduler.Handle
	tasks map[scheduler.Handle]scheduler.Task
	names map[scheduler.Handle]string
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{
		tasks: make(map[scheduler.Handle]scheduler.Task),
		names: make(map[scheduler.Handle]string),
	}
}

func (m *manualScheduler) StartPeriodic(name string, fn scheduler.Task) scheduler.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.tasks[m.next] = fn
	m.names[m.next] = name
	return m.next
}

func (m *manualScheduler) StopPeriodic(h scheduler.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, h)
	delete(m.names, h)
}

func (m *manualScheduler) Wake(scheduler.Handle) {}

func (m *manualScheduler) run(prefix string) {
	m.mu.Lock()
	var fn scheduler.Task
	for h, name := range m.names {
		if strings.HasPrefix(name, prefix) {
			fn = m.tasks[h]
		}
	}
	m.mu.Unlock()
	if fn != nil {
		fn(context.Background())
	}
}

func openManual(t *testing.T, content string, mutate ...func(*Options)) (*Source, *manualScheduler) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manual.log")
	writeFile(t, path, content)

	sched := newManualScheduler()
	s := openSource(t, path, append([]func(*Options){func(o *Options) { o.Scheduler = sched }}, mutate...)...)
	sched.run("scan")
	return s, sched
}

// served runs fn while serving its reads from the test goroutine.
func served(t *testing.T, s *Source, sched *manualScheduler, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	for {
		select {
		case <-done:
			return
		default:
		}
		if s.reader.pending() > 0 {
			sched.run("read")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRead_FragmentedSelection(t *testing.T) {
	s, sched := openManual(t, "a\nb\nc\nd\n")
	require.Equal(t, 4, s.LineCount())

	dst := make([]string, 4)
	var n int
	served(t, s, sched, func() {
		n = s.ReadLines(context.Background(), Indices(3, 0, 100, 2), dst)
	})

	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"d", "a", "", "c"}, dst)
}

func TestRead_RangePastEnd(t *testing.T) {
	s, sched := openManual(t, "1\n2\n3\n4\n5\n")

	dst := []string{"x", "x", "x", "x"}
	var n int
	served(t, s, sched, func() {
		n = s.ReadLines(context.Background(), Range(3, 4), dst)
	})

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"4", "5", "", ""}, dst)
}

func TestRead_ShortDestinationClipsSelection(t *testing.T) {
	s, sched := openManual(t, "1\n2\n3\n")

	dst := make([]string, 2)
	var n int
	served(t, s, sched, func() {
		n = s.ReadLines(context.Background(), Range(0, 3), dst)
	})

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"1", "2"}, dst)
}

func TestRead_EntriesAndColumns(t *testing.T) {
	s, sched := openManual(t, "alpha\nbeta\n")

	var entries []Entry
	served(t, s, sched, func() {
		entries = s.Entries(context.Background(), Indices(1, 7))
	})
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{Index: 1, LineNumber: 2, Offset: 6, LogEntryIndex: 1, RawContent: "beta"}, entries[0])
	assert.False(t, entries[1].Valid())
	assert.Equal(t, int64(-1), entries[1].Offset)

	// Columns without content never wait on the read activity.
	assert.Equal(t, []any{1, 2, -1}, s.Column(context.Background(), Indices(0, 1, 9), ColumnLineNumber))
	assert.Equal(t, []any{int64(0), int64(6)}, s.Column(context.Background(), Range(0, 2), ColumnOffset))

	var raw []any
	served(t, s, sched, func() {
		raw = s.Column(context.Background(), Range(0, 3), ColumnRawContent)
	})
	assert.Equal(t, []any{"alpha", "beta", ""}, raw)
}

func TestRead_OffsetsNeedNoIO(t *testing.T) {
	s, _ := openManual(t, "ab\ncd\n")
	assert.Equal(t, []int64{3, 0, -1}, s.Offsets(Indices(1, 0, 2)))
	assert.Equal(t, []int64{0, 3, -1}, s.Offsets(Range(0, 3)))
}

func TestRead_TimeoutResetsDestination(t *testing.T) {
	s, sched := openManual(t, "a\nb\n")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	dst := []string{"x", "y"}
	assert.Equal(t, 0, s.ReadLines(ctx, Range(0, 2), dst))
	assert.Equal(t, []string{"", ""}, dst)

	// Serving the abandoned request later must not touch dst.
	sched.run("read")
	assert.Equal(t, []string{"", ""}, dst)
	assert.Equal(t, 0, s.reader.pending())
}

func TestRead_DefaultTimeout(t *testing.T) {
	s, _ := openManual(t, "a\n", func(o *Options) { o.ReadTimeout = 20 * time.Millisecond })

	start := time.Now()
	dst := make([]string, 1)
	assert.Equal(t, 0, s.ReadLines(context.Background(), Range(0, 1), dst))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRead_CloseFailsPendingRead(t *testing.T) {
	s, _ := openManual(t, "a\n")

	result := make(chan int, 1)
	dst := []string{"x"}
	go func() {
		result <- s.ReadLines(context.Background(), Range(0, 1), dst)
	}()
	require.Eventually(t, func() bool { return s.reader.pending() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, s.Close())
	assert.Equal(t, 0, <-result)
	assert.Equal(t, []string{""}, dst)
}

func TestRead_VanishedFileFailsFast(t *testing.T) {
	s, sched := openManual(t, "a\nb\n")
	require.Equal(t, 2, s.LineCount())
	require.NoError(t, os.Remove(s.Path()))

	dst := []string{"x", "x"}
	var n int
	var took time.Duration
	served(t, s, sched, func() {
		start := time.Now()
		n = s.ReadLines(context.Background(), Range(0, 2), dst)
		took = time.Since(start)
	})

	assert.Equal(t, 0, n)
	assert.Equal(t, []string{"", ""}, dst)
	assert.Less(t, took, s.opts.ReadTimeout/2)
	assert.Equal(t, 2, s.LineCount(), "the index is left to the next scan")
}

func TestRead_RewriteInPlaceIsNotServedFromBuffer(t *testing.T) {
	s, sched := openManual(t, "ab\ncd\n")

	dst := make([]string, 1)
	served(t, s, sched, func() {
		s.ReadLines(context.Background(), Range(0, 1), dst)
	})
	require.Equal(t, "ab", dst[0])

	f, err := os.OpenFile(s.Path(), os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte("zz"), 3)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	served(t, s, sched, func() {
		s.ReadLines(context.Background(), Range(1, 1), dst)
	})
	assert.Equal(t, "zz", dst[0])
}

func TestRead_ClipsLongLines(t *testing.T) {
	s, sched := openManual(t, "0123456789abcdef\nnext\n", func(o *Options) { o.MaxLineBytes = 8 })

	dst := make([]string, 2)
	served(t, s, sched, func() {
		s.ReadLines(context.Background(), Range(0, 2), dst)
	})
	assert.Equal(t, []string{"01234567", "next"}, dst)
}

func TestRead_GetLines(t *testing.T) {
	s, sched := openManual(t, "one\ntwo\nthree\n")

	var lines []*Line
	var err error
	served(t, s, sched, func() {
		lines, err = s.GetLines(1, 5)
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "two", string(lines[0].Content))
	assert.Equal(t, 1, lines[0].OriginalIndex)
	assert.Equal(t, int64(8), lines[1].Offset)
}

func TestReadRequest_CompleteOnce(t *testing.T) {
	dst := make([]string, 2)
	offsets := make([]int64, 2)
	req := newReadRequest(Range(0, 2), dst, offsets)
	req.enqueue()
	require.True(t, req.begin())

	require.True(t, req.complete([]string{"a"}, []int64{0}, 1))
	assert.Equal(t, []string{"a", ""}, dst)
	assert.Equal(t, []int64{0, -1}, offsets)

	read, ok := req.cancel()
	assert.True(t, ok)
	assert.Equal(t, 1, read)
	assert.False(t, req.complete([]string{"b", "c"}, nil, 2))
	assert.Equal(t, []string{"a", ""}, dst)
}

func TestReadRequest_CancelBeforeServe(t *testing.T) {
	dst := []string{"keep"}
	req := newReadRequest(Range(0, 1), dst, nil)
	req.enqueue()

	_, ok := req.cancel()
	assert.False(t, ok)
	assert.False(t, req.begin())
	assert.False(t, req.complete([]string{"late"}, nil, 1))
	assert.Equal(t, []string{"keep"}, dst)
}

func TestSelection(t *testing.T) {
	r := Range(5, 3)
	assert.True(t, r.Contiguous())
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 7, r.At(2))
	assert.Equal(t, 0, Range(1, -4).Len())

	ix := Indices(9, 2)
	assert.False(t, ix.Contiguous())
	assert.Equal(t, 2, ix.At(1))
	assert.Equal(t, 9, ix.Start())
	assert.Equal(t, 1, ix.head(1).Len())
}
