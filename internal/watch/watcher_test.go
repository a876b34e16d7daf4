package watch

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWatcher_ReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(path, []byte("one\n"), 0644))

	var changes atomic.Int32
	w, err := New(path, func() { changes.Add(1) })
	require.NoError(t, err)
	defer w.Close()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("two\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool { return changes.Load() > 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestWatcher_IgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	var changes atomic.Int32
	w, err := New(path, func() { changes.Add(1) })
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.log"), []byte("x\n"), 0644))
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, changes.Load())

	// Creating the watched file itself is reported even though it did not
	// exist when watching began.
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0644))
	require.Eventually(t, func() bool { return changes.Load() > 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestWatcher_CloseTwice(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "a.log"), func() {})
	require.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}

func TestWatcher_MissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope", "a.log"), func() {})
	assert.Error(t, err)
}
