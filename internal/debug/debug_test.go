package debug

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		Enable(false)
		SetOutput(nil)
	})

	Enable(false)
	Log("SCAN", "hidden %d", 1)
	assert.Empty(t, buf.String())

	Enable(true)
	Log("SCAN", "cycle %d", 2)
	assert.Equal(t, "[DEBUG:SCAN] cycle 2\n", buf.String())
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	require.NoError(t, OpenFile(path))
	t.Cleanup(func() { Enable(false) })

	Enable(true)
	Log("READ", "served")
	require.NoError(t, Close())
	assert.FileExists(t, path)
}
