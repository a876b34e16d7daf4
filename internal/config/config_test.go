package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lsio "github.com/TimelordUK/logsrc/internal/io"
	"github.com/TimelordUK/logsrc/internal/textenc"
)

func TestLoadFile_MissingGivesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFile_OverridesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
debug = true

[source]
encoding = "utf-16le"
idle_interval_ms = 250
read_mode = "mmap"
watch = false

[notify]
max_wait_ms = 20
max_lines = 50
`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 50, cfg.Notify.MaxLines)
	assert.Equal(t, 20*time.Millisecond, cfg.NotifyMaxWait())
	// untouched keys keep their defaults
	assert.Equal(t, 1000, cfg.Source.ScanBatchSize)

	opts, err := cfg.ToSourceOptions()
	require.NoError(t, err)
	assert.Same(t, textenc.UTF16LE, opts.Encoding)
	assert.Equal(t, lsio.ReadModeMmap, opts.ReadMode)
	assert.Equal(t, 250*time.Millisecond, opts.IdleInterval)
	assert.Equal(t, 5*time.Second, opts.ReadTimeout)
	assert.False(t, opts.Watch)
	assert.True(t, opts.DetectReplacement)
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"negative interval": func(c *Config) { c.Source.IdleIntervalMs = -1 },
		"zero batch":        func(c *Config) { c.Source.ScanBatchSize = 0 },
		"zero timeout":      func(c *Config) { c.Source.ReadTimeoutMs = 0 },
		"unknown encoding":  func(c *Config) { c.Source.Encoding = "ebcdic" },
		"unknown read mode": func(c *Config) { c.Source.ReadMode = "dma" },
		"zero notify lines": func(c *Config) { c.Notify.MaxLines = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
			_, err := cfg.ToSourceOptions()
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
	assert.NoError(t, DefaultConfig().Validate())
}

func TestLoadFile_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[source]\nscan_batch_size = 0\n"), 0o644))

	_, err := LoadFile(path)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestGetConfigPath_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, filepath.Join("/tmp/xdg", "logsrc", "config.toml"), GetConfigPath())
}
