package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	lsio "github.com/TimelordUK/logsrc/internal/io"
	"github.com/TimelordUK/logsrc/internal/source"
	"github.com/TimelordUK/logsrc/internal/textenc"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all application configuration
type Config struct {
	Debug bool `toml:"debug"`

	Source      SourceConfig     `toml:"source"`
	Notify      NotifyConfig     `toml:"notify"`
	Theme       ThemeConfig      `toml:"theme"`
	LogLevels   LogLevelConfig   `toml:"log_levels"`
	Keybindings KeybindingConfig `toml:"keybindings"`
	Display     DisplayConfig    `toml:"display"`
}

// SourceConfig tunes how files are followed and read.
type SourceConfig struct {
	Encoding           string `toml:"encoding"`
	ScanIntervalMs     int    `toml:"scan_interval_ms"`
	IdleIntervalMs     int    `toml:"idle_interval_ms"`
	ReadIdleIntervalMs int    `toml:"read_idle_interval_ms"`
	ScanBatchSize      int    `toml:"scan_batch_size"`
	ReadTimeoutMs      int    `toml:"read_timeout_ms"`
	ReadMode           string `toml:"read_mode"`
	Watch              bool   `toml:"watch"`
	ChunkSize          int    `toml:"chunk_size"`
	MaxLineBytes       int    `toml:"max_line_bytes"`
	DetectReplacement  bool   `toml:"detect_replacement"`
}

// NotifyConfig controls how change notifications are batched for
// listeners such as the pager and tail.
type NotifyConfig struct {
	MaxWaitMs int `toml:"max_wait_ms"`
	MaxLines  int `toml:"max_lines"`
}

// ThemeConfig defines color schemes
type ThemeConfig struct {
	Name          string         `toml:"name"`
	LineNumbers   string         `toml:"line_numbers"`
	StatusBar     string         `toml:"status_bar"`
	StatusBarText string         `toml:"status_bar_text"`
	SearchMatch   string         `toml:"search_match"`
	Levels        LogLevelColors `toml:"levels"`
}

// LogLevelColors defines colors for each log level
type LogLevelColors struct {
	Trace string `toml:"trace"`
	Debug string `toml:"debug"`
	Info  string `toml:"info"`
	Warn  string `toml:"warn"`
	Error string `toml:"error"`
	Fatal string `toml:"fatal"`
}

// LogLevelConfig defines log level detection patterns
type LogLevelConfig struct {
	TracePatterns []string `toml:"trace_patterns"`
	DebugPatterns []string `toml:"debug_patterns"`
	InfoPatterns  []string `toml:"info_patterns"`
	WarnPatterns  []string `toml:"warn_patterns"`
	ErrorPatterns []string `toml:"error_patterns"`
	FatalPatterns []string `toml:"fatal_patterns"`
}

// KeybindingConfig allows customizing keybindings
type KeybindingConfig struct {
	Quit       []string `toml:"quit"`
	ScrollUp   []string `toml:"scroll_up"`
	ScrollDown []string `toml:"scroll_down"`
	PageUp     []string `toml:"page_up"`
	PageDown   []string `toml:"page_down"`
	Top        []string `toml:"top"`
	Bottom     []string `toml:"bottom"`
	Search     []string `toml:"search"`
	NextMatch  []string `toml:"next_match"`
	PrevMatch  []string `toml:"prev_match"`
	Follow     []string `toml:"follow"`
	GotoLine   []string `toml:"goto_line"`
	GotoTime   []string `toml:"goto_time"`
}

// DisplayConfig holds display options
type DisplayConfig struct {
	ShowLineNumbers bool `toml:"show_line_numbers"`
	TabWidth        int  `toml:"tab_width"`
	WrapLines       bool `toml:"wrap_lines"`
	Follow          bool `toml:"follow"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Encoding:           "utf-8",
			ScanIntervalMs:     0,
			IdleIntervalMs:     100,
			ReadIdleIntervalMs: 10,
			ScanBatchSize:      1000,
			ReadTimeoutMs:      5000,
			ReadMode:           "file",
			Watch:              true,
			ChunkSize:          4096,
			MaxLineBytes:       1 << 20,
			DetectReplacement:  true,
		},
		Notify: NotifyConfig{
			MaxWaitMs: 100,
			MaxLines:  10000,
		},
		Theme: ThemeConfig{
			Name:          "subtle",
			LineNumbers:   "240", // Dark gray
			StatusBar:     "236", // Darker gray background
			StatusBarText: "252", // Light gray text
			SearchMatch:   "226", // Yellow
			Levels: LogLevelColors{
				Trace: "240",
				Debug: "244",
				Info:  "250",
				Warn:  "214", // Orange
				Error: "167", // Soft red
				Fatal: "196", // Bright red
			},
		},
		LogLevels: LogLevelConfig{
			TracePatterns: []string{"[TRC]", "[TRACE]", "TRACE", "TRC"},
			DebugPatterns: []string{"[DBG]", "[DEBUG]", "DEBUG", "DBG"},
			InfoPatterns:  []string{"[INF]", "[INFO]", "INFO", "INF"},
			WarnPatterns:  []string{"[WRN]", "[WARN]", "[WARNING]", "WARN", "WRN", "WARNING"},
			ErrorPatterns: []string{"[ERR]", "[ERROR]", "ERROR", "ERR"},
			FatalPatterns: []string{"[FTL]", "[FATAL]", "FATAL", "FTL", "[CRIT]", "CRITICAL"},
		},
		Keybindings: KeybindingConfig{
			Quit:       []string{"q", "ctrl+c"},
			ScrollUp:   []string{"k", "up"},
			ScrollDown: []string{"j", "down"},
			PageUp:     []string{"b", "pgup", "ctrl+u"},
			PageDown:   []string{"f", "pgdown", "ctrl+d", " "},
			Top:        []string{"g", "home"},
			Bottom:     []string{"G", "end"},
			Search:     []string{"/"},
			NextMatch:  []string{"n"},
			PrevMatch:  []string{"N"},
			Follow:     []string{"F"},
			GotoLine:   []string{":"},
			GotoTime:   []string{"@"},
		},
		Display: DisplayConfig{
			ShowLineNumbers: true,
			TabWidth:        4,
			WrapLines:       false,
			Follow:          true,
		},
	}
}

// Load loads config from the default location, falling back to defaults
func Load() (*Config, error) {
	return LoadFile(getConfigPath())
}

// LoadFile loads config from path. An empty path or a missing file yields
// the defaults. The result is validated.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values a user can get wrong.
func (c *Config) Validate() error {
	s := c.Source
	switch {
	case s.ScanIntervalMs < 0, s.IdleIntervalMs < 0, s.ReadIdleIntervalMs < 0:
		return fmt.Errorf("%w: source intervals must not be negative", ErrInvalid)
	case s.ReadTimeoutMs <= 0:
		return fmt.Errorf("%w: source.read_timeout_ms must be positive", ErrInvalid)
	case s.ScanBatchSize < 1:
		return fmt.Errorf("%w: source.scan_batch_size must be at least 1", ErrInvalid)
	case s.ChunkSize < 1:
		return fmt.Errorf("%w: source.chunk_size must be at least 1", ErrInvalid)
	case s.MaxLineBytes < 1:
		return fmt.Errorf("%w: source.max_line_bytes must be at least 1", ErrInvalid)
	case c.Notify.MaxWaitMs < 0:
		return fmt.Errorf("%w: notify.max_wait_ms must not be negative", ErrInvalid)
	case c.Notify.MaxLines < 1:
		return fmt.Errorf("%w: notify.max_lines must be at least 1", ErrInvalid)
	}
	if _, err := textenc.Lookup(s.Encoding); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := lsio.ParseReadMode(s.ReadMode); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// ToSourceOptions converts the [source] section into source options.
func (c *Config) ToSourceOptions() (source.Options, error) {
	if err := c.Validate(); err != nil {
		return source.Options{}, err
	}
	s := c.Source
	enc, _ := textenc.Lookup(s.Encoding)
	mode, _ := lsio.ParseReadMode(s.ReadMode)

	opts := source.DefaultOptions()
	opts.Encoding = enc
	opts.ReadMode = mode
	opts.ScanInterval = ms(s.ScanIntervalMs)
	opts.IdleInterval = ms(s.IdleIntervalMs)
	opts.ReadIdleInterval = ms(s.ReadIdleIntervalMs)
	opts.ReadTimeout = ms(s.ReadTimeoutMs)
	opts.ScanBatchSize = s.ScanBatchSize
	opts.ChunkSize = s.ChunkSize
	opts.MaxLineBytes = s.MaxLineBytes
	opts.Watch = s.Watch
	opts.DetectReplacement = s.DetectReplacement
	return opts, nil
}

// NotifyMaxWait is the [notify] batching delay.
func (c *Config) NotifyMaxWait() time.Duration {
	return ms(c.Notify.MaxWaitMs)
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// Save saves config to file
func Save(cfg *Config) error {
	configPath := getConfigPath()
	if configPath == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0o644)
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "logsrc", "config.toml")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".config", "logsrc", "config.toml")
}

// GetConfigPath exports the config path for user reference
func GetConfigPath() string {
	return getConfigPath()
}
