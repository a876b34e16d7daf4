package logformat

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/TimelordUK/logsrc/internal/config"
)

// LogLevel represents a log severity level
type LogLevel int

const (
	LevelUnknown LogLevel = iota
	LevelTrace
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = [...]string{"unknown", "trace", "debug", "info", "warn", "error", "fatal"}

func (l LogLevel) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel maps a name such as "warn" or "ERROR" to a level.
func ParseLevel(s string) (LogLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		return LevelWarn, nil
	}
	for i, name := range levelNames {
		if name == s {
			return LogLevel(i), nil
		}
	}
	return LevelUnknown, fmt.Errorf("unknown log level %q", s)
}

// Levels lists every real level from least to most severe.
func Levels() []LogLevel {
	return []LogLevel{LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError, LevelFatal}
}

// LevelDetector detects log levels from line content
type LevelDetector struct {
	// checked most severe first
	order    []LogLevel
	patterns map[LogLevel][][]byte
}

// NewLevelDetector creates a detector from config
func NewLevelDetector(cfg *config.LogLevelConfig) *LevelDetector {
	raw := map[LogLevel][]string{
		LevelTrace: cfg.TracePatterns,
		LevelDebug: cfg.DebugPatterns,
		LevelInfo:  cfg.InfoPatterns,
		LevelWarn:  cfg.WarnPatterns,
		LevelError: cfg.ErrorPatterns,
		LevelFatal: cfg.FatalPatterns,
	}
	d := &LevelDetector{
		order:    []LogLevel{LevelFatal, LevelError, LevelWarn, LevelInfo, LevelDebug, LevelTrace},
		patterns: make(map[LogLevel][][]byte, len(raw)),
	}
	for level, patterns := range raw {
		for _, p := range patterns {
			if p != "" {
				d.patterns[level] = append(d.patterns[level], []byte(p))
			}
		}
	}
	return d
}

// Detect returns the log level for a line
func (d *LevelDetector) Detect(content []byte) LogLevel {
	for _, level := range d.order {
		for _, pattern := range d.patterns[level] {
			if bytes.Contains(content, pattern) {
				return level
			}
		}
	}
	return LevelUnknown
}
