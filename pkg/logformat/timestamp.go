package logformat

import (
	"regexp"
	"strconv"
	"time"
)

// TimestampParser detects and parses timestamps from log lines
type TimestampParser struct {
	patterns []timestampPattern
	now      func() time.Time
}

type timestampPattern struct {
	regex   *regexp.Regexp
	layouts []string
	fill    dateFill
}

// dateFill says which parts of the date a layout leaves out.
type dateFill int

const (
	fillNone dateFill = iota
	fillYear
	fillDate
)

const (
	layoutUnix   = "unix"
	layoutUnixMs = "unix_ms"
)

// NewTimestampParser creates a parser with common timestamp formats
func NewTimestampParser() *TimestampParser {
	return &TimestampParser{
		now: time.Now,
		patterns: []timestampPattern{
			// 2024-01-15T10:30:45.123Z, 2024-01-15T10:30:45+00:00
			{
				regex:   regexp.MustCompile(`(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2}))`),
				layouts: []string{time.RFC3339Nano},
			},
			// 2024-01-15T10:30:45.123 with no zone
			{
				regex:   regexp.MustCompile(`(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?)`),
				layouts: []string{"2006-01-02T15:04:05.999999999"},
			},
			// 2024-01-15 10:30:45.123, [2024-01-15 10:30:45]
			{
				regex:   regexp.MustCompile(`(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}(?:[.,]\d+)?)`),
				layouts: []string{"2006-01-02 15:04:05.999999999", "2006-01-02 15:04:05,000"},
			},
			// syslog: Jan 15 10:30:45
			{
				regex:   regexp.MustCompile(`([A-Z][a-z]{2} +\d{1,2} \d{2}:\d{2}:\d{2})`),
				layouts: []string{time.Stamp},
				fill:    fillYear,
			},
			// apache/nginx: 15/Jan/2024:10:30:45 +0000
			{
				regex:   regexp.MustCompile(`(\d{2}/[A-Z][a-z]{2}/\d{4}:\d{2}:\d{2}:\d{2} [+-]\d{4})`),
				layouts: []string{"02/Jan/2006:15:04:05 -0700"},
			},
			{
				regex:   regexp.MustCompile(`^(\d{13})(?:\D|$)`),
				layouts: []string{layoutUnixMs},
			},
			{
				regex:   regexp.MustCompile(`^(\d{10})(?:\D|$)`),
				layouts: []string{layoutUnix},
			},
			// time only, dated today: 10:30:45.123
			{
				regex:   regexp.MustCompile(`^(\d{2}:\d{2}:\d{2}(?:\.\d+)?)`),
				layouts: []string{"15:04:05.999999999"},
				fill:    fillDate,
			},
		},
	}
}

// Parse attempts to extract a timestamp from a log line
func (p *TimestampParser) Parse(content []byte) (time.Time, bool) {
	for _, pattern := range p.patterns {
		m := pattern.regex.FindSubmatch(content)
		if len(m) < 2 {
			continue
		}
		if t, ok := p.parseMatch(string(m[1]), pattern); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func (p *TimestampParser) parseMatch(s string, pattern timestampPattern) (time.Time, bool) {
	for _, layout := range pattern.layouts {
		switch layout {
		case layoutUnix, layoutUnixMs:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return time.Time{}, false
			}
			if layout == layoutUnixMs {
				return time.UnixMilli(n), true
			}
			return time.Unix(n, 0), true
		}

		t, err := time.ParseInLocation(layout, s, time.Local)
		if err != nil {
			continue
		}
		now := p.now()
		switch pattern.fill {
		case fillDate:
			t = time.Date(now.Year(), now.Month(), now.Day(),
				t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.Local)
		case fillYear:
			t = time.Date(now.Year(), t.Month(), t.Day(),
				t.Hour(), t.Minute(), t.Second(), 0, time.Local)
		}
		return t, true
	}
	return time.Time{}, false
}

// ParseUserTime interprets a time typed by a user ("13:00", "13:00:05",
// "2024-01-15 13:00"). Times without a date take the date of ref.
func ParseUserTime(input string, ref time.Time) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, input, ref.Location()); err == nil {
			return t, true
		}
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, input); err == nil {
			return time.Date(ref.Year(), ref.Month(), ref.Day(),
				t.Hour(), t.Minute(), t.Second(), 0, ref.Location()), true
		}
	}
	return time.Time{}, false
}

// FormatTime formats a timestamp for display
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("15:04:05")
}

// FormatTimeWithDate formats a timestamp with date for display
func FormatTimeWithDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}
