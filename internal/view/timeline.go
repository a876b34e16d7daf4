package view

import (
	"time"

	"github.com/TimelordUK/logsrc/internal/source"
	"github.com/TimelordUK/logsrc/pkg/logformat"
)

// probeLimit bounds how far a probe walks to find a line with a timestamp,
// continuation lines of stack traces being the usual gap.
const probeLimit = 64

// FindLineAtTime returns the first line stamped at or after target,
// assuming timestamps never go backwards. It returns -1 when no line
// qualifies or none carries a timestamp.
func FindLineAtTime(p source.LineProvider, parser *logformat.TimestampParser, target time.Time) int {
	lo, hi := 0, p.LineCount()
	found := -1
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		at, ts, ok := stampAtOrAfter(p, parser, mid, hi)
		if !ok {
			// nothing stamped in [mid, hi)
			hi = mid
			continue
		}
		if ts.Before(target) {
			lo = at + 1
		} else {
			found = at
			hi = mid
		}
	}
	return found
}

// FirstTimestamp returns the timestamp of the first stamped line.
func FirstTimestamp(p source.LineProvider, parser *logformat.TimestampParser) (time.Time, bool) {
	_, ts, ok := stampAtOrAfter(p, parser, 0, p.LineCount())
	return ts, ok
}

func stampAtOrAfter(p source.LineProvider, parser *logformat.TimestampParser, from, limit int) (int, time.Time, bool) {
	end := min(limit, from+probeLimit)
	lines, err := p.GetLines(from, end-from)
	if err != nil {
		return 0, time.Time{}, false
	}
	for i, line := range lines {
		if ts, ok := parser.Parse(line.Content); ok {
			return from + i, ts, true
		}
	}
	return 0, time.Time{}, false
}
