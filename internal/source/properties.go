package source

import (
	"fmt"
	"sync/atomic"
	"time"
)

// EmptyReason explains why a source currently has no lines.
type EmptyReason int

const (
	EmptyReasonNone EmptyReason = iota
	SourceDoesNotExist
	SourceCannotBeAccessed
)

func (r EmptyReason) String() string {
	switch r {
	case EmptyReasonNone:
		return "none"
	case SourceDoesNotExist:
		return "source does not exist"
	case SourceCannotBeAccessed:
		return "source cannot be accessed"
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// Property names one field of Properties.
type Property int

const (
	PropertySize Property = iota
	PropertyCreated
	PropertyLastModified
	PropertyPercentageProcessed
	PropertyLineCount
	PropertyLogEntryCount
	PropertyEmptyReason
	PropertyEncoding
	PropertyLastScan
)

// Properties are the derived facts about a source. Values are published as
// whole snapshots and never modified after publication.
type Properties struct {
	Size                int64
	Created             time.Time
	LastModified        time.Time
	PercentageProcessed float64
	LineCount           int
	LogEntryCount       int
	EmptyReason         EmptyReason
	Encoding            string
	LastScan            time.Time
	LastError           error
}

// Get returns the value of a single property, or nil for unknown keys.
func (p Properties) Get(key Property) any {
	switch key {
	case PropertySize:
		return p.Size
	case PropertyCreated:
		return p.Created
	case PropertyLastModified:
		return p.LastModified
	case PropertyPercentageProcessed:
		return p.PercentageProcessed
	case PropertyLineCount:
		return p.LineCount
	case PropertyLogEntryCount:
		return p.LogEntryCount
	case PropertyEmptyReason:
		return p.EmptyReason
	case PropertyEncoding:
		return p.Encoding
	case PropertyLastScan:
		return p.LastScan
	}
	return nil
}

// propertyStore publishes Properties copy-on-write. Only the scan activity
// writes; anyone may read without blocking it.
type propertyStore struct {
	current atomic.Pointer[Properties]
}

func newPropertyStore(encoding string) *propertyStore {
	ps := &propertyStore{}
	ps.current.Store(&Properties{Encoding: encoding})
	return ps
}

func (ps *propertyStore) load() Properties {
	return *ps.current.Load()
}

// update publishes a modified copy of the current snapshot.
func (ps *propertyStore) update(fn func(p *Properties)) {
	next := *ps.current.Load()
	fn(&next)
	ps.current.Store(&next)
}

func percentage(consumed, size int64) float64 {
	if size <= 0 || consumed >= size {
		return 100
	}
	if consumed <= 0 {
		return 0
	}
	return float64(consumed) / float64(size) * 100
}
