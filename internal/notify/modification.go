// Package notify delivers index changes to downstream consumers.
//
// A source produces three kinds of Modification: Reset (forget everything),
// Appended (new lines at the end) and Removed (everything from Start onward
// is stale). Listeners register with a batching policy; appends may be
// coalesced, resets and removals are delivered immediately.
package notify

import "fmt"

// Kind is the type of a Modification.
type Kind int

const (
	KindReset Kind = iota
	KindAppended
	KindRemoved
)

func (k Kind) String() string {
	switch k {
	case KindReset:
		return "reset"
	case KindAppended:
		return "appended"
	case KindRemoved:
		return "removed"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Modification describes one change to a source's line index.
type Modification struct {
	Kind  Kind
	Start int
	Count int
}

// Reset invalidates every line a consumer holds.
func Reset() Modification {
	return Modification{Kind: KindReset}
}

// Appended reports count new lines starting at start.
func Appended(start, count int) Modification {
	return Modification{Kind: KindAppended, Start: start, Count: count}
}

// Removed reports that lines from start onward are no longer valid. Count
// is informational: consumers must drop everything from start.
func Removed(start, count int) Modification {
	return Modification{Kind: KindRemoved, Start: start, Count: count}
}

// End is one past the last line the modification covers.
func (m Modification) End() int {
	return m.Start + m.Count
}

func (m Modification) String() string {
	if m.Kind == KindReset {
		return "Reset"
	}
	if m.Kind == KindAppended {
		return fmt.Sprintf("Appended[%d, #%d]", m.Start, m.Count)
	}
	return fmt.Sprintf("Removed[%d, #%d]", m.Start, m.Count)
}

// Listener receives modifications from a source.
type Listener interface {
	OnModified(m Modification)
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc func(m Modification)

// OnModified implements Listener.
func (f ListenerFunc) OnModified(m Modification) { f(m) }
