package notify

import (
	"reflect"
	"sync"
	"time"
)

// Notifier fans modifications out to registered listeners.
//
// Deliveries to one listener are serialized and arrive in production order.
// Appends are held back per listener until either maxBatch lines are pending
// or maxWait has passed since the first pending append; the owner must call
// Flush periodically for the time bound to take effect.
type Notifier struct {
	mu      sync.Mutex
	proxies []*proxy
	now     func() time.Time
}

type proxy struct {
	listener Listener
	maxWait  time.Duration
	maxBatch int

	// deliver serializes calls into listener.
	deliver sync.Mutex

	// pending append, guarded by Notifier.mu
	pending      Modification
	pendingSince time.Time
	hasPending   bool
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{now: time.Now}
}

// AddListener registers l. It immediately receives a Reset so it starts
// from a known baseline; the owner's current line count is that baseline. maxBatch < 1 means every append is delivered
// without waiting. Adding the same listener twice has no effect.
//
// The returned function unregisters this registration; it is the only way
// to remove listeners whose type is not comparable, such as ListenerFunc.
func (n *Notifier) AddListener(l Listener, maxWait time.Duration, maxBatch int) (remove func()) {
	if maxBatch < 1 {
		maxBatch = 1
	}
	p := &proxy{listener: l, maxWait: maxWait, maxBatch: maxBatch}

	// Hold the delivery lock across registration so no modification can
	// overtake the initial reset.
	p.deliver.Lock()
	defer p.deliver.Unlock()

	n.mu.Lock()
	for _, existing := range n.proxies {
		if sameListener(existing.listener, l) {
			n.mu.Unlock()
			return func() { n.removeProxy(existing) }
		}
	}
	n.proxies = append(n.proxies, p)
	n.mu.Unlock()

	l.OnModified(Reset())
	return func() { n.removeProxy(p) }
}

// RemoveListener unregisters l. Pending appends for it are discarded.
func (n *Notifier) RemoveListener(l Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, p := range n.proxies {
		if sameListener(p.listener, l) {
			n.proxies = append(n.proxies[:i], n.proxies[i+1:]...)
			return
		}
	}
}

func (n *Notifier) removeProxy(target *proxy) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, p := range n.proxies {
		if p == target {
			n.proxies = append(n.proxies[:i], n.proxies[i+1:]...)
			return
		}
	}
}

// sameListener compares listeners without panicking on func-typed ones.
func sameListener(a, b Listener) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// Len returns the number of registered listeners.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.proxies)
}

// Reset tells every listener to drop its view.
func (n *Notifier) Reset() {
	n.immediate(Reset())
}

// Removed tells every listener that lines from start onward are stale.
func (n *Notifier) Removed(start, count int) {
	n.immediate(Removed(start, count))
}

// Appended reports count new lines at start. Consecutive appends are
// merged per listener.
func (n *Notifier) Appended(start, count int) {
	if count <= 0 {
		return
	}
	now := n.now()
	var due []delivery

	n.mu.Lock()
	for _, p := range n.proxies {
		if p.hasPending && p.pending.End() == start {
			p.pending.Count += count
		} else {
			if p.hasPending {
				due = append(due, delivery{p, []Modification{p.take()}})
			}
			p.pending = Appended(start, count)
			p.pendingSince = now
			p.hasPending = true
		}
		if p.pending.Count >= p.maxBatch || p.maxWait <= 0 {
			due = append(due, delivery{p, []Modification{p.take()}})
		}
	}
	n.mu.Unlock()

	dispatch(due)
}

// Flush delivers pending appends whose wait time has elapsed. With force
// set every pending append is delivered regardless of age.
func (n *Notifier) Flush(force bool) {
	now := n.now()
	var due []delivery

	n.mu.Lock()
	for _, p := range n.proxies {
		if !p.hasPending {
			continue
		}
		if force || now.Sub(p.pendingSince) >= p.maxWait {
			due = append(due, delivery{p, []Modification{p.take()}})
		}
	}
	n.mu.Unlock()

	dispatch(due)
}

// immediate flushes pending appends ahead of m so per-listener order holds.
func (n *Notifier) immediate(m Modification) {
	var due []delivery

	n.mu.Lock()
	for _, p := range n.proxies {
		d := delivery{p: p}
		if p.hasPending {
			d.mods = append(d.mods, p.take())
		}
		d.mods = append(d.mods, m)
		due = append(due, d)
	}
	n.mu.Unlock()

	dispatch(due)
}

func (p *proxy) take() Modification {
	m := p.pending
	p.pending = Modification{}
	p.hasPending = false
	return m
}

type delivery struct {
	p    *proxy
	mods []Modification
}

// dispatch runs listener callbacks outside the notifier lock, so a listener
// may call back into the notifier.
func dispatch(due []delivery) {
	for _, d := range due {
		d.p.deliver.Lock()
		for _, m := range d.mods {
			d.p.listener.OnModified(m)
		}
		d.p.deliver.Unlock()
	}
}
