// Package scheduler runs periodic background activities. Each activity is
// a callback that returns the delay before it wants to run again, so it can
// spin while there is work and idle when there is none. A given activity
// never runs concurrently with itself.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// PanicBackoff is how long a task that panicked waits before it runs again.
const PanicBackoff = time.Second

// Task is one invocation of a periodic activity. It returns the delay until
// the next invocation; zero or less means "run again right away".
type Task func(ctx context.Context) time.Duration

// Handle identifies a started task. The zero Handle is never issued.
type Handle uint64

type task struct {
	name   string
	fn     Task
	cancel context.CancelFunc
	wake   chan struct{}
	done   chan struct{}
}

// Scheduler owns a set of periodic tasks.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	tasks  map[Handle]*task
	next   Handle
	closed bool
}

// New creates a scheduler.
func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		ctx:    ctx,
		cancel: cancel,
		tasks:  make(map[Handle]*task),
	}
}

// StartPeriodic launches fn on its own goroutine and returns immediately.
// Starting a task on a closed scheduler returns the zero Handle.
func (s *Scheduler) StartPeriodic(name string, fn Task) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.next++
	h := s.next
	t := &task{
		name:   name,
		fn:     fn,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	s.tasks[h] = t

	go t.run(ctx)
	return h
}

// StopPeriodic stops the task and waits for an in-flight invocation to
// return. It must not be called from within the task itself.
func (s *Scheduler) StopPeriodic(h Handle) {
	s.mu.Lock()
	t, ok := s.tasks[h]
	delete(s.tasks, h)
	s.mu.Unlock()

	if !ok {
		return
	}
	t.cancel()
	<-t.done
}

// Wake makes the task run as soon as its current invocation (if any)
// returns, cutting its delay short.
func (s *Scheduler) Wake(h Handle) {
	s.mu.Lock()
	t, ok := s.tasks[h]
	s.mu.Unlock()

	if !ok {
		return
	}
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// Len returns the number of running tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Close stops every task and waits for them to exit. Calling Close more
// than once is harmless.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	tasks := s.tasks
	s.tasks = make(map[Handle]*task)
	s.mu.Unlock()

	s.cancel()
	for _, t := range tasks {
		<-t.done
	}
}

func (t *task) run(ctx context.Context) {
	defer close(t.done)

	for {
		delay := t.invoke(ctx)
		if ctx.Err() != nil {
			return
		}
		if delay <= 0 {
			continue
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-t.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// invoke runs one iteration, turning a panic into a logged backoff so a
// faulty activity cannot take the process down.
func (t *task) invoke(ctx context.Context) (delay time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("scheduler: task %s panicked: %v", t.name, r)
			delay = PanicBackoff
		}
	}()
	return t.fn(ctx)
}
