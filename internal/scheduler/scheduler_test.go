package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestScheduler_RunsRepeatedly(t *testing.T) {
	s := New()
	defer s.Close()

	var calls atomic.Int32
	s.StartPeriodic("count", func(ctx context.Context) time.Duration {
		calls.Add(1)
		return time.Millisecond
	})

	require.Eventually(t, func() bool { return calls.Load() >= 5 }, time.Second, time.Millisecond)
}

func TestScheduler_StopPeriodic(t *testing.T) {
	s := New()
	defer s.Close()

	var calls atomic.Int32
	h := s.StartPeriodic("stop", func(ctx context.Context) time.Duration {
		calls.Add(1)
		return time.Millisecond
	})
	require.Eventually(t, func() bool { return calls.Load() > 0 }, time.Second, time.Millisecond)

	s.StopPeriodic(h)
	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
	assert.Equal(t, 0, s.Len())

	// Stopping twice is a no-op.
	s.StopPeriodic(h)
}

func TestScheduler_WakeCutsDelayShort(t *testing.T) {
	s := New()
	defer s.Close()

	var calls atomic.Int32
	h := s.StartPeriodic("sleepy", func(ctx context.Context) time.Duration {
		calls.Add(1)
		return time.Hour
	})
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	s.Wake(h)
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)
}

func TestScheduler_NeverReentrant(t *testing.T) {
	s := New()
	defer s.Close()

	var inFlight, overlap, calls atomic.Int32
	h := s.StartPeriodic("busy", func(ctx context.Context) time.Duration {
		if inFlight.Add(1) > 1 {
			overlap.Add(1)
		}
		time.Sleep(100 * time.Microsecond)
		inFlight.Add(-1)
		calls.Add(1)
		return 0
	})
	for i := 0; i < 50; i++ {
		s.Wake(h)
	}
	require.Eventually(t, func() bool { return calls.Load() > 20 }, time.Second, time.Millisecond)
	assert.Zero(t, overlap.Load())
}

func TestScheduler_RecoversPanics(t *testing.T) {
	s := New()
	defer s.Close()

	var calls atomic.Int32
	h := s.StartPeriodic("panicky", func(ctx context.Context) time.Duration {
		if calls.Add(1) == 1 {
			panic("boom")
		}
		return time.Hour
	})

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	s.Wake(h)
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)
}

func TestScheduler_CloseStopsEverything(t *testing.T) {
	s := New()
	for i := 0; i < 3; i++ {
		s.StartPeriodic("task", func(ctx context.Context) time.Duration {
			<-ctx.Done()
			return 0
		})
	}
	assert.Equal(t, 3, s.Len())

	s.Close()
	s.Close()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, Handle(0), s.StartPeriodic("late", func(context.Context) time.Duration { return 0 }))
}
