package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func nopLogger() *zap.Logger { return zap.NewNop() }

func counter(n *int32) TaskFn {
	return func(context.Context) error {
		atomic.AddInt32(n, 1)
		return nil
	}
}

func TestAddTicker_Fires(t *testing.T) {
	s := New(nopLogger())
	defer s.Stop()

	var count int32
	require.NoError(t, s.AddTicker("tick", 20*time.Millisecond, counter(&count)))

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&count) >= 3 }, time.Second, 10*time.Millisecond)
}

func TestAddTicker_RejectsNonPositiveInterval(t *testing.T) {
	s := New(nopLogger())
	defer s.Stop()
	assert.Error(t, s.AddTicker("bad", 0, counter(new(int32))))
	assert.Empty(t, s.ListTickers())
}

func TestAddTicker_Replaces(t *testing.T) {
	s := New(nopLogger())
	defer s.Stop()

	var count1, count2 int32
	require.NoError(t, s.AddTicker("task", 20*time.Millisecond, counter(&count1)))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, s.AddTicker("task", 20*time.Millisecond, counter(&count2)))

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&count2) > 0 }, time.Second, 10*time.Millisecond)
	snap1 := atomic.LoadInt32(&count1)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, snap1, atomic.LoadInt32(&count1), "old ticker must stop after replacement")
	assert.Equal(t, []string{"task"}, s.ListTickers())
}

func TestRemove_Ticker(t *testing.T) {
	s := New(nopLogger())
	defer s.Stop()

	var count int32
	require.NoError(t, s.AddTicker("task", 20*time.Millisecond, counter(&count)))
	time.Sleep(50 * time.Millisecond)
	s.Remove("task")
	time.Sleep(30 * time.Millisecond)
	snap := atomic.LoadInt32(&count)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, snap, atomic.LoadInt32(&count), "ticker must stop after Remove")
}

func TestRemove_NonExistent(t *testing.T) {
	s := New(nopLogger())
	defer s.Stop()
	s.Remove("nope")
}

func TestStop_WaitsAndRejectsNewTasks(t *testing.T) {
	s := New(nopLogger())

	var c1, c2 int32
	require.NoError(t, s.AddTicker("a", 20*time.Millisecond, counter(&c1)))
	require.NoError(t, s.AddTicker("b", 20*time.Millisecond, counter(&c2)))
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	snap1, snap2 := atomic.LoadInt32(&c1), atomic.LoadInt32(&c2)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, snap1, atomic.LoadInt32(&c1))
	assert.Equal(t, snap2, atomic.LoadInt32(&c2))

	assert.Error(t, s.AddTicker("c", time.Hour, counter(new(int32))))
}

func TestStop_Idempotent(t *testing.T) {
	s := New(nopLogger())
	s.Stop()
	s.Stop()
}

func TestStop_CancelsTaskContext(t *testing.T) {
	s := New(nopLogger())

	started := make(chan struct{}, 1)
	var cancelled atomic.Bool
	require.NoError(t, s.AddTicker("slow", 10*time.Millisecond, func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	}))
	<-started
	s.Stop()
	assert.True(t, cancelled.Load())
}

func TestListTickers_Sorted(t *testing.T) {
	s := New(nopLogger())
	defer s.Stop()

	require.Empty(t, s.ListTickers())
	require.NoError(t, s.AddTicker("beta", time.Hour, counter(new(int32))))
	require.NoError(t, s.AddTicker("alpha", time.Hour, counter(new(int32))))
	assert.Equal(t, []string{"alpha", "beta"}, s.ListTickers())

	s.Remove("alpha")
	assert.Equal(t, []string{"beta"}, s.ListTickers())
}

func TestTasks_RecordsRunsAndFailures(t *testing.T) {
	s := New(nopLogger())
	defer s.Stop()

	var calls int32
	require.NoError(t, s.AddTicker("flaky", 15*time.Millisecond, func(context.Context) error {
		if atomic.AddInt32(&calls, 1)%2 == 0 {
			return errors.New("boom")
		}
		return nil
	}))
	require.NoError(t, s.AddTicker("idle", time.Hour, counter(new(int32))))

	assert.Eventually(t, func() bool {
		tasks := s.Tasks()
		return len(tasks) == 2 && tasks[0].Runs >= 2
	}, time.Second, 10*time.Millisecond)

	tasks := s.Tasks()
	assert.Equal(t, "flaky", tasks[0].Name)
	assert.Equal(t, 15*time.Millisecond, tasks[0].Interval)
	assert.GreaterOrEqual(t, tasks[0].Failures, int64(1))
	assert.False(t, tasks[0].LastRun.IsZero())

	assert.Equal(t, "idle", tasks[1].Name)
	assert.Zero(t, tasks[1].Runs)
	assert.True(t, tasks[1].LastRun.IsZero())
}

func TestTicker_PanicRecovery(t *testing.T) {
	s := New(nopLogger())
	defer s.Stop()

	require.NoError(t, s.AddTicker("panic", 20*time.Millisecond, func(context.Context) error {
		panic("oops")
	}))

	assert.Eventually(t, func() bool {
		tasks := s.Tasks()
		return len(tasks) == 1 && tasks[0].Failures >= 2
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, s.Tasks()[0].LastError, "panic: oops")
}
