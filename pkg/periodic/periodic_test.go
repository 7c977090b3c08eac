package periodic

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bft-labs/conthread/pkg/worker"
)

func startService(t *testing.T, s *Service) *worker.ConcurrentThread {
	t.Helper()
	th := worker.NewConcurrentThread(s.Name(), s)
	require.NoError(t, th.CreateAndStart(worker.NormPriority))
	return th
}

func TestService_RunsPeriodically(t *testing.T) {
	s := New("tick", func(context.Context) error { return nil },
		Config{Interval: time.Millisecond}, nil)
	th := startService(t, s)

	require.Eventually(t, func() bool { return s.Runs() >= 5 }, time.Second, time.Millisecond)
	th.Stop()

	runs := s.Runs()
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, runs, s.Runs(), "task ran after Stop returned")
	require.Zero(t, s.Failures())
}

func TestService_StopCancelsRunningTask(t *testing.T) {
	entered := make(chan struct{}, 1)
	var sawCancel atomic.Bool
	s := New("blocking", func(ctx context.Context) error {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-ctx.Done()
		sawCancel.Store(true)
		return ctx.Err()
	}, Config{Interval: time.Hour}, nil)
	th := startService(t, s)

	<-entered
	th.Stop()

	require.True(t, sawCancel.Load())
	require.Zero(t, s.Failures(), "cancellation by stop is not a failure")
}

func TestService_StopWakesSleep(t *testing.T) {
	s := New("sleepy", func(context.Context) error { return nil },
		Config{Interval: time.Hour}, nil)
	th := startService(t, s)

	require.Eventually(t, func() bool { return s.Runs() == 1 }, time.Second, time.Millisecond)

	began := time.Now()
	th.Stop()
	require.Less(t, time.Since(began), time.Second)
}

func TestService_SetIntervalWakesSleep(t *testing.T) {
	s := New("retuned", func(context.Context) error { return nil },
		Config{Interval: time.Hour}, nil)
	th := startService(t, s)
	defer th.Stop()

	require.Eventually(t, func() bool { return s.Runs() == 1 }, time.Second, time.Millisecond)

	s.SetInterval(time.Millisecond)
	require.Equal(t, time.Millisecond, s.Interval())
	require.Eventually(t, func() bool { return s.Runs() >= 3 }, time.Second, time.Millisecond)

	s.SetInterval(0)
	require.Equal(t, time.Millisecond, s.Interval())
}

func TestService_FailuresBackOff(t *testing.T) {
	errFlaky := errors.New("flaky")
	s := New("flaky", func(context.Context) error { return errFlaky },
		Config{Interval: time.Millisecond, InitialBackoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond}, nil)
	th := startService(t, s)

	require.Eventually(t, func() bool { return s.Failures() >= 4 }, time.Second, time.Millisecond)
	th.Stop()

	require.Equal(t, s.Runs(), s.Failures())
}

func TestBackoff(t *testing.T) {
	b := NewBackoff(10*time.Millisecond, 40*time.Millisecond)

	within := func(d, base time.Duration) bool {
		return d >= time.Duration(float64(base)*0.8) && d <= time.Duration(float64(base)*1.2)
	}

	for _, base := range []time.Duration{10, 20, 40, 40} {
		base *= time.Millisecond
		if got := b.Next(); !within(got, base) {
			t.Errorf("Next() = %v, want %v ±20%%", got, base)
		}
	}
	if b.Current() != 40*time.Millisecond {
		t.Errorf("Current() = %v, want capped at 40ms", b.Current())
	}

	b.Reset()
	if b.Current() != 10*time.Millisecond {
		t.Errorf("Current() after Reset = %v", b.Current())
	}
}

func TestNewBackoff_MaxBelowInitial(t *testing.T) {
	b := NewBackoff(time.Second, time.Millisecond)
	b.Next()
	if b.Current() != time.Second {
		t.Errorf("Current() = %v, want 1s", b.Current())
	}
}
