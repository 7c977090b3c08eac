package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGoroutineFacility_RunsEntryAfterStart(t *testing.T) {
	f := NewGoroutineFacility()
	ran := make(chan struct{})

	th, err := f.Create("t", KindWorker, func() { close(ran) })
	require.NoError(t, err)
	require.Equal(t, 1, f.Live())

	select {
	case <-ran:
		t.Fatal("entry ran before Start")
	case <-time.After(10 * time.Millisecond):
	}

	require.NoError(t, th.SetPriority(NearMaxPriority))
	th.Start()
	th.Start()
	<-ran
	require.Eventually(t, func() bool { return f.Live() == 0 }, time.Second, time.Millisecond)
}

func TestGoroutineFacility_NilEntry(t *testing.T) {
	f := NewGoroutineFacility()
	_, err := f.Create("t", KindWorker, nil)
	require.Error(t, err)
	require.Zero(t, f.Live())
}

func TestGoroutineFacility_MaxThreads(t *testing.T) {
	f := NewGoroutineFacility(WithMaxThreads(1))
	release := make(chan struct{})

	th, err := f.Create("first", KindWorker, func() { <-release })
	require.NoError(t, err)

	_, err = f.Create("second", KindWorker, func() {})
	require.ErrorIs(t, err, ErrThreadLimit)
	require.Equal(t, 1, f.Live(), "a failed Create must not reserve a slot")

	th.Start()
	close(release)
	require.Eventually(t, func() bool { return f.Live() == 0 }, time.Second, time.Millisecond)

	th, err = f.Create("third", KindWorker, func() {})
	require.NoError(t, err)
	th.Start()
	require.Eventually(t, func() bool { return f.Live() == 0 }, time.Second, time.Millisecond)
}

func TestGoroutineFacility_InvalidPriority(t *testing.T) {
	f := NewGoroutineFacility()
	th, err := f.Create("t", KindWorker, func() {})
	require.NoError(t, err)

	require.ErrorIs(t, th.SetPriority(Priority(-3)), ErrInvalidPriority)
	th.Start()
	require.Eventually(t, func() bool { return f.Live() == 0 }, time.Second, time.Millisecond)
}

func TestConcurrentThread_CreateFailsAtThreadLimit(t *testing.T) {
	f := NewGoroutineFacility(WithMaxThreads(1))
	first := NewConcurrentThread("first", newBlockingService(), WithFacility(f))
	second := NewConcurrentThread("second", newBlockingService(), WithFacility(f))

	require.NoError(t, first.CreateAndStart(NormPriority))
	err := second.CreateAndStart(NormPriority)
	require.ErrorIs(t, err, ErrThreadCreate)
	require.ErrorIs(t, err, ErrThreadLimit)
	require.Equal(t, StateIdle, second.State())

	first.Stop()
	require.Eventually(t, func() bool { return f.Live() == 0 }, time.Second, time.Millisecond)

	require.NoError(t, second.CreateAndStart(NormPriority))
	second.Stop()
}
