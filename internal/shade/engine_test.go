package shade

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shadehub/shadehub/internal/shutdown"
)

type fakeSender struct {
	mu       sync.Mutex
	failN    int32 // fail the first failN calls, then succeed
	calls    atomic.Int64
	delay    time.Duration
	onCall   func()
}

func (f *fakeSender) SendFrame(ctx context.Context, frame []byte, timeout time.Duration) ([]byte, error) {
	n := f.calls.Add(1)
	if f.onCall != nil {
		f.onCall()
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if int32(n) <= f.failN {
		return nil, errors.New("simulated I/O error")
	}
	return []byte("ok"), nil
}

func newTestEngine(sender FrameSender) (*Engine, *shutdown.Coordinator) {
	coord := shutdown.New()
	return NewEngine(sender, coord), coord
}

func TestSubmitSucceedsOnFirstAttempt(t *testing.T) {
	sender := &fakeSender{}
	e, coord := newTestEngine(sender)
	defer coord.Close(context.Background())

	taskID, err := e.Submit(Command{ShadeID: "s1", Action: ActionUp, RetryCount: 2})
	require.NoError(t, err)
	require.NotEmpty(t, taskID)

	require.Eventually(t, func() bool {
		snap := e.Snapshot()
		return len(snap.Tasks) == 0
	}, time.Second, 5*time.Millisecond, "task should complete and be removed")
	require.Equal(t, int64(1), sender.calls.Load())
}

func TestSubmitRetriesThenSucceeds(t *testing.T) {
	sender := &fakeSender{failN: 2}
	e, coord := newTestEngine(sender)
	defer coord.Close(context.Background())

	_, err := e.Submit(Command{ShadeID: "s1", Action: ActionDown, RetryCount: 3})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return sender.calls.Load() == 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSubmitRejectsUnknownAction(t *testing.T) {
	sender := &fakeSender{}
	e, coord := newTestEngine(sender)
	defer coord.Close(context.Background())

	_, err := e.Submit(Command{ShadeID: "s1", Action: Action("bogus")})
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestSubmitSupersedesPreviousTaskForSameShade(t *testing.T) {
	started := make(chan struct{}, 1)
	sender := &fakeSender{delay: 200 * time.Millisecond, onCall: func() {
		select {
		case started <- struct{}{}:
		default:
		}
	}}
	e, coord := newTestEngine(sender)
	defer coord.Close(context.Background())

	_, err := e.Submit(Command{ShadeID: "s1", Action: ActionUp, RetryCount: 0})
	require.NoError(t, err)
	<-started

	second, err := e.Submit(Command{ShadeID: "s1", Action: ActionDown, RetryCount: 0})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap := e.Snapshot()
		return snap.ShadeToTask["s1"] == second
	}, time.Second, 5*time.Millisecond)
}

func TestCancelStopsRunningTask(t *testing.T) {
	sender := &fakeSender{delay: 5 * time.Second}
	e, coord := newTestEngine(sender)
	defer coord.Close(context.Background())

	_, err := e.Submit(Command{ShadeID: "s1", Action: ActionUp, RetryCount: 0})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return sender.calls.Load() == 1 }, time.Second, 2*time.Millisecond)
	require.True(t, e.Cancel("s1"))

	require.Eventually(t, func() bool {
		return len(e.Snapshot().Tasks) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestCancelAllCancelsEveryShade(t *testing.T) {
	sender := &fakeSender{delay: 5 * time.Second}
	e, coord := newTestEngine(sender)
	defer coord.Close(context.Background())

	_, err := e.Submit(Command{ShadeID: "s1", Action: ActionUp})
	require.NoError(t, err)
	_, err = e.Submit(Command{ShadeID: "s2", Action: ActionDown})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(e.Snapshot().Tasks) == 2 }, time.Second, 2*time.Millisecond)

	n := e.CancelAll()
	require.Equal(t, 2, n)

	require.Eventually(t, func() bool {
		return len(e.Snapshot().Tasks) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestSweepZombiesFlagsSuspiciousAndKillsOld(t *testing.T) {
	sender := &fakeSender{delay: time.Hour}
	e, coord := newTestEngine(sender)
	defer coord.Close(context.Background())

	_, err := e.Submit(Command{ShadeID: "s1", Action: ActionUp})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(e.Snapshot().Tasks) == 1 }, time.Second, 2*time.Millisecond)

	e.mu.Lock()
	for _, h := range e.running {
		h.createdAt = time.Now().UTC().Add(-10 * time.Minute)
	}
	e.mu.Unlock()

	e.sweepZombiesOnce()
	snap := e.Snapshot()
	require.Equal(t, int64(1), snap.TotalZombiesDetected)
	require.True(t, snap.Tasks[0].Suspicious)

	e.mu.Lock()
	for _, h := range e.running {
		h.createdAt = time.Now().UTC().Add(-2 * time.Hour)
	}
	e.mu.Unlock()

	e.sweepZombiesOnce()
	require.Eventually(t, func() bool {
		return e.Snapshot().TotalZombiesCleaned == 1 && len(e.Snapshot().Tasks) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestNextBackoffCapsAtFourSeconds(t *testing.T) {
	require.Equal(t, 500*time.Millisecond, nextBackoff(1))
	require.Equal(t, 1*time.Second, nextBackoff(2))
	require.Equal(t, 2*time.Second, nextBackoff(3))
	require.Equal(t, 4*time.Second, nextBackoff(4))
	require.Equal(t, 4*time.Second, nextBackoff(10))
}

func TestBuildFrameEncodesActionAndShadeID(t *testing.T) {
	require.Equal(t, []byte("u7"), buildFrame("7", ActionUp))
	require.Equal(t, []byte("d7"), buildFrame("7", ActionDown))
	require.Equal(t, []byte("s7"), buildFrame("7", ActionStop))
}
