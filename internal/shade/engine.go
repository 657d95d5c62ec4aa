package shade

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/shadehub/shadehub/internal/log"
	"github.com/shadehub/shadehub/internal/metrics"
	"github.com/shadehub/shadehub/internal/shutdown"
)

const (
	// AttemptTimeout bounds a single serial write/ack round trip.
	AttemptTimeout = 10 * time.Second
	// TaskTimeout bounds a task's total lifetime, including backoff.
	TaskTimeout = 60 * time.Second
	// ZombieScanInterval is the zombie monitor's tick period.
	ZombieScanInterval = 60 * time.Second
	// ZombieSuspicionAge flags a task as suspicious.
	ZombieSuspicionAge = 5 * time.Minute
	// ZombieKillAge force-cancels a task.
	ZombieKillAge = time.Hour

	maxBackoff  = 4 * time.Second
	baseBackoff = 500 * time.Millisecond
)

// FrameSender is the serial transport surface the retry engine drives.
type FrameSender interface {
	SendFrame(ctx context.Context, frame []byte, timeout time.Duration) ([]byte, error)
}

type taskHandle struct {
	id         string
	shadeID    string
	action     Action
	retryCount int
	createdAt  time.Time

	cancelFn context.CancelFunc
	done     chan struct{}

	mu                sync.Mutex
	state             TaskState
	attemptsRemaining int
	suspicious        bool
	cancelReason      string
}

func (h *taskHandle) cancel(reason string) {
	h.mu.Lock()
	if h.cancelReason == "" {
		h.cancelReason = reason
	}
	h.mu.Unlock()
	h.cancelFn()
}

func (h *taskHandle) snapshot(now time.Time) TaskInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return TaskInfo{
		TaskID:            h.id,
		ShadeID:           h.shadeID,
		Action:            h.action,
		State:             h.state,
		Age:               now.Sub(h.createdAt),
		AttemptsRemaining: h.attemptsRemaining,
		Suspicious:        h.suspicious,
		CancelReason:      h.cancelReason,
	}
}

// Engine is the Retry Engine (spec 4.4): at most one live task per
// shade, per-attempt and task-level timeouts, cooperative cancellation,
// and a zombie monitor that reaps tasks nobody is watching anymore.
type Engine struct {
	sender FrameSender
	coord  *shutdown.Coordinator

	mu      sync.Mutex
	running map[string]*taskHandle // shade_id -> current task

	stopZombie chan struct{}

	zombiesDetected atomic.Int64
	zombiesCleaned  atomic.Int64
	timeoutKills    atomic.Int64
}

// NewEngine returns an Engine driving sender, with its zombie monitor
// tracked by coord.
func NewEngine(sender FrameSender, coord *shutdown.Coordinator) *Engine {
	e := &Engine{
		sender:     sender,
		coord:      coord,
		running:    make(map[string]*taskHandle),
		stopZombie: make(chan struct{}),
	}
	e.startZombieMonitor()
	return e
}

// Submit validates cmd, atomically swaps it in as the live task for
// cmd.ShadeID (cancelling and awaiting, up to 500ms, any task it
// supersedes), and starts the attempt loop in a tracked goroutine.
func (e *Engine) Submit(cmd Command) (string, error) {
	if !cmd.Action.valid() {
		return "", &ValidationError{Reason: fmt.Sprintf("unknown action %q", cmd.Action)}
	}
	attempts := cmd.RetryCount + 1
	if attempts < 1 {
		attempts = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	handle := &taskHandle{
		id:                uuid.New().String(),
		shadeID:           cmd.ShadeID,
		action:            cmd.Action,
		retryCount:        cmd.RetryCount,
		createdAt:         time.Now().UTC(),
		cancelFn:          cancel,
		done:              make(chan struct{}),
		state:             TaskRunning,
		attemptsRemaining: attempts,
	}

	e.mu.Lock()
	prev := e.running[cmd.ShadeID]
	e.running[cmd.ShadeID] = handle
	e.mu.Unlock()

	if prev != nil {
		prev.cancel("superseded")
		metrics.RetryTaskSupersededTotal.Inc()
		select {
		case <-prev.done:
		case <-time.After(500 * time.Millisecond):
		}
	}

	metrics.RetryTaskSubmittedTotal.Inc()
	e.coord.Go(func() {
		e.runTask(ctx, handle, attempts)
	})

	return handle.id, nil
}

// Cancel cancels the live task for shadeID, if any.
func (e *Engine) Cancel(shadeID string) bool {
	e.mu.Lock()
	h := e.running[shadeID]
	e.mu.Unlock()
	if h == nil {
		return false
	}
	h.cancel("cancelled")
	return true
}

// CancelAll cancels every live task across all shades.
func (e *Engine) CancelAll() int {
	e.mu.Lock()
	handles := make([]*taskHandle, 0, len(e.running))
	for _, h := range e.running {
		handles = append(handles, h)
	}
	e.mu.Unlock()

	for _, h := range handles {
		h.cancel("cancelled")
	}
	return len(handles)
}

// Snapshot returns the current tasks and zombie-monitor metrics.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	shadeToTask := make(map[string]string, len(e.running))
	tasks := make([]TaskInfo, 0, len(e.running))
	now := time.Now().UTC()
	var warnings int64
	for shadeID, h := range e.running {
		shadeToTask[shadeID] = h.id
		info := h.snapshot(now)
		if info.Suspicious {
			warnings++
		}
		tasks = append(tasks, info)
	}
	e.mu.Unlock()

	return Snapshot{
		Tasks:                tasks,
		ShadeToTask:          shadeToTask,
		TotalZombiesDetected: e.zombiesDetected.Load(),
		TotalZombiesCleaned:  e.zombiesCleaned.Load(),
		TotalTimeoutKills:    e.timeoutKills.Load(),
		CurrentWarnings:      warnings,
	}
}

func (e *Engine) runTask(ctx context.Context, h *taskHandle, attempts int) {
	defer close(h.done)
	defer e.removeIfCurrent(h)

	taskCtx, taskCancel := context.WithTimeout(ctx, TaskTimeout)
	defer taskCancel()

	finalState := TaskFailed

attemptLoop:
	for attempt := 1; attempt <= attempts; attempt++ {
		select {
		case <-taskCtx.Done():
			if ctx.Err() == nil && taskCtx.Err() == context.DeadlineExceeded {
				e.timeoutKills.Add(1)
				metrics.RetryTimeoutKillsTotal.Inc()
				finalState = TaskFailed
			} else {
				finalState = TaskCancelled
			}
			break attemptLoop
		default:
		}

		h.mu.Lock()
		h.attemptsRemaining = attempts - attempt
		h.mu.Unlock()

		frame := buildFrame(h.shadeID, h.action)
		attemptCtx, attemptCancel := context.WithTimeout(taskCtx, AttemptTimeout)
		_, err := e.sender.SendFrame(attemptCtx, frame, AttemptTimeout)
		attemptCancel()

		if err == nil {
			metrics.RetryAttemptTotal.WithLabelValues("success").Inc()
			finalState = TaskSucceeded
			break attemptLoop
		}

		metrics.RetryAttemptTotal.WithLabelValues("failure").Inc()
		log.L().Warn().Err(err).Str("event", "shade.attempt_failed").
			Str("shade_id", h.shadeID).Int("attempt", attempt).Msg("serial attempt failed")

		if attempt == attempts {
			finalState = TaskFailed
			break attemptLoop
		}

		backoff := nextBackoff(attempt)
		select {
		case <-time.After(backoff):
		case <-taskCtx.Done():
			if ctx.Err() == nil && taskCtx.Err() == context.DeadlineExceeded {
				e.timeoutKills.Add(1)
				metrics.RetryTimeoutKillsTotal.Inc()
				finalState = TaskFailed
			} else {
				finalState = TaskCancelled
			}
			break attemptLoop
		}
	}

	h.mu.Lock()
	h.state = finalState
	h.mu.Unlock()
}

func (e *Engine) removeIfCurrent(h *taskHandle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running[h.shadeID] == h {
		delete(e.running, h.shadeID)
	}
}

func nextBackoff(attempt int) time.Duration {
	d := baseBackoff << uint(attempt-1)
	if d > maxBackoff || d <= 0 {
		return maxBackoff
	}
	return d
}

func buildFrame(shadeID string, action Action) []byte {
	return []byte(fmt.Sprintf("%c%s", action.frameByte(), shadeID))
}

func (e *Engine) startZombieMonitor() {
	e.coord.Go(func() {
		ticker := time.NewTicker(ZombieScanInterval)
		defer ticker.Stop()
		for {
			select {
			case <-e.stopZombie:
				return
			case <-ticker.C:
				e.sweepZombiesOnce()
			}
		}
	})
	e.coord.RegisterHook("shade.zombie_monitor", func(context.Context) error {
		close(e.stopZombie)
		return nil
	})
}

// sweepZombiesOnce flags suspicious tasks and force-cancels tasks past
// the kill age. Kept apart from the ticker loop so unit tests can call
// it directly.
func (e *Engine) sweepZombiesOnce() {
	now := time.Now().UTC()

	e.mu.Lock()
	handles := make([]*taskHandle, 0, len(e.running))
	for _, h := range e.running {
		handles = append(handles, h)
	}
	e.mu.Unlock()

	for _, h := range handles {
		age := now.Sub(h.createdAt)

		if age >= ZombieKillAge {
			h.cancel("zombie_kill")
			e.zombiesCleaned.Add(1)
			metrics.RetryZombiesCleanedTotal.Inc()
			log.L().Warn().Str("event", "shade.zombie_killed").Str("task_id", h.id).
				Str("shade_id", h.shadeID).Dur("age", age).Msg("force-cancelled zombie task")
			continue
		}

		if age >= ZombieSuspicionAge {
			h.mu.Lock()
			alreadyFlagged := h.suspicious
			h.suspicious = true
			h.mu.Unlock()
			if !alreadyFlagged {
				e.zombiesDetected.Add(1)
				metrics.RetryZombiesDetectedTotal.Inc()
				log.L().Warn().Str("event", "shade.zombie_suspicious").Str("task_id", h.id).
					Str("shade_id", h.shadeID).Dur("age", age).Msg("task flagged suspicious")
			}
		}
	}

	metrics.RetryCurrentWarnings.Set(float64(e.countSuspicious()))
}

func (e *Engine) countSuspicious() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, h := range e.running {
		h.mu.Lock()
		if h.suspicious {
			n++
		}
		h.mu.Unlock()
	}
	return n
}
