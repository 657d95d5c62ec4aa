package audio

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shadehub/shadehub/internal/bluetooth"
	"github.com/shadehub/shadehub/internal/config"
	"github.com/shadehub/shadehub/internal/fsm"
	"github.com/shadehub/shadehub/internal/log"
	"github.com/shadehub/shadehub/internal/metrics"
)

const (
	startupTimeout         = 90 * time.Second
	bluetoothConnectBudget = 60 * time.Second
)

// Bluetooth is the Bluetooth collaborator narrowed to what the startup
// sequence needs. Satisfied by *bluetooth.Client.
type Bluetooth interface {
	Status(ctx context.Context) (bluetooth.Status, error)
	Connect(ctx context.Context) error
}

// Coordinator is the audio startup/shutdown state machine (spec 4.8).
type Coordinator struct {
	cfgMgr *config.Manager
	bt     Bluetooth
	now    func() time.Time

	machine *fsm.Machine[State, Event]

	mu         sync.Mutex
	inFlight   *startFuture
	player     *playerHandle
	lockFile   *os.File
	lastErr    string
	lastPath   string
	lastDevice string
}

type Event = event

func New(cfgMgr *config.Manager, bt Bluetooth) (*Coordinator, error) {
	c := &Coordinator{cfgMgr: cfgMgr, bt: bt, now: func() time.Time { return time.Now().UTC() }}

	machine, err := fsm.New(Off, []fsm.Transition[State, Event]{
		{From: Off, Event: eventStart, To: StartingConnectingBt},
		{From: StartingConnectingBt, Event: eventBtReady, To: StartingLaunching},
		{From: StartingConnectingBt, Event: eventFail, To: Failed, Action: c.recordFailureAction},
		{From: StartingLaunching, Event: eventLaunched, To: Running},
		{From: StartingLaunching, Event: eventFail, To: Failed, Action: c.recordFailureAction},
		{From: Running, Event: eventStop, To: Stopping, Action: c.stopAction},
		{From: Stopping, Event: eventStopped, To: Off},
		{From: Failed, Event: eventStart, To: StartingConnectingBt},
		{From: Failed, Event: eventStop, To: Off},
	})
	if err != nil {
		return nil, fmt.Errorf("audio: build state machine: %w", err)
	}
	c.machine = machine
	return c, nil
}

// RequestStart runs the guarded startup (spec 4.8 steps 1-4). Concurrent
// callers while a startup is in flight share its outcome.
func (c *Coordinator) RequestStart(ctx context.Context, triggerSource string) error {
	cfg := c.cfgMgr.Get()

	f := newStartFuture()
	c.mu.Lock()
	if c.inFlight != nil {
		existing := c.inFlight
		c.mu.Unlock()
		return existing.wait(ctx)
	}
	c.inFlight = f
	c.mu.Unlock()

	if running, err := playerRunning(cfg.Audio.PlayerCommand); err == nil && running {
		log.L().Info().Str("event", "audio.already_running").Str("trigger", triggerSource).
			Msg("player already running, skipping startup")
		metrics.AudioStartupTotal.WithLabelValues("skipped").Inc()
		f.complete(nil)
		c.mu.Lock()
		c.inFlight = nil
		c.mu.Unlock()
		return nil
	}

	lock, err := acquireLock(cfg.Audio.LockFilePath)
	if err != nil {
		log.L().Warn().Err(err).Str("event", "audio.lock_acquire_failed").Msg("continuing without player lock file")
	}
	c.mu.Lock()
	c.lockFile = lock
	c.mu.Unlock()

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	err = c.runStartSequence(startCtx, cfg, triggerSource)

	f.complete(err)
	c.mu.Lock()
	c.inFlight = nil
	c.mu.Unlock()
	return err
}

func (c *Coordinator) runStartSequence(ctx context.Context, cfg config.AppConfig, triggerSource string) error {
	if _, err := c.machine.Fire(ctx, eventStart); err != nil {
		return fmt.Errorf("audio: start rejected: %w", err)
	}

	status, err := c.bt.Status(ctx)
	if err != nil {
		c.fail(ctx, "bt_status_failed")
		return fmt.Errorf("audio: bluetooth status query failed: %w", err)
	}

	path := "fast"
	if !(status.Connected && status.SinkReady) {
		path = "slow"
		connectCtx, cancel := context.WithTimeout(ctx, bluetoothConnectBudget)
		err := c.bt.Connect(connectCtx)
		cancel()
		if err != nil {
			c.fail(ctx, "bt_failed")
			return fmt.Errorf("audio: bluetooth connect failed: %w", err)
		}
		status, err = c.bt.Status(ctx)
		if err != nil || !status.SinkReady {
			c.fail(ctx, "bt_failed")
			return fmt.Errorf("audio: sink not ready after connect")
		}
	}

	if _, err := c.machine.Fire(ctx, eventBtReady); err != nil {
		c.fail(ctx, "bt_failed")
		return fmt.Errorf("audio: bt_ready transition rejected: %w", err)
	}

	player, err := launchPlayer(cfg.Audio.PlayerCommand, cfg.Audio.PlayerArgs)
	if err != nil {
		c.fail(ctx, "player_launch_failed")
		return err
	}

	c.mu.Lock()
	c.player = player
	c.lastPath = path
	c.lastDevice = status.DeviceName
	c.mu.Unlock()

	if _, err := c.machine.Fire(ctx, eventLaunched); err != nil {
		return fmt.Errorf("audio: launched transition rejected: %w", err)
	}

	c.persist(PersistedStatus{State: Running, DeviceName: status.DeviceName, UpdatedAt: c.now()})
	metrics.AudioStartupTotal.WithLabelValues(path).Inc()
	return nil
}

func (c *Coordinator) fail(ctx context.Context, reason string) {
	cfg := c.cfgMgr.Get()
	c.mu.Lock()
	c.lastErr = reason
	lock := c.lockFile
	c.lockFile = nil
	c.mu.Unlock()
	releaseLock(lock, cfg.Audio.LockFilePath)
	metrics.AudioStartupTotal.WithLabelValues("failed").Inc()
	if _, err := c.machine.Fire(ctx, eventFail); err != nil {
		log.L().Warn().Err(err).Str("event", "audio.fail_transition_rejected").Msg("failure transition rejected")
	}
}

func (c *Coordinator) recordFailureAction(ctx context.Context, from, to State, ev Event) error {
	c.mu.Lock()
	reason := c.lastErr
	c.mu.Unlock()
	c.persist(PersistedStatus{State: Failed, LastError: reason, UpdatedAt: c.now()})
	return nil
}

// Stop signals the player and clears the status file, returning without
// waiting for process cleanup (spec 4.8 invariant: within 1 s).
func (c *Coordinator) Stop(ctx context.Context) error {
	if _, err := c.machine.Fire(ctx, eventStop); err != nil {
		return fmt.Errorf("audio: stop rejected: %w", err)
	}
	if _, err := c.machine.Fire(ctx, eventStopped); err != nil {
		log.L().Warn().Err(err).Str("event", "audio.stopped_transition_rejected").Msg("stopped transition rejected")
	}
	return nil
}

func (c *Coordinator) stopAction(ctx context.Context, from, to State, ev Event) error {
	cfg := c.cfgMgr.Get()
	c.mu.Lock()
	player := c.player
	lock := c.lockFile
	c.player = nil
	c.lockFile = nil
	c.mu.Unlock()

	if player != nil {
		player.stop()
	}
	releaseLock(lock, cfg.Audio.LockFilePath)
	c.persist(PersistedStatus{State: Off, UpdatedAt: c.now()})
	return nil
}

func (c *Coordinator) persist(st PersistedStatus) {
	cfg := c.cfgMgr.Get()
	if err := writeStatusFile(cfg.Audio.StatusFilePath, st); err != nil {
		log.L().Error().Err(err).Str("event", "audio.status_persist_failed").Msg("failed to persist audio status file")
	}
}

// Status returns the coordinator's in-memory view for diagnostics.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:       c.machine.State(),
		LastFailure: c.lastErr,
		DeviceName:  c.lastDevice,
		StartPath:   c.lastPath,
	}
}

// ReadPersistedStatus reads and hash-verifies the on-disk status file
// written by this coordinator (or a prior instance of it).
func (c *Coordinator) ReadPersistedStatus() (PersistedStatus, error) {
	cfg := c.cfgMgr.Get()
	r := &statusFileReader{path: cfg.Audio.StatusFilePath}
	return r.readVerified()
}
