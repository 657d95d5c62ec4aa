package wakeup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shadehub/shadehub/internal/config"
	"github.com/shadehub/shadehub/internal/fsm"
	"github.com/shadehub/shadehub/internal/log"
	"github.com/shadehub/shadehub/internal/scheduler"
)

// SceneRunner executes a named scene. Satisfied by *shade.Gateway.
type SceneRunner interface {
	ExecuteScene(ctx context.Context, name string) ([]string, error)
}

// AudioRequester requests a best-effort audio startup. Satisfied by
// the audio package's startup coordinator.
type AudioRequester interface {
	RequestStart(ctx context.Context, triggerSource string) error
}

// JobSetter mirrors rise_n_shine/good_morning fire times into the
// scheduler's job table for unified status reporting. Satisfied by
// *scheduler.Scheduler.
type JobSetter interface {
	SetExternalJob(job scheduler.Job)
	ClearExternalJob(name scheduler.JobName)
}

// Orchestrator is the Wake-Up Orchestrator.
type Orchestrator struct {
	cfgMgr *config.Manager
	scenes SceneRunner
	audio  AudioRequester
	jobs   JobSetter
	now    func() time.Time

	machine *fsm.Machine[State, Event]

	mu          sync.Mutex
	pendingFire time.Time
	pendingHHMM string
	armedTimer  *time.Timer
	fireCancel  context.CancelFunc
}

// New wires an Orchestrator. audio may be nil if no audio subsystem is
// configured; the best-effort audio request step is then skipped.
func New(cfgMgr *config.Manager, scenes SceneRunner, audio AudioRequester, jobs JobSetter) (*Orchestrator, error) {
	o := &Orchestrator{
		cfgMgr: cfgMgr,
		scenes: scenes,
		audio:  audio,
		jobs:   jobs,
		now:    func() time.Time { return time.Now().UTC() },
	}

	machine, err := fsm.New(Disarmed, []fsm.Transition[State, Event]{
		{From: Disarmed, Event: eventArm, To: Armed, Action: o.armAction},
		{From: Armed, Event: eventArm, To: Armed, Action: o.armAction},
		{From: Disarmed, Event: eventDisarm, To: Disarmed},
		{From: Armed, Event: eventDisarm, To: Disarmed, Action: o.disarmFromArmedAction},
		{From: Firing, Event: eventDisarm, To: Disarmed, Action: o.disarmFromFiringAction},
		{From: Armed, Event: eventFire, To: Firing},
		{From: Firing, Event: eventComplete, To: Disarmed},
	})
	if err != nil {
		return nil, fmt.Errorf("wakeup: build state machine: %w", err)
	}
	o.machine = machine
	return o, nil
}

// Restore arms the orchestrator from a persisted config at startup,
// without going through the HTTP Set() validation path.
func (o *Orchestrator) Restore(ctx context.Context) error {
	cfg := o.cfgMgr.Get()
	if !cfg.WakeUp.Enabled {
		return nil
	}
	_, err := o.Set(ctx, cfg.WakeUp.Time)
	return err
}

// Set arms the alarm for hhmm ("HH:MM" local time), cancelling any
// previously armed timer.
func (o *Orchestrator) Set(ctx context.Context, hhmm string) (Status, error) {
	cfg := o.cfgMgr.Get()
	loc, err := time.LoadLocation(cfg.Location.Timezone)
	if err != nil {
		return Status{}, fmt.Errorf("wakeup: load location %q: %w", cfg.Location.Timezone, err)
	}

	fireAt, err := nextFireInstant(o.now(), loc, hhmm)
	if err != nil {
		return Status{}, err
	}

	o.mu.Lock()
	o.pendingFire = fireAt
	o.pendingHHMM = hhmm
	o.mu.Unlock()

	if _, err := o.machine.Fire(ctx, eventArm); err != nil {
		return Status{}, err
	}
	return o.Status()
}

// Disable cancels any armed or in-flight wake-up sequence.
func (o *Orchestrator) Disable(ctx context.Context) (Status, error) {
	if _, err := o.machine.Fire(ctx, eventDisarm); err != nil {
		return Status{}, err
	}
	return o.Status()
}

// Status returns the current enabled/armed state.
func (o *Orchestrator) Status() (Status, error) {
	cfg := o.cfgMgr.Get()
	st := Status{Enabled: cfg.WakeUp.Enabled, Time: cfg.WakeUp.Time, LastTriggered: cfg.WakeUp.LastTriggered}

	o.mu.Lock()
	fireAt := o.pendingFire
	o.mu.Unlock()

	if cfg.WakeUp.Enabled && !fireAt.IsZero() {
		loc, err := time.LoadLocation(cfg.Location.Timezone)
		if err == nil {
			local := fireAt.In(loc)
			st.NextWakeUpLocal = local.Format(time.RFC3339)
			utc := fireAt.UTC()
			st.NextWakeUpUTC = &utc
		}
	}
	return st, nil
}

func (o *Orchestrator) armAction(ctx context.Context, from, to State, event Event) error {
	o.mu.Lock()
	fireAt := o.pendingFire
	hhmm := o.pendingHHMM
	if o.armedTimer != nil {
		o.armedTimer.Stop()
	}
	o.mu.Unlock()

	if err := o.cfgMgr.Mutate(func(c *config.AppConfig) error {
		c.WakeUp.Enabled = true
		c.WakeUp.Time = hhmm
		return nil
	}); err != nil {
		return err
	}

	o.jobs.SetExternalJob(scheduler.Job{Name: scheduler.JobRiseNShine, SceneName: "rise_n_shine", FireAt: fireAt.UTC()})

	delay := fireAt.Sub(o.now())
	if delay < 0 {
		delay = 0
	}
	timer := time.AfterFunc(delay, o.onArmedFire)

	o.mu.Lock()
	o.armedTimer = timer
	o.mu.Unlock()
	return nil
}

func (o *Orchestrator) disarmFromArmedAction(ctx context.Context, from, to State, event Event) error {
	o.mu.Lock()
	if o.armedTimer != nil {
		o.armedTimer.Stop()
		o.armedTimer = nil
	}
	o.mu.Unlock()

	o.jobs.ClearExternalJob(scheduler.JobRiseNShine)
	return o.cfgMgr.Mutate(func(c *config.AppConfig) error {
		c.WakeUp.Enabled = false
		return nil
	})
}

func (o *Orchestrator) disarmFromFiringAction(ctx context.Context, from, to State, event Event) error {
	o.mu.Lock()
	if o.fireCancel != nil {
		o.fireCancel()
	}
	o.mu.Unlock()

	o.jobs.ClearExternalJob(scheduler.JobGoodMorning)
	return o.cfgMgr.Mutate(func(c *config.AppConfig) error {
		c.WakeUp.Enabled = false
		return nil
	})
}

func (o *Orchestrator) onArmedFire() {
	ctx := context.Background()
	if _, err := o.machine.Fire(ctx, eventFire); err != nil {
		log.L().Warn().Err(err).Str("event", "wakeup.fire_rejected").
			Msg("wake-up timer fired but the machine rejected the transition")
		return
	}
	go o.runFireSequence(ctx)
}

// runFireSequence executes spec 4.7's on-fire steps 1-6.
func (o *Orchestrator) runFireSequence(ctx context.Context) {
	cfg := o.cfgMgr.Get()
	now := o.now()

	loc, err := time.LoadLocation(cfg.Location.Timezone)
	if err != nil {
		log.L().Error().Err(err).Str("event", "wakeup.bad_timezone").Msg("falling back to UTC for gate check")
		loc = time.UTC
	}

	if scheduler.AwayGated(cfg, localDateFor(now, loc)) {
		log.L().Info().Str("event", "wakeup.gated").
			Msg("home/away gate active at wake-up fire; auto-disabling without running scenes")
		o.jobs.ClearExternalJob(scheduler.JobRiseNShine)
		o.finish(o.now())
		return
	}

	if _, err := o.scenes.ExecuteScene(ctx, "rise_n_shine"); err != nil {
		log.L().Error().Err(err).Str("event", "wakeup.rise_n_shine_failed").Msg("rise_n_shine scene failed")
	}

	if cfg.Music.EnabledForMorning && o.audio != nil {
		if err := o.audio.RequestStart(ctx, "wakeup"); err != nil {
			log.L().Warn().Err(err).Str("event", "wakeup.audio_failed").
				Msg("audio start failed, continuing wake-up sequence")
		}
	}

	delay := time.Duration(cfg.WakeUp.GoodMorningDelayMinutes) * time.Minute
	o.jobs.SetExternalJob(scheduler.Job{Name: scheduler.JobGoodMorning, SceneName: "good_morning", FireAt: now.Add(delay).UTC()})
	o.jobs.ClearExternalJob(scheduler.JobRiseNShine)

	sleepCtx, cancel := context.WithTimeout(context.Background(), delay)
	o.mu.Lock()
	o.fireCancel = cancel
	o.mu.Unlock()

	<-sleepCtx.Done()
	cancelledEarly := sleepCtx.Err() == context.Canceled

	o.mu.Lock()
	o.fireCancel = nil
	o.mu.Unlock()
	o.jobs.ClearExternalJob(scheduler.JobGoodMorning)

	if cancelledEarly {
		// Disable() already transitioned the machine to Disarmed and
		// persisted enabled=false; nothing left to do here.
		return
	}

	if _, err := o.scenes.ExecuteScene(context.Background(), "good_morning"); err != nil {
		log.L().Error().Err(err).Str("event", "wakeup.good_morning_failed").Msg("good_morning scene failed")
	}

	o.finish(o.now())
}

func (o *Orchestrator) finish(at time.Time) {
	atCopy := at
	if err := o.cfgMgr.Mutate(func(c *config.AppConfig) error {
		c.WakeUp.LastTriggered = &atCopy
		c.WakeUp.Enabled = false
		return nil
	}); err != nil {
		log.L().Error().Err(err).Str("event", "wakeup.persist_failed").Msg("failed to persist wake-up completion")
	}

	if _, err := o.machine.Fire(context.Background(), eventComplete); err != nil {
		log.L().Warn().Err(err).Str("event", "wakeup.complete_rejected").
			Msg("completion transition rejected, likely disarmed concurrently")
	}
}
