package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/go-co-op/gocron/v2"

	"github.com/shadehub/shadehub/internal/config"
	"github.com/shadehub/shadehub/internal/log"
	"github.com/shadehub/shadehub/internal/metrics"
	"github.com/shadehub/shadehub/internal/shutdown"
	"github.com/shadehub/shadehub/internal/sun"
)

const (
	materializeHour   = 0
	materializeMinute = 5
	sceneFireTimeout  = 30 * time.Second
	pqInitialHint     = 8
)

// SceneRunner executes a named scene. Satisfied by *shade.Gateway.
type SceneRunner interface {
	ExecuteScene(ctx context.Context, name string) ([]string, error)
}

// SunSource is the subset of *sun.Oracle the scheduler depends on,
// narrowed to an interface so tests can substitute a fake clock
// instead of waiting on real wall time.
type SunSource interface {
	Now() time.Time
	SunEvents(date time.Time, tz string) (sun.Events, error)
}

// Scheduler is the Scene Scheduler (spec 4.6). It owns good_afternoon,
// good_evening, and good_night; rise_n_shine and good_morning are fired
// by the wake-up orchestrator and only mirrored here via SetExternalJob
// so GET /scheduler/status reports a unified job table.
type Scheduler struct {
	cfgMgr *config.Manager
	oracle SunSource
	scenes SceneRunner
	gocron gocron.Scheduler

	mu             sync.Mutex
	pq             *queue.PriorityQueue
	todayJobs      []Job
	lastExecuted   map[JobName]time.Time
	liveGocronJobs []gocron.Job
	materializeJob gocron.Job
	externalJobs   map[JobName]Job
}

// New wires a Scheduler over cfgMgr/oracle/scenes. Call Start to begin
// materializing and firing jobs.
func New(cfgMgr *config.Manager, oracle SunSource, scenes SceneRunner) (*Scheduler, error) {
	gc, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("scheduler: create gocron scheduler: %w", err)
	}
	return &Scheduler{
		cfgMgr:       cfgMgr,
		oracle:       oracle,
		scenes:       scenes,
		gocron:       gc,
		pq:           queue.NewPriorityQueue(pqInitialHint, false),
		lastExecuted: make(map[JobName]time.Time),
		externalJobs: make(map[JobName]Job),
	}, nil
}

// Start runs an initial materialization pass, arms the daily 00:05
// local materialization job, starts the gocron scheduler, and starts
// the resume-from-sleep watcher, all tracked by coord.
func (s *Scheduler) Start(ctx context.Context, coord *shutdown.Coordinator) error {
	if err := s.Materialize(ctx); err != nil {
		return err
	}
	if err := s.scheduleNextMaterialization(); err != nil {
		return err
	}
	s.gocron.Start()

	stop := make(chan struct{})
	coord.Go(func() {
		s.watchResume(stop)
	})
	coord.RegisterHook("scheduler.resume_watcher", func(context.Context) error {
		close(stop)
		return nil
	})
	coord.RegisterHook("scheduler.gocron", func(context.Context) error {
		return s.gocron.Shutdown()
	})
	return nil
}

// Materialize runs the materialization policy (spec 4.6): clears all
// scheduler-owned jobs, recomputes sun events, registers today's jobs
// at their local-time fire instants, and runs missed-schedule
// recovery. Called at startup, daily at 00:05 local, after config
// writes to wake_up/home_away/scene timing keys, and on resume from
// sleep.
func (s *Scheduler) Materialize(ctx context.Context) error {
	cfg := s.cfgMgr.Get()
	loc, err := time.LoadLocation(cfg.Location.Timezone)
	if err != nil {
		return fmt.Errorf("scheduler: load location %q: %w", cfg.Location.Timezone, err)
	}

	now := s.oracle.Now()
	today := now.In(loc)
	tomorrow := today.AddDate(0, 0, 1)

	todayEvents, err := s.oracle.SunEvents(today, cfg.Location.Timezone)
	if err != nil {
		return fmt.Errorf("scheduler: sun events for today: %w", err)
	}
	// Warm tomorrow's cache entry so a transient upstream failure right
	// after midnight still has a last-known-good value to fall back to.
	if _, err := s.oracle.SunEvents(tomorrow, cfg.Location.Timezone); err != nil {
		log.L().Warn().Err(err).Str("event", "scheduler.tomorrow_sun_events_failed").
			Msg("could not warm tomorrow's sun events cache")
	}

	jobs, err := computeDailyJobs(cfg, today, loc, todayEvents)
	if err != nil {
		return fmt.Errorf("scheduler: compute daily jobs: %w", err)
	}

	s.mu.Lock()
	for _, j := range s.liveGocronJobs {
		_ = s.gocron.RemoveJob(j.ID())
	}
	s.liveGocronJobs = s.liveGocronJobs[:0]
	s.pq = queue.NewPriorityQueue(pqInitialHint, false)
	s.todayJobs = jobs
	s.mu.Unlock()

	for _, j := range jobs {
		if j.FireAt.After(now) {
			if err := s.registerJob(j); err != nil {
				log.L().Error().Err(err).Str("event", "scheduler.register_failed").
					Str("scene", j.SceneName).Msg("failed to register scheduler job")
			}
		}
	}

	metrics.SchedulerJobsActive.Set(float64(len(jobs)))

	s.recoverMissed(now)
	return nil
}

func (s *Scheduler) registerJob(job Job) error {
	gj, err := s.gocron.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(job.FireAt)),
		gocron.NewTask(func() { s.fireJob(job) }),
		gocron.WithName(string(job.Name)),
	)
	if err != nil {
		return fmt.Errorf("register job %s: %w", job.Name, err)
	}

	s.mu.Lock()
	s.liveGocronJobs = append(s.liveGocronJobs, gj)
	s.pq.Put(scheduledItem{job: job})
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) recoverMissed(now time.Time) {
	s.mu.Lock()
	candidates := append([]Job(nil), s.todayJobs...)
	lastExecuted := make(map[JobName]time.Time, len(s.lastExecuted))
	for k, v := range s.lastExecuted {
		lastExecuted[k] = v
	}
	s.mu.Unlock()

	for _, job := range selectMissed(candidates, lastExecuted, now) {
		metrics.SchedulerMissedRecoveredTotal.WithLabelValues(string(job.Name)).Inc()
		log.L().Info().Str("event", "scheduler.missed_recovered").
			Str("scene", job.SceneName).Time("fire_at", job.FireAt).Msg("recovering missed scene firing")
		go s.fireJob(job)
	}
}

func (s *Scheduler) fireJob(job Job) {
	cfg := s.cfgMgr.Get()
	now := s.oracle.Now()

	loc, err := time.LoadLocation(cfg.Location.Timezone)
	localDate := now.Format("2006-01-02")
	if err == nil {
		localDate = now.In(loc).Format("2006-01-02")
	}

	if AwayGated(cfg, localDate) {
		metrics.SchedulerSceneSkippedTotal.WithLabelValues(string(job.Name)).Inc()
		log.L().Info().Str("event", "scheduler.scene_skipped").Str("scene", job.SceneName).
			Str("reason", "home_away_gate").Msg("skipped scheduled scene")
		s.markExecuted(job.Name, now)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sceneFireTimeout)
	defer cancel()
	if _, err := s.scenes.ExecuteScene(ctx, job.SceneName); err != nil {
		log.L().Error().Err(err).Str("event", "scheduler.scene_failed").
			Str("scene", job.SceneName).Msg("scheduled scene execution failed")
	}
	s.markExecuted(job.Name, now)
}

func (s *Scheduler) markExecuted(name JobName, at time.Time) {
	s.mu.Lock()
	s.lastExecuted[name] = at
	s.mu.Unlock()
}

func (s *Scheduler) scheduleNextMaterialization() error {
	cfg := s.cfgMgr.Get()
	loc, err := time.LoadLocation(cfg.Location.Timezone)
	if err != nil {
		return fmt.Errorf("scheduler: load location %q: %w", cfg.Location.Timezone, err)
	}

	next := nextMaterializationTime(s.oracle.Now(), loc)
	job, err := s.gocron.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(next)),
		gocron.NewTask(s.runDailyMaterialization),
		gocron.WithName("scheduler.materialize_daily"),
	)
	if err != nil {
		return fmt.Errorf("scheduler: schedule daily materialization: %w", err)
	}

	s.mu.Lock()
	s.materializeJob = job
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) runDailyMaterialization() {
	if err := s.Materialize(context.Background()); err != nil {
		log.L().Error().Err(err).Str("event", "scheduler.materialize_failed").
			Msg("daily materialization failed")
	}
	if err := s.scheduleNextMaterialization(); err != nil {
		log.L().Error().Err(err).Str("event", "scheduler.reschedule_failed").
			Msg("failed to schedule next daily materialization")
	}
}

// SetExternalJob records a job owned by another component (the wake-up
// orchestrator) so it appears in Status.
func (s *Scheduler) SetExternalJob(job Job) {
	s.mu.Lock()
	s.externalJobs[job.Name] = job
	s.mu.Unlock()
}

// ClearExternalJob removes a previously-set external job, e.g. when the
// wake-up orchestrator disarms.
func (s *Scheduler) ClearExternalJob(name JobName) {
	s.mu.Lock()
	delete(s.externalJobs, name)
	s.mu.Unlock()
}
