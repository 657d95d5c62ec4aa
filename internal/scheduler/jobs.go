package scheduler

import (
	"fmt"
	"time"

	"github.com/shadehub/shadehub/internal/config"
	"github.com/shadehub/shadehub/internal/sun"
)

const missedGrace = 15 * time.Minute

// computeDailyJobs returns the three fixed/sun-relative scene jobs
// (spec 4.6's active-jobs table, minus rise_n_shine/good_morning which
// the wake-up orchestrator owns) for the calendar day in loc.
func computeDailyJobs(cfg config.AppConfig, day time.Time, loc *time.Location, events sun.Events) ([]Job, error) {
	var jobs []Job

	afternoon, err := parseLocalTime(day, loc, cfg.Scenes.GoodAfternoonTime)
	if err != nil {
		return nil, fmt.Errorf("scheduler: good_afternoon_time: %w", err)
	}
	jobs = append(jobs, Job{Name: JobGoodAfternoon, SceneName: "good_afternoon", FireAt: afternoon.UTC()})

	evening := events.Sunset.Add(time.Duration(cfg.Scenes.GoodEveningOffsetMinutes) * time.Minute)
	jobs = append(jobs, Job{Name: JobGoodEvening, SceneName: "good_evening", FireAt: evening})

	night := events.CivilTwilightEnd
	if night.IsZero() || cfg.Scenes.GoodNightTiming == config.GoodNightSunsetPlusOffset {
		night = sun.GoodNightFallback(events.Sunset)
	}
	jobs = append(jobs, Job{Name: JobGoodNight, SceneName: "good_night", FireAt: night})

	return jobs, nil
}

func parseLocalTime(day time.Time, loc *time.Location, hhmm string) (time.Time, error) {
	t, err := time.ParseInLocation("15:04", hhmm, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", hhmm, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}

// AwayGated reports whether the home/away gate should suppress a
// scheduled (not manual) scene firing for the given local calendar
// date (YYYY-MM-DD).
func AwayGated(cfg config.AppConfig, localDate string) bool {
	if cfg.HomeAway.Status == config.StatusAway {
		return true
	}
	for _, p := range cfg.HomeAway.AwayPeriods {
		if localDate >= p.Start && localDate <= p.End {
			return true
		}
	}
	return false
}

// selectMissed returns the jobs from candidates whose fire instant
// falls in (now-GRACE, now] and have not yet executed at or after that
// instant — the missed-schedule recovery set (spec 4.6).
func selectMissed(candidates []Job, lastExecuted map[JobName]time.Time, now time.Time) []Job {
	cutoff := now.Add(-missedGrace)
	var missed []Job
	for _, j := range candidates {
		if j.FireAt.After(now) || !j.FireAt.After(cutoff) {
			continue
		}
		if last, ok := lastExecuted[j.Name]; ok && !last.Before(j.FireAt) {
			continue
		}
		missed = append(missed, j)
	}
	return missed
}

// nextMaterializationTime returns the next 00:05 local instant
// strictly after now, as a UTC time.
func nextMaterializationTime(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), materializeHour, materializeMinute, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next.UTC()
}
