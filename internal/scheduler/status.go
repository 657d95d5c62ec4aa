package scheduler

import (
	"fmt"
	"time"
)

// Status returns the current job table (scheduler-owned jobs plus any
// external jobs set via SetExternalJob), with fire times formatted in
// the configured IANA timezone.
func (s *Scheduler) Status() (Status, error) {
	cfg := s.cfgMgr.Get()
	loc, err := time.LoadLocation(cfg.Location.Timezone)
	if err != nil {
		return Status{}, fmt.Errorf("scheduler: load location %q: %w", cfg.Location.Timezone, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]JobStatus, 0, len(s.todayJobs)+len(s.externalJobs))
	for _, j := range s.todayJobs {
		jobs = append(jobs, toJobStatus(j, loc))
	}
	for _, j := range s.externalJobs {
		jobs = append(jobs, toJobStatus(j, loc))
	}
	return Status{Jobs: jobs}, nil
}

func toJobStatus(j Job, loc *time.Location) JobStatus {
	return JobStatus{
		Name:          j.Name,
		SceneName:     j.SceneName,
		NextFireUTC:   j.FireAt,
		NextFireLocal: j.FireAt.In(loc).Format(time.RFC3339),
	}
}
