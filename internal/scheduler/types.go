// Package scheduler is the Scene Scheduler (spec 4.6): it materializes
// a set of daily jobs from sun events and scene-timing config, fires
// them at their local-time instants, and recovers any that were missed
// while the process was down or the system was asleep.
package scheduler

import "time"

// JobName identifies one of the five scenes the scheduler knows how to
// fire. rise_n_shine and good_morning are materialized by the wake-up
// orchestrator and only registered here for unified status reporting.
type JobName string

const (
	JobGoodAfternoon JobName = "good_afternoon"
	JobGoodEvening   JobName = "good_evening"
	JobGoodNight     JobName = "good_night"
	JobRiseNShine    JobName = "rise_n_shine"
	JobGoodMorning   JobName = "good_morning"
)

// Job is one materialized firing instant for a scene.
type Job struct {
	Name      JobName
	SceneName string
	FireAt    time.Time // UTC
}

// JobStatus is the read-only view of a Job returned to callers.
type JobStatus struct {
	Name          JobName   `json:"name"`
	SceneName     string    `json:"scene"`
	NextFireUTC   time.Time `json:"next_fire_utc"`
	NextFireLocal string    `json:"next_fire_local"`
}

// Status is the full scheduler snapshot for GET /scheduler/status.
type Status struct {
	Jobs []JobStatus `json:"jobs"`
}
