// Package wakeup is the Wake-Up Orchestrator (spec 4.7): a single-shot
// alarm modeled as Disarmed -> Armed(time) -> Firing -> Disarmed.
package wakeup

import "time"

// State is a wake-up orchestrator FSM state.
type State string

const (
	Disarmed State = "disarmed"
	Armed    State = "armed"
	Firing   State = "firing"
)

// Event drives the FSM.
type Event string

const (
	eventArm      Event = "arm"
	eventDisarm   Event = "disarm"
	eventFire     Event = "fire"
	eventComplete Event = "complete"
)

// Status is the read-only view returned by Set/Disable/Status.
type Status struct {
	Enabled           bool       `json:"enabled"`
	Time              string     `json:"time"`
	LastTriggered     *time.Time `json:"last_triggered,omitempty"`
	NextWakeUpLocal   string     `json:"next_wake_up_datetime,omitempty"`
	NextWakeUpUTC     *time.Time `json:"next_wake_up_utc,omitempty"`
}
