package scheduler

import (
	"context"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/shadehub/shadehub/internal/log"
)

const (
	busReconnectDelay   = 5 * time.Second
	subscribeRetryDelay = 5 * time.Second
	resumeDebounce      = 2 * time.Second

	loginManagerInterface = "org.freedesktop.login1.Manager"
	prepareForSleepSignal = "org.freedesktop.login1.Manager.PrepareForSleep"
)

// watchResume subscribes to logind's PrepareForSleep signal and
// triggers a materialization pass on every resume edge, so the missed-
// schedule recovery pass runs after the box wakes from suspend. It
// reconnects on any bus failure until stop is closed.
func (s *Scheduler) watchResume(stop <-chan struct{}) {
	for {
		conn, err := dbus.ConnectSystemBus()
		if err != nil {
			log.L().Warn().Err(err).Str("event", "scheduler.dbus_connect_failed").
				Msg("system bus unavailable, retrying")
			if !sleepOrStop(busReconnectDelay, stop) {
				return
			}
			continue
		}

		if err := conn.AddMatchSignal(
			dbus.WithMatchInterface(loginManagerInterface),
			dbus.WithMatchMember("PrepareForSleep"),
		); err != nil {
			log.L().Warn().Err(err).Str("event", "scheduler.dbus_subscribe_failed").
				Msg("PrepareForSleep subscription failed, retrying")
			conn.Close()
			if !sleepOrStop(subscribeRetryDelay, stop) {
				return
			}
			continue
		}

		sigCh := make(chan *dbus.Signal, 8)
		conn.Signal(sigCh)

		s.handleSleepSignals(sigCh, stop)
		conn.Close()

		select {
		case <-stop:
			return
		default:
		}
	}
}

func sleepOrStop(d time.Duration, stop <-chan struct{}) bool {
	select {
	case <-time.After(d):
		return true
	case <-stop:
		return false
	}
}

func (s *Scheduler) handleSleepSignals(sigCh chan *dbus.Signal, stop <-chan struct{}) {
	var lastResume time.Time
	for {
		select {
		case <-stop:
			return
		case sig, ok := <-sigCh:
			if !ok {
				return
			}
			if sig.Name != prepareForSleepSignal || len(sig.Body) == 0 {
				continue
			}
			sleeping, ok := sig.Body[0].(bool)
			if !ok || sleeping {
				continue // only the resume (false) edge matters
			}
			if time.Since(lastResume) < resumeDebounce {
				continue
			}
			lastResume = time.Now()

			log.L().Info().Str("event", "scheduler.resume_detected").
				Msg("system resumed from sleep, re-materializing")
			if err := s.Materialize(context.Background()); err != nil {
				log.L().Error().Err(err).Str("event", "scheduler.materialize_failed").
					Msg("materialization after resume failed")
			}
		}
	}
}
