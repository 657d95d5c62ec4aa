// Package httpapi exposes the appliance's HTTP surface: spec.md's eleven
// core endpoints plus a dotted-key configuration surface (GET/PATCH
// /config). JSON only, every response wrapped in the
// {"success","data","error"} envelope, every handler bounded to a
// synchronous 5s budget.
package httpapi

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/shadehub/shadehub/internal/config"
	"github.com/shadehub/shadehub/internal/log"
	"github.com/shadehub/shadehub/internal/scheduler"
	"github.com/shadehub/shadehub/internal/serialport"
	"github.com/shadehub/shadehub/internal/shade"
	"github.com/shadehub/shadehub/internal/wakeup"

	"github.com/go-chi/chi/v5"
)

const handlerTimeout = 5 * time.Second

// ShadeGateway is the command/scene surface the HTTP layer drives.
// Satisfied by *shade.Gateway.
type ShadeGateway interface {
	Command(shadeID string, action shade.Action) (string, error)
	ExecuteScene(ctx context.Context, name string) ([]string, error)
	CancelAll() int
	ListActive() []shade.TaskInfo
	Snapshot() shade.Snapshot
}

// SchedulerStatus is the scheduler's read surface. Satisfied by
// *scheduler.Scheduler.
type SchedulerStatus interface {
	Status() (scheduler.Status, error)
}

// WakeUp is the wake-up orchestrator's HTTP-facing surface. Satisfied by
// *wakeup.Orchestrator.
type WakeUp interface {
	Set(ctx context.Context, hhmm string) (wakeup.Status, error)
	Disable(ctx context.Context) (wakeup.Status, error)
	Status() (wakeup.Status, error)
}

// SerialTransport is the reconnect/health surface. Satisfied by
// *serialport.Transport.
type SerialTransport interface {
	Status() serialport.Status
	Reconnect() (serialport.Status, error)
}

// SceneLister exposes the configured scene names for validation
// messages. Satisfied by *scene.Registry.
type SceneLister interface {
	List() []string
}

// ConfigStore is the dotted-key configuration surface (spec.md §3).
// Satisfied by *config.Manager.
type ConfigStore interface {
	Get() config.AppConfig
	Mutate(fn func(cfg *config.AppConfig) error) error
}

// Rematerializer re-runs schedule materialization after a config write
// touching scene/wake-up/home-away timing. Satisfied by
// *scheduler.Scheduler.
type Rematerializer interface {
	Materialize(ctx context.Context) error
}

// Deps bundles every collaborator the HTTP surface calls into.
type Deps struct {
	Gateway      ShadeGateway
	Scheduler    SchedulerStatus
	WakeUp       WakeUp
	Serial       SerialTransport
	Scenes       SceneLister
	Config       ConfigStore
	Materializer Rematerializer
	StartedAt    time.Time
}

type server struct {
	deps Deps
}

// NewRouter builds the chi router for spec.md §6's eleven endpoints plus
// the dotted-key configuration surface.
func NewRouter(deps Deps) *chi.Mux {
	s := &server{deps: deps}

	r := chi.NewRouter()
	r.Use(recoverer)
	r.Use(log.Middleware())
	r.Use(requestMetrics)
	r.Use(middleware.Timeout(handlerTimeout))

	r.Post("/shades/{id}/command", s.handleShadeCommand)
	r.Post("/scenes/{name}/execute", s.handleExecuteScene)
	r.Get("/retries", s.handleRetriesSnapshot)
	r.Delete("/retries/all", s.handleCancelAllRetries)
	r.Get("/health", s.handleHealth)
	r.Post("/arduino/reconnect", s.handleArduinoReconnect)
	r.Get("/scheduler/status", s.handleSchedulerStatus)
	r.Post("/scheduler/wake-up", s.handleWakeUpArm)
	r.Delete("/scheduler/wake-up", s.handleWakeUpDisarm)
	r.Get("/scheduler/wake-up/status", s.handleWakeUpStatus)
	r.Post("/scheduler/trigger", s.handleManualTrigger)
	r.Get("/config", s.handleGetConfig)
	r.Patch("/config", s.handlePatchConfig)

	return r
}
