package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shadehub/shadehub/internal/config"
	"github.com/shadehub/shadehub/internal/scene"
	"github.com/shadehub/shadehub/internal/scheduler"
	"github.com/shadehub/shadehub/internal/serialport"
	"github.com/shadehub/shadehub/internal/shade"
	"github.com/shadehub/shadehub/internal/wakeup"
)

type fakeGateway struct {
	taskID      string
	commandErr  error
	accepted    []string
	executeErr  error
	cancelled   int
	active      []shade.TaskInfo
	snapshot    shade.Snapshot
	lastShadeID string
	lastAction  shade.Action
	lastScene   string
}

func (f *fakeGateway) Command(shadeID string, action shade.Action) (string, error) {
	if shadeID == "panic" {
		panic("simulated handler panic")
	}
	f.lastShadeID, f.lastAction = shadeID, action
	return f.taskID, f.commandErr
}

func (f *fakeGateway) ExecuteScene(ctx context.Context, name string) ([]string, error) {
	f.lastScene = name
	return f.accepted, f.executeErr
}

func (f *fakeGateway) CancelAll() int              { return f.cancelled }
func (f *fakeGateway) ListActive() []shade.TaskInfo { return f.active }
func (f *fakeGateway) Snapshot() shade.Snapshot     { return f.snapshot }

type fakeScheduler struct {
	status scheduler.Status
	err    error
}

func (f *fakeScheduler) Status() (scheduler.Status, error) { return f.status, f.err }

type fakeWakeUp struct {
	status  wakeup.Status
	err     error
	lastSet string
}

func (f *fakeWakeUp) Set(ctx context.Context, hhmm string) (wakeup.Status, error) {
	f.lastSet = hhmm
	return f.status, f.err
}
func (f *fakeWakeUp) Disable(ctx context.Context) (wakeup.Status, error) { return f.status, f.err }
func (f *fakeWakeUp) Status() (wakeup.Status, error)                    { return f.status, f.err }

type fakeSerial struct {
	status       serialport.Status
	reconnectErr error
}

func (f *fakeSerial) Status() serialport.Status { return f.status }
func (f *fakeSerial) Reconnect() (serialport.Status, error) {
	return f.status, f.reconnectErr
}

type fakeScenes struct {
	names []string
}

func (f *fakeScenes) List() []string { return f.names }

type fakeConfigStore struct {
	cfg config.AppConfig
}

func (f *fakeConfigStore) Get() config.AppConfig { return f.cfg }

func (f *fakeConfigStore) Mutate(fn func(cfg *config.AppConfig) error) error {
	cfg := f.cfg
	if err := fn(&cfg); err != nil {
		return err
	}
	f.cfg = cfg
	return nil
}

type fakeMaterializer struct {
	calls int
	err   error
}

func (f *fakeMaterializer) Materialize(ctx context.Context) error {
	f.calls++
	return f.err
}

func newTestServer() (*fakeGateway, *fakeScheduler, *fakeWakeUp, *fakeSerial, http.Handler) {
	gw, sched, wu, serial, _, _, r := newTestServerFull()
	return gw, sched, wu, serial, r
}

func newTestServerFull() (*fakeGateway, *fakeScheduler, *fakeWakeUp, *fakeSerial, *fakeConfigStore, *fakeMaterializer, http.Handler) {
	gw := &fakeGateway{}
	sched := &fakeScheduler{}
	wu := &fakeWakeUp{}
	serial := &fakeSerial{}
	scenes := &fakeScenes{names: []string{"good_morning", "good_night"}}
	cfgStore := &fakeConfigStore{cfg: config.Default()}
	mat := &fakeMaterializer{}

	r := NewRouter(Deps{
		Gateway:      gw,
		Scheduler:    sched,
		WakeUp:       wu,
		Serial:       serial,
		Scenes:       scenes,
		Config:       cfgStore,
		Materializer: mat,
		StartedAt:    time.Now(),
	})
	return gw, sched, wu, serial, cfgStore, mat, r
}

func decodeEnvelope(t *testing.T, body []byte) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(body, &env))
	return env
}

func TestHandleShadeCommandSuccess(t *testing.T) {
	gw, _, _, _, r := newTestServer()
	gw.taskID = "task-1"

	body := bytes.NewBufferString(`{"action":"up"}`)
	req := httptest.NewRequest(http.MethodPost, "/shades/living_room/command", body)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	env := decodeEnvelope(t, w.Body.Bytes())
	require.True(t, env.Success)
	require.Equal(t, "living_room", gw.lastShadeID)
	require.Equal(t, shade.ActionUp, gw.lastAction)
}

func TestHandleShadeCommandNotFound(t *testing.T) {
	gw, _, _, _, r := newTestServer()
	gw.commandErr = &shade.NotFoundError{ShadeID: "ghost"}

	body := bytes.NewBufferString(`{"action":"up"}`)
	req := httptest.NewRequest(http.MethodPost, "/shades/ghost/command", body)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	env := decodeEnvelope(t, w.Body.Bytes())
	require.False(t, env.Success)
	require.Equal(t, "shade_not_found", env.Error.Code)
}

func TestHandleShadeCommandMalformedBody(t *testing.T) {
	_, _, _, _, r := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/shades/a/command", bytes.NewBufferString(`{`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleExecuteSceneNotFoundIncludesAvailableScenes(t *testing.T) {
	gw, _, _, _, r := newTestServer()
	gw.executeErr = &scene.NotFoundError{Name: "missing"}

	req := httptest.NewRequest(http.MethodPost, "/scenes/missing/execute", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	env := decodeEnvelope(t, w.Body.Bytes())
	require.False(t, env.Success)
	require.Equal(t, "scene_not_found", env.Error.Code)
	require.Contains(t, env.Error.Details, "available_scenes")
}

func TestHandleManualTriggerBypassesSchedulerEntirely(t *testing.T) {
	gw, _, _, _, r := newTestServer()
	gw.accepted = []string{"living_room"}

	req := httptest.NewRequest(http.MethodPost, "/scheduler/trigger", bytes.NewBufferString(`{"scene_name":"good_morning"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, "good_morning", gw.lastScene)
}

func TestHandleRetriesSnapshot(t *testing.T) {
	gw, _, _, _, r := newTestServer()
	gw.snapshot = shade.Snapshot{TotalZombiesDetected: 3}

	req := httptest.NewRequest(http.MethodGet, "/retries", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandleCancelAllRetries(t *testing.T) {
	gw, _, _, _, r := newTestServer()
	gw.cancelled = 2

	req := httptest.NewRequest(http.MethodDelete, "/retries/all", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w.Body.Bytes())
	data := env.Data.(map[string]any)
	require.Equal(t, float64(2), data["cancelled"])
}

func TestHandleHealthDegradedWhenSerialDisconnected(t *testing.T) {
	_, _, _, serial, r := newTestServer()
	serial.status = serialport.Status{Connected: false}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w.Body.Bytes())
	data := env.Data.(map[string]any)
	require.Equal(t, "degraded", data["status"])
}

func TestHandleArduinoReconnect(t *testing.T) {
	_, _, _, serial, r := newTestServer()
	serial.status = serialport.Status{Connected: true, Port: "/dev/ttyUSB0"}

	req := httptest.NewRequest(http.MethodPost, "/arduino/reconnect", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandleWakeUpArmValidationError(t *testing.T) {
	_, _, wu, _, r := newTestServer()
	wu.err = &wakeup.ValidationError{Reason: "malformed time"}

	req := httptest.NewRequest(http.MethodPost, "/scheduler/wake-up", bytes.NewBufferString(`{"time":"nope"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleWakeUpDisarmAndStatus(t *testing.T) {
	_, _, wu, _, r := newTestServer()
	wu.status = wakeup.Status{Enabled: true, Time: "06:30"}

	req := httptest.NewRequest(http.MethodDelete, "/scheduler/wake-up", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/scheduler/wake-up/status", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandleSchedulerStatus(t *testing.T) {
	_, sched, _, _, r := newTestServer()
	sched.status = scheduler.Status{Jobs: []scheduler.JobStatus{{Name: "good_morning", SceneName: "good_morning"}}}

	req := httptest.NewRequest(http.MethodGet, "/scheduler/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandleGetConfigReturnsDottedMap(t *testing.T) {
	_, _, _, _, cfgStore, _, r := newTestServerFull()
	cfgStore.cfg.Location.Timezone = "Europe/Berlin"

	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w.Body.Bytes())
	data := env.Data.(map[string]any)
	require.Equal(t, "Europe/Berlin", data["location.timezone"])
}

func TestHandlePatchConfigAppliesAndRematerializes(t *testing.T) {
	_, _, _, _, cfgStore, mat, r := newTestServerFull()

	body := bytes.NewBufferString(`{"key":"wake_up.time","value":"06:45"}`)
	req := httptest.NewRequest(http.MethodPatch, "/config", body)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "06:45", cfgStore.cfg.WakeUp.Time)
	require.Equal(t, 1, mat.calls)
}

func TestHandlePatchConfigSkipsRematerializeForUnrelatedKey(t *testing.T) {
	_, _, _, _, _, mat, r := newTestServerFull()

	body := bytes.NewBufferString(`{"key":"music.enabled_for_morning","value":false}`)
	req := httptest.NewRequest(http.MethodPatch, "/config", body)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 0, mat.calls)
}

func TestHandlePatchConfigRejectsReadOnlyKey(t *testing.T) {
	_, _, _, _, _, _, r := newTestServerFull()

	body := bytes.NewBufferString(`{"key":"wake_up.last_triggered","value":"2026-01-01T00:00:00Z"}`)
	req := httptest.NewRequest(http.MethodPatch, "/config", body)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlePatchConfigUnknownKey(t *testing.T) {
	_, _, _, _, _, _, r := newTestServerFull()

	body := bytes.NewBufferString(`{"key":"nonexistent.key","value":1}`)
	req := httptest.NewRequest(http.MethodPatch, "/config", body)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestPanicRecoveredReturnsEnvelope(t *testing.T) {
	_, _, _, _, r := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/shades/panic/command", bytes.NewBufferString(`{"action":"up"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	env := decodeEnvelope(t, w.Body.Bytes())
	require.False(t, env.Success)
	require.Equal(t, "internal_error", env.Error.Code)
}
