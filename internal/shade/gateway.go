package shade

import (
	"context"
	"fmt"
	"time"

	"github.com/shadehub/shadehub/internal/log"
	"github.com/shadehub/shadehub/internal/scene"
)

// SceneLookup resolves a scene by name. Satisfied by *scene.Registry.
type SceneLookup interface {
	Get(name string) (scene.Scene, error)
}

// Gateway is the Shade Command Gateway (spec 4.3): validates commands
// against the shade registry and scene definitions, then delegates to
// the Retry Engine.
type Gateway struct {
	registry *Registry
	scenes   SceneLookup
	engine   *Engine
}

// NewGateway wires a Gateway over an already-constructed Engine.
func NewGateway(registry *Registry, scenes SceneLookup, engine *Engine) *Gateway {
	return &Gateway{registry: registry, scenes: scenes, engine: engine}
}

// Command validates shade_id and action, then submits the command to
// the retry engine. Returns immediately once the task is accepted; it
// does not wait for the RF signal.
func (g *Gateway) Command(shadeID string, action Action) (string, error) {
	if !g.registry.Exists(shadeID) {
		return "", &NotFoundError{ShadeID: shadeID}
	}
	if !action.valid() {
		return "", &ValidationError{Reason: fmt.Sprintf("unknown action %q", action)}
	}
	return g.engine.Submit(Command{ShadeID: shadeID, Action: action, RetryCount: 1})
}

// ExecuteScene runs a scene's steps in order, sleeping delay_ms_before
// between steps, and force-cancels any still-live per-shade tasks it
// spawned if the scene's overall timeout elapses.
func (g *Gateway) ExecuteScene(ctx context.Context, name string) ([]string, error) {
	s, err := g.scenes.Get(name)
	if err != nil {
		return nil, err
	}

	sceneCtx := ctx
	var cancel context.CancelFunc
	if s.TimeoutSeconds > 0 {
		sceneCtx, cancel = context.WithTimeout(ctx, time.Duration(s.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	accepted := make([]string, 0, len(s.Steps))
	spawnedShades := make([]string, 0, len(s.Steps))
	for _, step := range s.Steps {
		if step.DelayMsBefore > 0 {
			select {
			case <-time.After(time.Duration(step.DelayMsBefore) * time.Millisecond):
			case <-sceneCtx.Done():
				g.abortScene(name, spawnedShades)
				return accepted, fmt.Errorf("scene %q: timed out before step for shade %q: %w", name, step.ShadeID, sceneCtx.Err())
			}
		}

		if !g.registry.Exists(step.ShadeID) {
			g.abortScene(name, spawnedShades)
			return accepted, &NotFoundError{ShadeID: step.ShadeID}
		}

		_, err := g.engine.Submit(Command{
			ShadeID:    step.ShadeID,
			Action:     Action(step.Action),
			RetryCount: s.RetryCount,
		})
		if err != nil {
			g.abortScene(name, spawnedShades)
			return accepted, fmt.Errorf("scene %q: step for shade %q: %w", name, step.ShadeID, err)
		}
		accepted = append(accepted, step.ShadeID)
		spawnedShades = append(spawnedShades, step.ShadeID)

		select {
		case <-sceneCtx.Done():
			g.abortScene(name, spawnedShades)
			return accepted, fmt.Errorf("scene %q: timed out after step for shade %q: %w", name, step.ShadeID, sceneCtx.Err())
		default:
		}
	}

	return accepted, nil
}

// abortScene cancels only the retry tasks this scene invocation spawned,
// not unrelated shades' in-flight tasks.
func (g *Gateway) abortScene(name string, spawnedShades []string) {
	log.L().Warn().Str("event", "scene.timeout").Str("scene", name).
		Int("spawned_steps", len(spawnedShades)).Msg("scene overran its timeout, cancelling spawned tasks")
	for _, shadeID := range spawnedShades {
		g.engine.Cancel(shadeID)
	}
}

// CancelAll cancels every live retry task across all shades.
func (g *Gateway) CancelAll() int {
	return g.engine.CancelAll()
}

// ListActive returns a read-only snapshot of live tasks.
func (g *Gateway) ListActive() []TaskInfo {
	return g.engine.Snapshot().Tasks
}

// Snapshot exposes the full retry-engine snapshot (tasks + zombie metrics).
func (g *Gateway) Snapshot() Snapshot {
	return g.engine.Snapshot()
}
