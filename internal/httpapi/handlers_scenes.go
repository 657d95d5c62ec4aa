package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shadehub/shadehub/internal/scene"
)

// handleExecuteScene implements POST /scenes/{name}/execute (spec 4.3).
func (s *server) handleExecuteScene(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	accepted, err := s.deps.Gateway.ExecuteScene(r.Context(), name)
	if err != nil {
		s.writeSceneError(w, r, err)
		return
	}
	writeData(w, r, http.StatusAccepted, map[string]any{"accepted_shades": accepted})
}

// writeSceneError maps a scene-lookup error, attaching the set of valid
// scene names when the requested scene doesn't exist so callers can
// correct a typo without a separate lookup round-trip.
func (s *server) writeSceneError(w http.ResponseWriter, r *http.Request, err error) {
	var notFound *scene.NotFoundError
	if errors.As(err, &notFound) {
		writeError(w, r, http.StatusNotFound, "scene_not_found", err.Error(), map[string]any{"available_scenes": s.deps.Scenes.List()})
		return
	}
	writeMappedError(w, r, err)
}

// handleManualTrigger implements POST /scheduler/trigger (spec 4.6): a
// manual scene execution that bypasses the home/away gate by going
// directly through the gateway rather than the scheduler's fireJob path.
func (s *server) handleManualTrigger(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SceneName string `json:"scene_name"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "validation_error", "malformed request body", nil)
		return
	}

	accepted, err := s.deps.Gateway.ExecuteScene(r.Context(), body.SceneName)
	if err != nil {
		s.writeSceneError(w, r, err)
		return
	}
	writeData(w, r, http.StatusAccepted, map[string]any{"accepted_shades": accepted})
}
