package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shadehub/shadehub/internal/config"
)

// handleGetConfig implements GET /config: the dotted-key/JSON-value view
// of the configuration document (spec.md §3).
func (s *server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeData(w, r, http.StatusOK, config.ToDottedMap(s.deps.Config.Get()))
}

type patchConfigRequest struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// handlePatchConfig implements PATCH /config: a single dotted-key update,
// applied atomically and re-triggering schedule materialization when the
// key affects scene/wake-up/home-away timing (spec.md §4.6 materialization
// policy: "after relevant config writes").
func (s *server) handlePatchConfig(w http.ResponseWriter, r *http.Request) {
	var body patchConfigRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "validation_error", "malformed request body", nil)
		return
	}

	if err := s.deps.Config.Mutate(func(cfg *config.AppConfig) error {
		return config.ApplyDotted(cfg, body.Key, body.Value)
	}); err != nil {
		s.writeConfigError(w, r, body.Key, err)
		return
	}

	if materializationRelevant(body.Key) {
		if err := s.deps.Materializer.Materialize(r.Context()); err != nil {
			writeError(w, r, http.StatusInternalServerError, "internal_error", err.Error(), nil)
			return
		}
	}

	writeData(w, r, http.StatusOK, config.ToDottedMap(s.deps.Config.Get()))
}

func (s *server) writeConfigError(w http.ResponseWriter, r *http.Request, key string, err error) {
	var invalid *config.ErrInvalidValue
	switch {
	case errors.Is(err, config.ErrReadOnly):
		writeError(w, r, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, config.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "config_key_not_found", err.Error(), nil)
	case errors.As(err, &invalid):
		writeError(w, r, http.StatusBadRequest, "validation_error", invalid.Error(), nil)
	default:
		writeMappedError(w, r, err)
	}
}

// materializationRelevant reports whether a dotted config key affects
// scene fire times, wake-up arming, or the home/away gate, all of which
// require the scheduler to re-materialize today's jobs.
func materializationRelevant(key string) bool {
	for _, prefix := range []string{"scenes.", "wake_up.", "home_away.", "location."} {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}
