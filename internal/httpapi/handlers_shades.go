package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shadehub/shadehub/internal/shade"
)

type shadeCommandRequest struct {
	Action string `json:"action"`
}

// handleShadeCommand implements POST /shades/{id}/command (spec 4.3):
// accept and return {task_id}.
func (s *server) handleShadeCommand(w http.ResponseWriter, r *http.Request) {
	shadeID := chi.URLParam(r, "id")

	var body shadeCommandRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "validation_error", "malformed request body", nil)
		return
	}

	taskID, err := s.deps.Gateway.Command(shadeID, shade.Action(body.Action))
	if err != nil {
		writeMappedError(w, r, err)
		return
	}
	writeData(w, r, http.StatusAccepted, map[string]string{"task_id": taskID})
}
