package httpapi

import (
	"errors"
	"net/http"

	"github.com/shadehub/shadehub/internal/scene"
	"github.com/shadehub/shadehub/internal/serialport"
	"github.com/shadehub/shadehub/internal/shade"
	"github.com/shadehub/shadehub/internal/wakeup"
)

// writeMappedError classifies a domain error into the taxonomy from
// spec.md §7 and writes the matching envelope.
func writeMappedError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		shadeNotFound *shade.NotFoundError
		shadeInvalid  *shade.ValidationError
		sceneNotFound *scene.NotFoundError
		sceneInvalid  *scene.InvalidScene
		serialErr     *serialport.SerialError
		wakeupInvalid *wakeup.ValidationError
	)

	switch {
	case errors.As(err, &shadeNotFound):
		writeError(w, r, http.StatusNotFound, "shade_not_found", err.Error(), nil)
	case errors.As(err, &shadeInvalid):
		writeError(w, r, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.As(err, &sceneNotFound):
		writeError(w, r, http.StatusNotFound, "scene_not_found", err.Error(), nil)
	case errors.As(err, &sceneInvalid):
		writeError(w, r, http.StatusUnprocessableEntity, "invalid_scene", err.Error(), nil)
	case errors.As(err, &serialErr):
		writeError(w, r, http.StatusServiceUnavailable, "serial_error", err.Error(), nil)
	case errors.As(err, &wakeupInvalid):
		writeError(w, r, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		writeError(w, r, http.StatusInternalServerError, "internal_error", err.Error(), nil)
	}
}
