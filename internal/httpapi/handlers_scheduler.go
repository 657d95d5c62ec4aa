package httpapi

import "net/http"

// handleSchedulerStatus implements GET /scheduler/status (spec 4.6).
func (s *server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.deps.Scheduler.Status()
	if err != nil {
		writeMappedError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, status)
}

type wakeUpSetRequest struct {
	Time string `json:"time"`
}

// handleWakeUpArm implements POST /scheduler/wake-up (spec 4.7).
func (s *server) handleWakeUpArm(w http.ResponseWriter, r *http.Request) {
	var body wakeUpSetRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "validation_error", "malformed request body", nil)
		return
	}

	status, err := s.deps.WakeUp.Set(r.Context(), body.Time)
	if err != nil {
		writeMappedError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, status)
}

// handleWakeUpDisarm implements DELETE /scheduler/wake-up (spec 4.7).
func (s *server) handleWakeUpDisarm(w http.ResponseWriter, r *http.Request) {
	status, err := s.deps.WakeUp.Disable(r.Context())
	if err != nil {
		writeMappedError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, status)
}

// handleWakeUpStatus implements GET /scheduler/wake-up/status (spec 4.7).
func (s *server) handleWakeUpStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.deps.WakeUp.Status()
	if err != nil {
		writeMappedError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, status)
}
