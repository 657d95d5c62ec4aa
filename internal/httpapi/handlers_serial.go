package httpapi

import "net/http"

// handleArduinoReconnect implements POST /arduino/reconnect (spec 4.5).
func (s *server) handleArduinoReconnect(w http.ResponseWriter, r *http.Request) {
	status, err := s.deps.Serial.Reconnect()
	if err != nil {
		writeMappedError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, status)
}
