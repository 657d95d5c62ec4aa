package httpapi

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status           string  `json:"status"`
	ArduinoConnected bool    `json:"arduino_connected"`
	UptimeSeconds    float64 `json:"uptime_s"`
}

// handleHealth implements GET /health (spec 4.5).
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.Serial.Status()
	resp := healthResponse{
		Status:           "ok",
		ArduinoConnected: status.Connected,
		UptimeSeconds:    time.Since(s.deps.StartedAt).Seconds(),
	}
	if !status.Connected {
		resp.Status = "degraded"
	}
	writeData(w, r, http.StatusOK, resp)
}
