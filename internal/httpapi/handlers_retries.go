package httpapi

import "net/http"

// handleRetriesSnapshot implements GET /retries (spec 4.4): the
// in-flight retry-engine tasks plus zombie/timeout counters.
func (s *server) handleRetriesSnapshot(w http.ResponseWriter, r *http.Request) {
	writeData(w, r, http.StatusOK, s.deps.Gateway.Snapshot())
}

// handleCancelAllRetries implements DELETE /retries/all (spec 4.4).
func (s *server) handleCancelAllRetries(w http.ResponseWriter, r *http.Request) {
	cancelled := s.deps.Gateway.CancelAll()
	writeData(w, r, http.StatusOK, map[string]int{"cancelled": cancelled})
}
