package gateway

import (
	"net/http"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status    string `json:"status"` // "ok" or "degraded"
	Loaded    bool   `json:"loaded"`
	Connected *bool  `json:"connected,omitempty"`
}

// handleHealth returns 200 once a configuration snapshot is loaded and
// the gateway connection (when known) is up, 503 otherwise.
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{Status: "ok"}
		_, resp.Loaded = s.opts.Session.Config.Snapshot()
		if !resp.Loaded {
			resp.Status = "degraded"
		}
		if s.opts.Gateway != nil {
			connected := s.opts.Gateway.Connected()
			resp.Connected = &connected
			if !connected {
				resp.Status = "degraded"
			}
		}

		code := http.StatusOK
		if resp.Status == "degraded" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}
