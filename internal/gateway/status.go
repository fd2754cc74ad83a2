package gateway

import (
	"net/http"
	"time"

	"github.com/flemzord/sclaw-console/internal/console"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Version string         `json:"version,omitempty"`
	Uptime  float64        `json:"uptime_seconds"`
	Session console.Status `json:"session"`
}

func (s *Server) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, StatusResponse{
			Version: s.opts.Version,
			Uptime:  time.Since(s.startedAt).Truncate(time.Second).Seconds(),
			Session: s.opts.Session.Status(),
		})
	}
}

// trackDirty refreshes the dirty gauge after every API request.
func (s *Server) trackDirty(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		n := len(s.opts.Session.Config.Dirty())
		if s.opts.Session.Approvals.IsDirty() {
			n++
		}
		s.opts.Metrics.SetDirty(n)
	})
}
