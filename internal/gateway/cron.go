package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/sclaw-console/internal/cron"
)

// handleListCron returns the cached jobs. ?refresh=1 or an unloaded panel
// fetches them first.
func (s *Server) handleListCron() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		panel := s.opts.Session.Cron
		if !panel.Loaded() || r.URL.Query().Get("refresh") == "1" {
			if err := panel.Refresh(r.Context()); err != nil {
				writeError(w, err)
				return
			}
		}
		jobs := panel.Jobs()
		if jobs == nil {
			jobs = []cron.Job{}
		}
		writeJSON(w, http.StatusOK, jobs)
	}
}

func (s *Server) handleAddCron() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var job cron.Job
		if err := decodeBody(r, &job); err != nil {
			writeError(w, err)
			return
		}
		created, err := s.opts.Session.Cron.Add(r.Context(), job)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func (s *Server) handleRemoveCron() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.opts.Session.Cron.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleRunCron() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.opts.Session.Cron.Run(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func (s *Server) handleEnableCron() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enabled, err := decodeEnabled(r)
		if err != nil {
			writeError(w, err)
			return
		}
		job, err := s.opts.Session.Cron.SetEnabled(r.Context(), chi.URLParam(r, "id"), enabled)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}
