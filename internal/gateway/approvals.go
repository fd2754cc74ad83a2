package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/sclaw-console/internal/approvals"
	"github.com/flemzord/sclaw-console/internal/confdoc"
)

// approvalsResponse is the redacted view of the selected approvals file.
type approvalsResponse struct {
	Target approvals.Target `json:"target"`
	Loaded bool             `json:"loaded"`
	Path   string           `json:"path,omitempty"`
	Hash   string           `json:"hash,omitempty"`
	Dirty  bool             `json:"dirty"`
	Agents []string         `json:"agents"`
	File   confdoc.Document `json:"file"`
}

func (s *Server) approvalsView() approvalsResponse {
	store := s.opts.Session.Approvals
	agents := store.Agents()
	if agents == nil {
		agents = []string{}
	}
	return approvalsResponse{
		Target: store.Target(),
		Loaded: store.Loaded(),
		Path:   store.Path(),
		Hash:   store.Hash(),
		Dirty:  store.IsDirty(),
		Agents: agents,
		File:   s.opts.Redactor.RedactDocument(store.File()),
	}
}

func (s *Server) handleGetApprovals() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, s.approvalsView())
	}
}

// handleSelectApprovals switches the target and loads its file.
func (s *Server) handleSelectApprovals() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var target approvals.Target
		if err := decodeBody(r, &target); err != nil {
			writeError(w, err)
			return
		}
		if err := target.Validate(); err != nil {
			writeError(w, err)
			return
		}
		store := s.opts.Session.Approvals
		if err := store.SetTarget(target); err != nil {
			writeError(w, err)
			return
		}
		if err := store.Load(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.approvalsView())
	}
}

func (s *Server) handleSaveApprovals() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.opts.Session.Approvals.Save(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.approvalsView())
	}
}

func (s *Server) handleAddApprovalsAgent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.opts.Session.Approvals.AddAgent(chi.URLParam(r, "agent")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}
}

func (s *Server) handleRemoveApprovalsAgent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.opts.Session.Approvals.RemoveAgent(chi.URLParam(r, "agent")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleAddAllowlist() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Pattern string `json:"pattern"`
		}
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		entry, err := s.opts.Session.Approvals.AddAllowlistEntry(chi.URLParam(r, "agent"), req.Pattern)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	}
}

func (s *Server) handleRemoveAllowlist() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := approvals.ParseIndex(chi.URLParam(r, "index"))
		if err != nil {
			writeError(w, err)
			return
		}
		if err := s.opts.Session.Approvals.RemoveAllowlistEntry(chi.URLParam(r, "agent"), index); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleResolveApprovals() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := s.opts.Session.Approvals
		if !store.Loaded() {
			writeError(w, approvals.ErrNotLoaded)
			return
		}
		writeJSON(w, http.StatusOK, store.Resolve(chi.URLParam(r, "agent")))
	}
}

// handlePatchApprovalsPath sets a dotted path of the approvals file, e.g.
// "defaults.security" or "agents.*.ask".
func (s *Server) handlePatchApprovalsPath() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodePath(r)
		if err != nil {
			writeError(w, err)
			return
		}
		noContent(w, s.opts.Session.Approvals.Patch(req.Value, confdoc.ParsePath(req.Path)...))
	}
}

func (s *Server) handleRemoveApprovalsPath() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := queryPath(r)
		if err != nil {
			writeError(w, err)
			return
		}
		noContent(w, s.opts.Session.Approvals.Remove(confdoc.ParsePath(p)...))
	}
}
