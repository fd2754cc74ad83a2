package gateway

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/sclaw-console/internal/rpc"
)

// NarrowOps applies one setting on the gateway at once, outside the draft
// and save cycle. The loaded snapshot is not refreshed; a later save that
// overlaps the change fails with a stale hash.
type NarrowOps interface {
	UpdateSkill(ctx context.Context, u rpc.SkillUpdate) error
	UpdateAgentIdentity(ctx context.Context, u rpc.IdentityUpdate) error
	UpdateTools(ctx context.Context, u rpc.ToolsUpdate) error
}

var _ NarrowOps = (*rpc.API)(nil)

func (s *Server) handleLiveSkill() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var u rpc.SkillUpdate
		if err := decodeBody(r, &u); err != nil {
			writeError(w, err)
			return
		}
		u.SkillKey = chi.URLParam(r, "skill")
		s.opts.Redactor.AddLiteral(u.APIKey)
		if err := s.opts.Narrow.UpdateSkill(r.Context(), u); err != nil {
			s.logger.Warn("skills.update failed", "skill", u.SkillKey, "error", err)
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleLiveIdentity() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var identity map[string]any
		if err := decodeBody(r, &identity); err != nil {
			writeError(w, err)
			return
		}
		if len(identity) == 0 {
			writeError(w, errBadRequest)
			return
		}
		u := rpc.IdentityUpdate{AgentID: chi.URLParam(r, "agent"), Identity: identity}
		if err := s.opts.Narrow.UpdateAgentIdentity(r.Context(), u); err != nil {
			s.logger.Warn("agents.identity.update failed", "agent", u.AgentID, "error", err)
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleLiveTool() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Agent   string `json:"agent"`
			Enabled *bool  `json:"enabled"`
		}
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if req.Enabled == nil {
			writeError(w, errBadRequest)
			return
		}
		u := rpc.ToolsUpdate{AgentID: req.Agent, Tool: chi.URLParam(r, "tool"), Enabled: *req.Enabled}
		if err := s.opts.Narrow.UpdateTools(r.Context(), u); err != nil {
			s.logger.Warn("tools.update failed", "tool", u.Tool, "error", err)
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
