package gateway

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/sclaw-console/internal/confdoc"
	"github.com/flemzord/sclaw-console/internal/configsync"
	"github.com/flemzord/sclaw-console/internal/toolpolicy"
)

// configResponse is the redacted view of the session's configuration.
type configResponse struct {
	Path       string              `json:"path,omitempty"`
	Hash       string              `json:"hash,omitempty"`
	Exists     bool                `json:"exists"`
	Valid      bool                `json:"valid"`
	Issues     []configsync.Issue  `json:"issues,omitempty"`
	LoadedAt   time.Time           `json:"loaded_at"`
	Config     confdoc.Document    `json:"config"`
	Dirty      []configsync.Domain `json:"dirty"`
	WriteState string              `json:"write_state"`
}

// handleGetConfig returns the loaded snapshot with secrets redacted.
func (s *Server) handleGetConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		store := s.opts.Session.Config
		snap, ok := store.Snapshot()
		if !ok {
			writeError(w, configsync.ErrNoSnapshot)
			return
		}
		dirty := store.Dirty()
		if dirty == nil {
			dirty = []configsync.Domain{}
		}
		writeJSON(w, http.StatusOK, configResponse{
			Path:       snap.Path,
			Hash:       snap.Hash,
			Exists:     snap.Exists,
			Valid:      snap.Valid,
			Issues:     snap.Issues,
			LoadedAt:   snap.LoadedAt,
			Config:     s.opts.Redactor.RedactDocument(snap.Document),
			Dirty:      dirty,
			WriteState: store.State().String(),
		})
	}
}

func (s *Server) handleReload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.opts.Session.Reload(r.Context()); err != nil {
			s.logger.Error("reload failed", "error", err)
			writeError(w, err)
			return
		}
		if snap, ok := s.opts.Session.Config.Snapshot(); ok {
			s.opts.Redactor.RegisterDocument(snap.Document)
		}
		writeJSON(w, http.StatusOK, s.opts.Session.Status())
	}
}

func (s *Server) handleDiscard() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.opts.Session.Discard()
		writeJSON(w, http.StatusOK, s.opts.Session.Status())
	}
}

func (s *Server) handleSave() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.opts.Session.Save(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.opts.Session.Status())
	}
}

// applyRequest overrides the configured apply options.
type applyRequest struct {
	RestartDelayMs *int64 `json:"restart_delay_ms,omitempty"`
	SessionKey     string `json:"session_key,omitempty"`
	Note           string `json:"note,omitempty"`
}

func (s *Server) handleApply() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req applyRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		opts := s.opts.Apply
		if req.RestartDelayMs != nil {
			if *req.RestartDelayMs < 0 {
				writeError(w, errBadRequest)
				return
			}
			opts.RestartDelay = time.Duration(*req.RestartDelayMs) * time.Millisecond
		}
		if req.SessionKey != "" {
			opts.SessionKey = req.SessionKey
		}
		if req.Note != "" {
			opts.Note = req.Note
		}
		if err := s.opts.Session.Apply(r.Context(), opts); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, s.opts.Session.Status())
	}
}

func (s *Server) handlePutProvider() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var entry map[string]any
		if err := decodeBody(r, &entry); err != nil {
			writeError(w, err)
			return
		}
		if entry == nil {
			writeError(w, errBadRequest)
			return
		}
		if err := s.opts.Session.Config.PutProvider(chi.URLParam(r, "id"), entry); err != nil {
			writeError(w, err)
			return
		}
		s.opts.Redactor.RegisterDocument(entry)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleDeleteProvider() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.opts.Session.Config.RemoveProvider(chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleRenameProvider() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			To string `json:"to"`
		}
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := s.opts.Session.Config.RenameProvider(chi.URLParam(r, "id"), req.To); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handlePatchChannel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch map[string]any
		if err := decodeBody(r, &patch); err != nil {
			writeError(w, err)
			return
		}
		if err := s.opts.Session.Config.PatchChannel(chi.URLParam(r, "id"), patch); err != nil {
			writeError(w, err)
			return
		}
		s.opts.Redactor.RegisterDocument(patch)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleDeleteChannel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.opts.Session.Config.RemoveChannel(chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// toolsResponse describes one agent's tool policy.
type toolsResponse struct {
	Agent       string                  `json:"agent"`
	Policy      toolpolicy.Policy       `json:"policy"`
	Effective   toolpolicy.Policy       `json:"effective"`
	Permissions []toolpolicy.Permission `json:"permissions"`
}

func (s *Server) handleAgentTools() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		store := s.opts.Session.Config

		policy, err := store.AgentToolPolicy(id)
		if err != nil {
			writeError(w, err)
			return
		}
		effective, err := store.EffectiveToolPolicy(id)
		if err != nil {
			writeError(w, err)
			return
		}
		perms, err := store.AgentPermissions(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toolsResponse{
			Agent:       id,
			Policy:      policy,
			Effective:   effective,
			Permissions: perms,
		})
	}
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

func decodeEnabled(r *http.Request) (bool, error) {
	var req enabledRequest
	if err := decodeBody(r, &req); err != nil {
		return false, err
	}
	if req.Enabled == nil {
		return false, errBadRequest
	}
	return *req.Enabled, nil
}

func (s *Server) handleToggleTool() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enabled, err := decodeEnabled(r)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := s.opts.Session.Config.ToggleAgentTool(chi.URLParam(r, "id"), chi.URLParam(r, "tool"), enabled); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleToggleGroup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enabled, err := decodeEnabled(r)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := s.opts.Session.Config.ToggleAgentGroup(chi.URLParam(r, "id"), chi.URLParam(r, "group"), enabled); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
