package gateway

import (
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/sclaw-console/internal/configsync"
	"github.com/flemzord/sclaw-console/internal/toolpolicy"
)

// fieldRequest sets one key. A null value removes it.
type fieldRequest struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// pathRequest sets a dotted path.
type pathRequest struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

func decodeField(r *http.Request) (fieldRequest, error) {
	var req fieldRequest
	if err := decodeBody(r, &req); err != nil {
		return req, err
	}
	req.Key = strings.TrimSpace(req.Key)
	if req.Key == "" {
		return req, errBadRequest
	}
	return req, nil
}

func decodePath(r *http.Request) (pathRequest, error) {
	var req pathRequest
	if err := decodeBody(r, &req); err != nil {
		return req, err
	}
	req.Path = strings.TrimSpace(req.Path)
	if req.Path == "" {
		return req, errBadRequest
	}
	return req, nil
}

// queryPath reads the dotted path of a DELETE from ?path=.
func queryPath(r *http.Request) (string, error) {
	p := strings.TrimSpace(r.URL.Query().Get("path"))
	if p == "" {
		return "", errBadRequest
	}
	return p, nil
}

// noContent runs an edit and answers 204 on success.
func noContent(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- agents ---

type agentsResponse struct {
	Default string           `json:"default"`
	Agents  []map[string]any `json:"agents"`
}

func (s *Server) handleListAgents() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		store := s.opts.Session.Config
		writeJSON(w, http.StatusOK, agentsResponse{Default: store.DefaultAgent(), Agents: store.Agents()})
	}
}

func (s *Server) handleAddAgent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     string         `json:"id"`
			Fields map[string]any `json:"fields"`
		}
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := s.opts.Session.Config.AddAgent(req.ID, req.Fields); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}
}

func (s *Server) handleRemoveAgent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		noContent(w, s.opts.Session.Config.RemoveAgent(chi.URLParam(r, "id")))
	}
}

func (s *Server) handleSetAgentField() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeField(r)
		if err != nil {
			writeError(w, err)
			return
		}
		noContent(w, s.opts.Session.Config.SetAgentField(chi.URLParam(r, "id"), req.Key, req.Value))
	}
}

func (s *Server) handleSetDefaultAgent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		noContent(w, s.opts.Session.Config.SetDefaultAgent(chi.URLParam(r, "id")))
	}
}

func (s *Server) handleGetIdentity() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := s.opts.Session.Config.Identity(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ident)
	}
}

// handlePatchIdentity sets every key of the body on the agent's identity;
// null or blank values remove the key.
func (s *Server) handlePatchIdentity() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch map[string]any
		if err := decodeBody(r, &patch); err != nil {
			writeError(w, err)
			return
		}
		if len(patch) == 0 {
			writeError(w, errBadRequest)
			return
		}
		id := chi.URLParam(r, "id")
		keys := make([]string, 0, len(patch))
		for k := range patch {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if err := s.opts.Session.Config.SetIdentityField(id, k, patch[k]); err != nil {
				writeError(w, err)
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type profileRequest struct {
	Profile string `json:"profile"`
}

func (s *Server) handleSetAgentProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req profileRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		noContent(w, s.opts.Session.Config.SetAgentProfile(chi.URLParam(r, "id"), strings.TrimSpace(req.Profile)))
	}
}

func (s *Server) handleClearAgentTools() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		noContent(w, s.opts.Session.Config.ClearAgentToolPolicy(chi.URLParam(r, "id")))
	}
}

// --- global tools ---

type globalToolsResponse struct {
	Policy      toolpolicy.Policy       `json:"policy"`
	Permissions []toolpolicy.Permission `json:"permissions"`
}

func (s *Server) handleGlobalTools() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		p := s.opts.Session.Config.GlobalToolPolicy()
		writeJSON(w, http.StatusOK, globalToolsResponse{Policy: p, Permissions: toolpolicy.Permissions(p)})
	}
}

func (s *Server) handlePutGlobalTools() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p toolpolicy.Policy
		if err := decodeBody(r, &p); err != nil {
			writeError(w, err)
			return
		}
		noContent(w, s.opts.Session.Config.SetGlobalToolPolicy(p))
	}
}

func (s *Server) handleSetGlobalProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req profileRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		noContent(w, s.opts.Session.Config.SetGlobalProfile(strings.TrimSpace(req.Profile)))
	}
}

func (s *Server) handleToggleGlobalTool() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enabled, err := decodeEnabled(r)
		if err != nil {
			writeError(w, err)
			return
		}
		noContent(w, s.opts.Session.Config.ToggleGlobalTool(chi.URLParam(r, "tool"), enabled))
	}
}

func (s *Server) handleToggleGlobalGroup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enabled, err := decodeEnabled(r)
		if err != nil {
			writeError(w, err)
			return
		}
		noContent(w, s.opts.Session.Config.ToggleGlobalGroup(chi.URLParam(r, "group"), enabled))
	}
}

// --- settings: agents.defaults and gateway ---

type settingsResponse struct {
	AgentDefaults map[string]any `json:"agent_defaults"`
	Gateway       map[string]any `json:"gateway"`
}

func (s *Server) handleGetSettings() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		store := s.opts.Session.Config
		writeJSON(w, http.StatusOK, settingsResponse{
			AgentDefaults: s.opts.Redactor.RedactDocument(store.AgentDefaults()),
			Gateway:       s.opts.Redactor.RedactDocument(store.Gateway()),
		})
	}
}

func (s *Server) handleSetAgentDefault() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodePath(r)
		if err != nil {
			writeError(w, err)
			return
		}
		noContent(w, s.opts.Session.Config.SetAgentDefault(req.Path, req.Value))
	}
}

func (s *Server) handleUnsetAgentDefault() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := queryPath(r)
		if err != nil {
			writeError(w, err)
			return
		}
		noContent(w, s.opts.Session.Config.UnsetAgentDefault(p))
	}
}

// handleSetModelOverride sets the default primary model; an empty model
// removes the override.
func (s *Server) handleSetModelOverride() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		noContent(w, s.opts.Session.Config.SetModelOverride(req.Model))
	}
}

func (s *Server) handleSetGatewayField() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodePath(r)
		if err != nil {
			writeError(w, err)
			return
		}
		s.opts.Redactor.RegisterDocument(map[string]any{req.Path: req.Value})
		noContent(w, s.opts.Session.Config.SetGatewayField(req.Path, req.Value))
	}
}

func (s *Server) handleUnsetGatewayField() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := queryPath(r)
		if err != nil {
			writeError(w, err)
			return
		}
		noContent(w, s.opts.Session.Config.UnsetGatewayField(p))
	}
}

// --- channel fields ---

func (s *Server) handleSetChannelField() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodePath(r)
		if err != nil {
			writeError(w, err)
			return
		}
		s.opts.Redactor.RegisterDocument(map[string]any{req.Path: req.Value})
		noContent(w, s.opts.Session.Config.SetChannelField(chi.URLParam(r, "id"), req.Path, req.Value))
	}
}

func (s *Server) handleUnsetChannelField() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := queryPath(r)
		if err != nil {
			writeError(w, err)
			return
		}
		noContent(w, s.opts.Session.Config.UnsetChannelField(chi.URLParam(r, "id"), p))
	}
}

// --- provider fields and models ---

func (s *Server) handleSetProviderField() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeField(r)
		if err != nil {
			writeError(w, err)
			return
		}
		s.opts.Redactor.RegisterDocument(map[string]any{req.Key: req.Value})
		noContent(w, s.opts.Session.Config.SetProviderField(chi.URLParam(r, "id"), req.Key, req.Value))
	}
}

func (s *Server) handleAddModel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var model configsync.ModelConfig
		if err := decodeBody(r, &model); err != nil {
			writeError(w, err)
			return
		}
		if err := s.opts.Session.Config.AddModel(chi.URLParam(r, "id"), model); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}
}

// handleUpdateModel deep-merges the body into the model entry.
func (s *Server) handleUpdateModel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch map[string]any
		if err := decodeBody(r, &patch); err != nil {
			writeError(w, err)
			return
		}
		noContent(w, s.opts.Session.Config.UpdateModel(chi.URLParam(r, "id"), chi.URLParam(r, "model"), patch))
	}
}

func (s *Server) handleRemoveModel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		noContent(w, s.opts.Session.Config.RemoveModel(chi.URLParam(r, "id"), chi.URLParam(r, "model")))
	}
}

// --- skills ---

func (s *Server) handleGetSkills() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, s.opts.Redactor.RedactDocument(s.opts.Session.Config.Skills()))
	}
}

func (s *Server) handleSetSkillEnabled() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enabled, err := decodeEnabled(r)
		if err != nil {
			writeError(w, err)
			return
		}
		noContent(w, s.opts.Session.Config.SetSkillEnabled(chi.URLParam(r, "name"), enabled))
	}
}

func (s *Server) handleSetSkillField() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeField(r)
		if err != nil {
			writeError(w, err)
			return
		}
		s.opts.Redactor.RegisterDocument(map[string]any{req.Key: req.Value})
		noContent(w, s.opts.Session.Config.SetSkillField(chi.URLParam(r, "name"), req.Key, req.Value))
	}
}

// handleSaveSkills writes only the skills domain as a merge patch.
func (s *Server) handleSaveSkills() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.opts.Session.Config.SaveSkills(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.opts.Session.Status())
	}
}
