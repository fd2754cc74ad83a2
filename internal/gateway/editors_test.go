package gateway

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/flemzord/sclaw-console/internal/confdoc"
	"github.com/flemzord/sclaw-console/internal/rpc"
)

// request is one step of an editor scenario.
type request struct {
	method string
	path   string
	body   any
	status int
}

func TestServer_EditorRoutes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		steps []request
		// want maps dotted paths of the saved gateway document to their
		// expected values; nil means absent.
		want map[string]any
	}{
		{
			name: "agents and identity",
			steps: []request{
				{http.MethodPost, "/api/agents", map[string]any{"id": "ops", "fields": map[string]any{"name": "Ops"}}, http.StatusCreated},
				{http.MethodPatch, "/api/agents/ops", map[string]any{"key": "model", "value": "anthropic/claude"}, http.StatusNoContent},
				{http.MethodPost, "/api/agents/ops/default", nil, http.StatusNoContent},
				{http.MethodPatch, "/api/agents/ops/identity", map[string]any{"name": "Ops", "emoji": "🛠"}, http.StatusNoContent},
				{http.MethodPut, "/api/agents/ops/tools/profile", map[string]any{"profile": "coding"}, http.StatusNoContent},
			},
			want: map[string]any{
				"agents.list.0.default": nil,
				"agents.list.1": map[string]any{
					"id":       "ops",
					"name":     "Ops",
					"model":    "anthropic/claude",
					"default":  true,
					"identity": map[string]any{"name": "Ops", "emoji": "🛠"},
					"tools":    map[string]any{"profile": "coding"},
				},
			},
		},
		{
			name: "remove agent",
			steps: []request{
				{http.MethodPost, "/api/agents", map[string]any{"id": "ops"}, http.StatusCreated},
				{http.MethodDelete, "/api/agents/main", nil, http.StatusNoContent},
			},
			want: map[string]any{
				"agents.list": []any{map[string]any{"id": "ops", "default": true}},
			},
		},
		{
			name: "clear agent tools",
			steps: []request{
				{http.MethodPost, "/api/agents/main/tools/exec", map[string]any{"enabled": false}, http.StatusNoContent},
				{http.MethodDelete, "/api/agents/main/tools", nil, http.StatusNoContent},
				{http.MethodPatch, "/api/agents/main", map[string]any{"key": "name", "value": "Main"}, http.StatusNoContent},
			},
			want: map[string]any{
				"agents.list.0": map[string]any{"id": "main", "default": true, "name": "Main"},
			},
		},
		{
			name: "global tools",
			steps: []request{
				{http.MethodPut, "/api/tools/profile", map[string]any{"profile": "minimal"}, http.StatusNoContent},
				{http.MethodPost, "/api/tools/exec", map[string]any{"enabled": false}, http.StatusNoContent},
				{http.MethodPost, "/api/tools/groups/web", map[string]any{"enabled": false}, http.StatusNoContent},
			},
			want: map[string]any{
				"tools": map[string]any{"profile": "minimal", "deny": []any{"exec", "group:web"}},
			},
		},
		{
			name: "replace global policy",
			steps: []request{
				{http.MethodPut, "/api/tools", map[string]any{"profile": "full", "alsoAllow": []string{"canvas"}}, http.StatusNoContent},
			},
			want: map[string]any{
				"tools": map[string]any{"profile": "full", "alsoAllow": []any{"canvas"}},
			},
		},
		{
			name: "settings",
			steps: []request{
				{http.MethodPut, "/api/settings/defaults", map[string]any{"path": "workspace", "value": "~/work"}, http.StatusNoContent},
				{http.MethodPut, "/api/settings/model", map[string]any{"model": "anthropic/claude"}, http.StatusNoContent},
				{http.MethodPut, "/api/settings/gateway", map[string]any{"path": "port", "value": 19000}, http.StatusNoContent},
				{http.MethodPut, "/api/settings/gateway", map[string]any{"path": "bind", "value": "lan"}, http.StatusNoContent},
				{http.MethodDelete, "/api/settings/gateway?path=bind", nil, http.StatusNoContent},
			},
			want: map[string]any{
				"agents.defaults": map[string]any{"workspace": "~/work", "model": map[string]any{"primary": "anthropic/claude"}},
				"gateway":         map[string]any{"port": 19000.0},
			},
		},
		{
			name: "unset defaults and model",
			steps: []request{
				{http.MethodPut, "/api/settings/defaults", map[string]any{"path": "workspace", "value": "~/work"}, http.StatusNoContent},
				{http.MethodPut, "/api/settings/model", map[string]any{"model": "anthropic/claude"}, http.StatusNoContent},
				{http.MethodPost, "/api/config/save", nil, http.StatusOK},
				{http.MethodPut, "/api/settings/model", map[string]any{"model": ""}, http.StatusNoContent},
				{http.MethodDelete, "/api/settings/defaults?path=workspace", nil, http.StatusNoContent},
			},
			want: map[string]any{
				"agents.defaults.workspace": nil,
				"agents.defaults.model":     nil,
			},
		},
		{
			name: "channel fields",
			steps: []request{
				{http.MethodPut, "/api/channels/telegram/fields", map[string]any{"path": "polling.intervalMs", "value": 500}, http.StatusNoContent},
				{http.MethodDelete, "/api/channels/telegram/fields?path=enabled", nil, http.StatusNoContent},
			},
			want: map[string]any{
				"channels.telegram": map[string]any{
					"botToken": "telegram-secret-value",
					"polling":  map[string]any{"intervalMs": 500.0},
				},
			},
		},
		{
			name: "provider fields and models",
			steps: []request{
				{http.MethodPost, "/api/providers/openai/models", map[string]any{"id": "gpt-5", "contextWindow": 400000}, http.StatusCreated},
				{http.MethodPost, "/api/providers/openai/models", map[string]any{"id": "gpt-4o"}, http.StatusCreated},
				{http.MethodPatch, "/api/providers/openai/models/gpt-5", map[string]any{"name": "GPT 5"}, http.StatusNoContent},
				{http.MethodDelete, "/api/providers/openai/models/gpt-4o", nil, http.StatusNoContent},
				{http.MethodPut, "/api/providers/openai/fields", map[string]any{"key": "api", "value": "openai-responses"}, http.StatusNoContent},
			},
			want: map[string]any{
				"models.providers.openai.api": "openai-responses",
				"models.providers.openai.models": []any{
					map[string]any{"id": "gpt-5", "name": "GPT 5", "contextWindow": 400000.0},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			for _, step := range tt.steps {
				rr := env.do(t, step.method, step.path, step.body)
				if rr.Code != step.status {
					t.Fatalf("%s %s = %d, want %d (body %s)", step.method, step.path, rr.Code, step.status, rr.Body.String())
				}
			}
			wantStatus(t, env.do(t, http.MethodPost, "/api/config/save", nil), http.StatusOK)

			doc := env.gw.Document()
			for path, want := range tt.want {
				got, ok := confdoc.Get(doc, confdoc.ParsePath(path)...)
				if want == nil {
					if ok {
						t.Errorf("%s = %v, want absent", path, got)
					}
					continue
				}
				if diff := cmp.Diff(want, got); diff != "" {
					t.Errorf("%s mismatch (-want +got):\n%s", path, diff)
				}
			}
		})
	}
}

func TestServer_EditorErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		before []request
		req    request
	}{
		{name: "reserved agent field", req: request{http.MethodPatch, "/api/agents/main", map[string]any{"key": "tools", "value": nil}, http.StatusBadRequest}},
		{name: "blank agent field", req: request{http.MethodPatch, "/api/agents/main", map[string]any{"value": 1}, http.StatusBadRequest}},
		{name: "duplicate agent", req: request{http.MethodPost, "/api/agents", map[string]any{"id": "main"}, http.StatusBadRequest}},
		{name: "unknown agent", req: request{http.MethodDelete, "/api/agents/ghost", nil, http.StatusNotFound}},
		{name: "identity of unknown agent", req: request{http.MethodPatch, "/api/agents/ghost/identity", map[string]any{"name": "G"}, http.StatusNotFound}},
		{name: "empty identity patch", req: request{http.MethodPatch, "/api/agents/main/identity", map[string]any{}, http.StatusBadRequest}},
		{name: "unknown profile", req: request{http.MethodPut, "/api/agents/main/tools/profile", map[string]any{"profile": "everything"}, http.StatusBadRequest}},
		{name: "unknown global group", req: request{http.MethodPost, "/api/tools/groups/bogus", map[string]any{"enabled": false}, http.StatusBadRequest}},
		{name: "missing enabled", req: request{http.MethodPost, "/api/tools/exec", map[string]any{}, http.StatusBadRequest}},
		{name: "unset without path", req: request{http.MethodDelete, "/api/settings/gateway", nil, http.StatusBadRequest}},
		{name: "set without path", req: request{http.MethodPut, "/api/settings/defaults", map[string]any{"value": 1}, http.StatusBadRequest}},
		{name: "unknown channel", req: request{http.MethodDelete, "/api/channels/slack/fields?path=enabled", nil, http.StatusNotFound}},
		{name: "unknown model", req: request{http.MethodPatch, "/api/providers/openai/models/nope", map[string]any{"name": "x"}, http.StatusNotFound}},
		{name: "model without id", req: request{http.MethodPost, "/api/providers/openai/models", map[string]any{}, http.StatusBadRequest}},
		{name: "field of unknown provider", req: request{http.MethodPut, "/api/providers/zz/fields", map[string]any{"key": "api", "value": "x"}, http.StatusNotFound}},
		{
			name:   "approvals path out of range",
			before: []request{{http.MethodPost, "/api/approvals/agents/main/allowlist", map[string]any{"pattern": "/bin/ls"}, http.StatusCreated}},
			req:    request{http.MethodPatch, "/api/approvals/path", map[string]any{"path": "agents.main.allowlist.3", "value": "x"}, http.StatusBadRequest},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			for _, step := range tt.before {
				wantStatus(t, env.do(t, step.method, step.path, step.body), step.status)
			}
			rr := env.do(t, tt.req.method, tt.req.path, tt.req.body)
			if rr.Code != tt.req.status {
				t.Errorf("%s %s = %d, want %d (body %s)", tt.req.method, tt.req.path, rr.Code, tt.req.status, rr.Body.String())
			}
		})
	}
}

func TestServer_ToolToggleRoundTripStaysClean(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	for _, path := range []string{"/api/agents/main/tools/exec", "/api/agents/main/groups/fs", "/api/tools/exec", "/api/tools/groups/web"} {
		for _, enabled := range []bool{false, true} {
			wantStatus(t, env.do(t, http.MethodPost, path, map[string]any{"enabled": enabled}), http.StatusNoContent)
		}
	}
	resp := decodeJSON[configResponse](t, env.do(t, http.MethodGet, "/api/config", nil))
	if len(resp.Dirty) != 0 {
		t.Errorf("dirty = %v, want none after toggling back", resp.Dirty)
	}
}

func TestServer_SkillsSaveUsesPatch(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	wantStatus(t, env.do(t, http.MethodPost, "/api/skills/weather/enabled", map[string]any{"enabled": true}), http.StatusNoContent)
	wantStatus(t, env.do(t, http.MethodPut, "/api/skills/weather/fields", map[string]any{"key": "apiKey", "value": "weather-secret-value"}), http.StatusNoContent)

	rr := env.do(t, http.MethodGet, "/api/skills", nil)
	wantStatus(t, rr, http.StatusOK)
	if strings.Contains(rr.Body.String(), "weather-secret-value") {
		t.Errorf("skills response leaks the key: %s", rr.Body.String())
	}

	wantStatus(t, env.do(t, http.MethodPost, "/api/skills/save", nil), http.StatusOK)
	if got := env.gw.Calls(rpc.MethodConfigPatch); got != 1 {
		t.Errorf("config.patch calls = %d, want 1", got)
	}
	if got := env.gw.Calls(rpc.MethodConfigSet); got != 0 {
		t.Errorf("config.set calls = %d, want 0", got)
	}
	got, _ := confdoc.Get(env.gw.Document(), "skills", "entries", "weather")
	want := map[string]any{"enabled": true, "apiKey": "weather-secret-value"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("skills mismatch (-want +got):\n%s", diff)
	}

	// Clean skills make the save a no-op.
	wantStatus(t, env.do(t, http.MethodPost, "/api/skills/save", nil), http.StatusOK)
	if got := env.gw.Calls(rpc.MethodConfigPatch); got != 1 {
		t.Errorf("config.patch calls after noop = %d, want 1", got)
	}
}

func TestServer_ApprovalsPath(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	steps := []request{
		{http.MethodPatch, "/api/approvals/path", map[string]any{"path": "agents.*.ask", "value": "always"}, http.StatusNoContent},
		{http.MethodPatch, "/api/approvals/path", map[string]any{"path": "defaults.security", "value": "allowlist"}, http.StatusNoContent},
		{http.MethodDelete, "/api/approvals/path?path=defaults.security", nil, http.StatusNoContent},
		{http.MethodDelete, "/api/approvals/path", nil, http.StatusBadRequest},
	}
	for _, step := range steps {
		rr := env.do(t, step.method, step.path, step.body)
		if rr.Code != step.status {
			t.Fatalf("%s %s = %d, want %d (body %s)", step.method, step.path, rr.Code, step.status, rr.Body.String())
		}
	}
	wantStatus(t, env.do(t, http.MethodPost, "/api/approvals/save", nil), http.StatusOK)

	file := env.gw.Approvals("gateway")
	if ask, _ := confdoc.Get(file, "agents", "*", "ask"); ask != "always" {
		t.Errorf("agents.*.ask = %v, want always", ask)
	}
	if v, ok := confdoc.Get(file, "defaults", "security"); ok {
		t.Errorf("defaults.security = %v, want absent", v)
	}
}

func TestServer_LiveOperations(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	wantStatus(t, env.do(t, http.MethodPost, "/api/live/skills/weather", map[string]any{"enabled": false}), http.StatusNoContent)
	wantStatus(t, env.do(t, http.MethodPost, "/api/live/agents/main/identity", map[string]any{"name": "Main"}), http.StatusNoContent)
	wantStatus(t, env.do(t, http.MethodPost, "/api/live/tools/exec", map[string]any{"agent": "main", "enabled": false}), http.StatusNoContent)
	wantStatus(t, env.do(t, http.MethodPost, "/api/live/tools/exec", map[string]any{}), http.StatusBadRequest)
	wantStatus(t, env.do(t, http.MethodPost, "/api/live/agents/main/identity", map[string]any{}), http.StatusBadRequest)

	var methods []string
	for _, f := range env.gw.Narrow() {
		methods = append(methods, f.Method)
	}
	want := []string{rpc.MethodSkillsUpdate, rpc.MethodAgentIdentityUpdate, rpc.MethodToolsUpdate}
	if diff := cmp.Diff(want, methods); diff != "" {
		t.Errorf("narrow methods mismatch (-want +got):\n%s", diff)
	}

	resp := decodeJSON[configResponse](t, env.do(t, http.MethodGet, "/api/config", nil))
	if len(resp.Dirty) != 0 {
		t.Errorf("live operations must not touch drafts, dirty = %v", resp.Dirty)
	}
}
