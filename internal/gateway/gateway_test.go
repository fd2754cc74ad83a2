package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/flemzord/sclaw-console/internal/confdoc"
	"github.com/flemzord/sclaw-console/internal/config"
	"github.com/flemzord/sclaw-console/internal/configsync"
	"github.com/flemzord/sclaw-console/internal/cron"
	"github.com/flemzord/sclaw-console/internal/security"
	"github.com/flemzord/sclaw-console/internal/toolpolicy"
)

func TestServer_WithoutAuthOnlyServesHealth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	srv := New(Options{HTTP: config.Default().HTTP, Session: env.server.opts.Session, Logger: discardLogger()})
	handler := srv.Handler()

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	wantStatus(t, rr, http.StatusOK)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	wantStatus(t, rr, http.StatusNotFound)
}

func TestServer_RequiresAuth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	for _, path := range []string{"/status", "/metrics", "/api/config"} {
		rr := httptest.NewRecorder()
		env.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without auth = %d, want 401", path, rr.Code)
		}
	}
}

func TestServer_GetConfigRedactsSecrets(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/api/config", nil)
	wantStatus(t, rr, http.StatusOK)

	body := rr.Body.String()
	for _, secret := range []string{"provider-secret-value", "telegram-secret-value"} {
		if strings.Contains(body, secret) {
			t.Errorf("response leaks %q: %s", secret, body)
		}
	}

	resp := decodeJSON[configResponse](t, rr)
	if resp.Hash != env.gw.Hash() {
		t.Errorf("hash = %q, want %q", resp.Hash, env.gw.Hash())
	}
	got, _ := confdoc.Get(resp.Config, "models", "providers", "openai", "apiKey")
	if got != security.RedactPlaceholder {
		t.Errorf("apiKey = %v, want placeholder", got)
	}
	if len(resp.Dirty) != 0 {
		t.Errorf("dirty = %v, want none", resp.Dirty)
	}
}

func TestServer_ProviderEditAndSave(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rr := env.do(t, http.MethodPut, "/api/providers/anthropic", map[string]any{
		"baseUrl": "https://api.anthropic.com",
		"api":     "anthropic-messages",
		"apiKey":  "anthropic-key-value",
	})
	wantStatus(t, rr, http.StatusNoContent)

	resp := decodeJSON[configResponse](t, env.do(t, http.MethodGet, "/api/config", nil))
	if !slices.Contains(resp.Dirty, configsync.DomainProviders) {
		t.Errorf("dirty = %v, want providers", resp.Dirty)
	}

	rr = env.do(t, http.MethodPost, "/api/config/save", nil)
	wantStatus(t, rr, http.StatusOK)

	key, _ := confdoc.Get(env.gw.Document(), "models", "providers", "anthropic", "apiKey")
	if key != "anthropic-key-value" {
		t.Errorf("gateway apiKey = %v", key)
	}

	entries, err := env.history.List(context.Background(), 0)
	if err != nil || len(entries) != 1 || entries[0].Op != configsync.OpSave {
		t.Errorf("history = %+v, %v; want one save entry", entries, err)
	}

	metrics := env.do(t, http.MethodGet, "/metrics", nil).Body.String()
	if !strings.Contains(metrics, `sclaw_console_writes_total{op="save",result="ok"} 1`) {
		t.Errorf("metrics missing save counter:\n%s", metrics)
	}
	if !strings.Contains(metrics, "sclaw_console_dirty_domains 0") {
		t.Errorf("metrics missing dirty gauge:\n%s", metrics)
	}
}

func TestServer_RenameAndDeleteProvider(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	wantStatus(t, env.do(t, http.MethodPost, "/api/providers/openai/rename", map[string]string{"to": "oai"}), http.StatusNoContent)
	wantStatus(t, env.do(t, http.MethodDelete, "/api/providers/openai", nil), http.StatusNotFound)
	wantStatus(t, env.do(t, http.MethodDelete, "/api/providers/oai", nil), http.StatusNoContent)
	wantStatus(t, env.do(t, http.MethodPost, "/api/providers/oai/rename", map[string]string{"to": "x"}), http.StatusNotFound)
}

func TestServer_StaleHashIsConflict(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	wantStatus(t, env.do(t, http.MethodDelete, "/api/channels/telegram", nil), http.StatusNoContent)

	other := env.gw.Document()
	other["gateway"] = map[string]any{"port": float64(19000)}
	env.gw.SetDocument(other)

	rr := env.do(t, http.MethodPost, "/api/config/save", nil)
	wantStatus(t, rr, http.StatusConflict)
	if resp := decodeJSON[errorResponse](t, rr); resp.Code != "stale_hash" {
		t.Errorf("code = %q, want stale_hash", resp.Code)
	}

	// The edit survives the rejection.
	resp := decodeJSON[configResponse](t, env.do(t, http.MethodGet, "/api/config", nil))
	if !slices.Contains(resp.Dirty, configsync.DomainChannels) {
		t.Errorf("dirty = %v, want channels", resp.Dirty)
	}
}

func TestServer_ValidationIssues(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.gw.Validate = func(doc confdoc.Document) []configsync.Issue {
		if _, ok := confdoc.Get(doc, "channels", "telegram", "botToken"); !ok {
			return []configsync.Issue{{Path: "channels.telegram.botToken", Message: "required"}}
		}
		return nil
	}

	rr := env.do(t, http.MethodPatch, "/api/channels/telegram", map[string]any{"botToken": nil})
	wantStatus(t, rr, http.StatusNoContent)

	rr = env.do(t, http.MethodPost, "/api/config/save", nil)
	wantStatus(t, rr, http.StatusUnprocessableEntity)
	resp := decodeJSON[errorResponse](t, rr)
	if len(resp.Issues) != 1 || resp.Issues[0].Path != "channels.telegram.botToken" {
		t.Errorf("issues = %+v", resp.Issues)
	}
}

func TestServer_ApplyUsesRequestDelay(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rr := env.do(t, http.MethodPost, "/api/config/apply", map[string]any{"restart_delay_ms": 500, "note": "rotate keys"})
	wantStatus(t, rr, http.StatusAccepted)

	applied := env.gw.Applied()
	if len(applied) != 1 || applied[0].RestartDelayMs != 500 || applied[0].Note != "rotate keys" {
		t.Errorf("applied = %+v", applied)
	}

	// Apply leaves the snapshot without a hash until reload.
	if resp := decodeJSON[configResponse](t, env.do(t, http.MethodGet, "/api/config", nil)); resp.Hash != "" {
		t.Errorf("hash after apply = %q, want empty", resp.Hash)
	}
	wantStatus(t, env.do(t, http.MethodPost, "/api/config/reload", nil), http.StatusOK)
	if resp := decodeJSON[configResponse](t, env.do(t, http.MethodGet, "/api/config", nil)); resp.Hash != env.gw.Hash() {
		t.Errorf("hash after reload = %q, want %q", resp.Hash, env.gw.Hash())
	}
}

func TestServer_AgentTools(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	wantStatus(t, env.do(t, http.MethodPost, "/api/agents/main/tools/exec", map[string]any{"enabled": false}), http.StatusNoContent)
	wantStatus(t, env.do(t, http.MethodPost, "/api/agents/main/groups/group:web", map[string]any{"enabled": false}), http.StatusNoContent)

	rr := env.do(t, http.MethodGet, "/api/agents/main/tools", nil)
	wantStatus(t, rr, http.StatusOK)
	resp := decodeJSON[toolsResponse](t, rr)

	denied := map[string]bool{}
	for _, p := range resp.Permissions {
		if !p.Allowed {
			denied[p.Tool] = true
		}
	}
	for _, tool := range []string{"exec", "web_search", "web_fetch"} {
		if !denied[tool] {
			t.Errorf("%s should be denied, permissions = %+v", tool, resp.Permissions)
		}
	}
	if !toolpolicy.IsDenied(resp.Effective, "web_fetch") {
		t.Errorf("effective policy %+v should deny web_fetch", resp.Effective)
	}

	wantStatus(t, env.do(t, http.MethodPost, "/api/agents/main/tools/exec", map[string]any{}), http.StatusBadRequest)
	wantStatus(t, env.do(t, http.MethodPost, "/api/agents/main/groups/group:nope", map[string]any{"enabled": true}), http.StatusBadRequest)
	wantStatus(t, env.do(t, http.MethodGet, "/api/agents/ghost/tools", nil), http.StatusNotFound)
}

func TestServer_Approvals(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/approvals", map[string]any{"kind": "node"})
	wantStatus(t, rr, http.StatusPreconditionFailed)

	rr = env.do(t, http.MethodPost, "/api/approvals/agents/main/allowlist", map[string]any{"pattern": "/usr/bin/git"})
	wantStatus(t, rr, http.StatusCreated)
	if entry := decodeJSON[map[string]any](t, rr); entry["id"] != "entry-1" {
		t.Errorf("entry = %v", entry)
	}

	wantStatus(t, env.do(t, http.MethodDelete, "/api/approvals/agents/main/allowlist/5", nil), http.StatusBadRequest)
	wantStatus(t, env.do(t, http.MethodPost, "/api/approvals/save", nil), http.StatusOK)

	pattern, _ := confdoc.Get(env.gw.Approvals("gateway"), "agents", "main", "allowlist")
	if list := confdoc.AsSlice(pattern); len(list) != 1 {
		t.Errorf("gateway allowlist = %v, want one entry", pattern)
	}

	rr = env.do(t, http.MethodGet, "/api/approvals/resolve/main", nil)
	wantStatus(t, rr, http.StatusOK)
	resolved := decodeJSON[map[string]any](t, rr)
	if resolved["security"] != "deny" || len(confdoc.AsSlice(resolved["allowlist"])) != 1 {
		t.Errorf("resolved = %v", resolved)
	}

	view := decodeJSON[approvalsResponse](t, env.do(t, http.MethodGet, "/api/approvals", nil))
	if view.Dirty || !view.Loaded || !slices.Contains(view.Agents, "main") {
		t.Errorf("view = %+v", view)
	}
}

func TestServer_Cron(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/cron", cron.Job{Name: "", Schedule: cron.Schedule{Kind: cron.ScheduleCron, Expr: "bad"}})
	wantStatus(t, rr, http.StatusUnprocessableEntity)

	job := cron.Job{
		Name:          "morning",
		Enabled:       true,
		Schedule:      cron.Schedule{Kind: cron.ScheduleCron, Expr: "0 9 * * 1-5"},
		SessionTarget: cron.TargetMain,
		Payload:       cron.Payload{Kind: cron.PayloadSystemEvent, Text: "good morning"},
	}
	rr = env.do(t, http.MethodPost, "/api/cron", job)
	wantStatus(t, rr, http.StatusCreated)
	created := decodeJSON[cron.Job](t, rr)
	if created.ID == "" {
		t.Fatal("created job has no id")
	}

	jobs := decodeJSON[[]cron.Job](t, env.do(t, http.MethodGet, "/api/cron?refresh=1", nil))
	if len(jobs) != 1 || jobs[0].Name != "morning" {
		t.Errorf("jobs = %+v", jobs)
	}

	wantStatus(t, env.do(t, http.MethodPost, "/api/cron/"+created.ID+"/run", nil), http.StatusAccepted)
	wantStatus(t, env.do(t, http.MethodDelete, "/api/cron/"+created.ID, nil), http.StatusNoContent)
	wantStatus(t, env.do(t, http.MethodDelete, "/api/cron/"+created.ID, nil), http.StatusNotFound)
}

func TestServer_History(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	wantStatus(t, env.do(t, http.MethodDelete, "/api/channels/telegram", nil), http.StatusNoContent)
	wantStatus(t, env.do(t, http.MethodPost, "/api/config/save", nil), http.StatusOK)

	items := decodeJSON[[]historyItem](t, env.do(t, http.MethodGet, "/api/history?limit=5", nil))
	if len(items) != 1 {
		t.Fatalf("items = %+v, want 1", items)
	}

	rr := env.do(t, http.MethodGet, "/api/history/1", nil)
	wantStatus(t, rr, http.StatusOK)
	if strings.Contains(rr.Body.String(), "provider-secret-value") {
		t.Errorf("history detail leaks secret: %s", rr.Body.String())
	}

	wantStatus(t, env.do(t, http.MethodGet, "/api/history/99", nil), http.StatusNotFound)
	wantStatus(t, env.do(t, http.MethodGet, "/api/history?limit=x", nil), http.StatusBadRequest)
}

func TestServer_WriteLimit(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	httpCfg := env.server.opts.HTTP
	httpCfg.WritesPerMinute = 1
	srv := New(Options{HTTP: httpCfg, Session: env.server.opts.Session, Logger: discardLogger()})
	env.handler = srv.Handler()

	wantStatus(t, env.do(t, http.MethodPost, "/api/config/discard", nil), http.StatusOK)
	wantStatus(t, env.do(t, http.MethodPost, "/api/config/discard", nil), http.StatusTooManyRequests)
	// Reads are not limited.
	wantStatus(t, env.do(t, http.MethodGet, "/api/config", nil), http.StatusOK)
}

func TestServer_StartStop(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	httpCfg := env.server.opts.HTTP
	httpCfg.Bind = "127.0.0.1:0"
	srv := New(Options{HTTP: httpCfg, Session: env.server.opts.Session, Logger: discardLogger()})

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := srv.Stop(context.Background()); err != nil {
		t.Errorf("Stop: %v", err)
	}
}
