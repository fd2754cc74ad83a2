package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flemzord/sclaw-console/internal/approvals"
	"github.com/flemzord/sclaw-console/internal/confdoc"
	"github.com/flemzord/sclaw-console/internal/config"
	"github.com/flemzord/sclaw-console/internal/configsync"
	"github.com/flemzord/sclaw-console/internal/console"
	"github.com/flemzord/sclaw-console/internal/cron"
	"github.com/flemzord/sclaw-console/internal/history"
	"github.com/flemzord/sclaw-console/internal/rpc"
	"github.com/flemzord/sclaw-console/internal/rpc/rpctest"
)

const testToken = "console-test-token"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func gatewayDocument() confdoc.Document {
	return confdoc.Document{
		"models": map[string]any{"providers": map[string]any{
			"openai": map[string]any{
				"baseUrl": "https://api.openai.com/v1",
				"apiKey":  "provider-secret-value",
				"api":     "openai-completions",
			},
		}},
		"channels": map[string]any{
			"telegram": map[string]any{"enabled": true, "botToken": "telegram-secret-value"},
		},
		"agents": map[string]any{"list": []any{
			map[string]any{"id": "main", "default": true},
		}},
	}
}

type testEnv struct {
	gw      *rpctest.Gateway
	server  *Server
	handler http.Handler
	history *history.MemoryStore
	metrics *Metrics
}

// newTestEnv builds a loaded session against an in-memory gateway and a
// server with bearer auth.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gw := rpctest.New(gatewayDocument())
	api := rpc.NewAPI(gw)
	metrics := NewMetrics()
	hist := history.NewMemoryStore()
	recorder := history.NewRecorder(hist, 10, discardLogger())

	cfgStore := configsync.New(api, configsync.Options{
		Logger:   discardLogger(),
		OnCommit: recorder.OnCommit,
		OnWrite:  metrics.ObserveWrite,
	})
	apprStore := approvals.New(api, approvals.Options{
		Logger:  discardLogger(),
		OnWrite: metrics.ObserveApprovalsWrite,
		NewID:   func() string { return "entry-1" },
	})
	session := console.New(cfgStore, apprStore, cron.NewPanel(api, discardLogger()), discardLogger())
	if err := session.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	httpCfg := config.Default().HTTP
	httpCfg.Auth.BearerToken = testToken
	srv := New(Options{
		HTTP:    httpCfg,
		Session: session,
		History: hist,
		Metrics: metrics,
		Narrow:  api,
		Version: "test",
		Logger:  discardLogger(),
	})
	return &testEnv{gw: gw, server: srv, handler: srv.Handler(), history: hist, metrics: metrics}
}

// do sends an authenticated request and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeJSON[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func wantStatus(t *testing.T, rr *httptest.ResponseRecorder, code int) {
	t.Helper()
	if rr.Code != code {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, code, rr.Body.String())
	}
}
