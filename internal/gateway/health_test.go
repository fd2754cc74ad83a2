package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flemzord/sclaw-console/internal/approvals"
	"github.com/flemzord/sclaw-console/internal/configsync"
	"github.com/flemzord/sclaw-console/internal/console"
	"github.com/flemzord/sclaw-console/internal/rpc"
	"github.com/flemzord/sclaw-console/internal/rpc/rpctest"
)

type fakeConn bool

func (c fakeConn) Connected() bool { return bool(c) }

func TestHealth(t *testing.T) {
	t.Parallel()

	loaded := newTestEnv(t).server.opts.Session

	api := rpc.NewAPI(rpctest.New(gatewayDocument()))
	unloaded := console.New(
		configsync.New(api, configsync.Options{Logger: discardLogger()}),
		approvals.New(api, approvals.Options{Logger: discardLogger()}),
		nil,
		discardLogger(),
	)

	tests := []struct {
		name    string
		session *console.Session
		conn    Connectivity
		want    int
		status  string
	}{
		{"loaded", loaded, nil, http.StatusOK, "ok"},
		{"loaded and connected", loaded, fakeConn(true), http.StatusOK, "ok"},
		{"disconnected", loaded, fakeConn(false), http.StatusServiceUnavailable, "degraded"},
		{"not loaded", unloaded, nil, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := New(Options{Session: tt.session, Gateway: tt.conn, Logger: discardLogger()})
			rr := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			wantStatus(t, rr, tt.want)
			if resp := decodeJSON[HealthResponse](t, rr); resp.Status != tt.status {
				t.Errorf("status = %q, want %q", resp.Status, tt.status)
			}
		})
	}
}
