package console

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/flemzord/sclaw-console/internal/approvals"
	"github.com/flemzord/sclaw-console/internal/confdoc"
	"github.com/flemzord/sclaw-console/internal/configsync"
	"github.com/flemzord/sclaw-console/internal/cron"
	"github.com/flemzord/sclaw-console/internal/rpc"
	"github.com/flemzord/sclaw-console/internal/rpc/rpctest"
)

func gatewayConfig() confdoc.Document {
	return confdoc.Document{
		"gateway": map[string]any{"port": float64(18789)},
		"agents": map[string]any{"list": []any{
			map[string]any{"id": "main", "default": true},
		}},
	}
}

func newSession(t *testing.T, gw *rpctest.Gateway) *Session {
	t.Helper()
	api := rpc.NewAPI(gw)
	s := New(
		configsync.New(api, configsync.Options{}),
		approvals.New(api, approvals.Options{NewID: func() string { return "entry-1" }}),
		cron.NewPanel(api, nil),
		nil,
	)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

// writes filters the gateway log down to write methods.
func writes(gw *rpctest.Gateway) []string {
	var out []string
	for _, m := range gw.Log() {
		switch m {
		case rpc.MethodConfigSet, rpc.MethodConfigApply, rpc.MethodApprovalsSet:
			out = append(out, m)
		}
	}
	return out
}

func TestSession_SaveOrder(t *testing.T) {
	t.Parallel()

	gw := rpctest.New(gatewayConfig())
	s := newSession(t, gw)

	if err := s.Config.SetGatewayField("port", 19000); err != nil {
		t.Fatalf("SetGatewayField: %v", err)
	}
	if _, err := s.Approvals.AddAllowlistEntry("main", "/usr/bin/git"); err != nil {
		t.Fatalf("AddAllowlistEntry: %v", err)
	}
	if !s.IsDirty() {
		t.Fatal("session should be dirty")
	}

	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if diff := cmp.Diff([]string{rpc.MethodApprovalsSet, rpc.MethodConfigSet}, writes(gw)); diff != "" {
		t.Errorf("write order mismatch (-want +got):\n%s", diff)
	}
	if s.IsDirty() {
		t.Error("session should be clean after save")
	}
	if port, _ := confdoc.Get(gw.Document(), "gateway", "port"); port != float64(19000) {
		t.Errorf("gateway port = %v, want 19000", port)
	}
}

func TestSession_SaveOnlyDirtyParts(t *testing.T) {
	t.Parallel()

	gw := rpctest.New(gatewayConfig())
	s := newSession(t, gw)

	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := writes(gw); len(got) != 0 {
		t.Errorf("clean session wrote %v", got)
	}

	if err := s.Approvals.AddAgent(approvals.Wildcard); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if diff := cmp.Diff([]string{rpc.MethodApprovalsSet}, writes(gw)); diff != "" {
		t.Errorf("writes mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_SaveErrorsAreIndependent(t *testing.T) {
	t.Parallel()

	gw := rpctest.New(gatewayConfig())
	s := newSession(t, gw)

	if err := s.Config.SetGatewayField("port", 19000); err != nil {
		t.Fatalf("SetGatewayField: %v", err)
	}
	if err := s.Approvals.AddAgent("main"); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	// Another writer changes the approvals file.
	gw.SetApprovals("gateway", confdoc.Document{"version": float64(1)})

	err := s.Save(context.Background())
	if !errors.Is(err, configsync.ErrStaleHash) {
		t.Fatalf("error = %v, want ErrStaleHash from approvals", err)
	}
	if !s.Approvals.IsDirty() {
		t.Error("approvals draft must survive a rejected save")
	}
	if s.Config.IsDirtyOverall() {
		t.Error("config save should have committed")
	}
}

func TestSession_ApplyAfterApprovalsFailure(t *testing.T) {
	t.Parallel()

	gw := rpctest.New(gatewayConfig())
	s := newSession(t, gw)

	if err := s.Config.SetGatewayField("port", 20000); err != nil {
		t.Fatalf("SetGatewayField: %v", err)
	}
	if err := s.Approvals.AddAgent("main"); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	gw.FailNext(rpc.MethodApprovalsSet, &rpc.RemoteError{Code: rpc.CodeConflict, Message: "changed"})

	err := s.Apply(context.Background(), configsync.ApplyOptions{RestartDelay: time.Second})
	if !errors.Is(err, configsync.ErrStaleHash) {
		t.Fatalf("error = %v, want ErrStaleHash", err)
	}
	applied := gw.Applied()
	if len(applied) != 1 || applied[0].RestartDelayMs != 1000 {
		t.Fatalf("applied = %+v, want one apply with 1000ms delay", applied)
	}
	if !slices.Equal(writes(gw), []string{rpc.MethodApprovalsSet, rpc.MethodConfigApply}) {
		t.Errorf("writes = %v", writes(gw))
	}
	if _, ok := s.Config.Snapshot(); !ok {
		t.Fatal("snapshot should survive apply")
	}
	if st := s.Status(); st.Hash != "" {
		t.Errorf("hash after apply = %q, want empty until reload", st.Hash)
	}
}

func TestSession_LoadJoinsErrors(t *testing.T) {
	t.Parallel()

	gw := rpctest.New(gatewayConfig())
	gw.FailNext(rpc.MethodConfigGet, &rpc.RemoteError{Message: "unavailable"})
	api := rpc.NewAPI(gw)
	s := New(configsync.New(api, configsync.Options{}), approvals.New(api, approvals.Options{}), nil, nil)

	err := s.Load(context.Background())
	var remote *rpc.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("error = %v, want remote error", err)
	}
	if !s.Approvals.Loaded() {
		t.Error("approvals should load even when config fails")
	}
	if s.Status().Loaded {
		t.Error("config should not be loaded")
	}
}

func TestSession_ReloadDropsEdits(t *testing.T) {
	t.Parallel()

	gw := rpctest.New(gatewayConfig())
	s := newSession(t, gw)
	if err := s.Config.SetGatewayField("port", 1); err != nil {
		t.Fatalf("SetGatewayField: %v", err)
	}
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if s.IsDirty() {
		t.Error("reload should drop edits")
	}
}

func TestSession_Status(t *testing.T) {
	t.Parallel()

	gw := rpctest.New(gatewayConfig())
	s := newSession(t, gw)
	if err := s.Config.SetGatewayField("bind", "lan"); err != nil {
		t.Fatalf("SetGatewayField: %v", err)
	}

	st := s.Status()
	if !st.Loaded || st.Hash != gw.Hash() || st.Path != rpctest.ConfigPath {
		t.Errorf("status = %+v", st)
	}
	if diff := cmp.Diff([]configsync.Domain{configsync.DomainGateway}, st.Dirty); diff != "" {
		t.Errorf("dirty mismatch (-want +got):\n%s", diff)
	}
	if st.ApprovalsTarget != "gateway" || !st.ApprovalsLoaded {
		t.Errorf("approvals status = %+v", st)
	}
}
