package rpc_test

import (
	"context"
	"errors"
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

func TestClassifyWrite(t *testing.T) {
	t.Parallel()

	transport := &configsync.TransportError{Op: "config.set", Err: errors.New("broken pipe")}
	tests := []struct {
		name      string
		err       error
		stale     bool
		invalid   bool
		transport bool
	}{
		{name: "conflict", err: &rpc.RemoteError{Code: rpc.CodeConflict, Message: "changed"}, stale: true},
		{name: "stale hash", err: &rpc.RemoteError{Code: rpc.CodeStaleHash, Message: "stale"}, stale: true},
		{name: "no issues", err: &rpc.RemoteError{Code: rpc.CodeInvalid, Message: "nope"}, stale: true},
		{
			name: "issues",
			err: &rpc.RemoteError{Code: rpc.CodeInvalid, Message: "invalid", Details: map[string]any{
				"issues": []any{map[string]any{"path": "agents.list", "message": "duplicate id"}},
			}},
			invalid: true,
		},
		{name: "transport", err: transport, transport: true},
		{
			name:      "rejected handshake",
			err:       &configsync.TransportError{Op: rpc.MethodConnect, Err: &rpc.RemoteError{Code: rpc.CodeUnauthorized, Message: "bad token"}},
			transport: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := rpc.ClassifyWrite(tt.err)
			if errors.Is(got, configsync.ErrStaleHash) != tt.stale {
				t.Errorf("stale = %v, want %v (%v)", !tt.stale, tt.stale, got)
			}
			var verr *configsync.ValidationError
			if errors.As(got, &verr) != tt.invalid {
				t.Errorf("validation = %v, want %v (%v)", !tt.invalid, tt.invalid, got)
			}
			var terr *configsync.TransportError
			if errors.As(got, &terr) != tt.transport {
				t.Errorf("transport = %v, want %v (%v)", !tt.transport, tt.transport, got)
			}
		})
	}
}

func TestAPI_ApplyAndPatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gw := rpctest.New(sampleConfig())
	api := rpc.NewAPI(gw)

	err := api.ApplyConfig(ctx, `{"gateway":{"port":1}}`, gw.Hash(), configsync.ApplyOptions{
		RestartDelay: 2 * time.Second,
		Note:         "rotate port",
	})
	if err != nil {
		t.Fatalf("ApplyConfig: %v", err)
	}
	applied := gw.Applied()
	if len(applied) != 1 || applied[0].RestartDelayMs != 2000 || applied[0].Note != "rotate port" {
		t.Errorf("applied = %+v", applied)
	}

	patch := `{"skills":{"entries":{"weather":{"enabled":false}}}}`
	if _, err := api.PatchConfig(ctx, patch, gw.Hash()); err != nil {
		t.Fatalf("PatchConfig: %v", err)
	}
	want := confdoc.Document{
		"gateway": map[string]any{"port": float64(1)},
		"skills":  map[string]any{"entries": map[string]any{"weather": map[string]any{"enabled": false}}},
	}
	if diff := cmp.Diff(want, gw.Document()); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestAPI_ApprovalsTargets(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gw := rpctest.New(sampleConfig())
	api := rpc.NewAPI(gw)
	node := approvals.Target{Kind: approvals.TargetNode, NodeID: "mac-mini"}

	fetched, err := api.GetApprovals(ctx, node)
	if err != nil {
		t.Fatalf("GetApprovals: %v", err)
	}
	file := confdoc.Document{"version": float64(1), "agents": map[string]any{"*": map[string]any{"security": "allowlist"}}}
	hash, err := api.SetApprovals(ctx, node, file, fetched.Hash)
	if err != nil {
		t.Fatalf("SetApprovals: %v", err)
	}
	if hash == fetched.Hash {
		t.Error("hash should change after a write")
	}
	if gw.Calls(rpc.MethodApprovalsNodeSet) != 1 || gw.Calls(rpc.MethodApprovalsSet) != 0 {
		t.Error("node target must use exec.approvals.node.set")
	}
	if diff := cmp.Diff(file, gw.Approvals("node:mac-mini")); diff != "" {
		t.Errorf("node file mismatch (-want +got):\n%s", diff)
	}
	if len(gw.Approvals("gateway")) != 0 {
		t.Error("gateway file must be untouched")
	}

	if _, err := api.SetApprovals(ctx, node, file, fetched.Hash); !errors.Is(err, configsync.ErrStaleHash) {
		t.Errorf("stale write error = %v, want ErrStaleHash", err)
	}
	if _, err := api.GetApprovals(ctx, approvals.Target{Kind: approvals.TargetNode}); !errors.Is(err, approvals.ErrTargetRequired) {
		t.Errorf("missing node id error = %v, want ErrTargetRequired", err)
	}
}

func TestAPI_Cron(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gw := rpctest.New(sampleConfig())
	panel := cron.NewPanel(rpc.NewAPI(gw), nil)

	job := cron.Job{
		Name:          "digest",
		Enabled:       true,
		Schedule:      cron.Schedule{Kind: cron.ScheduleCron, Expr: "0 8 * * *"},
		SessionTarget: cron.TargetIsolated,
		Payload:       cron.Payload{Kind: cron.PayloadAgentTurn, Message: "daily digest"},
	}
	added, err := panel.Add(ctx, job)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := panel.SetEnabled(ctx, added.ID, false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	if err := panel.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	jobs := panel.Jobs()
	if len(jobs) != 1 || jobs[0].Enabled || jobs[0].Schedule.Expr != "0 8 * * *" {
		t.Errorf("jobs = %+v", jobs)
	}

	err = panel.Run(ctx, "job-404")
	var remote *rpc.RemoteError
	if !errors.As(err, &remote) || remote.Code != rpc.CodeNotFound {
		t.Errorf("Run unknown error = %v, want NOT_FOUND", err)
	}
}

func TestAPI_NarrowOperations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gw := rpctest.New(sampleConfig())
	api := rpc.NewAPI(gw)
	enabled := true

	if err := api.UpdateSkill(ctx, rpc.SkillUpdate{SkillKey: "weather", Enabled: &enabled}); err != nil {
		t.Fatalf("UpdateSkill: %v", err)
	}
	if err := api.UpdateTools(ctx, rpc.ToolsUpdate{AgentID: "main", Tool: "exec", Enabled: false}); err != nil {
		t.Fatalf("UpdateTools: %v", err)
	}
	narrow := gw.Narrow()
	var methods []string
	for _, f := range narrow {
		methods = append(methods, f.Method)
	}
	if diff := cmp.Diff([]string{rpc.MethodSkillsUpdate, rpc.MethodToolsUpdate}, methods); diff != "" {
		t.Errorf("methods mismatch (-want +got):\n%s", diff)
	}

	err := gw.Call(ctx, "bogus.method", nil, nil)
	var remote *rpc.RemoteError
	if !errors.As(err, &remote) || remote.Code != rpc.CodeInvalid {
		t.Errorf("unknown method error = %v", err)
	}
}
