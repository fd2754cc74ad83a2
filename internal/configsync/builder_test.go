package configsync

import (
	"errors"
	"testing"

	"github.com/flemzord/sclaw-console/internal/confdoc"
	"github.com/flemzord/sclaw-console/internal/toolpolicy"
	"github.com/google/go-cmp/cmp"
)

func TestBuildDocument_Preconditions(t *testing.T) {
	t.Parallel()

	if _, err := BuildDocument(nil, nil, nil, nil); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("nil snapshot: got %v, want ErrNoSnapshot", err)
	}
	snap := &Snapshot{Document: confdoc.Document{}}
	if _, err := BuildDocument(snap, Extract(snap.Document), nil, nil); !errors.Is(err, ErrNoHash) {
		t.Errorf("missing hash: got %v, want ErrNoHash", err)
	}
}

func TestBuildDocument_DoesNotMutateSnapshot(t *testing.T) {
	t.Parallel()

	snap := &Snapshot{Document: sampleDocument(), Hash: "h"}
	drafts := Extract(snap.Document)
	drafts.Gateway["port"] = 1.0

	if _, err := BuildDocument(snap, drafts, nil, []Domain{DomainGateway}); err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}
	if got := confdoc.GetMap(snap.Document, "gateway")["port"]; got != 18789.0 {
		t.Errorf("snapshot mutated: port = %v", got)
	}
}

func TestBuildDocument_SanitizesProviders(t *testing.T) {
	t.Parallel()

	snap := &Snapshot{Document: sampleDocument(), Hash: "h"}
	drafts := Extract(snap.Document)
	drafts.Providers["a"] = map[string]any{
		"baseUrl": " https://x ",
		"apiKey":  "",
		"models": []any{map[string]any{
			"id":            "m1",
			"contextWindow": "",
			"maxTokens":     "4096",
			"compat":        map[string]any{"maxTokensField": "tokens"},
		}},
	}

	doc, err := BuildDocument(snap, drafts, nil, []Domain{DomainProviders})
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}
	want := map[string]any{
		"baseUrl": "https://x",
		"models":  []any{map[string]any{"id": "m1", "maxTokens": 4096.0}},
	}
	if diff := cmp.Diff(want, confdoc.GetMap(doc, "models", "providers", "a")); diff != "" {
		t.Errorf("provider mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildDocument_OnlyListedDomains(t *testing.T) {
	t.Parallel()

	snap := &Snapshot{Document: sampleDocument(), Hash: "h"}
	drafts := Extract(snap.Document)
	drafts.Gateway["port"] = 1.0
	drafts.Channels = map[string]any{}

	doc, err := BuildDocument(snap, drafts, nil, []Domain{DomainGateway})
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}
	if _, ok := confdoc.Get(doc, "channels", "telegram"); !ok {
		t.Error("channels were not listed and must be untouched")
	}
	if got, _ := confdoc.Get(doc, "meta", "lastTouched"); got != "2026-01-01" {
		t.Errorf("unknown keys must survive, meta.lastTouched = %v", got)
	}
}

func TestBuildDocument_ReconcileDeletesRemovedKeys(t *testing.T) {
	t.Parallel()

	snap := &Snapshot{Document: sampleDocument(), Hash: "h"}
	baseline := Extract(snap.Document)
	drafts := baseline.Clone()
	delete(drafts.Gateway, "bind")

	doc, err := BuildDocument(snap, drafts, baseline, []Domain{DomainGateway})
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}
	want := map[string]any{"port": 18789.0}
	if diff := cmp.Diff(want, confdoc.GetMap(doc, "gateway")); diff != "" {
		t.Errorf("gateway mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildDocument_AgentSections(t *testing.T) {
	t.Parallel()

	snap := &Snapshot{Document: sampleDocument(), Hash: "h"}
	baseline := Extract(snap.Document)
	drafts := baseline.Clone()

	drafts.Agents = append(drafts.Agents, map[string]any{"id": "new", "name": "New"})
	drafts.AgentTools["ops"] = toolpolicy.Policy{Deny: []string{"exec"}}
	drafts.AgentTools["new"] = toolpolicy.Policy{Profile: toolpolicy.ProfileMinimal}
	delete(drafts.AgentIdentity["ops"], "emoji")
	drafts.GlobalTools = toolpolicy.Policy{Profile: toolpolicy.ProfileCoding}

	doc, err := BuildDocument(snap, drafts, baseline, Domains)
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}

	want := []any{
		map[string]any{"id": "main", "default": true, "name": "Main"},
		map[string]any{
			"id":       "ops",
			"identity": map[string]any{"name": "Ops"},
			"tools": map[string]any{
				"byProvider": map[string]any{"x": true},
				"deny":       []any{"exec"},
			},
		},
		map[string]any{"id": "new", "name": "New", "tools": map[string]any{"profile": "minimal"}},
	}
	got, _ := confdoc.Get(doc, "agents", "list")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("agents.list mismatch (-want +got):\n%s", diff)
	}

	wantTools := map[string]any{"profile": "coding", "web": map[string]any{"search": true}}
	if diff := cmp.Diff(wantTools, confdoc.GetMap(doc, "tools")); diff != "" {
		t.Errorf("tools mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_MissingPathsDefaultEmpty(t *testing.T) {
	t.Parallel()

	d := Extract(confdoc.Document{"agents": "not-an-object", "models": []any{1}})
	if d.Providers == nil || d.AgentDefaults == nil || d.Channels == nil || d.Skills == nil {
		t.Errorf("object projections must default to empty maps: %+v", d)
	}
	if len(d.Agents) != 0 || len(d.AgentTools) != 0 {
		t.Errorf("agents should be empty: %+v", d.Agents)
	}
	if d.GlobalTools.IsSet() {
		t.Errorf("global tools should be unset: %+v", d.GlobalTools)
	}
}
