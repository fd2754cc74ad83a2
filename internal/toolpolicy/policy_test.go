package toolpolicy

import (
	"errors"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIsDenied_GroupDeniesEveryMember(t *testing.T) {
	t.Parallel()

	global := Policy{Deny: []string{}}
	agent := Policy{Deny: []string{"group:fs"}}
	eff := Effective(global, agent)

	var denied []string
	for _, tool := range KnownTools() {
		if IsDenied(eff, tool) {
			denied = append(denied, tool)
		}
	}
	slices.Sort(denied)
	want := []string{"apply_patch", "edit", "read", "write"}
	if diff := cmp.Diff(want, denied); diff != "" {
		t.Errorf("denied tools mismatch (-want +got):\n%s", diff)
	}
}

func TestIsDenied_Literal(t *testing.T) {
	t.Parallel()

	p := Policy{Deny: []string{"exec", " Browser "}}
	tests := []struct {
		tool string
		want bool
	}{
		{"exec", true},
		{"bash", true},
		{"browser", true},
		{"process", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsDenied(p, tt.tool); got != tt.want {
			t.Errorf("IsDenied(%q) = %v, want %v", tt.tool, got, tt.want)
		}
	}
}

func TestIsDenied_Wildcard(t *testing.T) {
	t.Parallel()

	p := Policy{Deny: []string{"*"}}
	if !IsDenied(p, "read") {
		t.Error("read should be denied by *")
	}
	entry, ok := DeniedBy(p, "message")
	if !ok || entry != "*" {
		t.Errorf("DeniedBy(message) = %q, %v; want \"*\", true", entry, ok)
	}
}

func TestIsDenied_Deterministic(t *testing.T) {
	t.Parallel()

	eff := Effective(Policy{Deny: []string{"exec"}}, Policy{Deny: []string{"group:web", "cron"}})
	first := map[string]bool{}
	for _, tool := range KnownTools() {
		first[tool] = IsDenied(eff, tool)
	}
	tools := KnownTools()
	slices.Reverse(tools)
	for range 3 {
		for _, tool := range tools {
			if got := IsDenied(eff, tool); got != first[tool] {
				t.Fatalf("IsDenied(%q) changed between calls: %v then %v", tool, first[tool], got)
			}
		}
	}
}

func TestEffective_FieldByField(t *testing.T) {
	t.Parallel()

	global := Policy{Profile: ProfileCoding, Allow: []string{"read"}, Deny: []string{"exec"}}
	agent := Policy{Deny: []string{"write"}}

	got := Effective(global, agent)
	want := Policy{Profile: ProfileCoding, Allow: []string{"read"}, Deny: []string{"write"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Effective() mismatch (-want +got):\n%s", diff)
	}
}

func TestEffective_EmptyAgentListOverrides(t *testing.T) {
	t.Parallel()

	got := Effective(Policy{Deny: []string{"exec"}}, Policy{Deny: []string{}})
	if got.Deny == nil || len(got.Deny) != 0 {
		t.Errorf("Deny = %#v, want explicit empty list", got.Deny)
	}
	if IsDenied(got, "exec") {
		t.Error("exec should not be denied once the agent clears deny")
	}
}

func TestEffective_DoesNotAlias(t *testing.T) {
	t.Parallel()

	global := Policy{Deny: []string{"exec"}}
	eff := Effective(global, Policy{})
	eff.Deny[0] = "read"
	if global.Deny[0] != "exec" {
		t.Errorf("global deny mutated: %v", global.Deny)
	}
}

func TestIsAllowed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    Policy
		tool string
		want bool
	}{
		{"unrestricted", Policy{}, "browser", true},
		{"full profile", Policy{Profile: ProfileFull}, "browser", true},
		{"coding includes fs", Policy{Profile: ProfileCoding}, "edit", true},
		{"coding excludes browser", Policy{Profile: ProfileCoding}, "browser", false},
		{"alsoAllow extends profile", Policy{Profile: ProfileCoding, AlsoAllow: []string{"browser"}}, "browser", true},
		{"deny wins over profile", Policy{Profile: ProfileCoding, Deny: []string{"group:runtime"}}, "exec", false},
		{"allow list restricts", Policy{Allow: []string{"read"}}, "write", false},
		{"allow star", Policy{Allow: []string{"*"}}, "write", true},
		{"minimal", Policy{Profile: ProfileMinimal}, "session_status", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsAllowed(tt.p, tt.tool); got != tt.want {
				t.Errorf("IsAllowed(%q) = %v, want %v", tt.tool, got, tt.want)
			}
		})
	}
}

func TestToggleTool(t *testing.T) {
	t.Parallel()

	deny, err := ToggleTool(nil, "exec", false)
	if err != nil {
		t.Fatalf("ToggleTool: %v", err)
	}
	if diff := cmp.Diff([]string{"exec"}, deny); diff != "" {
		t.Errorf("disable mismatch (-want +got):\n%s", diff)
	}

	deny, err = ToggleTool(deny, "exec", false)
	if err != nil {
		t.Fatalf("ToggleTool: %v", err)
	}
	if len(deny) != 1 {
		t.Errorf("disabling twice should not duplicate: %v", deny)
	}

	deny, err = ToggleTool(deny, "Exec", true)
	if err != nil {
		t.Fatalf("ToggleTool: %v", err)
	}
	if deny == nil || len(deny) != 0 {
		t.Errorf("enable: got %#v, want empty non-nil list", deny)
	}

	if _, err := ToggleTool(nil, "  ", false); !errors.Is(err, ErrEmptyToolName) {
		t.Errorf("blank tool: got %v, want ErrEmptyToolName", err)
	}
}

func TestToggleGroup(t *testing.T) {
	t.Parallel()

	deny, err := ToggleGroup([]string{"exec"}, "fs", false)
	if err != nil {
		t.Fatalf("ToggleGroup: %v", err)
	}
	if diff := cmp.Diff([]string{"exec", "group:fs"}, deny); diff != "" {
		t.Errorf("disable mismatch (-want +got):\n%s", diff)
	}

	deny, err = ToggleGroup(deny, "group:fs", true)
	if err != nil {
		t.Fatalf("ToggleGroup: %v", err)
	}
	if diff := cmp.Diff([]string{"exec"}, deny); diff != "" {
		t.Errorf("enable mismatch (-want +got):\n%s", diff)
	}

	if _, err := ToggleGroup(nil, "group:nope", false); !errors.Is(err, ErrUnknownGroup) {
		t.Errorf("unknown group: got %v, want ErrUnknownGroup", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	if err := Validate(Policy{Profile: ProfileCoding, Deny: []string{"group:fs", "exec"}}); err != nil {
		t.Errorf("valid policy: %v", err)
	}

	err := Validate(Policy{Profile: "turbo", Deny: []string{"group:nope", ""}})
	if !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("expected ErrUnknownProfile in %v", err)
	}
	if !errors.Is(err, ErrUnknownGroup) {
		t.Errorf("expected ErrUnknownGroup in %v", err)
	}
	if !errors.Is(err, ErrEmptyToolName) {
		t.Errorf("expected ErrEmptyToolName in %v", err)
	}
}

func TestFromMapToMap(t *testing.T) {
	t.Parallel()

	m := map[string]any{
		"profile": "coding",
		"deny":    []any{"group:fs"},
		"allow":   []any{},
		"byProvider": map[string]any{
			"openai": map[string]any{"deny": []any{"exec"}},
		},
	}
	p := FromMap(m)
	if p.Profile != ProfileCoding {
		t.Errorf("Profile: got %q, want %q", p.Profile, ProfileCoding)
	}
	if p.Allow == nil || len(p.Allow) != 0 {
		t.Errorf("Allow: got %#v, want explicit empty list", p.Allow)
	}
	if p.AlsoAllow != nil {
		t.Errorf("AlsoAllow: got %#v, want unset", p.AlsoAllow)
	}

	p.Profile = ""
	p.Deny = []string{"exec"}
	p.WriteTo(m)
	if _, ok := m["profile"]; ok {
		t.Error("profile should be removed once unset")
	}
	if _, ok := m["byProvider"]; !ok {
		t.Error("unrelated keys must survive WriteTo")
	}
	if diff := cmp.Diff([]any{"exec"}, m["deny"]); diff != "" {
		t.Errorf("deny mismatch (-want +got):\n%s", diff)
	}
}

func TestPermissions(t *testing.T) {
	t.Parallel()

	perms := Permissions(Policy{Deny: []string{"group:ui"}})
	for _, p := range perms {
		if p.Tool == "browser" {
			if p.Allowed || p.DeniedBy != "group:ui" || p.Group != "group:ui" {
				t.Errorf("browser: got %+v", p)
			}
		}
		if p.Tool == "read" && !p.Allowed {
			t.Errorf("read: got %+v", p)
		}
	}
}
