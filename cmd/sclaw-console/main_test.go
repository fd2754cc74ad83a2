package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/flemzord/sclaw-console/internal/confdoc"
)

func TestRootCmd_Subcommands(t *testing.T) {
	t.Parallel()

	var names []string
	for _, c := range rootCmd().Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"version", "serve", "status", "config", "providers", "approvals", "cron", "history", "call"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing subcommand %q in %v", want, names)
		}
	}
}

func TestEncodeDocument(t *testing.T) {
	t.Parallel()

	doc := confdoc.Document{"gateway": map[string]any{"port": float64(18789)}}

	js, err := encodeDocument(doc, "json")
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	want := "{\n  \"gateway\": {\n    \"port\": 18789\n  }\n}\n"
	if diff := cmp.Diff(want, string(js)); diff != "" {
		t.Errorf("json mismatch (-want +got):\n%s", diff)
	}

	y, err := encodeDocument(doc, "yaml")
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if diff := cmp.Diff("gateway:\n    port: 18789\n", string(y)); diff != "" {
		t.Errorf("yaml mismatch (-want +got):\n%s", diff)
	}

	if _, err := encodeDocument(doc, "toml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestParseValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want any
	}{
		{"18789", float64(18789)},
		{"true", true},
		{`{"mode":"local"}`, map[string]any{"mode": "local"}},
		{"loopback", "loopback"},
		{`"quoted"`, "quoted"},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, parseValue(tt.raw)); diff != "" {
			t.Errorf("parseValue(%q) mismatch (-want +got):\n%s", tt.raw, diff)
		}
	}
}

func TestConfigCheck(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(good, []byte("version: \"1\"\ngateway:\n  url: ws://10.0.0.5:18789/ws\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("version: \"2\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	run := func(path string) (string, error) {
		root := rootCmd()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs([]string{"config", "check", path})
		err := root.Execute()
		return out.String(), err
	}

	out, err := run(good)
	if err != nil {
		t.Fatalf("check good: %v", err)
	}
	if !strings.Contains(out, "ws://10.0.0.5:18789/ws") {
		t.Errorf("output %q does not mention the gateway url", out)
	}
	if _, err := run(bad); err == nil {
		t.Error("expected error for unsupported version")
	}
}
