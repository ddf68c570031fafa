package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != version {
		t.Errorf("version = %q, want %q", got, version)
	}
}

func TestRootCommand_RejectsUnknownLogLevel(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--log-level", "verbose"})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "unknown log level") {
		t.Fatalf("expected unknown log level error, got %v", err)
	}
}

func TestRootCommand_FlagDefaultsFromEnv(t *testing.T) {
	t.Setenv("COUCHBASE_HOST", "cb.internal")
	t.Setenv("PORT", "7000")

	cmd := newRootCmd()
	if got := cmd.Flags().Lookup("couchbase-host").DefValue; got != "cb.internal" {
		t.Errorf("couchbase-host default = %q, want cb.internal", got)
	}
	if got := cmd.Flags().Lookup("port").DefValue; got != "7000" {
		t.Errorf("port default = %q, want 7000", got)
	}
}
