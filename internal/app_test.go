package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/deskpilot/deskpilot/internal/cli"
	"github.com/deskpilot/deskpilot/pkg/models"
)

func TestNewAppWiresServices(t *testing.T) {
	dir := t.TempDir()

	app, err := NewApp(dir)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })

	if app.TaskStore == nil || app.TimerStore == nil || app.Orchestrator == nil {
		t.Fatal("services not constructed")
	}
	if len(app.TaskStore.All()) == 0 {
		t.Error("task store not loaded with defaults")
	}
	if app.Orchestrator.Status() != models.StatusIdle {
		t.Errorf("status = %s, want idle", app.Orchestrator.Status())
	}

	if cli.Orchestrator != app.Orchestrator || cli.TaskStore != app.TaskStore {
		t.Error("CLI package variables not wired")
	}

	if _, err := os.Stat(filepath.Join(dir, ".dpc_events.jsonl")); err != nil {
		t.Errorf("event log not created: %v", err)
	}
}

func TestNewAppRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	content := "client:\n  channel: steam\n"
	if err := os.WriteFile(filepath.Join(dir, ".dpconfig"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewApp(dir); err == nil {
		t.Fatal("expected validation error for unknown channel")
	}
}

func TestResolveBasePath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DPC_HOME", dir)
	if got := ResolveBasePath(); got != dir {
		t.Errorf("ResolveBasePath() = %s, want %s", got, dir)
	}

	t.Setenv("DPC_HOME", "")
	nested := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(nested, 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".dpconfig"), []byte("{}\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := os.Chdir(nested); err != nil {
		t.Fatal(err)
	}

	got := ResolveBasePath()
	resolved, _ := filepath.EvalSymlinks(got)
	want, _ := filepath.EvalSymlinks(dir)
	if resolved != want {
		t.Errorf("ResolveBasePath() = %s, want %s", resolved, want)
	}
}
