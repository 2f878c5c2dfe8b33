package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/deskpilot/deskpilot/internal/core"
	"github.com/deskpilot/deskpilot/internal/storage"
	"github.com/deskpilot/deskpilot/pkg/models"
)

// --- Fake implementations ---

type fakeHandle struct {
	running bool
	nextID  int64
}

func (f *fakeHandle) Connect(context.Context, string, string, string) error { return nil }

func (f *fakeHandle) AppendTask(string, string) (int64, error) {
	f.nextID++
	return f.nextID, nil
}

func (f *fakeHandle) Start() error { f.running = true; return nil }
func (f *fakeHandle) Stop() error  { f.running = false; return nil }
func (f *fakeHandle) Running() bool {
	return f.running
}
func (f *fakeHandle) GetImage() ([]byte, error) { return nil, models.ErrImageUnavailable }

type fakeLauncher struct{}

func (fakeLauncher) Launch(context.Context, models.ClientChannel) bool { return true }

type storeTaskList struct {
	store storage.TaskStoreManager
}

func (s storeTaskList) Entries() []core.TaskListEntry {
	entries := s.store.All()
	out := make([]core.TaskListEntry, len(entries))
	for i, e := range entries {
		out[i] = core.TaskListEntry{ID: e.ID, Task: e.Task}
	}
	return out
}

// --- Test helpers ---

func newTestServer(t *testing.T) (*Server, storage.TaskStoreManager) {
	t.Helper()

	store := storage.NewTaskStoreManager(t.TempDir(), nil, nil)
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}

	orch := core.NewOrchestrator(core.Options{
		Factory: func(func(models.EngineMessage)) (core.EngineHandle, error) {
			return &fakeHandle{}, nil
		},
		Launcher: fakeLauncher{},
		Tasks:    storeTaskList{store: store},
		Config:   func() models.Config { return models.Config{} },
	})
	t.Cleanup(orch.Close)

	return NewServer(orch, store, "test"), store
}

// --- Tests ---

func TestGetStatusTool(t *testing.T) {
	s, _ := newTestServer(t)

	result, out, err := s.handleGetStatus(context.Background(), nil, getStatusInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Fatalf("unexpected tool error: %+v", result)
	}
	if out.Status != string(models.StatusIdle) {
		t.Errorf("status = %s, want idle", out.Status)
	}
}

func TestListTasksTool(t *testing.T) {
	s, store := newTestServer(t)

	result, out, err := s.handleListTasks(context.Background(), nil, listTasksInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Fatalf("unexpected tool error: %+v", result)
	}
	if out.Count != len(store.All()) {
		t.Errorf("count = %d, want %d", out.Count, len(store.All()))
	}
	if out.Count == 0 {
		t.Fatal("default task set expected")
	}
	if out.Tasks[0].Kind != string(models.KindStartup) {
		t.Errorf("first task kind = %s, want startup", out.Tasks[0].Kind)
	}
}

func TestSetTaskEnabledTool(t *testing.T) {
	s, store := newTestServer(t)
	id := store.All()[0].ID

	result, _, err := s.handleSetTaskEnabled(context.Background(), nil, setTaskEnabledInput{TaskID: id, Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Fatalf("unexpected tool error: %+v", result)
	}

	entry, err := store.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Task.Enabled {
		t.Error("task still enabled")
	}

	result, _, _ = s.handleSetTaskEnabled(context.Background(), nil, setTaskEnabledInput{TaskID: "", Enabled: true})
	if result == nil || !result.IsError {
		t.Error("empty task_id must produce a tool error")
	}
	result, _, _ = s.handleSetTaskEnabled(context.Background(), nil, setTaskEnabledInput{TaskID: "missing", Enabled: true})
	if result == nil || !result.IsError {
		t.Error("unknown task_id must produce a tool error")
	}
}

func TestStartStopResetTools(t *testing.T) {
	s, _ := newTestServer(t)

	result, out, err := s.handleStartTasks(context.Background(), nil, startTasksInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Fatalf("unexpected tool error: %+v", result)
	}
	if out.Message == "" {
		t.Error("expected a confirmation message")
	}
	if s.orchestrator.Status() != models.StatusBusy {
		t.Errorf("status = %s, want busy", s.orchestrator.Status())
	}

	result, _, err = s.handleStopSession(context.Background(), nil, stopSessionInput{})
	if err != nil || result != nil {
		t.Fatalf("stop failed: %v %+v", err, result)
	}
	if s.orchestrator.Status() != models.StatusIdle {
		t.Errorf("status = %s, want idle", s.orchestrator.Status())
	}

	result, _, err = s.handleResetStatus(context.Background(), nil, resetStatusInput{})
	if err != nil || result != nil {
		t.Fatalf("reset failed: %v %+v", err, result)
	}
	if s.orchestrator.Status() != models.StatusIdle {
		t.Errorf("status = %s, want idle", s.orchestrator.Status())
	}
}

func TestSessionLogToolTail(t *testing.T) {
	s, _ := newTestServer(t)

	if _, _, err := s.handleStartTasks(context.Background(), nil, startTasksInput{}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		s.orchestrator.HandleMessage(models.EngineMessage{Event: models.EventLog, Text: "line"})
	}

	// The drain loop applies messages asynchronously; poll through the
	// orchestrator until they land.
	waitForLines(t, s, 5)

	_, out, err := s.handleSessionLog(context.Background(), nil, sessionLogInput{Tail: 2})
	if err != nil {
		t.Fatal(err)
	}
	if out.Count != 2 {
		t.Errorf("tail count = %d, want 2", out.Count)
	}
}

func waitForLines(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(s.orchestrator.Log()) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("log lines = %d, want %d", len(s.orchestrator.Log()), n)
}
