package cli

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/deskpilot/deskpilot/internal/core"
	"github.com/deskpilot/deskpilot/internal/storage"
	"github.com/deskpilot/deskpilot/pkg/models"
)

// fakeHandle is a minimal engine handle for CLI-level tests.
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
func (f *fakeHandle) GetImage() ([]byte, error) { return []byte{0x89}, nil }

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

// setupServices wires real stores and a fake-backed orchestrator into the
// package-level service variables for the duration of one test.
func setupServices(t *testing.T) {
	t.Helper()
	dir := t.TempDir()

	store := storage.NewTaskStoreManager(dir, nil, nil)
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}
	timers := storage.NewTimerStoreManager(dir, nil)
	if err := timers.Load(); err != nil {
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

	prevOrch, prevTasks, prevTimers := Orchestrator, TaskStore, TimerStore
	Orchestrator, TaskStore, TimerStore = orch, store, timers
	t.Cleanup(func() {
		orch.Close()
		Orchestrator, TaskStore, TimerStore = prevOrch, prevTasks, prevTimers
	})
}

// captureStdout runs fn and returns what it printed.
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w

	runErr := fn()

	_ = w.Close()
	os.Stdout = old
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(out), runErr
}

func TestTaskListCommand(t *testing.T) {
	setupServices(t)

	out, err := captureStdout(t, func() error {
		return taskListCmd.RunE(taskListCmd, nil)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "startup") {
		t.Errorf("default startup task not listed:\n%s", out)
	}
}

func TestTaskAddAndRemoveCommands(t *testing.T) {
	setupServices(t)
	before := len(TaskStore.All())

	taskAddStage = "CE-6"
	taskAddTimes = 3
	defer func() { taskAddStage = ""; taskAddTimes = 0 }()

	out, err := captureStdout(t, func() error {
		return taskAddCmd.RunE(taskAddCmd, []string{"fight"})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Added fight task") {
		t.Errorf("output = %s", out)
	}

	entries := TaskStore.All()
	if len(entries) != before+1 {
		t.Fatalf("task count = %d, want %d", len(entries), before+1)
	}
	added := entries[len(entries)-1]
	if added.Task.Fight == nil || added.Task.Fight.Stage != "CE-6" {
		t.Errorf("fight config = %+v", added.Task.Fight)
	}

	if _, err := captureStdout(t, func() error {
		return taskRemoveCmd.RunE(taskRemoveCmd, []string{added.ID})
	}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(TaskStore.All()) != before {
		t.Error("task not removed")
	}
}

func TestTaskAddRejectsUnknownKind(t *testing.T) {
	setupServices(t)

	_, err := captureStdout(t, func() error {
		return taskAddCmd.RunE(taskAddCmd, []string{"spelunking"})
	})
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestTaskEnableDisableCommands(t *testing.T) {
	setupServices(t)
	id := TaskStore.All()[0].ID

	if _, err := captureStdout(t, func() error {
		return taskDisableCmd.RunE(taskDisableCmd, []string{id})
	}); err != nil {
		t.Fatal(err)
	}
	entry, _ := TaskStore.Get(id)
	if entry.Task.Enabled {
		t.Error("task still enabled")
	}

	if _, err := captureStdout(t, func() error {
		return taskEnableCmd.RunE(taskEnableCmd, []string{id})
	}); err != nil {
		t.Fatal(err)
	}
	entry, _ = TaskStore.Get(id)
	if !entry.Task.Enabled {
		t.Error("task still disabled")
	}
}

func TestTimerCommands(t *testing.T) {
	setupServices(t)

	out, err := captureStdout(t, func() error {
		return timerAddCmd.RunE(timerAddCmd, []string{"07:30"})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "07:30") {
		t.Errorf("output = %s", out)
	}

	timers := TimerStore.All()
	if len(timers) != 1 || timers[0].Hour != 7 || timers[0].Minute != 30 {
		t.Fatalf("timers = %+v", timers)
	}

	if _, err := captureStdout(t, func() error {
		return timerAddCmd.RunE(timerAddCmd, []string{"25:00"})
	}); err == nil {
		t.Error("out-of-range hour must be rejected")
	}
	if _, err := captureStdout(t, func() error {
		return timerAddCmd.RunE(timerAddCmd, []string{"0730"})
	}); err == nil {
		t.Error("missing colon must be rejected")
	}
}

func TestChannelSetCommand(t *testing.T) {
	setupServices(t)

	if _, err := captureStdout(t, func() error {
		return channelSetCmd.RunE(channelSetCmd, []string{"bilibili"})
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, e := range TaskStore.All() {
		if e.Task.Kind == models.KindStartup {
			if e.Task.Startup.ClientChannel != models.ChannelBilibili {
				t.Errorf("startup channel = %s", e.Task.Startup.ClientChannel)
			}
		}
	}

	if _, err := captureStdout(t, func() error {
		return channelSetCmd.RunE(channelSetCmd, []string{"steam"})
	}); err == nil {
		t.Error("unknown channel must be rejected")
	}
}

func TestSessionCommands(t *testing.T) {
	setupServices(t)

	out, err := captureStdout(t, func() error {
		return startCmd.RunE(startCmd, nil)
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.Contains(out, "Session started") {
		t.Errorf("output = %s", out)
	}
	if Orchestrator.Status() != models.StatusBusy {
		t.Errorf("status = %s, want busy", Orchestrator.Status())
	}

	out, err = captureStdout(t, func() error {
		return statusCmd.RunE(statusCmd, nil)
	})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "busy") {
		t.Errorf("status output = %s", out)
	}

	stopCmd.SetContext(context.Background())
	if _, err := captureStdout(t, func() error {
		return stopCmd.RunE(stopCmd, nil)
	}); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if Orchestrator.Status() != models.StatusIdle {
		t.Errorf("status = %s, want idle", Orchestrator.Status())
	}

	if _, err := captureStdout(t, func() error {
		return resetCmd.RunE(resetCmd, nil)
	}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if Orchestrator.Status() != models.StatusIdle {
		t.Errorf("status = %s, want idle", Orchestrator.Status())
	}
}

func TestUninitializedServicesError(t *testing.T) {
	prevOrch, prevTasks, prevTimers := Orchestrator, TaskStore, TimerStore
	Orchestrator, TaskStore, TimerStore = nil, nil, nil
	defer func() { Orchestrator, TaskStore, TimerStore = prevOrch, prevTasks, prevTimers }()

	if err := taskListCmd.RunE(taskListCmd, nil); err == nil {
		t.Error("task list must fail without a store")
	}
	if err := statusCmd.RunE(statusCmd, nil); err == nil {
		t.Error("status must fail without an orchestrator")
	}
	if err := timerListCmd.RunE(timerListCmd, nil); err == nil {
		t.Error("timer list must fail without a store")
	}
}
