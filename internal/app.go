// Package internal provides the App struct that wires all components of the
// DeskPilot controller together and initializes the CLI layer.
package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/deskpilot/deskpilot/internal/cli"
	"github.com/deskpilot/deskpilot/internal/core"
	"github.com/deskpilot/deskpilot/internal/integration"
	"github.com/deskpilot/deskpilot/internal/observability"
	"github.com/deskpilot/deskpilot/internal/storage"
	"github.com/deskpilot/deskpilot/pkg/models"
)

// App holds all service dependencies for the DeskPilot controller.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    models.Config

	// Storage layer
	TaskStore  storage.TaskStoreManager
	TimerStore storage.TimerStoreManager

	// Core services
	Orchestrator *core.Orchestrator

	// Integration services
	Launcher  *integration.LaunchHelper
	Inhibitor *integration.SleepInhibitor

	// Observability
	EventLog observability.EventLog
}

// NewApp creates and wires all components of the DeskPilot controller.
// basePath is the root directory where all data is stored (typically the
// directory containing .dpconfig).
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = *cfg

	// --- Observability ---
	eventLogPath := filepath.Join(basePath, ".dpc_events.jsonl")
	app.EventLog, err = observability.NewJSONLEventLog(eventLogPath)
	if err != nil {
		// Non-fatal: disable the durable log if the file can't be created.
		app.EventLog = nil
	}
	var sink storage.EventSink
	if app.EventLog != nil {
		sink = app.EventLog
	}

	// --- Storage layer ---
	app.TaskStore = storage.NewTaskStoreManager(basePath, nil, sink)
	_ = app.TaskStore.Load() // Non-fatal: defaults on first use.
	app.TimerStore = storage.NewTimerStoreManager(basePath, sink)
	_ = app.TimerStore.Load() // Non-fatal: empty list on first use.

	// --- Integration services ---
	configFn := func() models.Config { return app.Config }
	app.Launcher = &integration.LaunchHelper{Config: configFn}
	app.Inhibitor = integration.NewSleepInhibitor()

	// --- Core services ---
	var events core.EventLogger
	if app.EventLog != nil {
		events = app.EventLog
	}
	app.Orchestrator = core.NewOrchestrator(core.Options{
		Factory: func(onMessage func(models.EngineMessage)) (core.EngineHandle, error) {
			return integration.DialEngine(app.Config.EngineSocket, onMessage)
		},
		Launcher:       app.Launcher,
		Tasks:          &taskListAdapter{store: app.TaskStore},
		Config:         configFn,
		OnStatusChange: app.Inhibitor.BindStatus(),
		Events:         events,
	})

	// --- Wire CLI package-level variables ---
	cli.Orchestrator = app.Orchestrator
	cli.ConfigMgr = app.ConfigMgr
	cli.TaskStore = app.TaskStore
	cli.TimerStore = app.TimerStore
	cli.EventLog = app.EventLog

	return app, nil
}

// Close releases resources held by the App: the sleep blocker, the callback
// drain goroutine, and the event log file handle.
func (a *App) Close() error {
	if a.Inhibitor != nil {
		_ = a.Inhibitor.End()
	}
	if a.Orchestrator != nil {
		a.Orchestrator.Close()
	}
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the base path for the DeskPilot data directory.
// It checks the DPC_HOME env var, then walks up from the current directory
// looking for .dpconfig, and falls back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv("DPC_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".dpconfig")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}

// --- Adapters ---

// taskListAdapter adapts storage.TaskStoreManager to core.TaskList.
type taskListAdapter struct {
	store storage.TaskStoreManager
}

func (a *taskListAdapter) Entries() []core.TaskListEntry {
	entries := a.store.All()
	out := make([]core.TaskListEntry, len(entries))
	for i, e := range entries {
		out[i] = core.TaskListEntry{ID: e.ID, Task: e.Task}
	}
	return out
}
