package cli

import (
	"github.com/deskpilot/deskpilot/internal/core"
	"github.com/deskpilot/deskpilot/internal/observability"
	"github.com/deskpilot/deskpilot/internal/storage"
)

// Service instances, set during app initialization in app.go.
var (
	Orchestrator *core.Orchestrator
	ConfigMgr    core.ConfigurationManager
	TaskStore    storage.TaskStoreManager
	TimerStore   storage.TimerStoreManager
	EventLog     observability.EventLog
)
