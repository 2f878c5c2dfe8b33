// Package mcp provides an MCP (Model Context Protocol) server that exposes
// DeskPilot session control and task management as MCP tools for AI
// assistants.
package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/deskpilot/deskpilot/internal/core"
	"github.com/deskpilot/deskpilot/internal/storage"
	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps DeskPilot services and exposes them as MCP tools.
type Server struct {
	server       *gomcp.Server
	orchestrator *core.Orchestrator
	tasks        storage.TaskStoreManager
}

// NewServer creates a new MCP server with the given service dependencies.
func NewServer(orchestrator *core.Orchestrator, tasks storage.TaskStoreManager, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		orchestrator: orchestrator,
		tasks:        tasks,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "deskpilot", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on the given transport, blocking until the client
// disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type getStatusInput struct{}

type getStatusOutput struct {
	Status   string            `json:"status"`
	Outcomes map[string]string `json:"outcomes,omitempty"`
}

type listTasksInput struct{}

type taskSummary struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Name    string `json:"name,omitempty"`
	Enabled bool   `json:"enabled"`
}

type listTasksOutput struct {
	Tasks []taskSummary `json:"tasks"`
	Count int           `json:"count"`
}

type setTaskEnabledInput struct {
	TaskID  string `json:"task_id" jsonschema:"required,the stable task identifier"`
	Enabled bool   `json:"enabled" jsonschema:"required,whether the task runs in the next session"`
}

type messageOutput struct {
	Message string `json:"message"`
}

type startTasksInput struct{}

type stopSessionInput struct{}

type resetStatusInput struct{}

type sessionLogInput struct {
	Tail int `json:"tail,omitempty" jsonschema:"return only the last N log lines"`
}

type logLineOutput struct {
	Time   string `json:"time"`
	TaskID string `json:"task_id,omitempty"`
	Event  string `json:"event"`
	Text   string `json:"text,omitempty"`
}

type sessionLogOutput struct {
	Lines []logLineOutput `json:"lines"`
	Count int             `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_status",
		Description: "Get the current session status (idle, pending, busy) and the per-task outcomes of the current session.",
	}, s.handleGetStatus)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List the configured automation tasks in execution order.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "set_task_enabled",
		Description: "Enable or disable one configured task by its stable ID.",
	}, s.handleSetTaskEnabled)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "start_tasks",
		Description: "Start an automation session running all enabled tasks in order.",
	}, s.handleStartTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "stop_session",
		Description: "Stop the running automation session.",
	}, s.handleStopSession)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "reset_status",
		Description: "Force the session status back to idle. Use only to recover from an inconsistent state.",
	}, s.handleResetStatus)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "session_log",
		Description: "Read the log stream of the current session, optionally limited to the last N lines.",
	}, s.handleSessionLog)
}

// --- Tool handlers ---

func (s *Server) handleGetStatus(_ context.Context, _ *gomcp.CallToolRequest, _ getStatusInput) (*gomcp.CallToolResult, getStatusOutput, error) {
	out := getStatusOutput{Status: string(s.orchestrator.Status())}

	outcomes := s.orchestrator.Outcomes()
	if len(outcomes) > 0 {
		out.Outcomes = make(map[string]string, len(outcomes))
		for id, outcome := range outcomes {
			out.Outcomes[id] = string(outcome)
		}
	}
	return nil, out, nil
}

func (s *Server) handleListTasks(_ context.Context, _ *gomcp.CallToolRequest, _ listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	entries := s.tasks.All()
	out := listTasksOutput{
		Tasks: make([]taskSummary, len(entries)),
		Count: len(entries),
	}
	for i, e := range entries {
		out.Tasks[i] = taskSummary{
			ID:      e.ID,
			Kind:    string(e.Task.Kind),
			Name:    e.Task.Name,
			Enabled: e.Task.Enabled,
		}
	}
	return nil, out, nil
}

func (s *Server) handleSetTaskEnabled(_ context.Context, _ *gomcp.CallToolRequest, input setTaskEnabledInput) (*gomcp.CallToolResult, messageOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), messageOutput{}, nil
	}
	if err := s.tasks.SetEnabled(input.TaskID, input.Enabled); err != nil {
		return errorResult(fmt.Sprintf("updating task %s: %s", input.TaskID, err)), messageOutput{}, nil
	}
	state := "disabled"
	if input.Enabled {
		state = "enabled"
	}
	return nil, messageOutput{Message: fmt.Sprintf("task %s %s", input.TaskID, state)}, nil
}

func (s *Server) handleStartTasks(ctx context.Context, _ *gomcp.CallToolRequest, _ startTasksInput) (*gomcp.CallToolResult, messageOutput, error) {
	if err := s.orchestrator.StartTasks(ctx); err != nil {
		return errorResult(fmt.Sprintf("starting tasks: %s", err)), messageOutput{}, nil
	}
	return nil, messageOutput{Message: fmt.Sprintf("session started with %d tasks", len(s.orchestrator.Submissions()))}, nil
}

func (s *Server) handleStopSession(ctx context.Context, _ *gomcp.CallToolRequest, _ stopSessionInput) (*gomcp.CallToolResult, messageOutput, error) {
	if err := s.orchestrator.Stop(ctx); err != nil {
		return errorResult(fmt.Sprintf("stopping session: %s", err)), messageOutput{}, nil
	}
	return nil, messageOutput{Message: "session stopped"}, nil
}

func (s *Server) handleResetStatus(_ context.Context, _ *gomcp.CallToolRequest, _ resetStatusInput) (*gomcp.CallToolResult, messageOutput, error) {
	s.orchestrator.ResetStatus()
	return nil, messageOutput{Message: "status reset to idle"}, nil
}

func (s *Server) handleSessionLog(_ context.Context, _ *gomcp.CallToolRequest, input sessionLogInput) (*gomcp.CallToolResult, sessionLogOutput, error) {
	lines := s.orchestrator.Log()
	if input.Tail > 0 && input.Tail < len(lines) {
		lines = lines[len(lines)-input.Tail:]
	}

	out := sessionLogOutput{
		Lines: make([]logLineOutput, len(lines)),
		Count: len(lines),
	}
	for i, l := range lines {
		out.Lines[i] = logLineOutput{
			Time:   l.Time.Format(time.RFC3339),
			TaskID: l.TaskID,
			Event:  string(l.Event),
			Text:   l.Text,
		}
	}
	return nil, out, nil
}

// --- Helpers ---

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
