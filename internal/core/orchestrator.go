// Package core contains the business logic of the DeskPilot controller:
// the session orchestrator and its status state machine, the engine task
// dispatch protocol, and configuration management.
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/deskpilot/deskpilot/pkg/models"
)

// EngineHandle is the contract of the native automation engine. A handle is
// created once per process and may be running or not; it is never recreated
// while running.
type EngineHandle interface {
	Connect(ctx context.Context, adbPath, address, profile string) error
	AppendTask(kind string, paramsJSON string) (int64, error)
	Start() error
	Stop() error
	Running() bool
	GetImage() ([]byte, error)
}

// EngineFactory lazily creates the engine handle. onMessage receives the
// engine's asynchronous callback stream.
type EngineFactory func(onMessage func(models.EngineMessage)) (EngineHandle, error)

// AppLauncher performs the out-of-process launch handshake. A false result
// means the target application could not be started or never became
// reachable; it is an outcome, not an error.
type AppLauncher interface {
	Launch(ctx context.Context, channel models.ClientChannel) bool
}

// TaskListEntry mirrors the task store's entry type. Defined here to keep
// core independent of the storage package.
type TaskListEntry struct {
	ID   string
	Task models.Task
}

// TaskList is the subset of the task store the orchestrator needs.
type TaskList interface {
	Entries() []TaskListEntry
}

// EventLogger receives orchestrator events for the durable event log.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// LogLine is one entry of the session log stream. TaskID is empty for
// global events with no task attribution.
type LogLine struct {
	Time   time.Time
	TaskID string
	Event  models.EngineEvent
	Text   string
}

// Submission records one engine task submission of the current session.
type Submission struct {
	EngineID int64
	TaskID   string
}

// Options carries the orchestrator's injected dependencies.
type Options struct {
	Factory  EngineFactory
	Launcher AppLauncher
	Tasks    TaskList
	Config   func() models.Config

	// OnStatusChange is invoked synchronously on every status transition,
	// while the orchestrator lock is held. Observers must not call back
	// into the orchestrator.
	OnStatusChange func(models.SessionStatus)

	// Events may be nil; orchestrator events are then kept in memory only.
	Events EventLogger
}

// Orchestrator owns the session status state machine and drives the engine
// handle through the task store. All session-scoped state (status, the
// engine-ID map, per-task outcomes, and the log stream) is confined to the
// orchestrator and serialized through its lock; the engine callback stream
// is re-marshalled onto a single drain goroutine so messages apply strictly
// in the order received.
type Orchestrator struct {
	mu       sync.Mutex
	status   models.SessionStatus
	handle   EngineHandle
	taskIDs  map[int64]string
	order    []Submission
	outcomes map[string]models.TaskOutcome
	logLines []LogLine

	factory  EngineFactory
	launcher AppLauncher
	tasks    TaskList
	config   func() models.Config
	onStatus func(models.SessionStatus)
	events   EventLogger

	messages chan models.EngineMessage
	done     chan struct{}
	drained  sync.WaitGroup
}

// NewOrchestrator creates an Orchestrator in the Idle state and starts its
// callback drain goroutine. Call Close to release it.
func NewOrchestrator(opts Options) *Orchestrator {
	o := &Orchestrator{
		status:   models.StatusIdle,
		taskIDs:  make(map[int64]string),
		outcomes: make(map[string]models.TaskOutcome),
		factory:  opts.Factory,
		launcher: opts.Launcher,
		tasks:    opts.Tasks,
		config:   opts.Config,
		onStatus: opts.OnStatusChange,
		events:   opts.Events,
		messages: make(chan models.EngineMessage, 256),
		done:     make(chan struct{}),
	}
	o.drained.Add(1)
	go o.drain()
	return o
}

// Close stops the callback drain goroutine. Messages already enqueued are
// applied before Close returns; messages delivered after Close are dropped.
func (o *Orchestrator) Close() {
	close(o.done)
	o.drained.Wait()
}

// Status returns the current session status.
func (o *Orchestrator) Status() models.SessionStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// setStatusLocked transitions the status and notifies the observer.
// Callers must hold o.mu.
func (o *Orchestrator) setStatusLocked(s models.SessionStatus) {
	if o.status == s {
		return
	}
	o.status = s
	if o.onStatus != nil {
		o.onStatus(s)
	}
}

// transitionPending moves the status to Pending and returns the status that
// held before, for the rollback cleanup.
func (o *Orchestrator) transitionPending() models.SessionStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	prev := o.status
	o.setStatusLocked(models.StatusPending)
	return prev
}

// rollback restores the pre-operation status, but only while the status is
// still Pending: if another operation has already moved it elsewhere the
// newer state stands.
func (o *Orchestrator) rollback(prev models.SessionStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status == models.StatusPending {
		o.setStatusLocked(prev)
	}
}

func (o *Orchestrator) commit(s models.SessionStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.setStatusLocked(s)
}

// ensureSession lazily creates the engine handle and resets all
// session-scoped state. It fails with ErrEngineBusy when the handle reports
// itself already running, which is the sole guard against starting a second
// concurrent engine session. With requireConnect the engine's control
// connection is (re)established from the current configuration.
func (o *Orchestrator) ensureSession(ctx context.Context, requireConnect bool) error {
	o.mu.Lock()
	if o.handle == nil {
		handle, err := o.factory(o.HandleMessage)
		if err != nil {
			o.mu.Unlock()
			return fmt.Errorf("creating engine handle: %w", err)
		}
		o.handle = handle
	}
	handle := o.handle
	o.mu.Unlock()

	if handle.Running() {
		return models.ErrEngineBusy
	}

	o.resetSession()

	if requireConnect {
		cfg := o.config()
		if err := handle.Connect(ctx, cfg.Connection.ADBPath, cfg.Connection.Address, cfg.Connection.Profile); err != nil {
			return fmt.Errorf("connecting engine: %w", err)
		}
	}
	return nil
}

// resetSession clears the log stream, the engine-ID map, and the per-task
// outcomes. Session-scoped state never outlives the next session start.
func (o *Orchestrator) resetSession() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.logLines = nil
	o.taskIDs = make(map[int64]string)
	o.order = nil
	o.outcomes = make(map[string]models.TaskOutcome)
}

func (o *Orchestrator) recordSubmission(engineID int64, stableID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.taskIDs[engineID] = stableID
	o.order = append(o.order, Submission{EngineID: engineID, TaskID: stableID})
}

func (o *Orchestrator) currentHandle() EngineHandle {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.handle
}

func (o *Orchestrator) logEvent(eventType string, data map[string]any) {
	if o.events != nil {
		_ = o.events.LogEvent(eventType, data)
	}
}

// StartTasks runs the task queue: launch handshake for auto-launch Startup
// tasks, session setup, one engine submission per task with a non-empty
// payload (in store order), then engine start. Every failure after the
// Pending transition rolls the status back to its pre-operation value.
func (o *Orchestrator) StartTasks(ctx context.Context) error {
	prev := o.transitionPending()
	defer o.rollback(prev)

	entries := o.tasks.Entries()

	for _, entry := range entries {
		if !entry.Task.AutoLaunch() {
			continue
		}
		if !o.launcher.Launch(ctx, entry.Task.Startup.ClientChannel) {
			o.logEvent("session.launch_failed", map[string]any{"channel": string(entry.Task.Startup.ClientChannel)})
			return models.ErrAppStartFailed
		}
	}

	if err := o.ensureSession(ctx, true); err != nil {
		return err
	}

	handle := o.currentHandle()
	for _, entry := range entries {
		params, ok := entry.Task.Params()
		if !ok {
			continue
		}
		engineID, err := handle.AppendTask(entry.Task.Kind.EngineName(), params)
		if err != nil {
			return fmt.Errorf("submitting %s task: %w", entry.Task.Kind, err)
		}
		o.recordSubmission(engineID, entry.ID)
	}

	if err := handle.Start(); err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}

	o.commit(models.StatusBusy)
	o.logEvent("session.started", map[string]any{"tasks": len(o.Submissions())})
	return nil
}

// runSingle is the uniform skeleton shared by every single-activity
// operation: set Pending, ensure the session, submit one task, start, mark
// Busy. An empty payload is a silent no-op; the deferred rollback returns
// the status to its pre-operation value.
func (o *Orchestrator) runSingle(ctx context.Context, kind string, params string, requireConnect bool) error {
	prev := o.transitionPending()
	defer o.rollback(prev)

	if params == "" {
		return nil
	}

	if err := o.ensureSession(ctx, requireConnect); err != nil {
		return err
	}

	handle := o.currentHandle()
	if _, err := handle.AppendTask(kind, params); err != nil {
		return fmt.Errorf("submitting %s task: %w", kind, err)
	}
	if err := handle.Start(); err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}

	o.commit(models.StatusBusy)
	o.logEvent("session.started", map[string]any{"activity": kind})
	return nil
}

// CopilotOptions configures a copilot run.
type CopilotOptions struct {
	Filename  string `json:"filename"`
	Formation bool   `json:"formation"`
}

// StartCopilot runs a single copilot job. An empty filename yields no
// payload and the operation is a silent no-op.
func (o *Orchestrator) StartCopilot(ctx context.Context, opts CopilotOptions) error {
	params := ""
	if opts.Filename != "" {
		data, err := json.Marshal(opts)
		if err != nil {
			return fmt.Errorf("encoding copilot params: %w", err)
		}
		params = string(data)
	}
	return o.runSingle(ctx, "Copilot", params, true)
}

// RecognizeRecruit runs recruitment tag recognition against the live session.
func (o *Orchestrator) RecognizeRecruit(ctx context.Context) error {
	return o.runSingle(ctx, "Recruit", `{"recognition_only":true}`, true)
}

// RecognizeDepot runs depot inventory recognition.
func (o *Orchestrator) RecognizeDepot(ctx context.Context) error {
	return o.runSingle(ctx, "Depot", `{"enable":true}`, true)
}

// RecognizeOperBox runs operator box recognition.
func (o *Orchestrator) RecognizeOperBox(ctx context.Context) error {
	return o.runSingle(ctx, "OperBox", `{"enable":true}`, true)
}

// RecognizeVideo runs recognition over a local video file. It needs no live
// control connection; an empty path is a silent no-op.
func (o *Orchestrator) RecognizeVideo(ctx context.Context, path string) error {
	params := ""
	if path != "" {
		data, err := json.Marshal(map[string]string{"filename": path})
		if err != nil {
			return fmt.Errorf("encoding video params: %w", err)
		}
		params = string(data)
	}
	return o.runSingle(ctx, "VideoRecognition", params, false)
}

// GachaPoll runs the gacha activity once or ten times.
func (o *Orchestrator) GachaPoll(ctx context.Context, ten bool) error {
	name := "GachaOnce"
	if ten {
		name = "GachaTenTimes"
	}
	params, err := json.Marshal(map[string]any{"task_names": []string{name}})
	if err != nil {
		return fmt.Errorf("encoding gacha params: %w", err)
	}
	return o.runSingle(ctx, "Custom", string(params), true)
}

// Stop halts the engine. A stop failure restores the status that held
// before the call.
func (o *Orchestrator) Stop(ctx context.Context) error {
	prev := o.transitionPending()
	defer o.rollback(prev)

	handle := o.currentHandle()
	if handle == nil {
		o.commit(models.StatusIdle)
		return nil
	}
	if err := handle.Stop(); err != nil {
		return fmt.Errorf("stopping engine: %w", err)
	}

	o.commit(models.StatusIdle)
	o.logEvent("session.stopped", nil)
	return nil
}

// ResetStatus unconditionally forces the status to Idle. It is an escape
// hatch for recovering from an inconsistent state and bypasses the normal
// transition rules.
func (o *Orchestrator) ResetStatus() {
	o.commit(models.StatusIdle)
}

// Screenshot returns the engine's latest frame.
func (o *Orchestrator) Screenshot() ([]byte, error) {
	handle := o.currentHandle()
	if handle == nil {
		return nil, fmt.Errorf("requesting screenshot: %w", models.ErrImageUnavailable)
	}
	return handle.GetImage()
}

// HandleMessage enqueues one engine callback message. Messages are applied
// by the drain goroutine strictly in the order received, never interleaved
// with a coordinator-initiated mutation.
func (o *Orchestrator) HandleMessage(msg models.EngineMessage) {
	select {
	case o.messages <- msg:
	case <-o.done:
	}
}

func (o *Orchestrator) drain() {
	defer o.drained.Done()
	for {
		select {
		case msg := <-o.messages:
			o.apply(msg)
		case <-o.done:
			// Flush what was enqueued before shutdown.
			for {
				select {
				case msg := <-o.messages:
					o.apply(msg)
				default:
					return
				}
			}
		}
	}
}

// apply resolves the message's engine task ID to a stable ID and updates
// the per-task outcome. Messages for unknown engine IDs carry no task
// attribution and land in the log stream only.
func (o *Orchestrator) apply(msg models.EngineMessage) {
	o.mu.Lock()
	line := LogLine{Time: time.Now().UTC(), Event: msg.Event, Text: msg.Text}
	if msg.EngineTaskID != nil {
		if stableID, known := o.taskIDs[*msg.EngineTaskID]; known {
			line.TaskID = stableID
			if outcome, ok := msg.Event.Outcome(); ok {
				o.outcomes[stableID] = outcome
			}
		}
	}
	o.logLines = append(o.logLines, line)
	o.mu.Unlock()

	o.logEvent("engine."+string(msg.Event), map[string]any{"task": line.TaskID, "text": msg.Text})
}

// Log returns a copy of the session log stream.
func (o *Orchestrator) Log() []LogLine {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]LogLine, len(o.logLines))
	copy(out, o.logLines)
	return out
}

// Outcomes returns a copy of the per-task outcomes of the current session.
func (o *Orchestrator) Outcomes() map[string]models.TaskOutcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]models.TaskOutcome, len(o.outcomes))
	for id, outcome := range o.outcomes {
		out[id] = outcome
	}
	return out
}

// Submissions returns the engine submissions of the current session in
// submission order.
func (o *Orchestrator) Submissions() []Submission {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Submission, len(o.order))
	copy(out, o.order)
	return out
}
