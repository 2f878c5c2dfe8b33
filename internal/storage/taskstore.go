package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/deskpilot/deskpilot/pkg/models"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// EventSink receives storage-level events (skipped writes, background reload
// failures). It mirrors the observability event log without importing it.
type EventSink interface {
	LogEvent(eventType string, data map[string]any) error
}

// ResourceReloader is notified after a client channel switch so that
// channel-specific resources can be reloaded. The reload runs in the
// background and its failure is reported to the event sink only.
type ResourceReloader interface {
	Reload() error
}

// TaskEntry pairs a task with its stable identifier. Entry order within the
// store is meaningful: it is both submission order and display order.
type TaskEntry struct {
	ID   string      `yaml:"id"`
	Task models.Task `yaml:"task"`
}

// TaskStoreManager defines the interface for the ordered, persisted task queue.
type TaskStoreManager interface {
	Append(task models.Task) (string, error)
	Get(id string) (*TaskEntry, error)
	Update(id string, task models.Task) error
	SetEnabled(id string, enabled bool) error
	Remove(id string) error
	Replace(entries []TaskEntry) error
	All() []TaskEntry
	SetClientChannel(channel models.ClientChannel) error
	Load() error
	Save() error
}

// taskFile is the top-level structure of tasks.yaml.
type taskFile struct {
	Version string      `yaml:"version"`
	Tasks   []TaskEntry `yaml:"tasks"`
}

type fileTaskStore struct {
	mu          sync.Mutex
	basePath    string
	entries     []TaskEntry
	lastWritten []byte
	reloader    ResourceReloader
	events      EventSink
}

// NewTaskStoreManager creates a TaskStoreManager backed by a tasks.yaml file
// in the given base directory. reloader and events may be nil.
func NewTaskStoreManager(basePath string, reloader ResourceReloader, events EventSink) TaskStoreManager {
	return &fileTaskStore{
		basePath: basePath,
		reloader: reloader,
		events:   events,
	}
}

func (s *fileTaskStore) filePath() string {
	return filepath.Join(s.basePath, "tasks.yaml")
}

// defaultEntries is the task set used when no persisted store can be loaded.
func defaultEntries() []TaskEntry {
	tasks := []models.Task{
		{Kind: models.KindStartup, Enabled: true, Startup: &models.StartupConfig{}},
		{Kind: models.KindFight, Enabled: true, Fight: &models.FightConfig{Stage: ""}},
		{Kind: models.KindRecruit, Enabled: true, Recruit: &models.RecruitConfig{Select: []int{4, 5}, Confirm: []int{3, 4, 5}, Times: 4}},
		{Kind: models.KindInfrast, Enabled: true, Infrast: &models.InfrastConfig{Drones: "Money", Threshold: 0.3}},
		{Kind: models.KindMall, Enabled: true, Mall: &models.MallConfig{Shopping: true}},
		{Kind: models.KindAward, Enabled: true, Award: &models.AwardConfig{Award: true}},
	}

	entries := make([]TaskEntry, len(tasks))
	for i, task := range tasks {
		entries[i] = TaskEntry{ID: uuid.NewString(), Task: task}
	}
	return entries
}

// Load reads tasks.yaml. Any failure (missing file, bad YAML, duplicate or
// empty IDs) is recovered by falling back to the default task set; Load never
// returns an error for those cases. tasks.yaml is hand-editable, so loaded
// entries go through the same ID checks and normalization as Replace.
func (s *fileTaskStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath())
	if err != nil {
		s.entries = defaultEntries()
		s.lastWritten = nil
		return nil
	}

	var tf taskFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		s.logEvent("taskstore.load_failed", map[string]any{"error": err.Error()})
		s.entries = defaultEntries()
		s.lastWritten = nil
		return nil
	}

	if err := validateIDs(tf.Tasks); err != nil {
		s.logEvent("taskstore.load_failed", map[string]any{"error": err.Error()})
		s.entries = defaultEntries()
		s.lastWritten = nil
		return nil
	}
	for i := range tf.Tasks {
		tf.Tasks[i].Task.Normalize()
	}

	s.entries = tf.Tasks
	s.lastWritten = data
	return nil
}

// validateIDs rejects entry lists with empty or duplicate stable IDs.
func validateIDs(entries []TaskEntry) error {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("entry with empty ID")
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("duplicate ID %s", e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}

// Save serializes the store and writes it to disk. The write is skipped when
// the serialized form is unchanged from the last write.
func (s *fileTaskStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *fileTaskStore) saveLocked() error {
	data, err := yaml.Marshal(&taskFile{Version: "1.0", Tasks: s.entries})
	if err != nil {
		return fmt.Errorf("saving task store: marshalling YAML: %w", err)
	}
	if bytes.Equal(data, s.lastWritten) {
		return nil
	}
	if err := os.MkdirAll(s.basePath, 0o750); err != nil {
		return fmt.Errorf("saving task store: creating directory: %w", err)
	}
	if err := os.WriteFile(s.filePath(), data, 0o600); err != nil {
		return fmt.Errorf("saving task store: writing file: %w", err)
	}
	s.lastWritten = data
	return nil
}

// persistLocked writes the store after a mutation. Serialization or write
// failures are logged and skipped; the in-memory state stands.
func (s *fileTaskStore) persistLocked() {
	if err := s.saveLocked(); err != nil {
		s.logEvent("taskstore.save_failed", map[string]any{"error": err.Error()})
	}
}

func (s *fileTaskStore) logEvent(eventType string, data map[string]any) {
	if s.events != nil {
		_ = s.events.LogEvent(eventType, data)
	}
}

func (s *fileTaskStore) indexOf(id string) int {
	for i := range s.entries {
		if s.entries[i].ID == id {
			return i
		}
	}
	return -1
}

// Append adds a task to the end of the store and assigns it a fresh stable ID.
func (s *fileTaskStore) Append(task models.Task) (string, error) {
	if !task.Kind.Valid() {
		return "", fmt.Errorf("appending task: unknown kind %q", task.Kind)
	}
	task.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.entries = append(s.entries, TaskEntry{ID: id, Task: task})
	s.persistLocked()
	return id, nil
}

func (s *fileTaskStore) Get(id string) (*TaskEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("task %s not found", id)
	}
	entry := s.entries[i]
	return &entry, nil
}

func (s *fileTaskStore) Update(id string, task models.Task) error {
	if !task.Kind.Valid() {
		return fmt.Errorf("updating task %s: unknown kind %q", id, task.Kind)
	}
	task.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("updating task: task %s not found", id)
	}
	s.entries[i].Task = task
	s.persistLocked()
	return nil
}

func (s *fileTaskStore) SetEnabled(id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("toggling task: task %s not found", id)
	}
	s.entries[i].Task.Enabled = enabled
	s.persistLocked()
	return nil
}

func (s *fileTaskStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("removing task: task %s not found", id)
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	s.persistLocked()
	return nil
}

// Replace swaps in a whole new entry list, preserving the given order.
func (s *fileTaskStore) Replace(entries []TaskEntry) error {
	if err := validateIDs(entries); err != nil {
		return fmt.Errorf("replacing tasks: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make([]TaskEntry, len(entries))
	copy(s.entries, entries)
	for i := range s.entries {
		s.entries[i].Task.Normalize()
	}
	s.persistLocked()
	return nil
}

// All returns a copy of the entries in store order.
func (s *fileTaskStore) All() []TaskEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TaskEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// SetClientChannel updates every Startup task's client channel. Switching to
// the default channel forcibly clears the start-app flag. The mutation is
// synchronous; the resource reload it schedules is fire-and-forget.
func (s *fileTaskStore) SetClientChannel(channel models.ClientChannel) error {
	if !channel.Valid() {
		return fmt.Errorf("setting client channel: unknown channel %q", channel)
	}

	s.mu.Lock()
	for i := range s.entries {
		if s.entries[i].Task.Kind != models.KindStartup || s.entries[i].Task.Startup == nil {
			continue
		}
		s.entries[i].Task.Startup.ClientChannel = channel
		s.entries[i].Task.Normalize()
	}
	s.persistLocked()
	reloader := s.reloader
	s.mu.Unlock()

	if reloader != nil {
		go func() {
			if err := reloader.Reload(); err != nil {
				s.logEvent("taskstore.resource_reload_failed", map[string]any{"error": err.Error()})
			}
		}()
	}
	return nil
}
