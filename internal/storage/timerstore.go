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

// TimerStoreManager defines the interface for the persisted daily timer list.
// It is storage only; nothing in this system fires the timers.
type TimerStoreManager interface {
	Add(hour, minute int) (string, error)
	SetEnabled(id string, enabled bool) error
	Remove(id string) error
	All() []models.DailyTimer
	Load() error
	Save() error
}

// timerFile is the top-level structure of timers.yaml.
type timerFile struct {
	Version string              `yaml:"version"`
	Timers  []models.DailyTimer `yaml:"timers"`
}

type fileTimerStore struct {
	mu          sync.Mutex
	basePath    string
	timers      []models.DailyTimer
	lastWritten []byte
	events      EventSink
}

// NewTimerStoreManager creates a TimerStoreManager backed by a timers.yaml
// file in the given base directory. events may be nil.
func NewTimerStoreManager(basePath string, events EventSink) TimerStoreManager {
	return &fileTimerStore{basePath: basePath, events: events}
}

func (s *fileTimerStore) filePath() string {
	return filepath.Join(s.basePath, "timers.yaml")
}

// Load reads timers.yaml. Load failure is non-fatal: the store initializes
// to an empty list.
func (s *fileTimerStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath())
	if err != nil {
		s.timers = nil
		s.lastWritten = nil
		return nil
	}

	var tf timerFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		s.logEvent("timerstore.load_failed", map[string]any{"error": err.Error()})
		s.timers = nil
		s.lastWritten = nil
		return nil
	}

	s.timers = tf.Timers
	s.lastWritten = data
	return nil
}

func (s *fileTimerStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *fileTimerStore) saveLocked() error {
	data, err := yaml.Marshal(&timerFile{Version: "1.0", Timers: s.timers})
	if err != nil {
		return fmt.Errorf("saving timer store: marshalling YAML: %w", err)
	}
	if bytes.Equal(data, s.lastWritten) {
		return nil
	}
	if err := os.MkdirAll(s.basePath, 0o750); err != nil {
		return fmt.Errorf("saving timer store: creating directory: %w", err)
	}
	if err := os.WriteFile(s.filePath(), data, 0o600); err != nil {
		return fmt.Errorf("saving timer store: writing file: %w", err)
	}
	s.lastWritten = data
	return nil
}

func (s *fileTimerStore) persistLocked() {
	if err := s.saveLocked(); err != nil {
		s.logEvent("timerstore.save_failed", map[string]any{"error": err.Error()})
	}
}

func (s *fileTimerStore) logEvent(eventType string, data map[string]any) {
	if s.events != nil {
		_ = s.events.LogEvent(eventType, data)
	}
}

func (s *fileTimerStore) indexOf(id string) int {
	for i := range s.timers {
		if s.timers[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *fileTimerStore) Add(hour, minute int) (string, error) {
	timer := models.DailyTimer{
		ID:      uuid.NewString(),
		Hour:    hour,
		Minute:  minute,
		Enabled: true,
	}
	if err := timer.Validate(); err != nil {
		return "", fmt.Errorf("adding timer: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.timers = append(s.timers, timer)
	s.persistLocked()
	return timer.ID, nil
}

func (s *fileTimerStore) SetEnabled(id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("toggling timer: timer %s not found", id)
	}
	s.timers[i].Enabled = enabled
	s.persistLocked()
	return nil
}

func (s *fileTimerStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("removing timer: timer %s not found", id)
	}
	s.timers = append(s.timers[:i], s.timers[i+1:]...)
	s.persistLocked()
	return nil
}

func (s *fileTimerStore) All() []models.DailyTimer {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.DailyTimer, len(s.timers))
	copy(out, s.timers)
	return out
}
