package integration

import (
	"fmt"
	"os/exec"
	"runtime"
	"sync"

	"github.com/deskpilot/deskpilot/pkg/models"
)

// SleepInhibitor keeps the host awake while a session runs by holding a
// platform sleep-blocker process. Begin and End are idempotent.
type SleepInhibitor struct {
	mu  sync.Mutex
	cmd *exec.Cmd

	// command overrides the platform blocker, for tests.
	command func() *exec.Cmd
}

// NewSleepInhibitor creates an inhibitor using the platform's blocker
// command: caffeinate on macOS, systemd-inhibit on Linux.
func NewSleepInhibitor() *SleepInhibitor {
	return &SleepInhibitor{command: platformBlocker}
}

func platformBlocker() *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("caffeinate", "-dim")
	case "linux":
		return exec.Command("systemd-inhibit", "--what=sleep:idle", "--why=automation session running", "sleep", "infinity")
	default:
		return nil
	}
}

// Begin starts the blocker process if one is not already held.
func (s *SleepInhibitor) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return nil
	}
	cmd := s.command()
	if cmd == nil {
		return nil
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting sleep blocker: %w", err)
	}
	s.cmd = cmd
	return nil
}

// End releases the blocker process.
func (s *SleepInhibitor) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil {
		return nil
	}
	cmd := s.cmd
	s.cmd = nil
	if err := cmd.Process.Kill(); err != nil {
		return fmt.Errorf("stopping sleep blocker: %w", err)
	}
	_ = cmd.Wait()
	return nil
}

// Held reports whether a blocker process is currently running.
func (s *SleepInhibitor) Held() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil
}

// BindStatus returns a status observer that holds the sleep blocker while
// the engine is busy and releases it otherwise. Pending is transient and
// does not hold the blocker.
func (s *SleepInhibitor) BindStatus() func(models.SessionStatus) {
	return func(status models.SessionStatus) {
		if status == models.StatusBusy {
			_ = s.Begin()
		} else {
			_ = s.End()
		}
	}
}
