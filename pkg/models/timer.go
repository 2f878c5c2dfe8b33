package models

import "fmt"

// DailyTimer is a persisted daily trigger for the task queue. It carries
// configuration only; the triggering loop lives outside this system.
type DailyTimer struct {
	ID      string `yaml:"id"`
	Hour    int    `yaml:"hour"`
	Minute  int    `yaml:"minute"`
	Enabled bool   `yaml:"enabled"`
}

// Validate checks the timer's time-of-day fields.
func (t DailyTimer) Validate() error {
	if t.Hour < 0 || t.Hour > 23 {
		return fmt.Errorf("timer hour %d out of range [0,23]", t.Hour)
	}
	if t.Minute < 0 || t.Minute > 59 {
		return fmt.Errorf("timer minute %d out of range [0,59]", t.Minute)
	}
	return nil
}
