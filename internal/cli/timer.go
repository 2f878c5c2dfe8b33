package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Manage daily session timers",
	Long: `Manage the persisted daily timer list.

Timers are stored as HH:MM entries. DeskPilot stores and edits them;
an external scheduler decides when to act on them.`,
}

var timerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured timers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TimerStore == nil {
			return fmt.Errorf("timer store not initialized")
		}

		timers := TimerStore.All()
		if len(timers) == 0 {
			fmt.Println("No timers configured.")
			return nil
		}

		fmt.Printf("%-38s %-7s %s\n", "ID", "TIME", "ENABLED")
		for _, tm := range timers {
			fmt.Printf("%-38s %02d:%02d   %t\n", tm.ID, tm.Hour, tm.Minute, tm.Enabled)
		}
		return nil
	},
}

var timerAddCmd = &cobra.Command{
	Use:   "add <HH:MM>",
	Short: "Add a daily timer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TimerStore == nil {
			return fmt.Errorf("timer store not initialized")
		}

		hour, minute, err := parseClock(args[0])
		if err != nil {
			return err
		}
		id, err := TimerStore.Add(hour, minute)
		if err != nil {
			return err
		}
		fmt.Printf("Added timer %s at %02d:%02d\n", id, hour, minute)
		return nil
	},
}

// parseClock parses an HH:MM string.
func parseClock(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	return hour, minute, nil
}

var timerEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a timer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTimerEnabled(args[0], true)
	},
}

var timerDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a timer without removing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTimerEnabled(args[0], false)
	},
}

func setTimerEnabled(id string, enabled bool) error {
	if TimerStore == nil {
		return fmt.Errorf("timer store not initialized")
	}
	if err := TimerStore.SetEnabled(id, enabled); err != nil {
		return err
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Printf("Timer %s %s\n", id, state)
	return nil
}

var timerRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a timer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TimerStore == nil {
			return fmt.Errorf("timer store not initialized")
		}
		if err := TimerStore.Remove(args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed timer %s\n", args[0])
		return nil
	},
}

func init() {
	timerCmd.AddCommand(timerListCmd)
	timerCmd.AddCommand(timerAddCmd)
	timerCmd.AddCommand(timerEnableCmd)
	timerCmd.AddCommand(timerDisableCmd)
	timerCmd.AddCommand(timerRemoveCmd)
	rootCmd.AddCommand(timerCmd)
}
