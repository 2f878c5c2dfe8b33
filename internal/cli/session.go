package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/deskpilot/deskpilot/pkg/models"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a session running all enabled tasks",
	Long: `Start an automation session.

Every enabled task with a submittable configuration is sent to the engine
in list order. Startup tasks with auto-launch enabled trigger the client
application launch handshake first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Orchestrator == nil {
			return fmt.Errorf("orchestrator not initialized")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := Orchestrator.StartTasks(ctx); err != nil {
			return fmt.Errorf("starting session: %w", err)
		}
		fmt.Printf("Session started with %d tasks\n", len(Orchestrator.Submissions()))
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Orchestrator == nil {
			return fmt.Errorf("orchestrator not initialized")
		}
		if err := Orchestrator.Stop(cmd.Context()); err != nil {
			return fmt.Errorf("stopping session: %w", err)
		}
		fmt.Println("Session stopped")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session status and per-task outcomes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Orchestrator == nil {
			return fmt.Errorf("orchestrator not initialized")
		}

		fmt.Printf("Status: %s\n", Orchestrator.Status())

		outcomes := Orchestrator.Outcomes()
		if len(outcomes) == 0 {
			return nil
		}
		fmt.Println("\nTask outcomes:")
		for _, sub := range Orchestrator.Submissions() {
			outcome, ok := outcomes[sub.TaskID]
			if !ok {
				outcome = models.TaskOutcome("queued")
			}
			fmt.Printf("  %-38s %s\n", sub.TaskID, outcome)
		}
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Force the session status back to idle",
	Long: `Force the session status back to idle.

This bypasses the normal lifecycle and exists to recover from an
inconsistent state, for example after the engine process died mid-session.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Orchestrator == nil {
			return fmt.Errorf("orchestrator not initialized")
		}
		Orchestrator.ResetStatus()
		fmt.Println("Status reset to idle")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
}
