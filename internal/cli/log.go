package cli

import (
	"fmt"

	"github.com/deskpilot/deskpilot/internal/observability"
	"github.com/spf13/cobra"
)

var (
	logTail int
	logType string
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the session log and the durable event log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Orchestrator == nil {
			return fmt.Errorf("orchestrator not initialized")
		}

		lines := Orchestrator.Log()
		if logTail > 0 && logTail < len(lines) {
			lines = lines[len(lines)-logTail:]
		}
		if len(lines) == 0 {
			fmt.Println("Session log is empty.")
		}
		for _, l := range lines {
			id := l.TaskID
			if id == "" {
				id = "-"
			}
			fmt.Printf("%s  %-20s %-38s %s\n", l.Time.Format("15:04:05"), l.Event, id, l.Text)
		}
		return nil
	},
}

var logEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the durable controller event log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if EventLog == nil {
			return fmt.Errorf("event log not initialized")
		}

		var events []observability.Event
		var err error
		if logType != "" {
			events, err = EventLog.Read(observability.EventFilter{Type: logType})
		} else {
			events, err = EventLog.Tail(logTail)
		}
		if err != nil {
			return fmt.Errorf("reading event log: %w", err)
		}

		if len(events) == 0 {
			fmt.Println("No events.")
			return nil
		}
		for _, e := range events {
			fmt.Printf("%s  %-5s %-28s %v\n", e.Time.Format("2006-01-02 15:04:05"), e.Level, e.Type, e.Data)
		}
		return nil
	},
}

func init() {
	logCmd.Flags().IntVarP(&logTail, "tail", "n", 0, "Show only the last N lines")
	logEventsCmd.Flags().StringVar(&logType, "type", "", "Filter by event type")

	logCmd.AddCommand(logEventsCmd)
	rootCmd.AddCommand(logCmd)
}
