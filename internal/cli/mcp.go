package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	dpmcp "github.com/deskpilot/deskpilot/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the DeskPilot MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the DeskPilot MCP server on stdio",
	Long: `Start the DeskPilot MCP server on stdio transport.

The server exposes session control as MCP tools that AI assistants can
call: get_status, list_tasks, set_task_enabled, start_tasks, stop_session,
reset_status, session_log.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Orchestrator == nil || TaskStore == nil {
			return fmt.Errorf("services not initialized")
		}

		srv := dpmcp.NewServer(Orchestrator, TaskStore, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
