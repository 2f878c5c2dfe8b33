package cli

import (
	"fmt"

	"github.com/deskpilot/deskpilot/pkg/models"
	"github.com/spf13/cobra"
)

var channelCmd = &cobra.Command{
	Use:   "channel",
	Short: "Show or switch the client channel",
	Long: `Show or switch the client channel used by startup tasks.

Switching the channel rewrites every startup task in the queue and
schedules a background resource reload for the new client variant.
Channels: official, bilibili, global, jp, kr. An empty channel means
no client is selected and disables application auto-launch.`,
}

var channelShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the channel of each startup task",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskStore == nil {
			return fmt.Errorf("task store not initialized")
		}

		found := false
		for _, e := range TaskStore.All() {
			if e.Task.Kind != models.KindStartup || e.Task.Startup == nil {
				continue
			}
			found = true
			channel := string(e.Task.Startup.ClientChannel)
			if channel == "" {
				channel = "(none)"
			}
			fmt.Printf("%s  %s  auto-launch=%t\n", e.ID, channel, e.Task.Startup.StartGameEnabled)
		}
		if !found {
			fmt.Println("No startup tasks configured.")
		}
		return nil
	},
}

var channelSetCmd = &cobra.Command{
	Use:   "set <channel>",
	Short: "Switch every startup task to the given channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskStore == nil {
			return fmt.Errorf("task store not initialized")
		}

		channel := models.ClientChannel(args[0])
		if err := TaskStore.SetClientChannel(channel); err != nil {
			return fmt.Errorf("switching channel: %w", err)
		}
		fmt.Printf("Client channel set to %s\n", args[0])
		return nil
	},
}

func init() {
	channelCmd.AddCommand(channelShowCmd)
	channelCmd.AddCommand(channelSetCmd)
	rootCmd.AddCommand(channelCmd)
}
