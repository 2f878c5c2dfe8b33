package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var screenshotOutput string

var screenshotCmd = &cobra.Command{
	Use:   "screenshot",
	Short: "Save the engine's latest frame to a file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Orchestrator == nil {
			return fmt.Errorf("orchestrator not initialized")
		}

		img, err := Orchestrator.Screenshot()
		if err != nil {
			return fmt.Errorf("capturing screenshot: %w", err)
		}
		if err := os.WriteFile(screenshotOutput, img, 0o644); err != nil {
			return fmt.Errorf("writing screenshot: %w", err)
		}
		fmt.Printf("Saved %d bytes to %s\n", len(img), screenshotOutput)
		return nil
	},
}

func init() {
	screenshotCmd.Flags().StringVarP(&screenshotOutput, "output", "o", "screenshot.png", "Output file path")
	rootCmd.AddCommand(screenshotCmd)
}
