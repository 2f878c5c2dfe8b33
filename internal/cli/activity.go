package cli

import (
	"fmt"

	"github.com/deskpilot/deskpilot/internal/core"
	"github.com/spf13/cobra"
)

var copilotFormation bool

var copilotCmd = &cobra.Command{
	Use:   "copilot <file>",
	Short: "Run a single copilot job from a plan file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Orchestrator == nil {
			return fmt.Errorf("orchestrator not initialized")
		}
		err := Orchestrator.StartCopilot(cmd.Context(), core.CopilotOptions{
			Filename:  args[0],
			Formation: copilotFormation,
		})
		if err != nil {
			return fmt.Errorf("starting copilot: %w", err)
		}
		fmt.Println("Copilot started")
		return nil
	},
}

var recognizeCmd = &cobra.Command{
	Use:   "recognize",
	Short: "Run recognition activities",
	Long: `Run a recognition activity against the live session or a recording.

Subcommands: recruit (recruitment tags), depot (inventory), operbox
(operator box), video (offline recording).`,
}

var recognizeRecruitCmd = &cobra.Command{
	Use:   "recruit",
	Short: "Recognize recruitment tags",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Orchestrator == nil {
			return fmt.Errorf("orchestrator not initialized")
		}
		if err := Orchestrator.RecognizeRecruit(cmd.Context()); err != nil {
			return fmt.Errorf("starting recruit recognition: %w", err)
		}
		fmt.Println("Recruit recognition started")
		return nil
	},
}

var recognizeDepotCmd = &cobra.Command{
	Use:   "depot",
	Short: "Recognize depot inventory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Orchestrator == nil {
			return fmt.Errorf("orchestrator not initialized")
		}
		if err := Orchestrator.RecognizeDepot(cmd.Context()); err != nil {
			return fmt.Errorf("starting depot recognition: %w", err)
		}
		fmt.Println("Depot recognition started")
		return nil
	},
}

var recognizeOperBoxCmd = &cobra.Command{
	Use:   "operbox",
	Short: "Recognize the operator box",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Orchestrator == nil {
			return fmt.Errorf("orchestrator not initialized")
		}
		if err := Orchestrator.RecognizeOperBox(cmd.Context()); err != nil {
			return fmt.Errorf("starting operator box recognition: %w", err)
		}
		fmt.Println("Operator box recognition started")
		return nil
	},
}

var recognizeVideoCmd = &cobra.Command{
	Use:   "video <file>",
	Short: "Recognize a recorded video file",
	Long: `Recognize a recorded video file.

Video recognition runs offline and does not open a device connection.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Orchestrator == nil {
			return fmt.Errorf("orchestrator not initialized")
		}
		if err := Orchestrator.RecognizeVideo(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("starting video recognition: %w", err)
		}
		fmt.Println("Video recognition started")
		return nil
	},
}

var gachaTen bool

var gachaCmd = &cobra.Command{
	Use:   "gacha",
	Short: "Run the gacha activity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Orchestrator == nil {
			return fmt.Errorf("orchestrator not initialized")
		}
		if err := Orchestrator.GachaPoll(cmd.Context(), gachaTen); err != nil {
			return fmt.Errorf("starting gacha: %w", err)
		}
		fmt.Println("Gacha started")
		return nil
	},
}

func init() {
	copilotCmd.Flags().BoolVar(&copilotFormation, "formation", false, "Auto-set the squad formation before the job")
	gachaCmd.Flags().BoolVar(&gachaTen, "ten", false, "Pull ten times instead of once")

	recognizeCmd.AddCommand(recognizeRecruitCmd)
	recognizeCmd.AddCommand(recognizeDepotCmd)
	recognizeCmd.AddCommand(recognizeOperBoxCmd)
	recognizeCmd.AddCommand(recognizeVideoCmd)

	rootCmd.AddCommand(copilotCmd)
	rootCmd.AddCommand(recognizeCmd)
	rootCmd.AddCommand(gachaCmd)
}
