package cli

import (
	"fmt"

	"github.com/deskpilot/deskpilot/pkg/models"
	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage the persisted task queue",
	Long: `Manage the automation tasks that run when a session starts.

Tasks execute in list order. Disabled tasks stay in the list but are
skipped at submission time.`,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured tasks in execution order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskStore == nil {
			return fmt.Errorf("task store not initialized")
		}

		entries := TaskStore.All()
		if len(entries) == 0 {
			fmt.Println("No tasks configured.")
			return nil
		}

		fmt.Printf("%-38s %-13s %-8s %s\n", "ID", "KIND", "ENABLED", "NAME")
		for _, e := range entries {
			fmt.Printf("%-38s %-13s %-8t %s\n", e.ID, e.Task.Kind, e.Task.Enabled, e.Task.Name)
		}
		return nil
	},
}

var (
	taskAddName  string
	taskAddStage string
	taskAddTimes int
)

var taskAddCmd = &cobra.Command{
	Use:   "add <kind>",
	Short: "Append a task to the queue",
	Long: `Append a task of the given kind to the end of the queue.

Kinds: startup, fight, recruit, infrast, mall, award, roguelike, reclamation.
Fight tasks accept --stage and --times; other kinds start with their
default configuration and can be tuned in tasks.yaml.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskStore == nil {
			return fmt.Errorf("task store not initialized")
		}

		kind := models.TaskKind(args[0])
		if !kind.Valid() {
			return fmt.Errorf("unknown task kind %q", args[0])
		}

		task := models.Task{Kind: kind, Name: taskAddName, Enabled: true}
		switch kind {
		case models.KindStartup:
			task.Startup = &models.StartupConfig{}
		case models.KindFight:
			task.Fight = &models.FightConfig{Stage: taskAddStage, Times: taskAddTimes}
		case models.KindRecruit:
			task.Recruit = &models.RecruitConfig{Select: []int{4, 5}, Confirm: []int{3, 4, 5}, Times: 4}
		case models.KindInfrast:
			task.Infrast = &models.InfrastConfig{Drones: "_NotUse", Threshold: 0.3}
		case models.KindMall:
			task.Mall = &models.MallConfig{Shopping: true}
		case models.KindAward:
			task.Award = &models.AwardConfig{Award: true}
		case models.KindRoguelike:
			task.Roguelike = &models.RoguelikeConfig{Theme: "Phantom"}
		case models.KindReclamation:
			task.Reclamation = &models.ReclamationConfig{Theme: "Tales"}
		}

		id, err := TaskStore.Append(task)
		if err != nil {
			return fmt.Errorf("adding task: %w", err)
		}
		fmt.Printf("Added %s task %s\n", kind, id)
		return nil
	},
}

var taskEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTaskEnabled(args[0], true)
	},
}

var taskDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a task without removing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTaskEnabled(args[0], false)
	},
}

func setTaskEnabled(id string, enabled bool) error {
	if TaskStore == nil {
		return fmt.Errorf("task store not initialized")
	}
	if err := TaskStore.SetEnabled(id, enabled); err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Printf("Task %s %s\n", id, state)
	return nil
}

var taskRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a task from the queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TaskStore == nil {
			return fmt.Errorf("task store not initialized")
		}
		if err := TaskStore.Remove(args[0]); err != nil {
			return fmt.Errorf("removing task: %w", err)
		}
		fmt.Printf("Removed task %s\n", args[0])
		return nil
	},
}

func init() {
	taskAddCmd.Flags().StringVar(&taskAddName, "name", "", "Display name for the task")
	taskAddCmd.Flags().StringVar(&taskAddStage, "stage", "", "Stage code for fight tasks (e.g. CE-6)")
	taskAddCmd.Flags().IntVar(&taskAddTimes, "times", 0, "Repeat count for fight tasks")

	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskEnableCmd)
	taskCmd.AddCommand(taskDisableCmd)
	taskCmd.AddCommand(taskRemoveCmd)
	rootCmd.AddCommand(taskCmd)
}
