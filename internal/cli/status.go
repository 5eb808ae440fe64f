package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codextasks/taskrunner/internal/display"
)

var statusVerbose bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current checkpoint state and plan progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}

		w, err := wire(cwd)
		if err != nil {
			return err
		}

		checkpoint, err := w.Runner.Checkpoints.Load()
		if err != nil {
			return fmt.Errorf("load checkpoint: %w", err)
		}

		tasks, err := w.Store.All(context.Background())
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}

		disp := display.New()
		disp.Box(
			fmt.Sprintf("Mode: %s", w.Runner.Config.Mode),
			fmt.Sprintf("Tag: %s", w.Runner.Config.Tag),
			fmt.Sprintf("Done: %d  Blocked: %d", len(checkpoint.DoneTaskIDs), len(checkpoint.BlockedTaskIDs)),
			fmt.Sprintf("Last task: %s", checkpoint.LastTaskID),
			fmt.Sprintf("Plan file: %s", w.Paths.PlanFile),
		)

		if statusVerbose {
			for _, t := range tasks {
				printTaskStatus(disp, t.ID, t.Title, string(t.Status), checkpoint.IsDone(t.ID), checkpoint.IsBlocked(t.ID))
				for _, sub := range t.Subtasks {
					printTaskStatus(disp, sub.ID, sub.Title, string(sub.Status), checkpoint.IsDone(sub.ID), checkpoint.IsBlocked(sub.ID))
				}
			}
		}

		return nil
	},
}

func printTaskStatus(disp *display.Display, id, title, underlying string, done, blocked bool) {
	symbol := display.SymbolPending
	switch {
	case done:
		symbol = display.SymbolSuccess
	case blocked:
		symbol = display.SymbolError
	case underlying == "in-progress":
		symbol = display.SymbolPartial
	}
	disp.Status(symbol, fmt.Sprintf("%s  %s", id, title))
}

func init() {
	statusCmd.Flags().BoolVarP(&statusVerbose, "verbose", "v", false, "show every task, not just the summary")
	rootCmd.AddCommand(statusCmd)
}
