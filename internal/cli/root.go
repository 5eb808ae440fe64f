package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version is set by goreleaser via ldflags
	Version = "dev"
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "taskrunner",
	Short: "Drives an external coding agent through a task graph, one task at a time",
	Long: `taskrunner is a long-horizon task runner. It reads tasks from an
external task store, drives a coding-agent subprocess through them one at
a time, parses a RESULT: sentinel line from the agent's output, and
projects progress to a CSV plan and an append-only ledger.

Core commands:
  init                Create the session assets (hook block, skill file)
  run                 Run the task loop until done, blocked, or maxTasks
  status              Show current checkpoint state and plan progress
  import              Load tasks.json into the sqlite task store backend

Workflow:
  1. taskrunner init
  2. taskrunner run
  3. taskrunner status`,
	Version: Version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .taskrunner/config.yaml)")
	rootCmd.SetVersionTemplate(fmt.Sprintf("taskrunner version %s\n", Version))
}
