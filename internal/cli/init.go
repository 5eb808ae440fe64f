package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codextasks/taskrunner/internal/assets"
	"github.com/codextasks/taskrunner/internal/display"
)

var initDisableRemote bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the session assets a run needs",
	Long: `init ensures the hook-marked agent-context file, the skill file
with its integration addendum, the session directory with its
gitignore, and (in full mode) the SPEC.md/PROGRESS.md templates all
exist. It is idempotent: running it again only touches what is
missing or corrupt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}

		w, err := wire(cwd)
		if err != nil {
			return err
		}

		opts := assets.Options{
			AgentsMode:    assets.AgentsMode(w.Config.AgentsMode),
			DisableRemote: initDisableRemote || w.Config.Assets.DisableRemote,
		}
		if w.Config.Assets.TemplateURL != "" {
			opts.Fetcher = assets.NewRestyFetcher(w.Config.Assets.TemplateURL)
		}

		result, err := assets.InitAssets(context.Background(), w.Paths, w.Runner.Config.Mode, opts)
		if err != nil {
			return err
		}

		disp := display.New()
		for path, outcome := range result.Files {
			disp.Info(string(outcome), path)
		}
		disp.Success(fmt.Sprintf("session assets ready under %s", w.Paths.SessionDir))
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initDisableRemote, "disable-remote", false, "never fetch templates over the network; use the built-in fallback")
	rootCmd.AddCommand(initCmd)
}
