package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codextasks/taskrunner/internal/display"
	"github.com/codextasks/taskrunner/internal/taskstore"
)

var importFrom string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load tasks.json into the configured sqlite task store",
	Long: `import reads a tasks.json-shaped file and replaces the contents
of the sqlite task store with it. It only applies to the sqlite
backend — the json backend reads tasks.json directly and never needs
importing. A fresh sqlite store is seeded automatically from
task_store.seed_file the first time a run opens it; this command is
for re-importing after tasks.json changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}

		w, err := wire(cwd)
		if err != nil {
			return err
		}

		if w.Config.TaskStore.Backend != "sqlite" {
			return fmt.Errorf("import only applies to the sqlite task store backend (task_store.backend is %q)", w.Config.TaskStore.Backend)
		}

		seedFile := importFrom
		if seedFile == "" {
			seedFile = w.Config.TaskStore.SeedFile
		}

		sqliteStore, ok := w.Store.(*taskstore.SQLiteStore)
		if !ok {
			return fmt.Errorf("task store is not a sqlite store")
		}

		ctx := context.Background()
		tasks, err := taskstore.NewJSONStore(seedFile).All(ctx)
		if err != nil {
			return fmt.Errorf("read %s: %w", seedFile, err)
		}
		if err := sqliteStore.ImportTasks(ctx, tasks); err != nil {
			return fmt.Errorf("import tasks: %w", err)
		}

		disp := display.New()
		disp.Success(fmt.Sprintf("imported %d task(s) from %s into the sqlite store", len(tasks), seedFile))
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFrom, "from", "", "tasks.json path to import (defaults to task_store.seed_file)")
	rootCmd.AddCommand(importCmd)
}
