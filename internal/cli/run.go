package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/codextasks/taskrunner/internal/display"
	"github.com/codextasks/taskrunner/internal/runner"
	"github.com/codextasks/taskrunner/internal/taskstore"
)

var (
	runMaxTasks    int
	runNoColor     bool
	runContinueOnF bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the task loop until done, blocked, or maxTasks",
	Long: `run asks the task store for the next eligible task, drives one
agent subprocess attempt against it, resolves the outcome, and repeats
until no task remains, maxTasks is reached, or a failure with
continueOnFailure=false stops the loop early.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}

		w, err := wire(cwd)
		if err != nil {
			return err
		}

		if runMaxTasks > 0 {
			w.Runner.Config.MaxTasks = runMaxTasks
		}
		if cmd.Flags().Changed("continue-on-failure") {
			w.Runner.Config.ContinueOnFailure = runContinueOnF
		}

		disp := display.NewWithOptions(runNoColor)
		w.Runner.Observers = append(w.Runner.Observers, &cliObserver{disp: disp})

		if addr := w.Config.Metrics.ListenAddr; addr != "" {
			serveMetrics(addr, w.Runner.Metrics.Gatherer(), disp)
		}

		disp.RunnerHeader()
		result, err := w.Runner.Run(context.Background())
		if err != nil {
			return err
		}

		switch result.FinalStatus {
		case runner.StatusAllComplete:
			disp.AllComplete()
		case runner.StatusPartial:
			disp.LoopComplete("Run stopped with tasks blocked.", len(result.CompletedTaskIDs))
		case runner.StatusError:
			disp.LoopFailed(w.Runner.Paths.Root, fmt.Errorf("%s", result.ErrorMessage), len(result.CompletedTaskIDs))
		}
		if w.Runner.Config.MaxTasks > 0 && result.TotalRuns >= w.Runner.Config.MaxTasks {
			disp.MaxTasksReached(w.Runner.Config.MaxTasks)
		}

		if result.FinalStatus == runner.StatusError {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().IntVar(&runMaxTasks, "max-tasks", 0, "stop after this many task attempts (0 = config default / unlimited)")
	runCmd.Flags().BoolVar(&runNoColor, "no-color", false, "disable colored output")
	runCmd.Flags().BoolVar(&runContinueOnF, "continue-on-failure", true, "keep running after a task is retried or blocked")
	rootCmd.AddCommand(runCmd)
}

// cliObserver renders runner.Observer callbacks through a display.Display.
type cliObserver struct {
	disp *display.Display
}

func (o *cliObserver) OnTaskStart(task *taskstore.Task, attempt int) {
	o.disp.TaskBanner(task.ID, task.Title)
	o.disp.AgentStart(task.ID, attempt)
}

func (o *cliObserver) OnTaskEnd(summary runner.TaskSummary) {
	outcome := "failed"
	if summary.Success {
		outcome = "done"
	}
	o.disp.AgentDone(fmt.Sprintf("%s: %s (%s)", summary.TaskID, outcome, summary.Note), summary.Duration)
}

func (o *cliObserver) OnInfo(msg string) {
	o.disp.Info("info", msg)
}

func (o *cliObserver) OnWarn(msg string) {
	o.disp.Warning(msg)
}

func (o *cliObserver) OnChunk(taskID string, chunk string) {
	o.disp.Agent(chunk)
}

// serveMetrics starts a background /metrics endpoint for gatherer. A
// bind failure is reported but never blocks the run.
func serveMetrics(addr string, gatherer prometheus.Gatherer, disp *display.Display) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			disp.Warning(fmt.Sprintf("metrics server on %s stopped: %v", addr, err))
		}
	}()
}
