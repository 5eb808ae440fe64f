// Package runner implements the Runner Loop (spec §4.H): it iterates
// "get next task", invokes the Subprocess Executor, classifies the
// outcome via the Outcome Resolver, mutates the checkpoint, projects
// the plan, updates task status, and respects the retry/continue-on-
// failure policy.
package runner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/codextasks/taskrunner/internal/executor"
	"github.com/codextasks/taskrunner/internal/logging"
	"github.com/codextasks/taskrunner/internal/metrics"
	"github.com/codextasks/taskrunner/internal/outcome"
	"github.com/codextasks/taskrunner/internal/paths"
	"github.com/codextasks/taskrunner/internal/plan"
	"github.com/codextasks/taskrunner/internal/store"
	"github.com/codextasks/taskrunner/internal/taskstore"
)

// FinalStatus is the closed set of terminal run classifications (spec §7).
type FinalStatus string

const (
	StatusAllComplete FinalStatus = "all_complete"
	StatusPartial     FinalStatus = "partial"
	StatusError       FinalStatus = "error"
)

// Config carries the runtime knobs of spec §6 that the loop itself
// consults, beyond what the Subprocess Executor needs.
type Config struct {
	MaxRetries        int // default 3; effective retries, so up to MaxRetries+1 total tries
	MaxTasks          int // 0 means unlimited
	ContinueOnFailure bool
	Tag               string
	Mode              paths.Mode
	ExecOptions       executor.Options
}

// DefaultConfig mirrors the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:        3,
		ContinueOnFailure: true,
		Mode:              paths.ModeFull,
		ExecOptions:       executor.DefaultOptions(),
	}
}

// TaskSummary is the record an observer receives at task end.
type TaskSummary struct {
	TaskID   string
	Attempt  int
	Success  bool
	Note     string
	Status   store.LedgerStatus
	Duration time.Duration
}

// Observer is the optional callback surface of spec §4.H. Observer
// errors must never abort the loop — callers get a best-effort
// notification, not a veto.
type Observer interface {
	OnTaskStart(task *taskstore.Task, attempt int)
	OnTaskEnd(summary TaskSummary)
	OnInfo(msg string)
	OnWarn(msg string)
	OnChunk(taskID string, chunk string)
}

// RunResult is the loop's final report (spec §4.H).
type RunResult struct {
	CompletedTaskIDs []string
	BlockedTaskIDs   []string
	Attempts         map[string]int
	TotalRuns        int
	FinalStatus      FinalStatus
	ErrorMessage     string
}

// Execer is the subset of the Subprocess Executor's API the loop
// depends on; satisfied by *executor.Executor, and by test doubles.
type Execer interface {
	Execute(ctx context.Context, task *taskstore.Task, attempt int, opts executor.Options, onChunk executor.ChunkFunc) (*executor.ExecOutcome, error)
}

// Runner ties together the task store, executor, checkpoint/ledger
// store, and plan projector into one run-to-completion loop.
type Runner struct {
	Store       taskstore.Store
	Executor    Execer
	Checkpoints *store.CheckpointStore
	Ledger      *store.LedgerStore
	Paths       paths.SessionPaths
	Config      Config
	Metrics     *metrics.Registry
	Logger      *zap.Logger
	Observers   []Observer
	Clock       plan.Clock
}

func (r *Runner) notifyStart(task *taskstore.Task, attempt int) {
	for _, o := range r.Observers {
		safeCall(func() { o.OnTaskStart(task, attempt) })
	}
}

func (r *Runner) notifyEnd(summary TaskSummary) {
	for _, o := range r.Observers {
		safeCall(func() { o.OnTaskEnd(summary) })
	}
}

func (r *Runner) notifyInfo(msg string) {
	for _, o := range r.Observers {
		safeCall(func() { o.OnInfo(msg) })
	}
}

func (r *Runner) notifyWarn(msg string) {
	for _, o := range r.Observers {
		safeCall(func() { o.OnWarn(msg) })
	}
}

func (r *Runner) notifyChunk(taskID, chunk string) {
	for _, o := range r.Observers {
		safeCall(func() { o.OnChunk(taskID, chunk) })
	}
}

// safeCall swallows a panic from an observer so a flaky callback cannot
// poison the run (spec §7).
func safeCall(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

// Run executes the 8-step iteration of spec §4.H until a stop condition
// is reached, then persists once more and returns the final report.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	runID := logging.NewRunID()
	logger := r.Logger
	if logger != nil {
		logger = logging.WithRun(logger, runID)
	}

	checkpoint, err := r.Checkpoints.Load()
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	result := &RunResult{Attempts: map[string]int{}}

	for {
		task, err := r.Store.Next(ctx, r.Config.Tag)
		if err != nil {
			r.persist(checkpoint)
			return nil, fmt.Errorf("task store next: %w", err)
		}
		if task == nil {
			result.FinalStatus = classifyStop(checkpoint)
			break
		}

		if r.Config.MaxTasks > 0 && result.TotalRuns >= r.Config.MaxTasks {
			result.FinalStatus = classifyStop(checkpoint)
			break
		}

		attempt := checkpoint.IncrementAttempt(task.ID)
		checkpoint.LastTaskID = task.ID
		result.TotalRuns++

		if err := r.Store.SetStatus(ctx, task.ID, taskstore.StatusInProgress); err != nil {
			r.persist(checkpoint)
			return nil, fmt.Errorf("set status in-progress for task %s: %w", task.ID, err)
		}

		r.notifyStart(task, attempt)
		if logger != nil {
			logger.Info("attempt started", zap.String("task_id", task.ID), zap.Int("attempt", attempt))
		}

		start := time.Now()
		execOutcome, execErr := r.Executor.Execute(ctx, task, attempt, r.execOptionsFor(task), func(chunk string) {
			r.notifyChunk(task.ID, chunk)
		})
		duration := time.Since(start)

		if execErr != nil {
			r.notifyWarn(fmt.Sprintf("executor error for task %s: %v", task.ID, execErr))
			execOutcome = &executor.ExecOutcome{TimedOut: false}
		}

		resolved := outcome.Resolve(outcome.Input{
			ParsedResult: execOutcome.ParsedResult,
			ExitCode:     execOutcome.ExitCode,
			Signal:       execOutcome.Signal,
			TimedOut:     execOutcome.TimedOut,
			TimeoutKind:  string(execOutcome.TimeoutKind),
			TimeoutMs:    execOutcome.TimeoutMs,
		})

		summary := TaskSummary{TaskID: task.ID, Attempt: attempt, Success: resolved.Success, Note: resolved.Note, Duration: duration}

		if resolved.Success {
			if err := r.Store.SetStatus(ctx, task.ID, taskstore.StatusDone); err != nil {
				r.persist(checkpoint)
				return nil, fmt.Errorf("set status done for task %s: %w", task.ID, err)
			}
			checkpoint.MarkDone(task.ID)
			summary.Status = store.LedgerDone
			r.appendLedger(task, attempt, store.LedgerDone, execOutcome, resolved.Note, runID)
			if r.Metrics != nil {
				r.Metrics.RecordDone(duration.Seconds())
			}
		} else {
			blocked := attempt > r.Config.MaxRetries
			if blocked {
				if err := r.Store.SetStatus(ctx, task.ID, taskstore.StatusBlocked); err != nil {
					r.persist(checkpoint)
					return nil, fmt.Errorf("set status blocked for task %s: %w", task.ID, err)
				}
				checkpoint.MarkBlocked(task.ID)
				summary.Status = store.LedgerBlocked
				r.appendLedger(task, attempt, store.LedgerBlocked, execOutcome, resolved.Note, runID)
				if r.Metrics != nil {
					r.Metrics.RecordBlocked(duration.Seconds())
				}
			} else {
				if err := r.Store.SetStatus(ctx, task.ID, taskstore.StatusPending); err != nil {
					r.persist(checkpoint)
					return nil, fmt.Errorf("set status pending for task %s: %w", task.ID, err)
				}
				summary.Status = store.LedgerFailed
				r.appendLedger(task, attempt, store.LedgerFailed, execOutcome, resolved.Note, runID)
				if r.Metrics != nil {
					r.Metrics.RecordFailed(duration.Seconds())
				}
			}

			if !r.Config.ContinueOnFailure {
				r.persist(checkpoint)
				result.CompletedTaskIDs = checkpoint.SortedDoneIDs()
				result.BlockedTaskIDs = checkpoint.SortedBlockedIDs()
				result.Attempts = checkpoint.Attempts
				result.FinalStatus = StatusError
				result.ErrorMessage = fmt.Sprintf("task %s failed: %s", task.ID, resolved.Note)
				r.notifyEnd(summary)
				return result, nil
			}
		}

		r.notifyEnd(summary)
		r.persist(checkpoint)
	}

	r.persist(checkpoint)
	result.CompletedTaskIDs = checkpoint.SortedDoneIDs()
	result.BlockedTaskIDs = checkpoint.SortedBlockedIDs()
	result.Attempts = checkpoint.Attempts
	return result, nil
}

func (r *Runner) execOptionsFor(task *taskstore.Task) executor.Options {
	opts := r.Config.ExecOptions
	opts.WorkDir = r.Paths.Root
	opts.AgentContextFile = r.Paths.AgentContext
	opts.SkillAgentFile = r.Paths.SkillAgentFile
	opts.SkillFile = r.Paths.SkillFile
	opts.LogsDir = r.Paths.LogsDir
	return opts
}

func (r *Runner) appendLedger(task *taskstore.Task, attempt int, status store.LedgerStatus, out *executor.ExecOutcome, note, runID string) {
	entry := store.LedgerEntry{
		TaskID:     task.ID,
		Title:      task.Title,
		Attempt:    attempt,
		Status:     status,
		ExitCode:   out.ExitCode,
		DurationMs: out.ElapsedMs,
		LogFile:    out.LogPath,
		Notes:      fmt.Sprintf("run=%s %s", runID, note),
	}
	if err := r.Ledger.Append(entry); err != nil {
		r.notifyWarn(fmt.Sprintf("ledger append failed for task %s: %v", task.ID, err))
	}
}

func (r *Runner) persist(checkpoint *store.CheckpointState) {
	if err := r.Checkpoints.Save(checkpoint); err != nil {
		r.notifyWarn(fmt.Sprintf("checkpoint save failed: %v", err))
	}

	tasks, err := r.Store.All(context.Background())
	if err != nil {
		r.notifyWarn(fmt.Sprintf("plan projection: list tasks failed: %v", err))
		return
	}
	if err := plan.Sync(tasks, checkpoint, r.Paths, r.Config.Mode, r.Clock); err != nil {
		r.notifyWarn(fmt.Sprintf("plan projection failed: %v", err))
	}
}

// classifyStop decides between all_complete and partial when the loop
// ends because no task remains or maxTasks was reached.
func classifyStop(checkpoint *store.CheckpointState) FinalStatus {
	if len(checkpoint.BlockedTaskIDs) == 0 {
		return StatusAllComplete
	}
	return StatusPartial
}
