package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/codextasks/taskrunner/internal/config"
	"github.com/codextasks/taskrunner/internal/executor"
	"github.com/codextasks/taskrunner/internal/logging"
	"github.com/codextasks/taskrunner/internal/metrics"
	"github.com/codextasks/taskrunner/internal/paths"
	"github.com/codextasks/taskrunner/internal/runner"
	"github.com/codextasks/taskrunner/internal/store"
	"github.com/codextasks/taskrunner/internal/taskstore"
)

// wiring bundles everything a command needs to run or inspect a session.
type wiring struct {
	Paths   paths.SessionPaths
	Store   taskstore.Store
	Runner  *runner.Runner
	Config  *config.Config
}

// wire loads config, resolves paths, opens the task store and builds a
// Runner, following the exact defaults config.DefaultConfig documents.
func wire(cwd string) (*wiring, error) {
	var cfg *config.Config
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.Load(cwd)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	mode := paths.Mode(cfg.Mode)
	if mode != paths.ModeLite {
		mode = paths.ModeFull
	}

	sp, err := paths.Resolve(paths.Options{Root: cwd, Mode: mode})
	if err != nil {
		return nil, fmt.Errorf("resolve paths: %w", err)
	}

	taskStorePath := cfg.TaskStore.Path
	if taskStorePath == "" {
		taskStorePath = "tasks.json"
	}
	var taskStore taskstore.Store
	switch cfg.TaskStore.Backend {
	case "sqlite":
		sqliteStore, openErr := taskstore.OpenSQLiteStore(taskStorePath)
		if openErr != nil {
			return nil, fmt.Errorf("open sqlite task store: %w", openErr)
		}
		if seedErr := seedSQLiteStoreIfEmpty(sqliteStore, cfg.TaskStore.SeedFile); seedErr != nil {
			return nil, fmt.Errorf("seed sqlite task store: %w", seedErr)
		}
		taskStore = sqliteStore
	default:
		taskStore = taskstore.NewJSONStore(taskStorePath)
	}

	logger, err := logging.New(false)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	execOpts := executor.DefaultOptions()
	execOpts.Executable = cfg.Executor
	execOpts.Model = cfg.Model
	execOpts.ReasoningEffort = cfg.ReasoningEffort
	execOpts.FullAuto = cfg.FullAuto
	execOpts.SkipGitRepoCheck = cfg.SkipGitRepoCheck
	execOpts.TerminateOnResult = cfg.TerminateOnResult
	if cfg.ExecIdleTimeoutMs != 0 {
		execOpts.IdleTimeout = time.Duration(cfg.ExecIdleTimeoutMs) * time.Millisecond
	}
	if cfg.ExecHardTimeoutMs > 0 {
		execOpts.HardTimeout = time.Duration(cfg.ExecHardTimeoutMs) * time.Millisecond
	}

	r := &runner.Runner{
		Store:       taskStore,
		Executor:    executor.New(),
		Checkpoints: store.NewCheckpointStore(sp.CheckpointFile),
		Ledger:      store.NewLedgerStore(sp.LedgerFile),
		Paths:       sp,
		Config: runner.Config{
			MaxRetries:        cfg.MaxRetries,
			MaxTasks:          cfg.MaxTasks,
			ContinueOnFailure: cfg.ContinueOnFailure,
			Tag:               cfg.Tag,
			Mode:              mode,
			ExecOptions:       execOpts,
		},
		Metrics: metrics.New(),
		Logger:  logger,
		Clock:   time.Now,
	}

	return &wiring{Paths: sp, Store: taskStore, Runner: r, Config: cfg}, nil
}

// seedSQLiteStoreIfEmpty imports seedFile (a tasks.json) into s the
// first time it is opened against an empty database, so selecting the
// sqlite backend doesn't silently start with zero tasks. A non-empty
// store, or a missing seed file, is left untouched.
func seedSQLiteStoreIfEmpty(s *taskstore.SQLiteStore, seedFile string) error {
	if seedFile == "" {
		seedFile = "tasks.json"
	}
	ctx := context.Background()

	n, err := s.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, statErr := os.Stat(seedFile); os.IsNotExist(statErr) {
		return nil
	}

	tasks, err := taskstore.NewJSONStore(seedFile).All(ctx)
	if err != nil {
		return fmt.Errorf("read seed file %s: %w", seedFile, err)
	}
	return s.ImportTasks(ctx, tasks)
}
