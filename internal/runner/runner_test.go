package runner

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codextasks/taskrunner/internal/executor"
	"github.com/codextasks/taskrunner/internal/paths"
	"github.com/codextasks/taskrunner/internal/sentinel"
	"github.com/codextasks/taskrunner/internal/store"
	"github.com/codextasks/taskrunner/internal/taskstore"
)

// fakeStore is a tiny in-memory Store for loop tests.
type fakeStore struct {
	mu    sync.Mutex
	tasks []taskstore.Task
}

func newFakeStore(tasks ...taskstore.Task) *fakeStore {
	return &fakeStore{tasks: tasks}
}

func (f *fakeStore) Next(ctx context.Context, tag string) (*taskstore.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if !f.tasks[i].Status.IsTerminal() && f.tasks[i].Status != taskstore.StatusBlocked {
			t := f.tasks[i]
			return &t, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SetStatus(ctx context.Context, id string, status taskstore.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].Status = status
			return nil
		}
	}
	return nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (*taskstore.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			t := f.tasks[i]
			return &t, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) All(ctx context.Context) ([]taskstore.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]taskstore.Task(nil), f.tasks...), nil
}

// scriptedExecer returns one outcome per call, in order.
type scriptedExecer struct {
	outcomes []*executor.ExecOutcome
	calls    int
}

func (s *scriptedExecer) Execute(ctx context.Context, task *taskstore.Task, attempt int, opts executor.Options, onChunk executor.ChunkFunc) (*executor.ExecOutcome, error) {
	out := s.outcomes[s.calls]
	s.calls++
	return out, nil
}

func newTestRunner(t *testing.T, execer Execer, fs *fakeStore, cfg Config) *Runner {
	t.Helper()
	dir := t.TempDir()
	sp, err := paths.Resolve(paths.Options{Root: dir, Mode: cfg.Mode})
	require.NoError(t, err)

	cfg.ExecOptions.WorkDir = sp.Root
	return &Runner{
		Store:       fs,
		Executor:    execer,
		Checkpoints: store.NewCheckpointStore(filepath.Join(sp.SessionDir, "checkpoint.json")),
		Ledger:      store.NewLedgerStore(filepath.Join(sp.SessionDir, "ledger.jsonl")),
		Paths:       sp,
		Config:      cfg,
	}
}

func intPtr(i int) *int { return &i }

func TestRunnerHappyPath(t *testing.T) {
	fs := newFakeStore(taskstore.Task{ID: "1", Title: "demo", Status: taskstore.StatusPending})
	exec := &scriptedExecer{outcomes: []*executor.ExecOutcome{
		{ExitCode: intPtr(0)},
	}}
	cfg := DefaultConfig()
	r := newTestRunner(t, exec, fs, cfg)

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusAllComplete, result.FinalStatus)
	require.Equal(t, []string{"1"}, result.CompletedTaskIDs)
	require.Equal(t, 1, result.Attempts["1"])

	task, _ := fs.Get(context.Background(), "1")
	require.Equal(t, taskstore.StatusDone, task.Status)
}

func TestRunnerSentinelOverridesExitCode(t *testing.T) {
	fs := newFakeStore(taskstore.Task{ID: "1", Title: "demo", Status: taskstore.StatusPending})
	exec := &scriptedExecer{outcomes: []*executor.ExecOutcome{
		{ExitCode: intPtr(1), ParsedResult: &sentinel.ParsedResult{Status: sentinel.StatusDone, Validation: sentinel.ValidationPass}},
	}}
	r := newTestRunner(t, exec, fs, DefaultConfig())

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusAllComplete, result.FinalStatus)
}

func TestRunnerTimeoutIsFailureAndExitsEarly(t *testing.T) {
	fs := newFakeStore(taskstore.Task{ID: "1", Title: "demo", Status: taskstore.StatusPending})
	exec := &scriptedExecer{outcomes: []*executor.ExecOutcome{
		{TimedOut: true, TimeoutKind: executor.TimeoutHard, TimeoutMs: 1000},
	}}
	cfg := DefaultConfig()
	cfg.MaxRetries = 0
	cfg.ContinueOnFailure = false
	r := newTestRunner(t, exec, fs, cfg)

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusError, result.FinalStatus)
	require.Contains(t, result.ErrorMessage, "failed")

	task, _ := fs.Get(context.Background(), "1")
	require.Equal(t, taskstore.StatusBlocked, task.Status)
}

func TestRunnerRetryThenSuccess(t *testing.T) {
	fs := newFakeStore(taskstore.Task{ID: "1", Title: "demo", Status: taskstore.StatusPending})
	exec := &scriptedExecer{outcomes: []*executor.ExecOutcome{
		{ExitCode: intPtr(1)},
		{ExitCode: intPtr(1)},
		{ExitCode: intPtr(0)},
	}}
	cfg := DefaultConfig()
	cfg.MaxRetries = 2
	r := newTestRunner(t, exec, fs, cfg)

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusAllComplete, result.FinalStatus)
	require.Equal(t, 3, result.Attempts["1"])
	require.Equal(t, 3, result.TotalRuns)

	task, _ := fs.Get(context.Background(), "1")
	require.Equal(t, taskstore.StatusDone, task.Status)
}

func TestRunnerLiteModeArtifacts(t *testing.T) {
	fs := newFakeStore(taskstore.Task{ID: "1", Title: "demo", Status: taskstore.StatusPending})
	exec := &scriptedExecer{outcomes: []*executor.ExecOutcome{{ExitCode: intPtr(0)}}}
	cfg := DefaultConfig()
	cfg.Mode = paths.ModeLite
	r := newTestRunner(t, exec, fs, cfg)

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(r.Paths.PlanFile)
	require.NoError(t, err)
	require.Contains(t, string(data), "id,task,status,completed_at,notes")

	_, statErr := os.Stat(r.Paths.SpecFile)
	require.Error(t, statErr)
}

func TestRunnerObserverPanicDoesNotAbortRun(t *testing.T) {
	fs := newFakeStore(taskstore.Task{ID: "1", Title: "demo", Status: taskstore.StatusPending})
	exec := &scriptedExecer{outcomes: []*executor.ExecOutcome{{ExitCode: intPtr(0)}}}
	r := newTestRunner(t, exec, fs, DefaultConfig())
	r.Observers = []Observer{panickyObserver{}}

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusAllComplete, result.FinalStatus)
}

type panickyObserver struct{}

func (panickyObserver) OnTaskStart(task *taskstore.Task, attempt int) { panic("boom") }
func (panickyObserver) OnTaskEnd(summary TaskSummary)                 { panic("boom") }
func (panickyObserver) OnInfo(msg string)                             { panic("boom") }
func (panickyObserver) OnWarn(msg string)                             { panic("boom") }
func (panickyObserver) OnChunk(taskID, chunk string)                  { panic("boom") }

