// Package executor implements the Subprocess Executor (spec §4.D): it
// launches the agent, tees its output to a log file and the parent
// streams, drives the idle/hard/result-grace timers, terminates with
// grace, and returns a structured outcome.
//
// The process is spawned through a pty (github.com/creack/pty) rather
// than plain os/exec pipes so the agent sees a real terminal; stdout and
// stderr arrive interleaved on the pty's single reader. That reader and
// the timer goroutine run inside an errgroup, and Execute waits for both
// before it builds the outcome. The group's error is discarded, and a
// panic in either goroutine is not recovered.
package executor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sync/errgroup"

	"github.com/codextasks/taskrunner/internal/sentinel"
	"github.com/codextasks/taskrunner/internal/taskstore"
)

const (
	defaultIdleTimeout  = 20 * time.Minute
	resultGraceTimeout  = 1500 * time.Millisecond
	maxOutputBufferSize = 200_000
	minTimerDuration    = time.Second
)

// TimeoutKind identifies which timer fired, if any.
type TimeoutKind string

const (
	TimeoutNone TimeoutKind = ""
	TimeoutIdle TimeoutKind = "idle"
	TimeoutHard TimeoutKind = "hard"
)

// Options configures one execution attempt; these mirror the runtime
// knobs of spec §6.
type Options struct {
	Executable        string
	FullAuto          bool
	SkipGitRepoCheck  bool
	Model             string
	ReasoningEffort   string
	IdleTimeout       time.Duration // 0 or negative disables; DefaultOptions sets 20 minutes
	HardTimeout       time.Duration // 0 or negative disables
	TerminateOnResult bool
	WorkDir           string
	AgentContextFile  string
	SkillAgentFile    string
	SkillFile         string
	LogsDir           string
}

// DefaultOptions returns the documented default knob values.
func DefaultOptions() Options {
	return Options{
		Executable:        "codex",
		FullAuto:          true,
		SkipGitRepoCheck:  true,
		IdleTimeout:       defaultIdleTimeout,
		TerminateOnResult: true,
	}
}

// ExecOutcome is the structured result of one execution attempt (spec §3).
type ExecOutcome struct {
	ExitCode     *int
	Signal       string
	ElapsedMs    int64
	LogPath      string
	TimedOut     bool
	TimeoutKind  TimeoutKind
	TimeoutMs    int64
	ParsedResult *sentinel.ParsedResult
}

var sanitizeRe = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// sanitizeTaskID replaces every character outside [A-Za-z0-9._-] with
// an underscore (spec §5).
func sanitizeTaskID(id string) string {
	return sanitizeRe.ReplaceAllString(id, "_")
}

// BuildCommand assembles the executable and arguments per spec §4.D's
// command-assembly rules.
func BuildCommand(opts Options, prompt string) (string, []string) {
	executable := opts.Executable
	if executable == "" {
		executable = "codex"
	}
	args := []string{"exec"}
	if opts.FullAuto {
		args = append(args, "--full-auto")
	}
	if opts.SkipGitRepoCheck {
		args = append(args, "--skip-git-repo-check")
	}
	if opts.Model != "" {
		args = append(args, "-m", opts.Model)
	}
	if opts.ReasoningEffort != "" {
		args = append(args, "--config", fmt.Sprintf("model_reasoning_effort=%q", opts.ReasoningEffort))
	}
	args = append(args, prompt)
	return executable, args
}

// BuildPrompt assembles the prompt text per spec §4.D: relative POSIX
// references to the three context files, the task-only/no-mutation/
// sentinel-format rules, then the task's own fields.
func BuildPrompt(task *taskstore.Task, opts Options) string {
	rel := func(base, p string) string {
		r, err := filepath.Rel(base, p)
		if err != nil {
			return filepath.ToSlash(p)
		}
		return filepath.ToSlash(r)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "@%s\n", rel(opts.WorkDir, opts.AgentContextFile))
	fmt.Fprintf(&b, "@%s\n", rel(opts.WorkDir, opts.SkillAgentFile))
	fmt.Fprintf(&b, "@%s\n\n", rel(opts.WorkDir, opts.SkillFile))

	b.WriteString("Implement only the current task described below. Do not start other tasks.\n\n")
	b.WriteString("You may update the plan and progress side files, but you must NOT mutate the external task store yourself — the runner updates task status.\n\n")
	b.WriteString("When you are done, emit exactly one line in this format and then terminate immediately:\n")
	b.WriteString(`RESULT: {"status":"done|failed","validation":"pass|fail|unknown","summary":"..."}`)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Task %s: %s\n", task.ID, task.Title)
	if task.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", task.Description)
	}
	if task.Details != "" {
		fmt.Fprintf(&b, "Details: %s\n", task.Details)
	}
	if task.TestStrategy != "" {
		fmt.Fprintf(&b, "Test strategy: %s\n", task.TestStrategy)
	}
	fmt.Fprintf(&b, "Dependencies: %s\n", task.DependenciesOrNone())

	return b.String()
}

// Executor drives one agent subprocess per attempt.
type Executor struct{}

func New() *Executor {
	return &Executor{}
}

// ChunkFunc is invoked once per output chunk read from the subprocess,
// after it has been logged and buffered but before the sentinel parser
// sees it — matching the runner's observer callback surface (spec §4.H).
type ChunkFunc func(chunk string)

// Execute launches the agent for task, tails its output, enforces the
// timers, and returns the collected outcome. attempt is used only for
// naming the per-attempt log file.
func (e *Executor) Execute(ctx context.Context, task *taskstore.Task, attempt int, opts Options, onChunk ChunkFunc) (*ExecOutcome, error) {
	if opts.LogsDir != "" {
		if err := os.MkdirAll(opts.LogsDir, 0755); err != nil {
			return nil, fmt.Errorf("create logs dir: %w", err)
		}
	}

	logPath := filepath.Join(opts.LogsDir, fmt.Sprintf("%s-attempt-%d.log", sanitizeTaskID(task.ID), attempt))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("open attempt log %s: %w", logPath, err)
	}
	defer logFile.Close()

	prompt := BuildPrompt(task, opts)
	executable, args := BuildCommand(opts, prompt)

	cmd := exec.Command(executable, args...)
	cmd.Dir = opts.WorkDir

	ptyFile, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("start agent subprocess: %w", err)
	}

	state := newTermState(cmd, ptyFile, logFile)
	start := time.Now()

	var buf outputBuffer
	var parsed *sentinel.ParsedResult
	var parsedMu sync.Mutex

	var idleTimer *resettableTimer
	var idleFired <-chan time.Time
	if opts.IdleTimeout > 0 {
		idleTimer = newResettableTimer(opts.IdleTimeout)
		idleFired = idleTimer.C()
		defer idleTimer.Stop()
	}

	var hardTimer *time.Timer
	var hardFired <-chan time.Time
	if opts.HardTimeout > 0 {
		hardTimer = time.NewTimer(clampTimer(opts.HardTimeout))
		hardFired = hardTimer.C
		defer hardTimer.Stop()
	}

	// resultDetected hands the reader's first successful sentinel parse
	// to the timer goroutine, which then arms the result-grace timer.
	resultDetected := make(chan struct{}, 1)
	var resultGraceFired <-chan time.Time

	timedOutKind := TimeoutNone
	var timedOutMs int64

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		reader := bufio.NewReaderSize(ptyFile, 32*1024)
		for {
			line, readErr := reader.ReadString('\n')
			if line != "" {
				logFile.WriteString(line)
				os.Stdout.WriteString(line)
				buf.Append(line)
				if idleTimer != nil {
					idleTimer.Reset(opts.IdleTimeout)
				}

				if onChunk != nil {
					onChunk(line)
				}

				parsedMu.Lock()
				alreadyParsed := parsed != nil
				parsedMu.Unlock()
				if !alreadyParsed {
					if result := sentinel.Extract(buf.String()); result != nil {
						parsedMu.Lock()
						parsed = result
						parsedMu.Unlock()
						if opts.TerminateOnResult {
							resultDetected <- struct{}{}
						}
					}
				}
			}
			if readErr != nil {
				return nil
			}
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
		}
	})

	g.Go(func() error {
		processDone := waitDone(cmd)
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-idleFired:
				timedOutKind = TimeoutIdle
				timedOutMs = opts.IdleTimeout.Milliseconds()
				state.Terminate("idle timeout")
				return nil
			case <-hardFired:
				timedOutKind = TimeoutHard
				timedOutMs = opts.HardTimeout.Milliseconds()
				state.Terminate("hard timeout")
				return nil
			case <-resultDetected:
				resultGraceFired = time.After(resultGraceTimeout)
			case <-resultGraceFired:
				state.Terminate("result grace expired")
				return nil
			case <-processDone:
				return nil
			}
		}
	})

	waitErr := cmd.Wait()
	_ = g.Wait()
	state.MarkReaped()

	elapsed := time.Since(start)

	outcome := &ExecOutcome{
		ElapsedMs:    elapsed.Milliseconds(),
		LogPath:      logPath,
		TimedOut:     timedOutKind != TimeoutNone,
		TimeoutKind:  timedOutKind,
		TimeoutMs:    timedOutMs,
		ParsedResult: parsed,
	}
	outcome.ExitCode, outcome.Signal = exitInfo(cmd, waitErr)

	return outcome, nil
}

func exitInfo(cmd *exec.Cmd, waitErr error) (*int, string) {
	if cmd.ProcessState == nil {
		return nil, ""
	}
	code := cmd.ProcessState.ExitCode()
	if code >= 0 {
		return &code, ""
	}
	if waitErr != nil {
		return nil, waitErr.Error()
	}
	return nil, "killed"
}

// waitDone returns a channel closed once cmd has exited, without itself
// calling cmd.Wait() (the caller does that once, separately).
func waitDone(cmd *exec.Cmd) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		for cmd.ProcessState == nil {
			time.Sleep(20 * time.Millisecond)
		}
		close(ch)
	}()
	return ch
}

func clampTimer(d time.Duration) time.Duration {
	if d < minTimerDuration {
		return minTimerDuration
	}
	return d.Truncate(time.Millisecond)
}

// outputBuffer is a rolling, front-truncating buffer capped at
// maxOutputBufferSize characters (spec §4.D).
type outputBuffer struct {
	mu sync.Mutex
	s  string
}

func (b *outputBuffer) Append(chunk string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.s += chunk
	if len(b.s) > maxOutputBufferSize {
		b.s = b.s[len(b.s)-maxOutputBufferSize:]
	}
}

func (b *outputBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.s
}

// resettableTimer wraps time.AfterFunc with Reset semantics safe to
// call repeatedly from the reader goroutine while the timer goroutine
// selects on its channel.
type resettableTimer struct {
	mu    sync.Mutex
	timer *time.Timer
	ch    chan time.Time
}

func newResettableTimer(d time.Duration) *resettableTimer {
	rt := &resettableTimer{ch: make(chan time.Time, 1)}
	rt.timer = time.AfterFunc(clampTimer(d), func() {
		select {
		case rt.ch <- time.Now():
		default:
		}
	})
	return rt
}

func (rt *resettableTimer) Reset(d time.Duration) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.timer.Stop()
	rt.timer = time.AfterFunc(clampTimer(d), func() {
		select {
		case rt.ch <- time.Now():
		default:
		}
	})
}

func (rt *resettableTimer) C() <-chan time.Time {
	return rt.ch
}

func (rt *resettableTimer) Stop() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.timer.Stop()
}
