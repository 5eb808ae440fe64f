// Package outcome implements the Outcome Resolver (spec §4.E): it
// combines a parsed sentinel result with exit status and timeout flags
// into a boolean success plus an explanatory note, via a single ordered
// sequence of checks rather than a nested conditional.
package outcome

import (
	"fmt"

	"github.com/codextasks/taskrunner/internal/sentinel"
)

// Input is the subset of an executor outcome the resolver needs.
type Input struct {
	ParsedResult *sentinel.ParsedResult
	ExitCode     *int
	Signal       string
	TimedOut     bool
	TimeoutKind  string
	TimeoutMs    int64
}

// Result is the resolver's verdict.
type Result struct {
	Success bool
	Note    string
}

// Resolve evaluates the decision table of spec §4.E top-down; the first
// matching row wins.
func Resolve(in Input) Result {
	if in.ParsedResult != nil && in.ParsedResult.Status == sentinel.StatusDone && in.ParsedResult.Validation != sentinel.ValidationFail {
		return Result{Success: true, Note: parsedResultNote(in.ParsedResult)}
	}

	if in.ParsedResult != nil {
		return Result{Success: false, Note: parsedResultNote(in.ParsedResult)}
	}

	if in.TimedOut {
		return Result{Success: false, Note: fmt.Sprintf("executor %s timeout after %dms", in.TimeoutKind, in.TimeoutMs)}
	}

	if in.ExitCode != nil && *in.ExitCode == 0 {
		return Result{Success: true, Note: "exit_code_fallback success (missing RESULT)"}
	}

	return Result{Success: false, Note: fmt.Sprintf("executor failed exitCode=%s signal=%s", exitCodeStr(in.ExitCode), in.Signal)}
}

func parsedResultNote(r *sentinel.ParsedResult) string {
	note := fmt.Sprintf("parsed_result status=%s validation=%s", r.Status, r.Validation)
	if r.Summary != "" {
		note += fmt.Sprintf(" summary=%q", r.Summary)
	}
	return note
}

func exitCodeStr(code *int) string {
	if code == nil {
		return "null"
	}
	return fmt.Sprintf("%d", *code)
}
