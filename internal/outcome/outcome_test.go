package outcome

import (
	"testing"

	"github.com/codextasks/taskrunner/internal/sentinel"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestResolveDoneWithPassingValidationSucceeds(t *testing.T) {
	res := Resolve(Input{ParsedResult: &sentinel.ParsedResult{Status: sentinel.StatusDone, Validation: sentinel.ValidationPass}})
	require.True(t, res.Success)
}

func TestResolveDoneWithFailingValidationFails(t *testing.T) {
	res := Resolve(Input{ParsedResult: &sentinel.ParsedResult{Status: sentinel.StatusDone, Validation: sentinel.ValidationFail}})
	require.False(t, res.Success)
}

func TestResolveTimeoutFailsRegardlessOfExitCode(t *testing.T) {
	res := Resolve(Input{TimedOut: true, TimeoutKind: "hard", TimeoutMs: 1000, ExitCode: intPtr(0)})
	require.False(t, res.Success)
}

func TestResolveNoResultExitZeroSucceeds(t *testing.T) {
	res := Resolve(Input{ExitCode: intPtr(0)})
	require.True(t, res.Success)
	require.Contains(t, res.Note, "exit_code_fallback")
}

func TestResolveNoResultNonZeroExitFails(t *testing.T) {
	res := Resolve(Input{ExitCode: intPtr(1)})
	require.False(t, res.Success)
}

func TestResolveFailedStatusFails(t *testing.T) {
	res := Resolve(Input{ParsedResult: &sentinel.ParsedResult{Status: sentinel.StatusFailed, Validation: sentinel.ValidationUnknown}})
	require.False(t, res.Success)
}
