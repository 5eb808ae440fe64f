package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRunIDIsUnique(t *testing.T) {
	a := NewRunID()
	b := NewRunID()
	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)
}

func TestWithRunAttachesRunIDField(t *testing.T) {
	logger, err := New(true)
	require.NoError(t, err)

	child := WithRun(logger, "run-123")
	require.NotNil(t, child)
	require.NotSame(t, logger, child)
}
