package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckpointLoadMissingFileReturnsEmptyState(t *testing.T) {
	dir := t.TempDir()
	s := NewCheckpointStore(filepath.Join(dir, "checkpoint.json"))

	state, err := s.Load()
	require.NoError(t, err)
	require.Empty(t, state.DoneTaskIDs)
	require.Empty(t, state.BlockedTaskIDs)
	require.Empty(t, state.Attempts)
}

func TestCheckpointSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s := NewCheckpointStore(filepath.Join(dir, "checkpoint.json"))

	state := NewCheckpointState()
	state.IncrementAttempt("1")
	state.MarkDone("1")
	require.NoError(t, s.Save(state))

	loaded, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Attempts["1"])
	require.True(t, loaded.IsDone("1"))
	require.NotEmpty(t, loaded.UpdatedAt)
}

func TestCheckpointMarkDoneRemovesFromBlocked(t *testing.T) {
	state := NewCheckpointState()
	state.MarkBlocked("1")
	require.True(t, state.IsBlocked("1"))

	state.MarkDone("1")
	require.True(t, state.IsDone("1"))
	require.False(t, state.IsBlocked("1"))
}

func TestCheckpointAttemptsMonotonicallyIncrease(t *testing.T) {
	state := NewCheckpointState()
	require.Equal(t, 1, state.IncrementAttempt("1"))
	require.Equal(t, 2, state.IncrementAttempt("1"))
	require.Equal(t, 3, state.IncrementAttempt("1"))
}

func TestCheckpointLoadCorruptFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))

	s := NewCheckpointStore(path)
	_, err := s.Load()
	require.Error(t, err)
}
