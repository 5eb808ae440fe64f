package taskstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTasksFixture(t *testing.T, dir string, tasks []Task) string {
	t.Helper()
	path := filepath.Join(dir, "tasks.json")
	s := NewJSONStore(path)
	require.NoError(t, s.save(tasks))
	return path
}

func TestJSONStoreNextSkipsTerminalTasks(t *testing.T) {
	dir := t.TempDir()
	path := writeTasksFixture(t, dir, []Task{
		{ID: "1", Title: "first", Status: StatusDone},
		{ID: "2", Title: "second", Status: StatusPending},
	})

	s := NewJSONStore(path)
	next, err := s.Next(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, next)
	require.Equal(t, "2", next.ID)
}

func TestJSONStoreNextDescendsIntoSubtasks(t *testing.T) {
	dir := t.TempDir()
	path := writeTasksFixture(t, dir, []Task{
		{ID: "1", Title: "parent", Status: StatusDone, Subtasks: []Task{
			{ID: "1.1", Title: "child", Status: StatusPending},
		}},
	})

	s := NewJSONStore(path)
	next, err := s.Next(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, next)
	require.Equal(t, "1.1", next.ID)
}

func TestJSONStoreNextReturnsNilWhenAllTerminal(t *testing.T) {
	dir := t.TempDir()
	path := writeTasksFixture(t, dir, []Task{
		{ID: "1", Title: "first", Status: StatusDone},
	})

	s := NewJSONStore(path)
	next, err := s.Next(context.Background(), "")
	require.NoError(t, err)
	require.Nil(t, next)
}

func TestJSONStoreSetStatusUpdatesSubtask(t *testing.T) {
	dir := t.TempDir()
	path := writeTasksFixture(t, dir, []Task{
		{ID: "1", Title: "parent", Status: StatusPending, Subtasks: []Task{
			{ID: "1.1", Title: "child", Status: StatusPending},
		}},
	})

	s := NewJSONStore(path)
	require.NoError(t, s.SetStatus(context.Background(), "1.1", StatusDone))

	got, err := s.Get(context.Background(), "1.1")
	require.NoError(t, err)
	require.Equal(t, StatusDone, got.Status)
}

func TestJSONStoreSetStatusUnknownIDErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeTasksFixture(t, dir, []Task{{ID: "1", Title: "first", Status: StatusPending}})

	s := NewJSONStore(path)
	err := s.SetStatus(context.Background(), "missing", StatusDone)
	require.Error(t, err)
}

func TestJSONStoreNextRejectsTaskMissingTitle(t *testing.T) {
	dir := t.TempDir()
	path := writeTasksFixture(t, dir, []Task{{ID: "1", Status: StatusPending}})

	s := NewJSONStore(path)
	_, err := s.Next(context.Background(), "")
	require.Error(t, err)
	require.ErrorContains(t, err, "title")
}
