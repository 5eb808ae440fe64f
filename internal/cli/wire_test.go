package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codextasks/taskrunner/internal/taskstore"
)

func TestSeedSQLiteStoreIfEmptyImportsFromSeedFile(t *testing.T) {
	dir := t.TempDir()
	seedFile := filepath.Join(dir, "tasks.json")
	require.NoError(t, os.WriteFile(seedFile, []byte(`[{"id":"1","title":"first","status":"pending"}]`), 0644))

	s, err := taskstore.OpenSQLiteStore(filepath.Join(dir, "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, seedSQLiteStoreIfEmpty(s, seedFile))

	all, err := s.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "1", all[0].ID)
}

func TestSeedSQLiteStoreIfEmptyLeavesExistingRowsAlone(t *testing.T) {
	dir := t.TempDir()
	seedFile := filepath.Join(dir, "tasks.json")
	require.NoError(t, os.WriteFile(seedFile, []byte(`[{"id":"2","title":"second","status":"pending"}]`), 0644))

	s, err := taskstore.OpenSQLiteStore(filepath.Join(dir, "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.ImportTasks(context.Background(), []taskstore.Task{{ID: "1", Title: "first", Status: taskstore.StatusPending}}))

	require.NoError(t, seedSQLiteStoreIfEmpty(s, seedFile))

	all, err := s.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "1", all[0].ID)
}

func TestSeedSQLiteStoreIfEmptyToleratesMissingSeedFile(t *testing.T) {
	dir := t.TempDir()
	s, err := taskstore.OpenSQLiteStore(filepath.Join(dir, "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, seedSQLiteStoreIfEmpty(s, filepath.Join(dir, "missing.json")))

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}
