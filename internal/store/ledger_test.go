package store

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLedgerAppendWritesOneLinePerEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.jsonl")
	l := NewLedgerStore(path)

	require.NoError(t, l.Append(LedgerEntry{TaskID: "1", Attempt: 1, Status: LedgerDone}))
	require.NoError(t, l.Append(LedgerEntry{TaskID: "1", Attempt: 2, Status: LedgerFailed}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 2)
}

func TestLedgerAppendIsNeverMutated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.jsonl")
	l := NewLedgerStore(path)

	require.NoError(t, l.Append(LedgerEntry{TaskID: "1", Attempt: 1, Status: LedgerInProgress}))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, l.Append(LedgerEntry{TaskID: "2", Attempt: 1, Status: LedgerDone}))
	after, err := os.ReadFile(path)
	require.NoError(t, err)

	require.Contains(t, string(after), string(before))
}
