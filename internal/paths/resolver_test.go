package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveDefaults(t *testing.T) {
	dir := t.TempDir()
	sp, err := Resolve(Options{Root: dir})
	require.NoError(t, err)

	require.Equal(t, filepath.Join(dir, "AGENTS.md"), sp.AgentContext)
	require.Equal(t, filepath.Join(dir, ".codex-tasks", "taskmaster-longrun"), sp.SessionDir)
	require.Equal(t, filepath.Join(dir, ".codex", "skills", "taskmaster-longrun", "SKILL.md"), sp.SkillFile)
	require.Equal(t, filepath.Join(dir, ".codex", "skills", "taskmaster-longrun", "AGENTS.md"), sp.SkillAgentFile)
}

func TestResolveLiteModePlanAtRoot(t *testing.T) {
	dir := t.TempDir()
	sp, err := Resolve(Options{Root: dir, Mode: ModeLite})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "TODO.csv"), sp.PlanFile)
}

func TestResolveFullModePlanInSession(t *testing.T) {
	dir := t.TempDir()
	sp, err := Resolve(Options{Root: dir, Mode: ModeFull})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(sp.SessionDir, "TODO.csv"), sp.PlanFile)
}

func TestResolvePrefersLowercaseAgentMdWhenOnlyItExists(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "agent.md"), []byte("hi"), 0644))

	sp, err := Resolve(Options{Root: dir})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "agent.md"), sp.AgentContext)
}

func TestResolvePrefersUppercaseWhenBothExist(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "agent.md"), []byte("hi"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AGENTS.md"), []byte("hi"), 0644))

	sp, err := Resolve(Options{Root: dir})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "AGENTS.md"), sp.AgentContext)
}
