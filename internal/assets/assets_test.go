package assets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codextasks/taskrunner/internal/paths"
)

func fallbackOpts() Options {
	return Options{AgentsMode: AgentsModeAppend, DisableRemote: true}
}

func TestInitAssetsIdempotent(t *testing.T) {
	dir := t.TempDir()
	sp, err := paths.Resolve(paths.Options{Root: dir, Mode: paths.ModeFull})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = InitAssets(ctx, sp, paths.ModeFull, fallbackOpts())
	require.NoError(t, err)
	_, err = InitAssets(ctx, sp, paths.ModeFull, fallbackOpts())
	require.NoError(t, err)

	data, err := os.ReadFile(sp.AgentContext)
	require.NoError(t, err)
	require.Equal(t, 1, countOccurrences(string(data), hookStart))
	require.Equal(t, 1, countOccurrences(string(data), hookEnd))

	skillData, err := os.ReadFile(sp.SkillFile)
	require.NoError(t, err)
	require.Equal(t, 1, countOccurrences(string(skillData), addendumStart))
}

func TestInitAssetsCorruptMarkersFails(t *testing.T) {
	dir := t.TempDir()
	sp, err := paths.Resolve(paths.Options{Root: dir})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(sp.AgentContext, []byte(hookStart+"\nno end marker here"), 0644))

	_, err = InitAssets(context.Background(), sp, paths.ModeFull, fallbackOpts())
	require.ErrorIs(t, err, ErrCorruptMarkers)
}

func TestInitAssetsPicksLowercaseAgentMdWhenOnlyItExists(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "agent.md"), []byte("hi"), 0644))

	sp, err := paths.Resolve(paths.Options{Root: dir})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "agent.md"), sp.AgentContext)

	_, err = InitAssets(context.Background(), sp, paths.ModeFull, fallbackOpts())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "agent.md"))
	require.NoError(t, err)
	require.Contains(t, string(data), hookStart)
}

func TestInitAssetsFailModeErrorsWhenHookMissing(t *testing.T) {
	dir := t.TempDir()
	sp, err := paths.Resolve(paths.Options{Root: dir})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(sp.AgentContext, []byte("just some text"), 0644))

	opts := fallbackOpts()
	opts.AgentsMode = AgentsModeFail
	_, err = InitAssets(context.Background(), sp, paths.ModeFull, opts)
	require.ErrorIs(t, err, ErrHookMissing)
}

func TestInitAssetsSkipModeLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	sp, err := paths.Resolve(paths.Options{Root: dir})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(sp.AgentContext, []byte("just some text"), 0644))

	opts := fallbackOpts()
	opts.AgentsMode = AgentsModeSkip
	_, err = InitAssets(context.Background(), sp, paths.ModeFull, opts)
	require.NoError(t, err)

	data, err := os.ReadFile(sp.AgentContext)
	require.NoError(t, err)
	require.Equal(t, "just some text", string(data))
}

func TestInitAssetsLiteModeSkipsSpecAndProgress(t *testing.T) {
	dir := t.TempDir()
	sp, err := paths.Resolve(paths.Options{Root: dir, Mode: paths.ModeLite})
	require.NoError(t, err)

	_, err = InitAssets(context.Background(), sp, paths.ModeLite, fallbackOpts())
	require.NoError(t, err)

	_, statErr := os.Stat(sp.SpecFile)
	require.Error(t, statErr)
	_, statErr = os.Stat(sp.ProgressFile)
	require.Error(t, statErr)
}

func TestInitAssetsFullModeWritesSpecAndProgress(t *testing.T) {
	dir := t.TempDir()
	sp, err := paths.Resolve(paths.Options{Root: dir, Mode: paths.ModeFull})
	require.NoError(t, err)

	_, err = InitAssets(context.Background(), sp, paths.ModeFull, fallbackOpts())
	require.NoError(t, err)

	_, statErr := os.Stat(sp.SpecFile)
	require.NoError(t, statErr)
	_, statErr = os.Stat(sp.ProgressFile)
	require.NoError(t, statErr)
}

func TestInitAssetsGitignoreNotDuplicated(t *testing.T) {
	dir := t.TempDir()
	sp, err := paths.Resolve(paths.Options{Root: dir})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = InitAssets(ctx, sp, paths.ModeFull, fallbackOpts())
	require.NoError(t, err)
	_, err = InitAssets(ctx, sp, paths.ModeFull, fallbackOpts())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, ".codex-tasks", ".gitignore"))
	require.NoError(t, err)
	require.Equal(t, gitignoreContent, string(data))
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
			i += len(substr) - 1
		}
	}
	return count
}
