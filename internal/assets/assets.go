// Package assets implements the Asset Initializer (spec §4.B): it
// ensures the hook-marked agent-context file, the skill file with its
// integration addendum, the session directory with gitignore, and (in
// full mode) the spec/progress templates all exist, idempotently.
package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/codextasks/taskrunner/internal/paths"
)

// AgentsMode controls what happens when neither hook marker is present
// in the agent-context file (spec §4.B.2).
type AgentsMode string

const (
	AgentsModeAppend AgentsMode = "append"
	AgentsModeSkip    AgentsMode = "skip"
	AgentsModeFail    AgentsMode = "fail"
)

// FileOutcome classifies how a touched file was handled.
type FileOutcome string

const (
	FileCreated FileOutcome = "created"
	FileUpdated FileOutcome = "updated"
	FileSkipped FileOutcome = "skipped"
)

// InitResult records what InitAssets did, keyed by path relative to
// the project root.
type InitResult struct {
	Files map[string]FileOutcome
}

func newInitResult() *InitResult {
	return &InitResult{Files: map[string]FileOutcome{}}
}

func (r *InitResult) record(root, path string, outcome FileOutcome) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	r.Files[filepath.ToSlash(rel)] = outcome
}

// ErrCorruptMarkers is returned when the agent-context file contains
// exactly one of the two hook markers.
var ErrCorruptMarkers = errors.New("corrupt markers: agent-context file has exactly one hook marker")

// ErrHookMissing is returned under AgentsModeFail when neither marker
// is present.
var ErrHookMissing = errors.New("hook missing: agent-context file has no hook block and agentsMode is fail")

// Options configures InitAssets.
type Options struct {
	AgentsMode    AgentsMode
	DisableRemote bool
	Fetcher       TemplateFetcher
}

// InitAssets performs the idempotent guarantees of spec §4.B against sp.
func InitAssets(ctx context.Context, sp paths.SessionPaths, mode paths.Mode, opts Options) (*InitResult, error) {
	result := newInitResult()
	fetcher := disabledFetcher{inner: opts.Fetcher, disabled: opts.DisableRemote || opts.Fetcher == nil}

	if err := ensureSessionDirs(sp, result); err != nil {
		return nil, err
	}

	if err := ensureHookBlock(sp, opts.AgentsMode, result); err != nil {
		return nil, err
	}

	if err := ensureSkillFile(ctx, sp, fetcher, result); err != nil {
		return nil, err
	}

	if err := ensureSkillAgentFile(ctx, sp, fetcher, result); err != nil {
		return nil, err
	}

	if mode == paths.ModeFull {
		if err := ensureTemplateIfMissing(sp.Root, sp.SpecFile, defaultSpecTemplate, result); err != nil {
			return nil, err
		}
		if err := ensureTemplateIfMissing(sp.Root, sp.ProgressFile, defaultProgressTemplate, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func ensureSessionDirs(sp paths.SessionPaths, result *InitResult) error {
	if err := os.MkdirAll(sp.SessionDir, 0755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.MkdirAll(sp.LogsDir, 0755); err != nil {
		return fmt.Errorf("create logs dir: %w", err)
	}

	gitignorePath := filepath.Join(sp.Root, ".codex-tasks", ".gitignore")
	if _, err := os.Stat(gitignorePath); err == nil {
		result.record(sp.Root, gitignorePath, FileSkipped)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(gitignorePath), 0755); err != nil {
		return fmt.Errorf("create .codex-tasks dir: %w", err)
	}
	if err := os.WriteFile(gitignorePath, []byte(gitignoreContent), 0644); err != nil {
		return fmt.Errorf("write gitignore: %w", err)
	}
	result.record(sp.Root, gitignorePath, FileCreated)
	return nil
}

func ensureHookBlock(sp paths.SessionPaths, mode AgentsMode, result *InitResult) error {
	path := sp.AgentContext
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(hookBlock), 0644); err != nil {
			return fmt.Errorf("create agent-context file: %w", err)
		}
		result.record(sp.Root, path, FileCreated)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read agent-context file: %w", err)
	}

	content := string(data)
	hasStart := strings.Contains(content, hookStart)
	hasEnd := strings.Contains(content, hookEnd)

	switch {
	case hasStart && hasEnd:
		result.record(sp.Root, path, FileSkipped)
		return nil
	case hasStart != hasEnd:
		return ErrCorruptMarkers
	default:
		return applyMissingHookPolicy(sp, path, content, mode, result)
	}
}

func applyMissingHookPolicy(sp paths.SessionPaths, path, content string, mode AgentsMode, result *InitResult) error {
	switch mode {
	case AgentsModeSkip:
		result.record(sp.Root, path, FileSkipped)
		return nil
	case AgentsModeFail:
		return ErrHookMissing
	case AgentsModeAppend, "":
		updated := content
		if !strings.HasSuffix(updated, "\n") {
			updated += "\n"
		}
		updated += "\n" + hookBlock
		if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
			return fmt.Errorf("append hook block: %w", err)
		}
		result.record(sp.Root, path, FileUpdated)
		return nil
	default:
		return fmt.Errorf("unknown agentsMode %q", mode)
	}
}

func ensureSkillFile(ctx context.Context, sp paths.SessionPaths, fetcher TemplateFetcher, result *InitResult) error {
	path := sp.SkillFile
	data, err := os.ReadFile(path)
	if err == nil && looksLikeUpstreamSkill(string(data)) && hasAddendum(string(data)) {
		result.record(sp.Root, path, FileSkipped)
		return nil
	}
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read skill file: %w", err)
	}

	template, fetchErr := fetcher.Fetch(ctx, skillTemplateName)
	if fetchErr != nil {
		return fmt.Errorf("fetch skill template: %w", fetchErr)
	}
	rendered := stripAddendum(template) + "\n" + addendumStart + "\n" + addendumEnd + "\n"

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create skill dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(rendered), 0644); err != nil {
		return fmt.Errorf("write skill file: %w", err)
	}

	if os.IsNotExist(err) {
		result.record(sp.Root, path, FileCreated)
	} else {
		result.record(sp.Root, path, FileUpdated)
	}
	return nil
}

// looksLikeUpstreamSkill checks the file starts with a YAML-style
// frontmatter block (spec §4.B.3) and that it actually parses as YAML.
func looksLikeUpstreamSkill(content string) bool {
	if !strings.HasPrefix(content, "---\n") {
		return false
	}
	rest := content[4:]
	end := strings.Index(rest, "\n---")
	if end == -1 {
		return false
	}
	frontmatter := rest[:end]
	var doc map[string]interface{}
	return yaml.Unmarshal([]byte(frontmatter), &doc) == nil
}

func hasAddendum(content string) bool {
	return strings.Contains(content, addendumStart) && strings.Contains(content, addendumEnd)
}

func stripAddendum(content string) string {
	start := strings.Index(content, addendumStart)
	end := strings.Index(content, addendumEnd)
	if start == -1 || end == -1 || end < start {
		return strings.TrimRight(content, "\n")
	}
	return strings.TrimRight(content[:start], "\n")
}

func ensureSkillAgentFile(ctx context.Context, sp paths.SessionPaths, fetcher TemplateFetcher, result *InitResult) error {
	path := sp.SkillAgentFile
	data, err := os.ReadFile(path)
	if err == nil && strings.Contains(string(data), "# Global Agent Rules") {
		result.record(sp.Root, path, FileSkipped)
		return nil
	}
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read skill-agent file: %w", err)
	}

	template, fetchErr := fetcher.Fetch(ctx, skillAgentTemplateName)
	if fetchErr != nil {
		return fmt.Errorf("fetch skill-agent template: %w", fetchErr)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create skill-agent dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(template), 0644); err != nil {
		return fmt.Errorf("write skill-agent file: %w", err)
	}

	if os.IsNotExist(err) {
		result.record(sp.Root, path, FileCreated)
	} else {
		result.record(sp.Root, path, FileUpdated)
	}
	return nil
}

func ensureTemplateIfMissing(root, path, content string, result *InitResult) error {
	if _, err := os.Stat(path); err == nil {
		result.record(root, path, FileSkipped)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create template dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write template %s: %w", path, err)
	}
	result.record(root, path, FileCreated)
	return nil
}
