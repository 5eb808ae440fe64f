// Package paths resolves every file and directory the runner touches
// from a project root, a run mode, and a handful of overrides.
package paths

import (
	"os"
	"path/filepath"
)

// Mode selects the plan-projection schema and whether full-mode assets
// (SPEC.md, PROGRESS.md, task-map file) are written.
type Mode string

const (
	ModeLite Mode = "lite"
	ModeFull Mode = "full"
)

// Options carries the overrides Resolve accepts. Relative paths are
// resolved against Root; empty fields take the default.
type Options struct {
	Root           string
	Mode           Mode
	AgentContext   string
	SkillPath      string
	SessionDirName string
}

// SessionPaths is the fully-resolved set of absolute paths a session uses.
type SessionPaths struct {
	Root           string
	AgentContext   string
	SkillAgentFile string
	SkillFile      string
	SessionDir     string
	SpecFile       string
	ProgressFile   string
	PlanFile       string
	TaskMapFile    string
	CheckpointFile string
	LedgerFile     string
	LogsDir        string
}

const (
	defaultSessionDirRel = ".codex-tasks/taskmaster-longrun"
	defaultSkillPathRel  = ".codex/skills/taskmaster-longrun/SKILL.md"
)

// Resolve derives every session path from opts. The caller is expected to
// fill Root; all other fields are optional.
func Resolve(opts Options) (SessionPaths, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return SessionPaths{}, err
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeFull
	}

	sessionDirRel := opts.SessionDirName
	if sessionDirRel == "" {
		sessionDirRel = defaultSessionDirRel
	}
	sessionDir := resolveRel(root, sessionDirRel)

	skillPath := opts.SkillPath
	if skillPath == "" {
		skillPath = defaultSkillPathRel
	}
	skillFile := resolveRel(root, skillPath)
	skillAgentFile := filepath.Join(filepath.Dir(skillFile), "AGENTS.md")

	agentContext := opts.AgentContext
	var agentContextFile string
	if agentContext != "" {
		agentContextFile = resolveRel(root, agentContext)
	} else {
		agentContextFile = pickAgentContext(root)
	}

	var planFile string
	if mode == ModeLite {
		planFile = filepath.Join(root, "TODO.csv")
	} else {
		planFile = filepath.Join(sessionDir, "TODO.csv")
	}

	return SessionPaths{
		Root:           root,
		AgentContext:   agentContextFile,
		SkillAgentFile: skillAgentFile,
		SkillFile:      skillFile,
		SessionDir:     sessionDir,
		SpecFile:       filepath.Join(sessionDir, "SPEC.md"),
		ProgressFile:   filepath.Join(sessionDir, "PROGRESS.md"),
		PlanFile:       planFile,
		TaskMapFile:    filepath.Join(sessionDir, "taskmaster-map.json"),
		CheckpointFile: filepath.Join(sessionDir, "checkpoint.json"),
		LedgerFile:     filepath.Join(sessionDir, "ledger.jsonl"),
		LogsDir:        filepath.Join(sessionDir, "logs"),
	}, nil
}

func resolveRel(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// pickAgentContext implements the AGENTS.md → agent.md → AGENTS.md
// fallback: prefer AGENTS.md if it exists; else agent.md if it exists;
// else default to AGENTS.md (to be created).
func pickAgentContext(root string) string {
	agentsMD := filepath.Join(root, "AGENTS.md")
	if _, err := os.Stat(agentsMD); err == nil {
		return agentsMD
	}
	lower := filepath.Join(root, "agent.md")
	if _, err := os.Stat(lower); err == nil {
		return lower
	}
	return agentsMD
}

// ToPOSIX converts an absolute path to forward-slash form for embedding
// in prompts and comparisons, regardless of host OS separators.
func ToPOSIX(p string) string {
	return filepath.ToSlash(p)
}

// RelPOSIX returns p relative to base in forward-slash form, or p
// itself in forward-slash form if it can't be made relative.
func RelPOSIX(base, p string) string {
	rel, err := filepath.Rel(base, p)
	if err != nil {
		return ToPOSIX(p)
	}
	return ToPOSIX(rel)
}
