package assets

const (
	skillTemplateName      = "SKILL.md"
	skillAgentTemplateName = "AGENTS.md"
)

const hookStart = "<!-- TM-LONGRUN-START -->"
const hookEnd = "<!-- TM-LONGRUN-END -->"

const addendumStart = "<!-- TM-INTEGRATION-START -->"
const addendumEnd = "<!-- TM-INTEGRATION-END -->"

const hookBlock = hookStart + `
This project is driven by taskmaster-longrun, a long-horizon task
runner. Tasks are tracked in an external task store; this runner
updates only task status and the plan/progress side files.
` + hookEnd + "\n"

const fallbackSkillTemplate = `---
name: taskmaster-longrun
description: Drives one task at a time through an external coding agent.
---

# taskmaster-longrun

This skill executes tasks one at a time. On completion, emit exactly
one line:

` + "```" + `
RESULT: {"status":"done|failed","validation":"pass|fail|unknown","summary":"..."}
` + "```" + `
` + addendumStart + `
` + addendumEnd + `
`

const fallbackSkillAgentTemplate = `# Global Agent Rules

These rules apply to every task executed under taskmaster-longrun.

- Implement only the current task.
- Do not mutate the external task store; the runner owns task status.
- Terminate immediately after emitting the RESULT: sentinel line.
`

const defaultSpecTemplate = `# SPEC

Describe the system under construction here.
`

const defaultProgressTemplate = `# PROGRESS

This file tracks completed work and learnings across runner sessions.
`

const gitignoreContent = "*\n!.gitignore\n"
