// Package plan implements Plan Projection (spec §4.G): it renders the
// current task list plus checkpoint into a tabular CSV plan (one of two
// column schemas depending on mode) and, in full mode, a task→row
// mapping file. Both are rewritten in full on every transition — they
// are a view, not a source of truth (spec §3) — via the same
// renameio-backed atomic write the checkpoint store uses.
package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/codextasks/taskrunner/internal/paths"
	"github.com/codextasks/taskrunner/internal/store"
	"github.com/codextasks/taskrunner/internal/taskstore"
)

// RowStatus is the closed set a plan row's projected status may take
// (spec §3).
type RowStatus string

const (
	RowTODO       RowStatus = "TODO"
	RowInProgress RowStatus = "IN_PROGRESS"
	RowDone       RowStatus = "DONE"
	RowFailed     RowStatus = "FAILED"
)

const validationCommandPlaceholder = "echo SKIP"

// Row is one projected plan row.
type Row struct {
	RowID              int
	TaskID             string
	DisplayID          string
	Status             RowStatus
	AcceptanceText     string
	ValidationCommand  string
	CompletedAt        string
	RetryCount         int
	Notes              string
	Dependencies       []string
}

// Clock supplies the current time; tests inject a fixed clock so plan
// bytes are byte-for-byte reproducible modulo completedAt (spec §8.9).
type Clock func() time.Time

// Project walks tasks in order (task, then its subtasks) and derives
// the projected rows per the precedence table in spec §4.G.
func Project(tasks []taskstore.Task, checkpoint *store.CheckpointState, now Clock) []Row {
	if now == nil {
		now = time.Now
	}
	var rows []Row
	rowID := 0
	for _, t := range tasks {
		rowID = appendRows(&rows, t, "", rowID, checkpoint, now)
	}
	return rows
}

func appendRows(rows *[]Row, t taskstore.Task, parentID string, rowID int, checkpoint *store.CheckpointState, now Clock) int {
	id := qualifyID(t.ID, parentID)

	deps := rewriteDeps(t.Dependencies, parentID)

	rowID++
	row := Row{
		RowID:             rowID,
		TaskID:            id,
		DisplayID:         fmt.Sprintf("%s: %s", id, t.Title),
		AcceptanceText:    t.TestStrategy,
		ValidationCommand: validationCommandPlaceholder,
		RetryCount:        checkpoint.Attempts[id],
		Dependencies:      deps,
	}
	row.Status = projectStatus(id, t.Status, checkpoint)
	if row.Status == RowDone {
		row.CompletedAt = now().UTC().Format(time.RFC3339)
	}
	if checkpoint.IsBlocked(id) {
		row.Notes = "blocked by retry limit"
	}
	*rows = append(*rows, row)

	for _, sub := range t.Subtasks {
		rowID = appendRows(rows, sub, id, rowID, checkpoint, now)
	}
	return rowID
}

// qualifyID returns the hierarchical id a row/checkpoint key uses for a
// task whose native id is localID, nested under a parent whose own
// qualified id is parentID ("" for a top-level task). A store backend
// may hand back subtasks whose native id is already fully qualified
// (taskstore.JSONStore and taskstore.SQLiteStore both do, so it matches
// whatever the runner already wrote to the checkpoint) or just the bare
// local id; qualifyID only prefixes in the latter case so a task tree
// already carrying hierarchical ids is never double-prefixed.
func qualifyID(localID, parentID string) string {
	if parentID == "" || strings.HasPrefix(localID, parentID+".") {
		return localID
	}
	return fmt.Sprintf("%s.%s", parentID, localID)
}

// rewriteDeps treats a dependency with no "." as a sibling reference,
// rewriting it to "<parentId>.<dep>" (spec §4.G).
func rewriteDeps(deps []string, parentID string) []string {
	if parentID == "" {
		return deps
	}
	rewritten := make([]string, len(deps))
	for i, d := range deps {
		if strings.Contains(d, ".") {
			rewritten[i] = d
		} else {
			rewritten[i] = fmt.Sprintf("%s.%s", parentID, d)
		}
	}
	return rewritten
}

func projectStatus(id string, underlying taskstore.Status, checkpoint *store.CheckpointState) RowStatus {
	switch {
	case checkpoint.IsDone(id):
		return RowDone
	case checkpoint.IsBlocked(id):
		return RowFailed
	case underlying == taskstore.StatusDone || underlying == taskstore.StatusCompleted:
		return RowDone
	case underlying == taskstore.StatusInProgress:
		return RowInProgress
	case underlying == taskstore.StatusBlocked || underlying == taskstore.StatusCancelled || underlying == taskstore.StatusDeferred:
		return RowFailed
	default:
		return RowTODO
	}
}

// liteStatus collapses a full-mode row status to the lite mode's
// two-value projection: DONE if the full projection is DONE, else TODO.
func liteStatus(s RowStatus) RowStatus {
	if s == RowDone {
		return RowDone
	}
	return RowTODO
}

// TaskMapEntry is one row of the full-mode task-map file.
type TaskMapEntry struct {
	RowID        int      `json:"rowId"`
	TaskID       string   `json:"taskId"`
	Title        string   `json:"title"`
	Dependencies []string `json:"dependencies"`
}

// TaskMap is the full-mode task→row mapping file (spec §6).
type TaskMap struct {
	GeneratedAt string         `json:"generatedAt"`
	Rows        []TaskMapEntry `json:"rows"`
}

// Sync renders the plan file (and, in full mode, the task-map file) for
// the given tasks and checkpoint, writing both atomically.
func Sync(tasks []taskstore.Task, checkpoint *store.CheckpointState, sp paths.SessionPaths, mode paths.Mode, now Clock) error {
	if now == nil {
		now = time.Now
	}
	rows := Project(tasks, checkpoint, now)

	var csvData []byte
	var err error
	if mode == paths.ModeLite {
		csvData = renderLiteCSV(rows)
	} else {
		csvData = renderFullCSV(rows)
	}

	if err = writeAtomic(sp.PlanFile, csvData); err != nil {
		return fmt.Errorf("write plan file: %w", err)
	}

	if mode == paths.ModeFull {
		taskMap := buildTaskMap(rows, now)
		data, err := json.MarshalIndent(taskMap, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal task map: %w", err)
		}
		if err := writeAtomic(sp.TaskMapFile, data); err != nil {
			return fmt.Errorf("write task map: %w", err)
		}
	}
	return nil
}

func buildTaskMap(rows []Row, now Clock) TaskMap {
	entries := make([]TaskMapEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, TaskMapEntry{
			RowID:        r.RowID,
			TaskID:       r.TaskID,
			Title:        strings.TrimPrefix(r.DisplayID, r.TaskID+": "),
			Dependencies: r.Dependencies,
		})
	}
	return TaskMap{GeneratedAt: now().UTC().Format(time.RFC3339), Rows: entries}
}

func renderFullCSV(rows []Row) []byte {
	var b strings.Builder
	b.WriteString("id,task,status,acceptance_criteria,validation_command,completed_at,retry_count,notes\n")
	for _, r := range rows {
		writeCSVRow(&b, []string{
			fmt.Sprintf("%d", r.RowID),
			r.DisplayID,
			string(r.Status),
			r.AcceptanceText,
			r.ValidationCommand,
			r.CompletedAt,
			fmt.Sprintf("%d", r.RetryCount),
			r.Notes,
		})
	}
	return []byte(b.String())
}

func renderLiteCSV(rows []Row) []byte {
	var b strings.Builder
	b.WriteString("id,task,status,completed_at,notes\n")
	for _, r := range rows {
		status := liteStatus(r.Status)
		completedAt := r.CompletedAt
		if status != RowDone {
			completedAt = ""
		}
		writeCSVRow(&b, []string{
			fmt.Sprintf("%d", r.RowID),
			r.DisplayID,
			string(status),
			completedAt,
			r.Notes,
		})
	}
	return []byte(b.String())
}

func writeCSVRow(b *strings.Builder, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(quoteCSVCell(cell))
	}
	b.WriteString("\n")
}

// quoteCSVCell applies spec §4.G's quoting rules: embedded newlines are
// replaced with spaces before quoting; cells are quoted iff they contain
// a comma or double quote; embedded quotes are doubled.
func quoteCSVCell(cell string) string {
	cell = strings.ReplaceAll(cell, "\n", " ")
	cell = strings.ReplaceAll(cell, "\r", " ")
	if !strings.ContainsAny(cell, ",\"") {
		return cell
	}
	escaped := strings.ReplaceAll(cell, `"`, `""`)
	return `"` + escaped + `"`
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return renameio.WriteFile(path, data, 0644)
}
