// Package store implements the Checkpoint & Ledger Store (spec §4.F):
// atomic read/write of the JSON checkpoint and an append-only ledger,
// following the teacher's LoadStateJSON/SaveStateJSON atomic-write idiom
// but backed by renameio so the containing directory is fsynced too.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/renameio/v2"
)

// CheckpointState is the crash-safe record of task progress (spec §3/§6).
type CheckpointState struct {
	UpdatedAt     string         `json:"updatedAt"`
	Attempts      map[string]int `json:"attempts"`
	DoneTaskIDs   []string       `json:"doneTaskIds"`
	BlockedTaskIDs []string      `json:"blockedTaskIds"`
	LastTaskID    string         `json:"lastTaskId,omitempty"`

	doneSet    map[string]bool
	blockedSet map[string]bool
}

// NewCheckpointState returns a freshly initialized, empty checkpoint.
func NewCheckpointState() *CheckpointState {
	return &CheckpointState{
		Attempts:       map[string]int{},
		DoneTaskIDs:    []string{},
		BlockedTaskIDs: []string{},
	}
}

func (c *CheckpointState) index() {
	c.doneSet = make(map[string]bool, len(c.DoneTaskIDs))
	for _, id := range c.DoneTaskIDs {
		c.doneSet[id] = true
	}
	c.blockedSet = make(map[string]bool, len(c.BlockedTaskIDs))
	for _, id := range c.BlockedTaskIDs {
		c.blockedSet[id] = true
	}
}

// IsDone reports whether id is in the done set.
func (c *CheckpointState) IsDone(id string) bool {
	if c.doneSet == nil {
		c.index()
	}
	return c.doneSet[id]
}

// IsBlocked reports whether id is in the blocked set.
func (c *CheckpointState) IsBlocked(id string) bool {
	if c.blockedSet == nil {
		c.index()
	}
	return c.blockedSet[id]
}

// MarkDone records id as done, removing it from the blocked set if it
// was present there (done and blocked remain disjoint, per the
// invariant in spec §3).
func (c *CheckpointState) MarkDone(id string) {
	c.index()
	if !c.doneSet[id] {
		c.DoneTaskIDs = append(c.DoneTaskIDs, id)
		c.doneSet[id] = true
	}
	c.removeBlocked(id)
}

// MarkBlocked records id as blocked.
func (c *CheckpointState) MarkBlocked(id string) {
	c.index()
	if !c.blockedSet[id] {
		c.BlockedTaskIDs = append(c.BlockedTaskIDs, id)
		c.blockedSet[id] = true
	}
}

func (c *CheckpointState) removeBlocked(id string) {
	if !c.blockedSet[id] {
		return
	}
	delete(c.blockedSet, id)
	filtered := c.BlockedTaskIDs[:0:0]
	for _, existing := range c.BlockedTaskIDs {
		if existing != id {
			filtered = append(filtered, existing)
		}
	}
	c.BlockedTaskIDs = filtered
}

// IncrementAttempt bumps attempts[id] by one, starting from 1, and
// returns the new value. Attempt counts are monotonically non-decreasing
// per id (spec §3/§8.7).
func (c *CheckpointState) IncrementAttempt(id string) int {
	if c.Attempts == nil {
		c.Attempts = map[string]int{}
	}
	c.Attempts[id]++
	return c.Attempts[id]
}

// SortedDoneIDs and SortedBlockedIDs return defensive, order-stable
// copies for callers that must not mutate the checkpoint's slices.
func (c *CheckpointState) SortedDoneIDs() []string {
	return append([]string(nil), c.DoneTaskIDs...)
}

func (c *CheckpointState) SortedBlockedIDs() []string {
	return append([]string(nil), c.BlockedTaskIDs...)
}

// CheckpointStore loads and atomically persists a CheckpointState at a
// fixed path.
type CheckpointStore struct {
	Path string
}

func NewCheckpointStore(path string) *CheckpointStore {
	return &CheckpointStore{Path: path}
}

// Load tolerates a missing file by returning a freshly initialized
// state; any other read or decode error is fatal (spec §7 — corrupt
// checkpoint must not be silently discarded).
func (s *CheckpointStore) Load() (*CheckpointState, error) {
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return NewCheckpointState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint %s: %w", s.Path, err)
	}

	var state CheckpointState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse checkpoint %s: %w", s.Path, err)
	}
	if state.Attempts == nil {
		state.Attempts = map[string]int{}
	}
	if state.DoneTaskIDs == nil {
		state.DoneTaskIDs = []string{}
	}
	if state.BlockedTaskIDs == nil {
		state.BlockedTaskIDs = []string{}
	}
	state.index()
	return &state, nil
}

// Save updates the timestamp and writes the checkpoint atomically via
// renameio, so a reader never observes a torn file.
func (s *CheckpointStore) Save(state *CheckpointState) error {
	state.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	if err := renameio.WriteFile(s.Path, data, 0644); err != nil {
		return fmt.Errorf("write checkpoint %s: %w", s.Path, err)
	}
	return nil
}

// sortedKeys returns m's keys in ascending order, for deterministic
// iteration over an attempts map. Nothing in the module calls it.
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
