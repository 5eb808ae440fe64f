package taskstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
)

// JSONStore is the default Store implementation: tasks are read from
// and written back to a flat tasks.json array at the project root, in
// the spirit of the teacher's state.LoadPhases/FindNextPlan
// scan-and-pick pattern adapted to the flat Task shape.
type JSONStore struct {
	path string
	mu   sync.Mutex
}

// NewJSONStore opens (without yet reading) the tasks.json file at path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

func (s *JSONStore) load() ([]Task, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return []Task{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tasks file %s: %w", s.path, err)
	}
	var tasks []Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("parse tasks file %s: %w", s.path, err)
	}
	if err := validateAll(tasks); err != nil {
		return nil, fmt.Errorf("tasks file %s: %w", s.path, err)
	}
	return tasks, nil
}

// validateAll runs Task.Validate over every task and subtask, returning
// the first structural violation found.
func validateAll(tasks []Task) error {
	for i := range tasks {
		if errs := tasks[i].Validate(); errs.HasErrors() {
			return errs
		}
		if err := validateAll(tasks[i].Subtasks); err != nil {
			return err
		}
	}
	return nil
}

func (s *JSONStore) save(tasks []Task) error {
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create tasks dir: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write tasks file %s: %w", s.path, err)
	}
	return nil
}

// Next scans the flattened task list in order for the first task whose
// status is not terminal. tag is accepted for interface parity with a
// tag-partitioned store but the flat JSON store does not filter by it.
func (s *JSONStore) Next(ctx context.Context, tag string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if next := nextEligible(&tasks[i]); next != nil {
			return next, nil
		}
	}
	return nil, nil
}

func nextEligible(t *Task) *Task {
	if !t.Status.IsTerminal() && t.Status != StatusBlocked {
		found := *t
		return &found
	}
	for i := range t.Subtasks {
		if next := nextEligible(&t.Subtasks[i]); next != nil {
			return next
		}
	}
	return nil
}

// SetStatus updates the status of the task (or subtask) identified by
// id, which must match exactly (hierarchical ids like "3.2" included).
func (s *JSONStore) SetStatus(ctx context.Context, id string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return err
	}
	if !setStatusByID(tasks, id, status) {
		return fmt.Errorf("task %s not found", id)
	}
	return s.save(tasks)
}

func setStatusByID(tasks []Task, id string, status Status) bool {
	for i := range tasks {
		if tasks[i].ID == id {
			tasks[i].Status = status
			return true
		}
		if setStatusByID(tasks[i].Subtasks, id, status) {
			return true
		}
	}
	return false
}

// Get returns the task (or subtask) identified by id.
func (s *JSONStore) Get(ctx context.Context, id string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return nil, err
	}
	if t := findByID(tasks, id); t != nil {
		return t, nil
	}
	return nil, fmt.Errorf("task %s not found", id)
}

func findByID(tasks []Task, id string) *Task {
	for i := range tasks {
		if tasks[i].ID == id {
			found := tasks[i]
			return &found
		}
		if t := findByID(tasks[i].Subtasks, id); t != nil {
			return t
		}
	}
	return nil
}

// All returns the full task tree (top-level tasks with their subtasks
// nested), in the order Plan Projection walks it (spec §4.G).
func (s *JSONStore) All(ctx context.Context) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}
