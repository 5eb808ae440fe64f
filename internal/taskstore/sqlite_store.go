package taskstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore is an alternate Store implementation backed by
// modernc.org/sqlite, useful when many tasks make repeated linear JSON
// scans wasteful. Tasks are stored flat (one row per task or subtask);
// dependencies are serialized as a JSON array column.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenSQLiteStore opens (creating if necessary) the sqlite database at
// path and ensures the tasks table exists.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store %s: %w", path, err)
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tasks table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	parent_id TEXT,
	title TEXT NOT NULL,
	description TEXT,
	details TEXT,
	test_strategy TEXT,
	dependencies TEXT,
	status TEXT NOT NULL,
	row_order INTEGER NOT NULL
)`

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ImportTasks replaces the tasks table's contents with tasks, flattening
// the nested Subtasks tree into rows with a parent_id and a row_order
// that reproduces the original walk order on All(). Tasks are authored
// as JSON (taskstore.JSONStore's format); ImportTasks is the bridge that
// lets the sqlite backend serve the same task definitions instead of
// starting permanently empty.
func (s *SQLiteStore) ImportTasks(ctx context.Context, tasks []Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return fmt.Errorf("clear tasks table: %w", err)
	}

	order := 0
	var insert func(parentID string, ts []Task) error
	insert = func(parentID string, ts []Task) error {
		for _, t := range ts {
			depsJSON, err := json.Marshal(t.Dependencies)
			if err != nil {
				return fmt.Errorf("encode dependencies for task %s: %w", t.ID, err)
			}
			var parent sql.NullString
			if parentID != "" {
				parent = sql.NullString{String: parentID, Valid: true}
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO tasks (id, parent_id, title, description, details, test_strategy, dependencies, status, row_order) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				t.ID, parent, t.Title, t.Description, t.Details, t.TestStrategy, string(depsJSON), string(t.Status), order)
			if err != nil {
				return fmt.Errorf("insert task %s: %w", t.ID, err)
			}
			order++
			if err := insert(t.ID, t.Subtasks); err != nil {
				return err
			}
		}
		return nil
	}
	if err := insert("", tasks); err != nil {
		return err
	}

	return tx.Commit()
}

// Count returns the number of tasks (top-level and subtasks combined)
// currently in the store, used to decide whether a freshly opened
// database still needs seeding from a tasks.json.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

// Next returns the first non-terminal, non-blocked task in row_order.
func (s *SQLiteStore) Next(ctx context.Context, tag string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, parent_id, title, description, details, test_strategy, dependencies, status FROM tasks ORDER BY row_order ASC`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, _, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		if !t.Status.IsTerminal() && t.Status != StatusBlocked {
			return t, nil
		}
	}
	return nil, rows.Err()
}

func scanTask(rows *sql.Rows) (*Task, string, error) {
	var t Task
	var parentID sql.NullString
	var description, details, testStrategy, depsJSON sql.NullString
	if err := rows.Scan(&t.ID, &parentID, &t.Title, &description, &details, &testStrategy, &depsJSON, &t.Status); err != nil {
		return nil, "", fmt.Errorf("scan task row: %w", err)
	}
	t.Description = description.String
	t.Details = details.String
	t.TestStrategy = testStrategy.String
	if depsJSON.Valid && depsJSON.String != "" {
		if err := json.Unmarshal([]byte(depsJSON.String), &t.Dependencies); err != nil {
			return nil, "", fmt.Errorf("decode dependencies for task %s: %w", t.ID, err)
		}
	}
	return &t, parentID.String, nil
}

// SetStatus updates the status column for id.
func (s *SQLiteStore) SetStatus(ctx context.Context, id string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update status for task %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %s not found", id)
	}
	return nil
}

// Get returns the task identified by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, parent_id, title, description, details, test_strategy, dependencies, status FROM tasks WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query task %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("task %s not found", id)
	}
	t, _, err := scanTask(rows)
	return t, err
}

// All reassembles the task tree from the flat table, parents before
// their subtasks in row_order.
func (s *SQLiteStore) All(ctx context.Context) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, parent_id, title, description, details, test_strategy, dependencies, status FROM tasks ORDER BY row_order ASC`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	byID := map[string]*Task{}
	var order []string
	parents := map[string]string{}

	for rows.Next() {
		t, parentID, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		byID[t.ID] = t
		parents[t.ID] = parentID
		order = append(order, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// First pass: link every task into its parent's Subtasks slice,
	// walking row_order backwards so each subtask is copied into its
	// parent only after its own subtasks are attached; prepending keeps
	// siblings in row_order.
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		if parentID := parents[id]; parentID != "" {
			if parent, ok := byID[parentID]; ok {
				parent.Subtasks = append([]Task{*byID[id]}, parent.Subtasks...)
			}
		}
	}

	// Second pass: collect top-level tasks, now that their Subtasks are
	// fully populated.
	var top []Task
	for _, id := range order {
		if parents[id] == "" {
			top = append(top, *byID[id])
		}
	}
	return top, nil
}
