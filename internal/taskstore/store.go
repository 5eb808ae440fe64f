package taskstore

import "context"

// Store is the external task-store collaborator the runner depends on.
// spec.md treats this as external; two reference implementations ship
// so the repository is runnable end to end. Implementations serialize
// their own state transitions internally (spec §5).
type Store interface {
	// Next returns the next task to run for tag, skipping tasks whose
	// status is terminal (done/completed/cancelled/deferred). Returns
	// nil, nil when no task remains.
	Next(ctx context.Context, tag string) (*Task, error)
	SetStatus(ctx context.Context, id string, status Status) error
	Get(ctx context.Context, id string) (*Task, error)
	// All returns every top-level task currently known to the store,
	// with subtasks nested, in the order the Plan Projection walks them.
	All(ctx context.Context) ([]Task, error)
}
