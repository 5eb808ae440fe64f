// Package logging wires the zap structured logger used for internal,
// per-attempt diagnostic traces — distinct from the internal/display
// box-drawing reporter, which remains the user-facing CLI surface.
package logging

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// New builds a production zap logger, or a development logger (human
// readable, synchronous) when dev is true.
func New(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// NewRunID mints a fresh correlation id for one runner-loop invocation,
// threaded through every log line as run_id and into the ledger as part
// of each entry's note.
func NewRunID() string {
	return uuid.New().String()
}

// WithRun returns a child logger carrying the run's correlation id.
func WithRun(logger *zap.Logger, runID string) *zap.Logger {
	return logger.With(zap.String("run_id", runID))
}
