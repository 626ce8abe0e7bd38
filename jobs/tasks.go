// Package jobs runs background maintenance over the assignment ledger.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAssignmentSweep deactivates assignments whose expiration lapsed.
	TaskAssignmentSweep = "assignments:sweep"
	// TaskEnsureSystemRoles re-creates missing system-wide roles.
	TaskEnsureSystemRoles = "roles:ensure-system"
)

// SweepPayload bounds a single sweep run.
type SweepPayload struct {
	Limit int `json:"limit"`
}

// NewAssignmentSweepTask constructs an Asynq task for the expiry sweep.
func NewAssignmentSweepTask(payload SweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAssignmentSweep, data), nil
}

// NewEnsureSystemRolesTask constructs an Asynq task for the role ensure pass.
func NewEnsureSystemRolesTask() *asynq.Task {
	return asynq.NewTask(TaskEnsureSystemRoles, nil)
}

// Sweeper deactivates lapsed assignments.
type Sweeper interface {
	SweepExpired(ctx context.Context, limit int) (int, error)
}

// RoleEnsurer idempotently creates system-wide roles.
type RoleEnsurer interface {
	EnsureSystemRoles(ctx context.Context, createdBy string) error
}

// NewAssignmentSweepHandler builds the handler for TaskAssignmentSweep.
func NewAssignmentSweepHandler(sweeper Sweeper, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SweepPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.Limit <= 0 {
			payload.Limit = 500
		}
		swept, err := sweeper.SweepExpired(ctx, payload.Limit)
		if err != nil {
			return err
		}
		if swept > 0 && logger != nil {
			logger.Info("assignment sweep", slog.Int("swept", swept))
		}
		return nil
	}
}

// NewEnsureSystemRolesHandler builds the handler for TaskEnsureSystemRoles.
func NewEnsureSystemRolesHandler(ensurer RoleEnsurer) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		return ensurer.EnsureSystemRoles(ctx, "scheduler")
	}
}
