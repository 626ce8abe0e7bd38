// Package assignments is the assignment ledger and its lifecycle service:
// time-bounded grants of roles to users, mutated only through explicit
// operations and never physically deleted.
package assignments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-campus/meridian-campus/internal/authz"
	"github.com/meridian-campus/meridian-campus/internal/platform/db"
	"github.com/meridian-campus/meridian-campus/internal/shared"
)

// Repository defines assignment ledger data access.
type Repository interface {
	// WithTx runs fn inside a serializable transaction. The single-primary
	// invariant is a read-then-write sequence and is only safe in here.
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetAssignment(ctx context.Context, id int64) (authz.Assignment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]authz.Assignment, error)
	ListExpired(ctx context.Context, limit int) ([]authz.Assignment, error)
}

// TxRepository defines ledger mutations within a transaction.
type TxRepository interface {
	GetAssignment(ctx context.Context, id int64) (authz.Assignment, error)
	CreateAssignment(ctx context.Context, a authz.Assignment) (authz.Assignment, error)
	UpdateAssignment(ctx context.Context, a authz.Assignment) error
	DemotePrimaries(ctx context.Context, userID uuid.UUID, exceptID int64) error
}

var (
	_ Repository   = (*pgRepository)(nil)
	_ TxRepository = (*pgTxRepository)(nil)
)

type pgRepository struct {
	pool *pgxpool.Pool
}

type pgTxRepository struct {
	tx pgx.Tx
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := db.WithSerializableTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx})
	})
	if db.IsSerializationFailure(err) || db.IsUniqueViolation(err) {
		return fmt.Errorf("assignments: primary role race: %w", shared.ErrConflict)
	}
	return err
}

const assignmentColumns = `id, user_id, role_id, effective_at, expires_at, is_active,
	is_primary, department_context, reason, assigned_by, created_at, updated_at`

func scanAssignment(row pgx.Row) (authz.Assignment, error) {
	var a authz.Assignment
	err := row.Scan(&a.ID, &a.UserID, &a.RoleID, &a.EffectiveAt, &a.ExpiresAt, &a.IsActive,
		&a.IsPrimary, &a.DepartmentContext, &a.Reason, &a.AssignedBy, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func getAssignment(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, id int64) (authz.Assignment, error) {
	a, err := scanAssignment(q.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.Assignment{}, fmt.Errorf("assignments: assignment %d: %w", id, shared.ErrNotFound)
		}
		return authz.Assignment{}, fmt.Errorf("assignments: get assignment: %w", err)
	}
	return a, nil
}

func (r *pgRepository) GetAssignment(ctx context.Context, id int64) (authz.Assignment, error) {
	return getAssignment(ctx, r.pool, id)
}

func (r *pgRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]authz.Assignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("assignments: list by user: %w", err)
	}
	return collectAssignments(rows)
}

// ListExpired returns still-active assignments whose expiration has passed.
// The sweep job uses this; effectiveness never depends on it.
func (r *pgRepository) ListExpired(ctx context.Context, limit int) ([]authz.Assignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+assignmentColumns+` FROM assignments
		 WHERE is_active AND expires_at IS NOT NULL AND expires_at <= now()
		 ORDER BY expires_at LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("assignments: list expired: %w", err)
	}
	return collectAssignments(rows)
}

func collectAssignments(rows pgx.Rows) ([]authz.Assignment, error) {
	defer rows.Close()
	var out []authz.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("assignments: scan assignment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("assignments: collect: %w", err)
	}
	return out, nil
}

func (r *pgTxRepository) GetAssignment(ctx context.Context, id int64) (authz.Assignment, error) {
	return getAssignment(ctx, r.tx, id)
}

func (r *pgTxRepository) CreateAssignment(ctx context.Context, a authz.Assignment) (authz.Assignment, error) {
	created, err := scanAssignment(r.tx.QueryRow(ctx,
		`INSERT INTO assignments (user_id, role_id, effective_at, expires_at, is_active,
			is_primary, department_context, reason, assigned_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+assignmentColumns,
		a.UserID, a.RoleID, a.EffectiveAt, a.ExpiresAt, a.IsActive,
		a.IsPrimary, a.DepartmentContext, a.Reason, a.AssignedBy))
	if err != nil {
		return authz.Assignment{}, fmt.Errorf("assignments: create: %w", err)
	}
	return created, nil
}

func (r *pgTxRepository) UpdateAssignment(ctx context.Context, a authz.Assignment) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE assignments
		 SET expires_at = $2, is_active = $3, is_primary = $4, reason = $5, updated_at = now()
		 WHERE id = $1`,
		a.ID, a.ExpiresAt, a.IsActive, a.IsPrimary, a.Reason)
	if err != nil {
		return fmt.Errorf("assignments: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("assignments: assignment %d: %w", a.ID, shared.ErrNotFound)
	}
	return nil
}

func (r *pgTxRepository) DemotePrimaries(ctx context.Context, userID uuid.UUID, exceptID int64) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE assignments SET is_primary = false, updated_at = now()
		 WHERE user_id = $1 AND is_primary AND id <> $2`, userID, exceptID)
	if err != nil {
		return fmt.Errorf("assignments: demote primaries: %w", err)
	}
	return nil
}
