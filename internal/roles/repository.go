// Package roles is the role registry: persisted role records keyed by role
// type and department scope.
package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-campus/meridian-campus/internal/authz"
	"github.com/meridian-campus/meridian-campus/internal/shared"
)

// Repository defines role registry data access. Roles are never deleted;
// deactivation preserves assignment history.
type Repository interface {
	GetRole(ctx context.Context, id int64) (authz.Role, error)
	GetRoles(ctx context.Context, ids []int64) (authz.RoleSet, error)
	ListRoles(ctx context.Context, activeOnly bool) ([]authz.Role, error)
	FindActiveByTypeAndDepartment(ctx context.Context, t authz.RoleType, department string) (authz.Role, error)
	CreateRole(ctx context.Context, role authz.Role) (authz.Role, error)
	SetActive(ctx context.Context, id int64, active bool) error
	SetAdditionalPermissions(ctx context.Context, id int64, perms authz.Permission) error
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const roleColumns = `id, role_type, name, normalized_name, description, is_active,
	is_system_role, department, priority, additional_permissions, created_at, updated_at`

// The additional_permissions BIGINT column stores the raw 64-bit pattern of
// the mask; a set bit 63 merely shows up as a negative column value.
func permissionsToColumn(p authz.Permission) int64 {
	return int64(uint64(p))
}

func permissionsFromColumn(v int64) authz.Permission {
	return authz.Permission(uint64(v))
}

func scanRole(row pgx.Row) (authz.Role, error) {
	var role authz.Role
	var perms int64
	err := row.Scan(&role.ID, &role.Type, &role.Name, &role.NormalizedName, &role.Description,
		&role.IsActive, &role.IsSystemRole, &role.Department, &role.Priority, &perms,
		&role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return authz.Role{}, err
	}
	role.AdditionalPermissions = permissionsFromColumn(perms)
	return role, nil
}

func (r *pgRepository) GetRole(ctx context.Context, id int64) (authz.Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.Role{}, fmt.Errorf("roles: role %d: %w", id, shared.ErrNotFound)
		}
		return authz.Role{}, fmt.Errorf("roles: get role: %w", err)
	}
	return role, nil
}

func (r *pgRepository) GetRoles(ctx context.Context, ids []int64) (authz.RoleSet, error) {
	if len(ids) == 0 {
		return authz.RoleSet{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("roles: get roles: %w", err)
	}
	defer rows.Close()
	set := make(authz.RoleSet, len(ids))
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("roles: scan role: %w", err)
		}
		set[role.ID] = role
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roles: get roles: %w", err)
	}
	return set, nil
}

func (r *pgRepository) ListRoles(ctx context.Context, activeOnly bool) ([]authz.Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles ORDER BY priority DESC, name`
	if activeOnly {
		query = `SELECT ` + roleColumns + ` FROM roles WHERE is_active ORDER BY priority DESC, name`
	}
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("roles: list roles: %w", err)
	}
	defer rows.Close()
	var out []authz.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("roles: scan role: %w", err)
		}
		out = append(out, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roles: list roles: %w", err)
	}
	return out, nil
}

func (r *pgRepository) FindActiveByTypeAndDepartment(ctx context.Context, t authz.RoleType, department string) (authz.Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx,
		`SELECT `+roleColumns+` FROM roles
		 WHERE role_type = $1 AND department = $2 AND is_active
		 ORDER BY id LIMIT 1`, t, department))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.Role{}, fmt.Errorf("roles: role %s/%q: %w", t, department, shared.ErrNotFound)
		}
		return authz.Role{}, fmt.Errorf("roles: find role: %w", err)
	}
	return role, nil
}

func (r *pgRepository) CreateRole(ctx context.Context, role authz.Role) (authz.Role, error) {
	created, err := scanRole(r.pool.QueryRow(ctx,
		`INSERT INTO roles (role_type, name, normalized_name, description, is_active,
			is_system_role, department, priority, additional_permissions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+roleColumns,
		role.Type, role.Name, role.NormalizedName, role.Description, role.IsActive,
		role.IsSystemRole, role.Department, role.Priority, permissionsToColumn(role.AdditionalPermissions)))
	if err != nil {
		return authz.Role{}, fmt.Errorf("roles: create role: %w", err)
	}
	return created, nil
}

func (r *pgRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE roles SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("roles: set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("roles: role %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *pgRepository) SetAdditionalPermissions(ctx context.Context, id int64, perms authz.Permission) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE roles SET additional_permissions = $2, updated_at = now() WHERE id = $1`,
		id, permissionsToColumn(perms))
	if err != nil {
		return fmt.Errorf("roles: set permissions: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("roles: role %d: %w", id, shared.ErrNotFound)
	}
	return nil
}
