// Package users adapts the external identity source. The engine consumes
// user snapshots from here; it never creates or mutates identities.
package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-campus/meridian-campus/internal/authz"
	"github.com/meridian-campus/meridian-campus/internal/shared"
)

// Repository provides read-only access to identity snapshots.
type Repository interface {
	GetUser(ctx context.Context, id uuid.UUID) (authz.User, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) GetUser(ctx context.Context, id uuid.UUID) (authz.User, error) {
	var user authz.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, is_active, COALESCE(classification, ''), COALESCE(department, '')
		 FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.IsActive, &user.Classification, &user.Department)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.User{}, fmt.Errorf("users: user %s: %w", id, shared.ErrNotFound)
		}
		return authz.User{}, fmt.Errorf("users: get user: %w", err)
	}
	return user, nil
}
