package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/meridian-campus/meridian-campus/internal/authz"
	"github.com/meridian-campus/meridian-campus/internal/shared"
)

// Service orchestrates role registry operations. Every mutation bumps the
// permission cache, since effective permissions depend on additional bits
// and activation state.
type Service struct {
	repo   Repository
	cache  *authz.Cache
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, cache *authz.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// GetRole fetches a role by id.
func (s *Service) GetRole(ctx context.Context, id int64) (authz.Role, error) {
	return s.repo.GetRole(ctx, id)
}

// GetRoles resolves a batch of role ids for permission computations.
func (s *Service) GetRoles(ctx context.Context, ids []int64) (authz.RoleSet, error) {
	return s.repo.GetRoles(ctx, ids)
}

// ListRoles returns registered roles, optionally only the active ones.
func (s *Service) ListRoles(ctx context.Context, activeOnly bool) ([]authz.Role, error) {
	return s.repo.ListRoles(ctx, activeOnly)
}

// ResolveOrCreate returns the active role for (type, department), creating
// it from the catalog when absent. An empty department resolves the
// system-wide role of that type, of which at most one active instance
// exists. The role record carries no creator column; createdBy survives in
// the creation log.
func (s *Service) ResolveOrCreate(ctx context.Context, t authz.RoleType, department, createdBy string) (authz.Role, error) {
	role, err := s.repo.FindActiveByTypeAndDepartment(ctx, t, department)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return authz.Role{}, err
	}

	fresh, err := authz.NewRole(t, department)
	if err != nil {
		return authz.Role{}, err
	}
	created, err := s.repo.CreateRole(ctx, fresh)
	if err != nil {
		return authz.Role{}, err
	}
	s.logger.Info("role created",
		slog.String("type", string(t)),
		slog.String("department", department),
		slog.String("created_by", createdBy),
		slog.Int64("role_id", created.ID))
	return created, nil
}

// EnsureSystemRoles idempotently creates the system-wide role for every role
// type in the catalog.
func (s *Service) EnsureSystemRoles(ctx context.Context, createdBy string) error {
	for _, info := range authz.RoleTypes() {
		if _, err := s.ResolveOrCreate(ctx, info.Type, "", createdBy); err != nil {
			return fmt.Errorf("roles: ensure system role %s: %w", info.Type, err)
		}
	}
	return nil
}

// Deactivate disables a role. Assignments referencing it stay untouched but
// grant nothing from then on.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.bumpCache(ctx)
	return nil
}

// Activate re-enables a role.
func (s *Service) Activate(ctx context.Context, id int64) error {
	if err := s.repo.SetActive(ctx, id, true); err != nil {
		return err
	}
	s.bumpCache(ctx)
	return nil
}

// SetAdditionalPermissions replaces a role's extra capability bits. Bits
// outside the catalog are rejected before any write; the structured column
// keeps parse failures out of the read path entirely.
func (s *Service) SetAdditionalPermissions(ctx context.Context, id int64, perms authz.Permission) error {
	if !perms.Valid() {
		return fmt.Errorf("roles: permission mask %#x contains undefined bits: %w", uint64(perms), shared.ErrValidation)
	}
	if err := s.repo.SetAdditionalPermissions(ctx, id, perms); err != nil {
		return err
	}
	s.bumpCache(ctx)
	return nil
}

func (s *Service) bumpCache(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("permission cache bump", slog.Any("error", err))
	}
}
