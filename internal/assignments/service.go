package assignments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-campus/meridian-campus/internal/authz"
	"github.com/meridian-campus/meridian-campus/internal/roles"
	"github.com/meridian-campus/meridian-campus/internal/shared"
	"github.com/meridian-campus/meridian-campus/internal/users"
)

const (
	systemAssigner  = "system"
	automaticReason = "automatic"
)

// Service orchestrates assignment lifecycle operations over the ledger.
type Service struct {
	repo   Repository
	roles  *roles.Service
	users  users.Repository
	cache  *authz.Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, roleService *roles.Service, userRepo users.Repository, cache *authz.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		roles:  roleService,
		users:  userRepo,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// AssignRoleInput carries the parameters for a manual role grant.
type AssignRoleInput struct {
	UserID            uuid.UUID
	RoleID            int64
	AssignedBy        string
	Reason            string
	DepartmentContext string
	EffectiveAt       time.Time
	ExpiresAt         *time.Time
	IsPrimary         bool
}

// AssignAutomaticRoles infers a role type from the user's classification and
// grants the matching department-scoped role. Unrecognized classifications
// are a silent no-op apart from a log line. Re-running against an existing
// equivalent grant does nothing.
func (s *Service) AssignAutomaticRoles(ctx context.Context, userID uuid.UUID) error {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return fmt.Errorf("assignments: user %s is inactive: %w", userID, shared.ErrInvalidState)
	}

	roleType, ok := authz.RoleTypeForClassification(user.Classification)
	if !ok {
		s.logger.Info("no automatic role for classification",
			slog.String("user_id", userID.String()),
			slog.String("classification", user.Classification))
		return nil
	}

	role, err := s.roles.ResolveOrCreate(ctx, roleType, user.Department, systemAssigner)
	if err != nil {
		return err
	}

	existing, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	now := s.now()
	for _, a := range existing {
		if a.RoleID == role.ID && a.EffectiveNow(now) {
			return nil
		}
	}

	_, err = s.AssignRole(ctx, AssignRoleInput{
		UserID:            userID,
		RoleID:            role.ID,
		AssignedBy:        systemAssigner,
		Reason:            automaticReason,
		DepartmentContext: user.Department,
		IsPrimary:         true,
	})
	return err
}

// AssignRole persists a new assignment. A primary grant demotes the user's
// other primary assignments inside the same serializable transaction, so the
// single-primary invariant holds under concurrent grants.
func (s *Service) AssignRole(ctx context.Context, input AssignRoleInput) (authz.Assignment, error) {
	user, err := s.users.GetUser(ctx, input.UserID)
	if err != nil {
		return authz.Assignment{}, err
	}
	if !user.IsActive {
		return authz.Assignment{}, fmt.Errorf("assignments: user %s is inactive: %w", input.UserID, shared.ErrInvalidState)
	}
	role, err := s.roles.GetRole(ctx, input.RoleID)
	if err != nil {
		return authz.Assignment{}, err
	}
	if !role.IsActive {
		return authz.Assignment{}, fmt.Errorf("assignments: role %q is inactive: %w", role.Name, shared.ErrInvalidState)
	}

	now := s.now()
	if input.EffectiveAt.IsZero() {
		input.EffectiveAt = now
	}
	if input.ExpiresAt != nil && !input.ExpiresAt.After(input.EffectiveAt) {
		return authz.Assignment{}, fmt.Errorf("assignments: expiration precedes effective date: %w", shared.ErrValidation)
	}

	assignment := authz.Assignment{
		UserID:            input.UserID,
		RoleID:            input.RoleID,
		EffectiveAt:       input.EffectiveAt,
		ExpiresAt:         input.ExpiresAt,
		IsActive:          true,
		IsPrimary:         input.IsPrimary,
		DepartmentContext: input.DepartmentContext,
		Reason:            input.Reason,
		AssignedBy:        input.AssignedBy,
	}

	var created authz.Assignment
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if input.IsPrimary {
			if err := tx.DemotePrimaries(ctx, input.UserID, 0); err != nil {
				return err
			}
		}
		var err error
		created, err = tx.CreateAssignment(ctx, assignment)
		return err
	})
	if err != nil {
		return authz.Assignment{}, err
	}

	s.logger.Info("role assigned",
		slog.String("user_id", input.UserID.String()),
		slog.Int64("role_id", input.RoleID),
		slog.String("assigned_by", input.AssignedBy),
		slog.Bool("primary", input.IsPrimary))
	return created, nil
}

// RemoveAssignment deactivates an assignment, appending the removal reason
// to the audit text. The row itself survives.
func (s *Service) RemoveAssignment(ctx context.Context, id int64, modifier, reason string) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		a, err := tx.GetAssignment(ctx, id)
		if err != nil {
			return err
		}
		a.IsActive = false
		note := "removed by " + modifier
		if reason != "" {
			note += ": " + reason
		}
		a.Reason = appendNote(a.Reason, note)
		return tx.UpdateAssignment(ctx, a)
	})
}

// UpdateAssignmentInput carries optional mutations for UpdateAssignment.
// Nil fields are left untouched.
type UpdateAssignmentInput struct {
	NewExpiration *time.Time
	NewReason     *string
	SetActive     *bool
}

// UpdateAssignment extends the expiration (with an audit note), replaces the
// reason text, or toggles the active flag.
func (s *Service) UpdateAssignment(ctx context.Context, id int64, modifier string, input UpdateAssignmentInput) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		a, err := tx.GetAssignment(ctx, id)
		if err != nil {
			return err
		}
		if input.NewReason != nil {
			a.Reason = *input.NewReason
		}
		if input.NewExpiration != nil {
			if !input.NewExpiration.After(a.EffectiveAt) {
				return fmt.Errorf("assignments: expiration precedes effective date: %w", shared.ErrValidation)
			}
			a.ExpiresAt = input.NewExpiration
			a.Reason = appendNote(a.Reason,
				fmt.Sprintf("extended to %s by %s", input.NewExpiration.Format(time.RFC3339), modifier))
		}
		if input.SetActive != nil {
			a.IsActive = *input.SetActive
		}
		return tx.UpdateAssignment(ctx, a)
	})
}

// SetPrimaryRole makes the assignment the user's primary role, demoting
// every other assignment of that user in the same transaction.
func (s *Service) SetPrimaryRole(ctx context.Context, id int64, modifier string) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		a, err := tx.GetAssignment(ctx, id)
		if err != nil {
			return err
		}
		if !a.EffectiveNow(s.now()) {
			return fmt.Errorf("assignments: assignment %d is not currently effective: %w", id, shared.ErrInvalidState)
		}
		if err := tx.DemotePrimaries(ctx, a.UserID, a.ID); err != nil {
			return err
		}
		if a.IsPrimary {
			return nil
		}
		a.IsPrimary = true
		return tx.UpdateAssignment(ctx, a)
	})
	if err != nil {
		return err
	}
	s.logger.Info("primary role transferred",
		slog.Int64("assignment_id", id),
		slog.String("modified_by", modifier))
	return nil
}

// EffectiveRoles returns the user's currently effective assignments. The
// filter is evaluated against the clock at query time, never a stored flag.
func (s *Service) EffectiveRoles(ctx context.Context, userID uuid.UUID) ([]authz.Assignment, error) {
	all, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var out []authz.Assignment
	for _, a := range all {
		if a.EffectiveNow(now) {
			out = append(out, a)
		}
	}
	return out, nil
}

// AssignableRoles returns the roles the assigner may grant to the target,
// based on the assigner's highest currently effective role.
func (s *Service) AssignableRoles(ctx context.Context, assignerID, targetID uuid.UUID) ([]authz.Role, error) {
	if _, err := s.users.GetUser(ctx, targetID); err != nil {
		return nil, err
	}
	highest, ok, err := s.highestRole(ctx, assignerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	candidates, err := s.roles.ListRoles(ctx, true)
	if err != nil {
		return nil, err
	}
	return authz.ManageableRoles(highest, candidates), nil
}

// ValidateAssignment checks whether the assigner may grant the role to the
// target user, without writing anything.
func (s *Service) ValidateAssignment(ctx context.Context, assignerID, targetID uuid.UUID, roleID int64) error {
	highest, ok, err := s.highestRole(ctx, assignerID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("assignments: assigner %s holds no effective role: %w", assignerID, shared.ErrValidation)
	}
	target, err := s.users.GetUser(ctx, targetID)
	if err != nil {
		return err
	}
	candidate, err := s.roles.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	return authz.ValidateAssignment(highest, target, candidate)
}

// AuthorizationSnapshot loads the user record, its assignments and the roles
// they reference. It implements authz.SnapshotSource.
func (s *Service) AuthorizationSnapshot(ctx context.Context, userID uuid.UUID) (*authz.User, []authz.Assignment, authz.RoleSet, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, nil, nil, err
	}
	assignments, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, nil, err
	}
	ids := make([]int64, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.RoleID)
	}
	roleSet, err := s.roles.GetRoles(ctx, ids)
	if err != nil {
		return nil, nil, nil, err
	}
	return &user, assignments, roleSet, nil
}

// UserPermissions resolves the user's aggregate capability set through the
// permission cache.
func (s *Service) UserPermissions(ctx context.Context, userID uuid.UUID) (authz.Permission, error) {
	return s.cache.UserPermissions(ctx, userID, func(ctx context.Context, userID uuid.UUID) (authz.Permission, error) {
		user, assignments, roleSet, err := s.AuthorizationSnapshot(ctx, userID)
		if err != nil {
			return authz.PermNone, err
		}
		return authz.UserPermissions(*user, assignments, roleSet, s.now()), nil
	})
}

// Evaluate answers a requirement for a user. It is fail-closed: any load
// error resolves to deny rather than surfacing.
func (s *Service) Evaluate(ctx context.Context, req authz.Requirement, userID uuid.UUID) bool {
	user, assignments, roleSet, err := s.AuthorizationSnapshot(ctx, userID)
	if err != nil {
		s.logger.Debug("evaluate snapshot", slog.Any("error", err))
		return false
	}
	return authz.Evaluate(req, user, assignments, roleSet, s.now())
}

// SweepExpired deactivates still-active assignments whose expiration has
// lapsed, appending an audit note. Effectiveness already excludes them; this
// only keeps the ledger tidy. Returns the number of rows swept.
func (s *Service) SweepExpired(ctx context.Context, limit int) (int, error) {
	expired, err := s.repo.ListExpired(ctx, limit)
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, a := range expired {
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			current, err := tx.GetAssignment(ctx, a.ID)
			if err != nil {
				return err
			}
			if !current.IsActive || current.ExpiresAt == nil || current.ExpiresAt.After(s.now()) {
				return nil
			}
			current.IsActive = false
			current.Reason = appendNote(current.Reason, "expired, deactivated by sweep")
			return tx.UpdateAssignment(ctx, current)
		})
		if err != nil {
			return swept, err
		}
		swept++
	}
	return swept, nil
}

func (s *Service) highestRole(ctx context.Context, userID uuid.UUID) (authz.Role, bool, error) {
	_, assignments, roleSet, err := s.AuthorizationSnapshot(ctx, userID)
	if err != nil {
		return authz.Role{}, false, err
	}
	role, ok := authz.HighestRole(assignments, roleSet, s.now())
	return role, ok, nil
}

func appendNote(reason, note string) string {
	if reason == "" {
		return note
	}
	return reason + "; " + note
}
