package roles

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/meridian-campus/meridian-campus/internal/authz"
	"github.com/meridian-campus/meridian-campus/internal/shared"
)

type memRepository struct {
	roles  map[int64]authz.Role
	nextID int64
}

var _ Repository = (*memRepository)(nil)

func newMemRepository() *memRepository {
	return &memRepository{roles: map[int64]authz.Role{}}
}

func (m *memRepository) GetRole(ctx context.Context, id int64) (authz.Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return authz.Role{}, fmt.Errorf("role %d: %w", id, shared.ErrNotFound)
	}
	return role, nil
}

func (m *memRepository) GetRoles(ctx context.Context, ids []int64) (authz.RoleSet, error) {
	set := authz.RoleSet{}
	for _, id := range ids {
		if role, ok := m.roles[id]; ok {
			set[id] = role
		}
	}
	return set, nil
}

func (m *memRepository) ListRoles(ctx context.Context, activeOnly bool) ([]authz.Role, error) {
	var out []authz.Role
	for _, role := range m.roles {
		if activeOnly && !role.IsActive {
			continue
		}
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepository) FindActiveByTypeAndDepartment(ctx context.Context, t authz.RoleType, department string) (authz.Role, error) {
	for _, role := range m.roles {
		if role.IsActive && role.Type == t && role.Department == department {
			return role, nil
		}
	}
	return authz.Role{}, fmt.Errorf("role %s/%s: %w", t, department, shared.ErrNotFound)
}

func (m *memRepository) CreateRole(ctx context.Context, role authz.Role) (authz.Role, error) {
	m.nextID++
	role.ID = m.nextID
	m.roles[role.ID] = role
	return role, nil
}

func (m *memRepository) SetActive(ctx context.Context, id int64, active bool) error {
	role, ok := m.roles[id]
	if !ok {
		return fmt.Errorf("role %d: %w", id, shared.ErrNotFound)
	}
	role.IsActive = active
	m.roles[id] = role
	return nil
}

func (m *memRepository) SetAdditionalPermissions(ctx context.Context, id int64, perms authz.Permission) error {
	role, ok := m.roles[id]
	if !ok {
		return fmt.Errorf("role %d: %w", id, shared.ErrNotFound)
	}
	role.AdditionalPermissions = perms
	m.roles[id] = role
	return nil
}

func newTestService(t *testing.T) (*Service, *memRepository) {
	t.Helper()
	repo := newMemRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, nil, logger), repo
}

func TestResolveOrCreate(t *testing.T) {
	svc, repo := newTestService(t)

	role, err := svc.ResolveOrCreate(context.Background(), authz.RoleProfessor, "Mathematics", "tester")
	require.NoError(t, err)
	require.Equal(t, "Professor - Mathematics", role.Name)
	require.Equal(t, authz.NormalizeName(role.Name), role.NormalizedName)
	require.False(t, role.IsSystemRole)
	require.True(t, role.IsActive)

	again, err := svc.ResolveOrCreate(context.Background(), authz.RoleProfessor, "Mathematics", "tester")
	require.NoError(t, err)
	require.Equal(t, role.ID, again.ID)
	require.Len(t, repo.roles, 1)

	system, err := svc.ResolveOrCreate(context.Background(), authz.RoleProfessor, "", "tester")
	require.NoError(t, err)
	require.NotEqual(t, role.ID, system.ID)
	require.True(t, system.IsSystemRole)
	require.Equal(t, "Professor", system.Name)
}

func TestResolveOrCreateRecordsCreator(t *testing.T) {
	repo := newMemRepository()
	var buf bytes.Buffer
	svc := NewService(repo, nil, slog.New(slog.NewTextHandler(&buf, nil)))

	_, err := svc.ResolveOrCreate(context.Background(), authz.RoleStudent, "", "registrar")
	require.NoError(t, err)
	require.Contains(t, buf.String(), "created_by=registrar",
		"the creation log is the only place the creator survives")

	// Resolving an existing role creates nothing and logs nothing.
	buf.Reset()
	_, err = svc.ResolveOrCreate(context.Background(), authz.RoleStudent, "", "someone-else")
	require.NoError(t, err)
	require.Empty(t, buf.String())
}

func TestResolveOrCreateUnknownType(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ResolveOrCreate(context.Background(), authz.RoleType("dean"), "", "tester")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestEnsureSystemRoles(t *testing.T) {
	svc, repo := newTestService(t)

	require.NoError(t, svc.EnsureSystemRoles(context.Background(), "tester"))
	require.Len(t, repo.roles, len(authz.RoleTypes()))
	for _, role := range repo.roles {
		require.True(t, role.IsSystemRole)
		require.Empty(t, role.Department)
	}

	// Idempotent.
	require.NoError(t, svc.EnsureSystemRoles(context.Background(), "tester"))
	require.Len(t, repo.roles, len(authz.RoleTypes()))
}

func TestSetAdditionalPermissions(t *testing.T) {
	svc, repo := newTestService(t)
	role, err := svc.ResolveOrCreate(context.Background(), authz.RoleStudent, "", "tester")
	require.NoError(t, err)

	require.NoError(t, svc.SetAdditionalPermissions(context.Background(), role.ID, authz.PermGradeView))
	require.Equal(t, authz.PermGradeView, repo.roles[role.ID].AdditionalPermissions)

	err = svc.SetAdditionalPermissions(context.Background(), role.ID, authz.Permission(1<<63))
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Equal(t, authz.PermGradeView, repo.roles[role.ID].AdditionalPermissions,
		"an invalid mask must not reach storage")
}

func TestDeactivateActivate(t *testing.T) {
	svc, repo := newTestService(t)
	role, err := svc.ResolveOrCreate(context.Background(), authz.RoleStudent, "", "tester")
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), role.ID))
	require.False(t, repo.roles[role.ID].IsActive)
	require.Equal(t, authz.PermNone, authz.EffectivePermissions(repo.roles[role.ID]))

	require.NoError(t, svc.Activate(context.Background(), role.ID))
	require.True(t, repo.roles[role.ID].IsActive)

	require.ErrorIs(t, svc.Deactivate(context.Background(), 99), shared.ErrNotFound)
}

func TestMutationsBumpPermissionCache(t *testing.T) {
	repo := newMemRepository()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := authz.NewCache(client, time.Minute)
	svc := NewService(repo, cache, slog.New(slog.NewTextHandler(io.Discard, nil)))

	role, err := svc.ResolveOrCreate(context.Background(), authz.RoleStudent, "", "tester")
	require.NoError(t, err)

	before, err := cache.Version(context.Background())
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), role.ID))
	require.NoError(t, svc.SetAdditionalPermissions(context.Background(), role.ID, authz.PermGradeView))

	after, err := cache.Version(context.Background())
	require.NoError(t, err)
	require.Equal(t, before+2, after, "every role mutation invalidates cached permissions")
}
