package authz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAssignmentEffectiveNow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	base := Assignment{IsActive: true, EffectiveAt: past}

	require.True(t, base.EffectiveNow(now))

	permanent := base
	permanent.ExpiresAt = nil
	require.True(t, permanent.EffectiveNow(now))

	notYet := base
	notYet.EffectiveAt = future
	require.False(t, notYet.EffectiveNow(now), "a future effective date is never effective")

	lapsed := base
	lapsed.ExpiresAt = &past
	require.False(t, lapsed.EffectiveNow(now), "a past expiration is never effective even while active")

	expiringLater := base
	expiringLater.ExpiresAt = &future
	require.True(t, expiringLater.EffectiveNow(now))

	deactivated := base
	deactivated.IsActive = false
	require.False(t, deactivated.EffectiveNow(now))

	boundary := base
	boundary.ExpiresAt = &now
	require.False(t, boundary.EffectiveNow(now), "expiration is exclusive")

	starting := base
	starting.EffectiveAt = now
	require.True(t, starting.EffectiveNow(now), "effective date is inclusive")
}

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "PROFESSOR - MATHEMATICS", NormalizeName("  Professor -  Mathematics "))
	require.Equal(t, "CHAIR", NormalizeName("chair"))
}

func TestRoleNames(t *testing.T) {
	require.Equal(t, "Department Chair", SystemRoleName(RoleChair))
	require.Equal(t, "Department Chair - Physics", DepartmentRoleName(RoleChair, "Physics"))
}
