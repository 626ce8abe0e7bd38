package roles

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-campus/meridian-campus/internal/authz"
)

func TestPermissionColumnRoundTrip(t *testing.T) {
	masks := []authz.Permission{
		authz.PermNone,
		authz.PermGradeView,
		authz.GroupSystemAdministration,
		authz.PermAll,
		authz.Permission(1 << 63),
		authz.Permission(1<<63) | authz.PermAll,
		authz.Permission(^uint64(0)),
	}
	for _, mask := range masks {
		require.Equal(t, mask, permissionsFromColumn(permissionsToColumn(mask)),
			"mask %#x must survive the column conversion unchanged", uint64(mask))
	}
}

func TestPermissionColumnSignBit(t *testing.T) {
	// Bit 63 crosses into BIGINT as a negative value without losing bits.
	require.Negative(t, permissionsToColumn(authz.Permission(1<<63)))
	require.Equal(t, int64(-1), permissionsToColumn(authz.Permission(^uint64(0))))
}
