package authz

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func countingLoader(perms Permission) (PermissionLoader, *int) {
	calls := 0
	return func(ctx context.Context, userID uuid.UUID) (Permission, error) {
		calls++
		return perms, nil
	}, &calls
}

func TestCacheLoadsOnceThenHits(t *testing.T) {
	cache := testCache(t)
	userID := uuid.New()
	loader, calls := countingLoader(PermGradeView | PermCourseView)

	got, err := cache.UserPermissions(context.Background(), userID, loader)
	require.NoError(t, err)
	require.Equal(t, PermGradeView|PermCourseView, got)
	require.Equal(t, 1, *calls)

	got, err = cache.UserPermissions(context.Background(), userID, loader)
	require.NoError(t, err)
	require.Equal(t, PermGradeView|PermCourseView, got)
	require.Equal(t, 1, *calls, "second read must be served from the cache")
}

func TestCacheBumpInvalidates(t *testing.T) {
	cache := testCache(t)
	userID := uuid.New()
	loader, calls := countingLoader(PermGradeView)

	_, err := cache.UserPermissions(context.Background(), userID, loader)
	require.NoError(t, err)
	require.Equal(t, 1, *calls)

	require.NoError(t, cache.Bump(context.Background()))

	_, err = cache.UserPermissions(context.Background(), userID, loader)
	require.NoError(t, err)
	require.Equal(t, 2, *calls, "bumping the version must force a reload")
}

func TestCacheVersionInitialisation(t *testing.T) {
	cache := testCache(t)

	ver, err := cache.Version(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), ver)

	require.NoError(t, cache.Bump(context.Background()))
	ver, err = cache.Version(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), ver)
}

func TestCacheNilClientPassesThrough(t *testing.T) {
	var cache *Cache
	userID := uuid.New()
	loader, calls := countingLoader(PermUserView)

	for i := 0; i < 2; i++ {
		got, err := cache.UserPermissions(context.Background(), userID, loader)
		require.NoError(t, err)
		require.Equal(t, PermUserView, got)
	}
	require.Equal(t, 2, *calls, "nil cache must call the loader every time")

	require.NoError(t, cache.Bump(context.Background()))

	got, err := NewCache(nil, time.Minute).UserPermissions(context.Background(), userID, loader)
	require.NoError(t, err)
	require.Equal(t, PermUserView, got)
}

func TestCacheRequiresLoader(t *testing.T) {
	cache := testCache(t)
	_, err := cache.UserPermissions(context.Background(), uuid.New(), nil)
	require.Error(t, err)
}
