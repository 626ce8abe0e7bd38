package authz

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const cacheVersionKey = "authz:version"

// PermissionLoader computes a user's aggregate permissions from the
// persistence collaborator.
type PermissionLoader func(ctx context.Context, userID uuid.UUID) (Permission, error)

// Cache memoizes per-user aggregate permissions in Redis under a versioned
// key. Bumping the version on any role mutation invalidates every entry at
// once; EffectivePermissions depends on both AdditionalPermissions and
// IsActive, so any role write must bump.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewCache instantiates the cache helper. A nil client degrades to
// pass-through loading.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising it when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Bump invalidates every cached entry by advancing the version.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}

// UserPermissions returns the cached aggregate permission set for a user,
// loading and storing it on a miss. Concurrent misses for the same user
// collapse into a single load.
func (c *Cache) UserPermissions(ctx context.Context, userID uuid.UUID, loader PermissionLoader) (Permission, error) {
	if loader == nil {
		return PermNone, errors.New("authz: cache loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx, userID)
	}

	ver, err := c.Version(ctx)
	if err != nil {
		return loader(ctx, userID)
	}
	key := fmt.Sprintf("authz:perms:%d:%s", ver, userID)

	raw, err := c.client.Get(ctx, key).Result()
	if err == nil {
		bits, parseErr := strconv.ParseUint(raw, 10, 64)
		if parseErr == nil {
			return Permission(bits), nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return loader(ctx, userID)
	}

	value, err, _ := c.group.Do(key, func() (any, error) {
		perms, err := loader(ctx, userID)
		if err != nil {
			return PermNone, err
		}
		_ = c.client.Set(ctx, key, strconv.FormatUint(uint64(perms), 10), c.ttl).Err()
		return perms, nil
	})
	if err != nil {
		return PermNone, err
	}
	return value.(Permission), nil
}
