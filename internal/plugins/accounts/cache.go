package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// identifierKeyPrefix is the Redis key prefix for cached usernames.
const identifierKeyPrefix = "identifier:"

// identifierTTL is how long a cached id-to-username mapping lives. Usernames
// are immutable after registration, so a long TTL is safe; the TTL mostly
// bounds memory for ids nobody asks about anymore.
const identifierTTL = time.Hour

// IdentifierCache is a Redis read-through cache from user id to username.
// Post listings, reply listings, and mailbox summaries resolve author names
// for every row; this keeps those lookups off the database.
type IdentifierCache struct {
	redis *redis.Client
}

// NewIdentifierCache creates a cache backed by the given Redis client.
func NewIdentifierCache(rdb *redis.Client) *IdentifierCache {
	return &IdentifierCache{redis: rdb}
}

// Get returns the cached username for a user id, or ("", false) on a miss.
// Redis errors are treated as misses; the caller falls back to the database.
func (c *IdentifierCache) Get(ctx context.Context, userID string) (string, bool) {
	val, err := c.redis.Get(ctx, identifierKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) || err != nil {
		return "", false
	}
	return val, true
}

// Set stores an id-to-username mapping with the standard TTL. Failures are
// ignored -- the cache is an optimization, not a source of truth.
func (c *IdentifierCache) Set(ctx context.Context, userID, username string) {
	_ = c.redis.Set(ctx, identifierKeyPrefix+userID, username, identifierTTL).Err()
}
