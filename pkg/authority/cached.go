package authority

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/predicate-security/predicate-gate/pkg/contracts"
)

// Cached memoizes decisions in Redis, keyed by the request's identity and
// state hash. A cache failure is never a decision: read errors fall through
// to the inner provider and write errors are logged and dropped.
type Cached struct {
	inner  Provider
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached wraps inner with a Redis decision cache.
func NewCached(inner Provider, client *redis.Client, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cached{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: slog.Default().With("component", "authority-cache"),
	}
}

// CacheKey derives the cache key for a request. The state hash already binds
// the key to the exact canonicalized argument list, so two structurally equal
// calls share an entry.
func CacheKey(req *contracts.AuthorizationRequest) string {
	return fmt.Sprintf("predicate:decision:%s:%s:%s:%s",
		req.Principal.TenantID,
		req.Principal.PrincipalID,
		req.ActionSpec.Action,
		req.StateEvidence.StateHash,
	)
}

// Authorize implements Provider.
func (c *Cached) Authorize(ctx context.Context, req *contracts.AuthorizationRequest) (*contracts.Decision, error) {
	key := CacheKey(req)

	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var decision contracts.Decision
		if jsonErr := json.Unmarshal([]byte(raw), &decision); jsonErr == nil {
			return &decision, nil
		}
		// Corrupt entry: treat as a miss.
		c.logger.WarnContext(ctx, "discarding corrupt cached decision", "key", key)
	case errors.Is(err, redis.Nil):
		// Miss.
	default:
		c.logger.WarnContext(ctx, "decision cache read failed", "error", err)
	}

	decision, err := c.inner.Authorize(ctx, req)
	if err != nil {
		return nil, err
	}

	if raw, jsonErr := json.Marshal(decision); jsonErr == nil {
		if setErr := c.client.Set(ctx, key, raw, c.ttl).Err(); setErr != nil {
			c.logger.WarnContext(ctx, "decision cache write failed", "error", setErr)
		}
	}
	return decision, nil
}
