package processing

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"courier/internal/config"
	"courier/internal/constants"
	"courier/internal/logger"
	"courier/pkg/metrics"
)

// Cache is the slice of redis the idempotency guard needs.
type Cache interface {
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) Cache {
	return &RedisCache{client: client}
}

func (r *RedisCache) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	success, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SetNX failed: %w", err)
	}
	return success, nil
}

// IdempotencyGuard drops redelivered envelopes. Kafka gives at-least-once
// delivery; the guard narrows that to at-most-once per envelope ID within
// the TTL window.
type IdempotencyGuard struct {
	cache  Cache
	cfg    config.IdempotencyConfig
	logger logger.Logger
}

func NewIdempotencyGuard(cache Cache, cfg config.IdempotencyConfig, log logger.Logger) *IdempotencyGuard {
	return &IdempotencyGuard{cache: cache, cfg: cfg, logger: log}
}

// FirstSeen reports whether this envelope ID has not been processed yet.
// When redis is unreachable the configured fallback decides: "allow" lets
// the message through (the evidence lifecycle is idempotent anyway), "deny"
// fails it into the broker retry path.
func (g *IdempotencyGuard) FirstSeen(ctx context.Context, envelopeID string) (bool, error) {
	ttl := time.Duration(g.cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = constants.DefaultIdempotencyTTLSeconds * time.Second
	}

	key := constants.CacheKeyPrefixInbound + envelopeID
	first, err := g.cache.SetNX(ctx, key, time.Now().Unix(), ttl)
	if err != nil {
		if g.cfg.Fallback == constants.FallbackAllow {
			g.logger.WarnwCtx(ctx, "Idempotency check failed, allowing message",
				"error", err,
				"envelope_id", envelopeID,
			)
			metrics.FallbackUsageTotal.WithLabelValues("processing", constants.FallbackAllow, "redis_error").Inc()
			return true, nil
		}
		metrics.FallbackUsageTotal.WithLabelValues("processing", constants.FallbackDeny, "redis_error").Inc()
		return false, fmt.Errorf("idempotency check failed: %w", err)
	}

	if !first {
		metrics.DuplicateMessagesTotal.WithLabelValues("broker").Inc()
	}
	return first, nil
}
