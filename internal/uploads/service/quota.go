package service

import (
	"context"
	"fmt"
	"time"

	"qapp_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const quotaKeyPrefix = "qapp:presign:"

// Quota limits how many presigned URLs a user may request.
type Quota interface {
	Reserve(ctx context.Context, userID uuid.UUID, n int) error
}

// NoopQuota never limits. Used when Redis is not configured.
type NoopQuota struct{}

func (NoopQuota) Reserve(context.Context, uuid.UUID, int) error { return nil }

// RedisQuota counts grants per user in a Redis key that expires one window
// after the first grant.
type RedisQuota struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisQuota returns a quota of limit grants per window. A non-positive
// limit disables the quota.
func NewRedisQuota(client *redis.Client, limit int, window time.Duration) Quota {
	if client == nil || limit <= 0 {
		return NoopQuota{}
	}
	if window <= 0 {
		window = time.Hour
	}
	return &RedisQuota{client: client, limit: limit, window: window}
}

// Reserve books n grants for userID or fails with a TooManyRequests error.
// A rejected reservation is rolled back.
func (q *RedisQuota) Reserve(ctx context.Context, userID uuid.UUID, n int) error {
	key := quotaKeyPrefix + userID.String()

	count, err := q.client.IncrBy(ctx, key, int64(n)).Result()
	if err != nil {
		return fmt.Errorf("reserve presign quota: %w", err)
	}
	if count == int64(n) {
		if err := q.client.Expire(ctx, key, q.window).Err(); err != nil {
			return fmt.Errorf("set presign quota window: %w", err)
		}
	}

	if count > int64(q.limit) {
		if err := q.client.DecrBy(ctx, key, int64(n)).Err(); err != nil {
			return fmt.Errorf("release presign quota: %w", err)
		}
		return apperr.TooManyRequests("upload quota exceeded, try again later").
			WithDetails(map[string]int{"limit": q.limit})
	}
	return nil
}
