package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a redis-backed sliding-window store using a sorted set of
// request timestamps per key. Shared across replicas.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, errParse := redis.ParseURL(redisURL)
	if errParse != nil {
		return nil, fmt.Errorf("ratelimit: parse redis url: %w", errParse)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if errPing := client.Ping(ctx).Err(); errPing != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ratelimit: connect redis: %w", errPing)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client. Used by tests.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Take implements Store with a ZREMRANGEBYSCORE/ZCARD/ZADD pipeline. The
// member added for an over-ceiling request is removed so rejections do not
// occupy window slots.
func (r *RedisStore) Take(ctx context.Context, key string, window time.Duration, ceiling int) (bool, error) {
	now := time.Now()
	redisKey := "ratelimit:" + key
	member := strconv.FormatInt(now.UnixNano(), 10)
	minScore := strconv.FormatInt(now.Add(-window).UnixMilli(), 10)

	pipe := r.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", minScore)
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixMilli()), Member: member})
	pipe.Expire(ctx, redisKey, window+time.Minute)

	if _, errExec := pipe.Exec(ctx); errExec != nil {
		return false, fmt.Errorf("ratelimit: redis pipeline: %w", errExec)
	}

	// ZCard ran before ZAdd, so the count excludes this request.
	if countCmd.Val() >= int64(ceiling) {
		if errRem := r.client.ZRem(ctx, redisKey, member).Err(); errRem != nil {
			return false, fmt.Errorf("ratelimit: redis zrem: %w", errRem)
		}
		return false, nil
	}
	return true, nil
}

// Close releases the redis connection.
func (r *RedisStore) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
