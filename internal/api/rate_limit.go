package api

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateCounter 固定窗口计数所需的 Redis 命令，*redis.Client 满足该接口。
type RateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// rateLimiter 以 "<scope>_rate:<subject>" 为键做固定窗口限流。
// 计数器为空或 limit 非正时不限流。
type rateLimiter struct {
	counter RateCounter
	scope   string
	limit   int64
	window  time.Duration
}

func newRateLimiter(counter RateCounter, scope string, limit int, window time.Duration) *rateLimiter {
	if counter == nil || limit <= 0 || window <= 0 {
		return nil
	}
	return &rateLimiter{counter: counter, scope: scope, limit: int64(limit), window: window}
}

// allow 计数一次请求，超出窗口配额时返回 false。
// 返回错误时计数结果不可信，调用方应放行并记录。
func (l *rateLimiter) allow(ctx context.Context, subject string) (bool, error) {
	if l == nil {
		return true, nil
	}
	key := fmt.Sprintf("%s_rate:%s", l.scope, subject)
	count, err := l.counter.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("incr %s: %w", key, err)
	}
	if count == 1 {
		if err := l.counter.Expire(ctx, key, l.window).Err(); err != nil {
			return true, fmt.Errorf("expire %s: %w", key, err)
		}
		return true, nil
	}
	if count <= l.limit {
		return true, nil
	}
	// 超限时确认窗口仍在，没有过期时间的计数器会永久拒绝该主体
	ttl, err := l.counter.TTL(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("ttl %s: %w", key, err)
	}
	if ttl < 0 {
		if err := l.counter.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return false, nil
}

// retryAfter 返回 Retry-After 响应头的秒数。
func (l *rateLimiter) retryAfter() string {
	seconds := int(l.window / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
