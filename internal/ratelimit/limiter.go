package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "rate_limit:"

// admitScript evicts entries older than the window, counts what is
// left, and records the request only if it is admitted. Running it as
// a single script keeps concurrent callers from racing between the
// count and the insert. Scores are millisecond timestamps passed as
// strings because Lua numbers lose integer precision.
//
// Returns {1, count} when admitted and {0, count} when rejected;
// rejected requests are never recorded.
var admitScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
local count = redis.call('ZCARD', KEYS[1])
if count >= tonumber(ARGV[2]) then
	return {0, count}
end
redis.call('ZADD', KEYS[1], ARGV[3], ARGV[4])
redis.call('EXPIRE', KEYS[1], ARGV[5])
return {1, count + 1}
`)

// Limiter is a sliding-window log rate limiter backed by Redis. Every
// admitted request is one member of a per-key sorted set scored by
// arrival time, so the window slides continuously instead of resetting
// on fixed boundaries.
type Limiter struct {
	rdb      *redis.Client
	failOpen bool
	logger   *zap.Logger
}

// NewLimiter creates a limiter. When failOpen is true a store outage
// admits traffic; when false it rejects.
func NewLimiter(rdb *redis.Client, failOpen bool, logger *zap.Logger) *Limiter {
	return &Limiter{
		rdb:      rdb,
		failOpen: failOpen,
		logger:   logger,
	}
}

// Status describes one client's window at a point in time.
type Status struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetTime int64 `json:"reset_time"`
	Window    int   `json:"window"`
}

// Admit decides whether one more request fits inside the window and,
// if so, records it. Store failures resolve per the fail-open policy.
func (l *Limiter) Admit(ctx context.Context, key string, limit int, window time.Duration) bool {
	return l.admitAt(ctx, key, limit, window, time.Now())
}

func (l *Limiter) admitAt(ctx context.Context, key string, limit int, window time.Duration, now time.Time) bool {
	nowMs := now.UnixMilli()
	cutoff := nowMs - window.Milliseconds()
	member := fmt.Sprintf("%d-%s", nowMs, uuid.NewString())

	res, err := admitScript.Run(ctx, l.rdb, []string{keyPrefix + key},
		fmt.Sprintf("%d", cutoff),
		fmt.Sprintf("%d", limit),
		fmt.Sprintf("%d", nowMs),
		member,
		fmt.Sprintf("%d", expireSeconds(window)),
	).Result()
	if err != nil {
		l.logger.Error("rate limiter store unavailable",
			zap.String("key", key),
			zap.Bool("fail_open", l.failOpen),
			zap.Error(err),
		)
		return l.failOpen
	}

	values, ok := res.([]interface{})
	if !ok || len(values) < 1 {
		l.logger.Error("rate limiter script returned unexpected shape", zap.Any("result", res))
		return l.failOpen
	}
	allowed, _ := values[0].(int64)
	return allowed == 1
}

// Inspect reports the window state without recording a request. It is
// used to populate throttle headers on rejection.
func (l *Limiter) Inspect(ctx context.Context, key string, limit int, window time.Duration) Status {
	return l.inspectAt(ctx, key, limit, window, time.Now())
}

func (l *Limiter) inspectAt(ctx context.Context, key string, limit int, window time.Duration, now time.Time) Status {
	status := Status{
		Limit:     limit,
		Remaining: 0,
		ResetTime: now.Add(window).Unix(),
		Window:    int(window.Seconds()),
	}

	nowMs := now.UnixMilli()
	cutoff := fmt.Sprintf("%d", nowMs-window.Milliseconds())
	fullKey := keyPrefix + key

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, fullKey, "-inf", cutoff)
	countCmd := pipe.ZCard(ctx, fullKey)
	oldestCmd := pipe.ZRangeWithScores(ctx, fullKey, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Error("rate limiter status unavailable", zap.String("key", key), zap.Error(err))
		return status
	}

	count := int(countCmd.Val())
	if remaining := limit - count; remaining > 0 {
		status.Remaining = remaining
	}
	if oldest := oldestCmd.Val(); len(oldest) > 0 {
		status.ResetTime = int64(oldest[0].Score)/1000 + int64(window.Seconds())
	}
	return status
}

func expireSeconds(window time.Duration) int {
	secs := int(window / time.Second)
	if window%time.Second != 0 {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return secs
}
