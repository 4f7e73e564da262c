package http

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/result-service/pkg/util/errorutil"
)

// LoginRateLimiter is a fixed-window counter shared through Redis, keyed by client IP.
type LoginRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	logger *zap.Logger
}

// NewLoginRateLimiter builds a limiter allowing limit attempts per window. A nil
// client or non-positive limit disables it.
func NewLoginRateLimiter(client *redis.Client, limit int, window time.Duration, logger *zap.Logger) *LoginRateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoginRateLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "ratelimit:login",
		logger: logger,
	}
}

// Allow counts one attempt for key. On Redis errors it allows the attempt and
// returns the error for logging. A counter found without an expiry gets one, so a
// failed EXPIRE never pins a key forever.
func (l *LoginRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	if _, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		ttl = pipe.TTL(ctx, redisKey)
		return nil
	}); err != nil {
		return true, 0, err
	}

	retryAfter := ttl.Val()
	if retryAfter < 0 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return true, 0, err
		}
		retryAfter = l.window
	}
	if incr.Val() <= int64(l.limit) {
		return true, 0, nil
	}
	return false, retryAfter, nil
}

// Handle is the Fiber middleware guarding the login route.
func (l *LoginRateLimiter) Handle(c *fiber.Ctx) error {
	if l == nil || l.client == nil || l.limit <= 0 {
		return c.Next()
	}

	allowed, retryAfter, err := l.Allow(c.UserContext(), c.IP())
	if err != nil {
		l.logger.Warn("login rate limiter unavailable", zap.Error(err))
	}
	if !allowed {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(retryAfter.Round(time.Second).Seconds())))
		return apperrors.NewRateLimited("too many login attempts")
	}
	return c.Next()
}
