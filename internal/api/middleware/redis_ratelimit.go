package middleware

import (
	"aquacare/internal/config"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter counts requests per client IP in fixed one-second windows
// shared by every replica through Redis.
type RedisRateLimiter struct {
	redisClient *redis.Client
	cfg         config.RateLimitConfig
	logger      *slog.Logger
	window      time.Duration
}

func NewRedisRateLimiter(cfg config.RateLimitConfig, redisClient *redis.Client, logger *slog.Logger) *RedisRateLimiter {
	logger = logger.With("component", "RedisRateLimiter")

	if !cfg.Enabled {
		logger.Info("Rate limiting is disabled via configuration.")
	} else if redisClient == nil {
		logger.Warn("Rate limiting enabled but no Redis client provided; disabling.")
		cfg.Enabled = false
	} else {
		logger.Info("Redis rate limiter configured", "rps", cfg.RPS, "window", time.Second)
	}

	return &RedisRateLimiter{
		redisClient: redisClient,
		cfg:         cfg,
		logger:      logger,
		window:      time.Second,
	}
}

func (rl *RedisRateLimiter) IsEnabled() bool {
	return rl.cfg.Enabled && rl.redisClient != nil
}

// Middleware fails open: a Redis error lets the request through.
func (rl *RedisRateLimiter) Middleware(next http.Handler) http.Handler {
	if !rl.IsEnabled() {
		return next
	}

	limit := int64(rl.cfg.RPS)
	if limit < 1 {
		limit = 1
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := clientIP(r)
		key := fmt.Sprintf("aquacare:ratelimit:%s", ip)

		pipe := rl.redisClient.Pipeline()
		incrCmd := pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, rl.window)
		if _, err := pipe.Exec(ctx); err != nil {
			rl.logger.ErrorContext(ctx, "Redis pipeline failed during rate limiting check", "error", err, "ip", ip)
			next.ServeHTTP(w, r)
			return
		}

		if count := incrCmd.Val(); count > limit {
			rl.logger.WarnContext(ctx, "Rate limit exceeded", "ip", ip, "count", count, "limit", limit)
			writeRateLimited(w, rl.window)
			return
		}

		next.ServeHTTP(w, r)
	})
}
