package middleware

import (
	"fmt"
	"time"

	"uru_backend/internal/apperrors"
	"uru_backend/internal/config"
	"uru_backend/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitMiddleware - fixed-window лимит на client IP поверх redis.
// Недоступный redis не роняет запросы: лимитер в этом случае
// пропускает (fail open), инцидент остается в логах.
func RateLimitMiddleware(rdb *redis.Client, cfg *config.Config, scope string) gin.HandlerFunc {
	limit := int64(cfg.RateLimit.Requests)
	window := time.Duration(cfg.RateLimit.WindowSec) * time.Second

	return func(c *gin.Context) {
		if !cfg.RateLimit.Enabled || rdb == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := fmt.Sprintf("ratelimit:%s:%s", scope, c.ClientIP())

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			logger.CtxWithError(ctx, "rate limiter unavailable", err)
			c.Next()
			return
		}
		if count == 1 {
			// Первое попадание открывает окно
			if err := rdb.Expire(ctx, key, window).Err(); err != nil {
				logger.CtxWithError(ctx, "rate limiter expire failed", err)
			}
		}

		if count > limit {
			apperrors.HandleNonFieldError(c, apperrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}
