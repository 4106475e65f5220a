package middlewares

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tnqbao/gau-file-hub/config"
	"github.com/tnqbao/gau-file-hub/infra"
	"github.com/tnqbao/gau-file-hub/utils"
)

// RateLimitMiddleware throttles requests per user with a fixed window
// counter in Redis. Redis being down fails open so storage stays usable.
func RateLimitMiddleware(cfg *config.EnvConfig, infra *infra.Infra) gin.HandlerFunc {
	limit := int64(cfg.RateLimit.Calls)
	window := time.Duration(cfg.RateLimit.Window) * time.Second

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userID := c.GetString("user_id")
		if userID == "" {
			c.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:%s", userID)
		count, err := infra.Redis.Increment(ctx, key)
		if err != nil {
			infra.Logger.WarningWithContextf(ctx, "[RateLimit] Redis unavailable, allowing request: %v", err)
			c.Next()
			return
		}
		if count == 1 {
			if err := infra.Redis.Expire(ctx, key, window); err != nil {
				infra.Logger.WarningWithContextf(ctx, "[RateLimit] Failed to set window expiry: %v", err)
			}
		}

		if count > limit {
			ttl, _ := infra.Redis.TTL(ctx, key)
			utils.JSON429(c, gin.H{
				"message":     "Rate limit exceeded",
				"retry_after": int(ttl.Seconds()),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
