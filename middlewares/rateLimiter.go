package middlewares

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/disaster_backend/utils"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window counter per user, or per client IP for anonymous calls.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

func (rl *RateLimiter) key(c *gin.Context) string {
	if id, ok := utils.GetUserIdFromContext(c.Request.Context()); ok && id > 0 {
		return "ratelimit:user:" + strconv.Itoa(id)
	}
	return "ratelimit:ip:" + c.ClientIP()
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.client == nil {
			c.Next()
			return
		}
		key := rl.key(c)

		var incr *redis.IntCmd
		_, err := rl.client.TxPipelined(c.Request.Context(), func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(c.Request.Context(), key)
			pipe.ExpireNX(c.Request.Context(), key, rl.window)
			return nil
		})
		if err != nil {
			// Redis trouble must not take the API down.
			_ = c.Error(fmt.Errorf("rate limiter: %w", err))
			c.Next()
			return
		}

		if incr.Val() > rl.limit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
			})
			return
		}
		c.Next()
	}
}
