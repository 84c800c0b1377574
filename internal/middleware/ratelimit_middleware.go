package middleware

import (
	"context"
	"net/http"
	"strconv"

	"watchparty/internal/redis"
	"watchparty/internal/services"
	"watchparty/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// MessageRateLimitMiddleware limits message posting per user.
// Apply to message endpoints after auth middleware.
func MessageRateLimitMiddleware(limiter *redis.RateLimiter) gin.HandlerFunc {
	return rateLimitBy(limiter.AllowMessage, "message rate limit exceeded")
}

// ReactionRateLimitMiddleware limits reaction toggles per user.
func ReactionRateLimitMiddleware(limiter *redis.RateLimiter) gin.HandlerFunc {
	return rateLimitBy(limiter.AllowReaction, "reaction rate limit exceeded")
}

// JoinRateLimitMiddleware limits room joins per user.
func JoinRateLimitMiddleware(limiter *redis.RateLimiter) gin.HandlerFunc {
	return rateLimitBy(limiter.AllowJoin, "join rate limit exceeded")
}

func rateLimitBy(allow func(ctx context.Context, userID string) (*redis.RateLimitResult, error), message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := services.UserIDFromContext(c.Request.Context())
		if !ok {
			// No user context, auth middleware will reject
			c.Next()
			return
		}

		result, err := allow(c.Request.Context(), userID.String())
		if err != nil {
			c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("rate limit error", "INTERNAL_ERROR"))
			c.Abort()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse(message, "RATE_LIMITED"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// setRateLimitHeaders sets standard rate limit response headers
func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}
