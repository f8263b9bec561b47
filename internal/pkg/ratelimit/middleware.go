package ratelimit

import (
	"fmt"

	"github.com/gin-gonic/gin"
	apperrors "github.com/telefiles/filedepot/internal/pkg/errors"
	"github.com/telefiles/filedepot/internal/pkg/response"
)

// Middleware applies the limiter to HTTP requests keyed by client IP.
// Rejected requests receive 429 with standard rate-limit headers.
func Middleware(l *Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		allowed := l.Allow(key)
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", l.maxRequests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", l.Remaining(key)))

		if !allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", int(l.window.Seconds())))
			response.ErrorWithCode(c, apperrors.ErrTooManyRequests)
			c.Abort()
			return
		}

		c.Next()
	}
}
