package middleware

import (
	"net/http"

	"github.com/freelancehub/marketplace-api/utils"
	"github.com/gin-gonic/gin"
)

// RateLimit rejects clients that exceed limiter, keyed by client IP
func RateLimit(limiter *utils.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "RATE_LIMITED",
					"message": "Too many requests, slow down",
				},
			})
			return
		}
		c.Next()
	}
}
