package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrbrocoli/grocer/backend/internal/metrics"
	"github.com/mrbrocoli/grocer/backend/internal/ratelimit"
	"github.com/mrbrocoli/grocer/backend/internal/types"
)

// ApplyRateLimit consumes one request for the authenticated user. On denial
// it aborts with 429 and returns false.
func ApplyRateLimit(c *gin.Context, limiter *ratelimit.Limiter, collector *metrics.Collector) bool {
	policy := limiter.Policy()
	decision := limiter.CheckAndConsume(c.Request.Context(), UserID(c))

	c.Header("X-RateLimit-Limit", strconv.Itoa(policy.PerMinute))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

	if !decision.Allowed {
		collector.RecordRateLimitDenial(policy.Name, string(decision.Scope))
		AbortRateLimited(c, decision)
		return false
	}
	return true
}

// RateLimit returns middleware enforcing limiter. It must run after
// RequireIdentity.
func RateLimit(limiter *ratelimit.Limiter, collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			AbortUnauthenticated(c)
			return
		}
		if !ApplyRateLimit(c, limiter, collector) {
			return
		}
		c.Next()
	}
}

// AbortRateLimited writes the 429 response for a denied decision
func AbortRateLimited(c *gin.Context, d ratelimit.Decision) {
	c.Header("Retry-After", strconv.Itoa(d.RetryAfter))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, types.ErrorResponse{
		Error:      waitMessage(d),
		Type:       types.RateLimitExceeded,
		RetryAfter: d.RetryAfter,
		Scope:      string(d.Scope),
	})
}

func waitMessage(d ratelimit.Decision) string {
	unit := "seconds"
	if d.RetryAfter == 1 {
		unit = "second"
	}
	if d.Scope == ratelimit.ScopeHour {
		return fmt.Sprintf("Hourly request limit reached. Please wait %d %s before trying again.", d.RetryAfter, unit)
	}
	return fmt.Sprintf("Too many requests. Please wait %d %s before trying again.", d.RetryAfter, unit)
}
