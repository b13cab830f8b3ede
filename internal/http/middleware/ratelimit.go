package middleware

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	redisclient "github.com/dydqjadlsp/detailpage/internal/clients/redis"
	"github.com/dydqjadlsp/detailpage/internal/http/response"
	"github.com/dydqjadlsp/detailpage/internal/observability"
	"github.com/dydqjadlsp/detailpage/internal/platform/apierr"
	"github.com/dydqjadlsp/detailpage/internal/platform/ctxutil"
	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
)

// RateLimitPerUser rejects callers over their window budget. It must run after
// RequireAuth. A nil limiter disables the check; a Redis failure lets the
// request through.
func RateLimitPerUser(limiter redisclient.RateLimiter, m *observability.Metrics, log *logger.Logger) gin.HandlerFunc {
	if limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		userID := ctxutil.UserID(c.Request.Context())
		key := c.FullPath() + ":" + userID.String()
		d, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			if log != nil {
				log.Warn("rate limiter unavailable; allowing request", "error", err)
			}
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
			m.ObserveRateLimited(c.FullPath())
			response.RespondAPIError(c, nil, apierr.RateLimit(""))
			return
		}
		c.Next()
	}
}
