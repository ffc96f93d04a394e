package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/turicert/cert-api/internal/handler"
)

// RateLimiter applies a per-client-IP token bucket.
type RateLimiter struct {
	limiters sync.Map
	limit    rate.Limit
	burst    int
}

func NewRateLimiter(limit rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{limit: limit, burst: burst}
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	if limiter, ok := rl.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}
	limiter, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.limit, rl.burst))
	return limiter.(*rate.Limiter)
}

func (rl *RateLimiter) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiterFor(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				handler.NewErrorResponse("rate limit exceeded"))
			return
		}
		c.Next()
	}
}
