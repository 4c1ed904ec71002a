package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	logx "sheetcache/pkg/logx"
)

// RequestLogger logs one line per request.
func RequestLogger(log logx.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		lvl := log.Info
		if c.Writer.Status() >= http.StatusInternalServerError {
			lvl = log.Error
		}
		lvl("request",
			logx.String("method", c.Request.Method),
			logx.String("path", c.Request.URL.Path),
			logx.Int("status", c.Writer.Status()),
			logx.Duration("dur", time.Since(start)),
			logx.String("client", c.ClientIP()),
		)
	}
}

// Recovery converts panics into a JSON 500 instead of killing the process.
func Recovery(log logx.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("handler panic",
					logx.Any("panic", r),
					logx.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}

// clientLimiters caps how many per-IP token buckets we keep before resetting.
// The map is rebuilt rather than LRU-evicted; limits are soft protection, not
// accounting.
const clientLimiterCap = 4096

// RateLimit applies a per-client token bucket. perSec <= 0 disables limiting.
func RateLimit(perSec, burst int) gin.HandlerFunc {
	if perSec <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = perSec
	}

	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)
	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		lim, ok := limiters[ip]
		if !ok {
			if len(limiters) >= clientLimiterCap {
				limiters = make(map[string]*rate.Limiter)
			}
			lim = rate.NewLimiter(rate.Limit(perSec), burst)
			limiters[ip] = lim
		}
		mu.Unlock()

		if !lim.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
