package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Counter records one hit for a key and reports the window total.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimit rejects requests once a client IP exhausts its fixed-window
// budget. A broken counter fails open: availability over throttling.
func RateLimit(counter Counter, limit int, window time.Duration, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := counter.Hit(c.Request.Context(), c.ClientIP(), window)
		if err != nil {
			log.Warn().Err(err).Msg("rate limit counter unavailable")
			c.Next()
			return
		}

		if count > int64(limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too_many_requests",
			})
			return
		}

		c.Next()
	}
}
