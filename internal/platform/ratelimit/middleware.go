package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware はクライアントIPごとにLimiterで判定し、上限超過時は429を返すGinミドルウェアです。
// Limiterがエラーを返した場合はリクエストを通します。
func Middleware(l Limiter, window time.Duration) gin.HandlerFunc {
	retryAfter := strconv.Itoa(max(int(window/time.Second), 1))
	return func(c *gin.Context) {
		ip := c.ClientIP()
		ok, err := l.Allow(c.Request.Context(), ip)
		if err != nil {
			slog.Error("[RATE LIMIT] limiter failed", "remote_addr", ip, "error", err)
			c.Next()
			return
		}
		if !ok {
			slog.Warn("[RATE LIMIT] request rejected", "remote_addr", ip, "path", c.FullPath())
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
