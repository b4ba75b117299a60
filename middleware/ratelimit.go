// Package middleware 提供了定价 HTTP 服务使用的 Gin 中间件：限流、并发控制、恢复、访问日志、指标与追踪。
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/lookback/limiter"
	"github.com/wyfcoding/lookback/logging"
	"github.com/wyfcoding/lookback/response"
)

// RateLimit 构造一个通用的 Gin 限流中间件，使用客户端 IP 作为限流标识。
func RateLimit(l limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := c.ClientIP()

		allowed, err := l.Allow(ctx, key)
		if err != nil {
			// 限流组件故障时放行，但必须记录告警日志。
			logging.Error(ctx, "rate limiter internal error, fail-open applied", "key", key, "error", err)
			c.Next()
			return
		}

		if !allowed {
			logging.Warn(ctx, "request rejected by rate limiter", "key", key, "path", c.Request.URL.Path)
			response.ErrorWithStatus(c, http.StatusTooManyRequests, "too many requests", "access rate limit exceeded")
			return
		}

		c.Next()
	}
}
