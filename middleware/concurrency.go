package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/lookback/limiter"
	"github.com/wyfcoding/lookback/logging"
	"github.com/wyfcoding/lookback/response"
)

// ConcurrencyLimit 限制同时执行的请求数，等待超过 wait 后返回 503。wait <= 0 时一直等到请求结束。
func ConcurrencyLimit(d *limiter.DynamicConcurrencyLimiter, wait time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		acquireCtx := ctx
		if wait > 0 {
			var cancel context.CancelFunc
			acquireCtx, cancel = context.WithTimeout(ctx, wait)
			defer cancel()
		}

		l := d.Current()
		if err := l.Acquire(acquireCtx); err != nil {
			logging.Warn(ctx, "http concurrency limit exceeded", "path", c.Request.URL.Path, "error", err)
			response.ErrorWithStatus(c, http.StatusServiceUnavailable, "service busy", "concurrency limit exceeded")
			return
		}
		defer l.Release()

		c.Next()
	}
}
