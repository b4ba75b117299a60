package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/lookback/contextx"
	"github.com/wyfcoding/lookback/idgen"
)

const (
	HeaderXRequestID = "X-Request-ID"
)

// RequestID 返回一个用于生成或传递请求 ID 的 Gin 中间件，同时把客户端 IP 注入 Context。
func RequestID(ids idgen.Generator) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderXRequestID)
		if requestID == "" {
			requestID = strconv.FormatInt(ids.Generate(), 10)
		}

		ctx := contextx.WithRequestID(c.Request.Context(), requestID)
		ctx = contextx.WithIP(ctx, c.ClientIP())
		c.Request = c.Request.WithContext(ctx)

		c.Header(HeaderXRequestID, requestID)

		c.Next()
	}
}
