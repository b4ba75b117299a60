package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/lookback/response"
	"github.com/wyfcoding/lookback/xerrors"
)

// Recovery 把处理器中的 panic 转成 500 响应并记录调用栈。
// http.ErrAbortHandler 继续向上抛出，交给 net/http 中断连接。
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			logger.ErrorContext(c.Request.Context(), "handler panicked",
				"panic", rec,
				"method", c.Request.Method,
				"route", c.FullPath(),
				"path", c.Request.URL.Path,
				"stack", string(debug.Stack()),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			response.Error(c, xerrors.Internal("internal server error", fmt.Errorf("panic: %v", rec)))
		}()
		c.Next()
	}
}
