// Package response 提供了统一的 HTTP 响应封装，负责把 xerrors 业务错误映射为状态码与 JSON 信封。
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/lookback/xerrors"
)

// HTTPStatusProvider 定义了能够提供 HTTP 状态码的错误接口。
type HTTPStatusProvider interface {
	HTTPStatus() int // 返回对应的 HTTP 标准状态码
}

// Success 发送一个标准的成功响应。
// 默认：HTTP 200，业务码 0，消息 "success"。
func Success(c *gin.Context, data any) {
	SuccessWithStatus(c, http.StatusOK, data)
}

// SuccessWithStatus 发送一个带有指定 HTTP 状态码的成功响应。
func SuccessWithStatus(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"code": 0,
		"msg":  "success",
		"data": data,
	})
}

// SuccessWithRawData 发送原始数据的成功响应 (不包装 code 和 msg)。
// 用于健康检查等系统接口。
func SuccessWithRawData(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}

// Error 发送智能错误响应。
// 优先识别 xerrors.Error 并使用其业务码与可读原因，其次识别 HTTPStatusProvider，
// 无法识别时兜底返回 500。
func Error(c *gin.Context, err error) {
	if err == nil {
		Success(c, nil)
		return
	}

	statusCode := http.StatusInternalServerError
	code := statusCode
	msg := err.Error()
	detail := ""

	if e, ok := xerrors.FromError(err); ok {
		statusCode = e.HTTPStatus()
		code = e.Code
		msg = e.Message
		detail = e.Detail
	} else if p, ok := err.(HTTPStatusProvider); ok {
		statusCode = p.HTTPStatus()
		code = statusCode
	}

	ErrorWithCode(c, statusCode, code, msg, detail)
}

// ErrorWithStatus 发送一个带有指定 HTTP 状态码、消息和详情的错误响应。
func ErrorWithStatus(c *gin.Context, status int, msg string, detail string) {
	ErrorWithCode(c, status, status, msg, detail)
}

// ErrorWithCode 发送错误响应并中止后续处理器。
func ErrorWithCode(c *gin.Context, status, code int, msg, detail string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":   code,
		"msg":    msg,
		"detail": detail,
	})
}
