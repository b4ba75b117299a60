// Package contextx 提供了在 context.Context 中注入与提取请求级信息（请求 ID、客户端 IP、定价句柄）的工具函数。
// 它通过使用私有类型作为 Key，有效防止了跨包的 Key 冲突。
package contextx

import (
	"context"
)

type contextKey int

const (
	RequestIDKey contextKey = iota // 请求唯一标识 Key。
	IPKey                          // 客户端 IP Key。
	HandleKey                      // 定价引擎句柄 Key。
)

// KeyNames 映射 Key 到日志字段名。
var KeyNames = map[contextKey]string{
	RequestIDKey: "request_id",
	IPKey:        "client_ip",
	HandleKey:    "handle",
}

// WithRequestID 将请求 ID 注入到 Context 中。
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID 从 Context 中提取请求 ID。
func GetRequestID(ctx context.Context) string {
	if val, ok := ctx.Value(RequestIDKey).(string); ok {
		return val
	}
	return ""
}

// WithIP 将客户端 IP 地址注入到 Context 中。
func WithIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, IPKey, ip)
}

// GetIP 从 Context 中尝试提取客户端 IP，若不存在则返回空字符串。
func GetIP(ctx context.Context) string {
	if val, ok := ctx.Value(IPKey).(string); ok {
		return val
	}
	return ""
}

// WithHandle 将当前请求操作的定价句柄注入到 Context 中。
func WithHandle(ctx context.Context, handle int64) context.Context {
	return context.WithValue(ctx, HandleKey, handle)
}

// GetHandle 从 Context 中提取定价句柄，不存在时 ok 为 false。
func GetHandle(ctx context.Context) (handle int64, ok bool) {
	handle, ok = ctx.Value(HandleKey).(int64)
	return handle, ok
}

// Attrs 返回 Context 中已存在的请求级字段，按 Key 顺序排列，供日志处理器注入。
func Attrs(ctx context.Context) []any {
	var attrs []any
	if v := GetRequestID(ctx); v != "" {
		attrs = append(attrs, KeyNames[RequestIDKey], v)
	}
	if v := GetIP(ctx); v != "" {
		attrs = append(attrs, KeyNames[IPKey], v)
	}
	if v, ok := GetHandle(ctx); ok {
		attrs = append(attrs, KeyNames[HandleKey], v)
	}
	return attrs
}
