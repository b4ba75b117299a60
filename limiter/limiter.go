// Package limiter 提供了进程内的令牌桶限流器与并发信号量，以及支持配置热更新的封装。
package limiter

import (
	"context"
	"sync"

	"golang.org/x/time/rate" // 基于令牌桶算法的限流库。
)

// Limiter 接口定义了限流器的通用行为。
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error) // 检查是否允许请求通过。
}

// LocalLimiter 是一个全局共享的令牌桶限流器，忽略 key。
type LocalLimiter struct {
	limiter *rate.Limiter
}

// NewLocalLimiter 创建并返回一个新的 LocalLimiter 实例。
// r: 每秒生成的令牌数；b: 令牌桶容量，即允许的瞬时突发请求数。
func NewLocalLimiter(r rate.Limit, b int) *LocalLimiter {
	return &LocalLimiter{limiter: rate.NewLimiter(r, b)}
}

// Allow 尝试从令牌桶中获取一个令牌。
func (l *LocalLimiter) Allow(context.Context, string) (bool, error) {
	return l.limiter.Allow(), nil
}

// KeyedLimiter 为每个 key（通常是客户端 IP）维护独立的令牌桶。
type KeyedLimiter struct {
	mu      sync.Mutex
	r       rate.Limit
	b       int
	buckets map[string]*rate.Limiter
	max     int
}

// NewKeyedLimiter 创建按 key 隔离的限流器。
// 桶数量超过 maxKeys 时整体重置，防止大量一次性客户端撑爆内存；maxKeys <= 0 取 10000。
func NewKeyedLimiter(r rate.Limit, b, maxKeys int) *KeyedLimiter {
	if maxKeys <= 0 {
		maxKeys = 10_000
	}
	return &KeyedLimiter{r: r, b: b, max: maxKeys, buckets: make(map[string]*rate.Limiter)}
}

// Allow 检查 key 对应的令牌桶是否还有令牌。
func (l *KeyedLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	bucket, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= l.max {
			clear(l.buckets)
		}
		bucket = rate.NewLimiter(l.r, l.b)
		l.buckets[key] = bucket
	}
	l.mu.Unlock()
	return bucket.Allow(), nil
}

// Len 返回当前维护的令牌桶数量。
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
