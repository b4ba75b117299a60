package limiter

import (
	"context"
	"sync/atomic"

	"golang.org/x/time/rate"
)

type limiterBox struct{ l Limiter }

// DynamicLimiter 提供支持热更新的限流器封装，未设置限流器时放行所有请求。
type DynamicLimiter struct {
	value atomic.Pointer[limiterBox]
}

// NewDynamicLimiter 创建动态限流器。
func NewDynamicLimiter(initial Limiter) *DynamicLimiter {
	d := &DynamicLimiter{}
	d.Update(initial)
	return d
}

// NewDynamicKeyedLimiter 创建按客户端隔离的动态令牌桶限流器。
func NewDynamicKeyedLimiter(r float64, burst int) *DynamicLimiter {
	d := &DynamicLimiter{}
	d.UpdateKeyed(r, burst)
	return d
}

// Update 替换当前限流器实例，l 为 nil 时关闭限流。
func (d *DynamicLimiter) Update(l Limiter) {
	if d == nil {
		return
	}
	d.value.Store(&limiterBox{l: l})
}

// UpdateKeyed 替换为新的按 key 令牌桶；r <= 0 关闭限流，burst <= 0 时取 ceil(r)。
func (d *DynamicLimiter) UpdateKeyed(r float64, burst int) {
	if r <= 0 {
		d.Update(nil)
		return
	}
	if burst <= 0 {
		burst = max(1, int(r+0.999999))
	}
	d.Update(NewKeyedLimiter(rate.Limit(r), burst, 0))
}

// Allow 实现 Limiter 接口。
func (d *DynamicLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if d == nil {
		return true, nil
	}
	box := d.value.Load()
	if box == nil || box.l == nil {
		return true, nil
	}
	return box.l.Allow(ctx, key)
}

type concurrencyBox struct{ l ConcurrencyLimiter }

// DynamicConcurrencyLimiter 提供支持热更新的并发限流器。
// 调用方应通过 Current 取得实例，并在同一实例上成对调用 Acquire 与 Release，
// 这样更新期间已发放的令牌会归还给原来的信号量。
type DynamicConcurrencyLimiter struct {
	value atomic.Pointer[concurrencyBox]
}

// NewDynamicSemaphoreLimiter 创建基于信号量的动态并发限流器。
func NewDynamicSemaphoreLimiter(max int) *DynamicConcurrencyLimiter {
	d := &DynamicConcurrencyLimiter{}
	d.UpdateSemaphore(max)
	return d
}

// UpdateSemaphore 更新为新的信号量，max <= 0 表示不限制。
func (d *DynamicConcurrencyLimiter) UpdateSemaphore(max int) {
	if d == nil {
		return
	}
	d.value.Store(&concurrencyBox{l: NewSemaphoreLimiter(max)})
}

// Current 返回当前生效的并发限流器，从不返回 nil。
func (d *DynamicConcurrencyLimiter) Current() ConcurrencyLimiter {
	if d == nil {
		return NewSemaphoreLimiter(0)
	}
	box := d.value.Load()
	if box == nil {
		return NewSemaphoreLimiter(0)
	}
	return box.l
}
