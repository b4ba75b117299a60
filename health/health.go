// Package health 汇总进程内依赖的健康状态，供 /health 接口输出。
package health

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Checker 定义健康检查函数原型，返回 nil 表示健康。
type Checker func(ctx context.Context) error

// Status 取值。
const (
	StatusUp   = "UP"
	StatusDown = "DOWN"
)

// Report 是一次健康检查的结果。
type Report struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Details map[string]any    `json:"details,omitempty"`
}

// Health 保存具名检查项与附加信息。
type Health struct {
	mu      sync.RWMutex
	checks  map[string]Checker
	details map[string]func() any
	timeout time.Duration
}

// New 创建健康检查器，单个检查项超过 timeout 视为失败；timeout <= 0 取 2 秒。
func New(timeout time.Duration) *Health {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Health{
		checks:  make(map[string]Checker),
		details: make(map[string]func() any),
		timeout: timeout,
	}
}

// Register 注册一个检查项，同名覆盖。
func (h *Health) Register(name string, c Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = c
}

// Detail 注册一个只用于展示的附加字段，例如存活句柄数。
func (h *Health) Detail(name string, fn func() any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.details[name] = fn
}

// Check 依次执行所有检查项。任一失败时整体状态为 DOWN。
func (h *Health) Check(ctx context.Context) Report {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	checks := make(map[string]Checker, len(h.checks))
	for k, v := range h.checks {
		checks[k] = v
	}
	details := make(map[string]func() any, len(h.details))
	for k, v := range h.details {
		details[k] = v
	}
	h.mu.RUnlock()
	sort.Strings(names)

	report := Report{Status: StatusUp, Checks: make(map[string]string, len(names))}
	for _, name := range names {
		if err := h.run(ctx, checks[name]); err != nil {
			report.Status = StatusDown
			report.Checks[name] = err.Error()
			continue
		}
		report.Checks[name] = StatusUp
	}
	if len(details) > 0 {
		report.Details = make(map[string]any, len(details))
		for k, fn := range details {
			report.Details[k] = fn()
		}
	}
	return report
}

func (h *Health) run(ctx context.Context, c Checker) (err error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("check panicked: %v", rec)
		}
	}()
	return c(ctx)
}
