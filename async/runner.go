// Package async 提供带 panic 恢复的 goroutine 启动工具。
package async

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// ErrPanicRecovered 表示异步任务中恢复的 panic。
var ErrPanicRecovered = errors.New("async task panic recovered")

// Runner 定义了安全的并发执行器接口。
type Runner interface {
	// Go 安全地启动一个 goroutine，自动处理 panic。
	Go(fn func())
}

type defaultRunner struct {
	logger *slog.Logger
}

// DefaultRunner 记录 panic 后吞掉它，保证后台 goroutine 不会拖垮进程。
var DefaultRunner Runner = &defaultRunner{logger: slog.Default()}

func (r *defaultRunner) Go(fn func()) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("Async task panic recovered",
					"error", fmt.Errorf("%w: %v", ErrPanicRecovered, rec),
					"stack", string(debug.Stack()))
			}
		}()
		fn()
	}()
}

// SafeGo 是 DefaultRunner.Go 的快捷方式。
func SafeGo(fn func()) {
	DefaultRunner.Go(fn)
}

// Capture 在 defer 中调用，把当前 goroutine 的 panic 转换为 *errp。
// 用法: defer async.Capture(&err)
func Capture(errp *error) {
	if rec := recover(); rec != nil {
		*errp = fmt.Errorf("%w: %v", ErrPanicRecovered, rec)
	}
}
