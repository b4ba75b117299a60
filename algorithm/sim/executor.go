package sim

import (
	"context"

	"github.com/sourcegraph/conc"
	"github.com/wyfcoding/lookback/xerrors"
)

// Executor 并发执行 tasks 个相互独立的任务并等待全部完成.
// 任务 i 只写自己的结果槽，因此执行顺序不影响结果.
type Executor interface {
	Execute(ctx context.Context, tasks int, fn func(ctx context.Context, i int)) error
}

// GoExecutor 为每个任务启动一个 goroutine，任务中的 panic 转换为 ErrSimulationPanic.
type GoExecutor struct{}

// Execute 实现 Executor.
func (GoExecutor) Execute(ctx context.Context, tasks int, fn func(ctx context.Context, i int)) error {
	var wg conc.WaitGroup
	for i := range tasks {
		wg.Go(func() { fn(ctx, i) })
	}
	if rec := wg.WaitAndRecover(); rec != nil {
		return xerrors.ErrSimulationPanic.WithDetail("%v", rec.Value)
	}
	return nil
}

// SerialExecutor 在调用方 goroutine 中按序执行，用于单核环境与调试.
type SerialExecutor struct{}

// Execute 实现 Executor.
func (SerialExecutor) Execute(ctx context.Context, tasks int, fn func(ctx context.Context, i int)) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = xerrors.ErrSimulationPanic.WithDetail("%v", rec)
		}
	}()
	for i := range tasks {
		fn(ctx, i)
	}
	return nil
}
