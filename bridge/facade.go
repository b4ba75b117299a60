package bridge

import (
	"context"
	"log/slog"

	"github.com/wyfcoding/lookback/async"
	"github.com/wyfcoding/lookback/datetime"
	"github.com/wyfcoding/lookback/lookback"
)

// Facade 提供哨兵值风格的接口：失败时返回 0 / 0.0，原因写入 ec。
// 每次调用先清空 ec；ec 为 nil 时丢弃错误描述。引擎内部的 panic 也被转换为错误。
type Facade struct {
	reg    *Registry
	logger *slog.Logger
}

// NewFacade 基于注册表创建 Facade。
func NewFacade(reg *Registry, logger *slog.Logger) *Facade {
	if logger == nil {
		logger = slog.Default()
	}
	return &Facade{reg: reg, logger: logger}
}

// Registry 返回底层注册表。
func (f *Facade) Registry() *Registry { return f.reg }

// LastError 把 ec 中最近一次失败的描述以 NUL 结尾写入 buf，语义同 ErrorContext.CopyTo。
// ec 为 nil 时按空描述处理。
func (f *Facade) LastError(ec *ErrorContext, buf []byte) int {
	if ec == nil {
		if len(buf) > 0 {
			buf[0] = 0
		}
		return 1
	}
	return ec.CopyTo(buf)
}

// ClearLastError 清空 ec 中的错误描述。
func (f *Facade) ClearLastError(ec *ErrorContext) {
	if ec != nil {
		ec.Clear()
	}
}

// Create 创建引擎并返回句柄，失败返回 0。
func (f *Facade) Create(ctx context.Context, ec *ErrorContext, p Params) Handle {
	h, err := guard(func() (Handle, error) {
		h, _, err := f.reg.Open(p)
		return h, err
	})
	return finish(ctx, f, ec, "Create", h, err)
}

// Destroy 销毁句柄。
func (f *Facade) Destroy(ctx context.Context, ec *ErrorContext, h Handle) {
	_, err := guard(func() (struct{}, error) {
		return struct{}{}, f.reg.Close(h)
	})
	finish(ctx, f, ec, "Destroy", struct{}{}, err)
}

// Price 以句柄合约的期权方向对任意参数定价。
func (f *Facade) Price(ctx context.Context, ec *ErrorContext, h Handle, s, sigma, r, ttm float64, n int) float64 {
	return f.call(ctx, ec, "Price", h, func(e *lookback.Engine) (float64, error) {
		return e.Price(ctx, s, sigma, r, ttm, n)
	})
}

// Delta 返回现货 s 处的 Delta。
func (f *Facade) Delta(ctx context.Context, ec *ErrorContext, h Handle, s float64) float64 {
	return f.call(ctx, ec, "Delta", h, func(e *lookback.Engine) (float64, error) {
		return e.Delta(ctx, s)
	})
}

// Gamma 返回 S0 处的 Gamma。
func (f *Facade) Gamma(ctx context.Context, ec *ErrorContext, h Handle) float64 {
	return f.call(ctx, ec, "Gamma", h, func(e *lookback.Engine) (float64, error) {
		return e.Gamma(ctx)
	})
}

// Vega 返回每 1% 波动率变化的价格敏感度。
func (f *Facade) Vega(ctx context.Context, ec *ErrorContext, h Handle) float64 {
	return f.call(ctx, ec, "Vega", h, func(e *lookback.Engine) (float64, error) {
		return e.Vega(ctx)
	})
}

// Rho 返回每 1% 利率变化的价格敏感度。
func (f *Facade) Rho(ctx context.Context, ec *ErrorContext, h Handle) float64 {
	return f.call(ctx, ec, "Rho", h, func(e *lookback.Engine) (float64, error) {
		return e.Rho(ctx)
	})
}

// Theta 返回价格随时间流逝的变化率。
func (f *Facade) Theta(ctx context.Context, ec *ErrorContext, h Handle) float64 {
	return f.call(ctx, ec, "Theta", h, func(e *lookback.Engine) (float64, error) {
		return e.Theta(ctx)
	})
}

// GraphicPrice 把价格曲线写入 xs 与 ys，返回写入的点数。只计算缓冲区容纳得下的点，
// 任一缓冲区为空时不定价，只返回完整曲线的点数。
func (f *Facade) GraphicPrice(ctx context.Context, ec *ErrorContext, h Handle, dx float64, xs, ys []float64) int {
	return f.graph(ctx, ec, "GraphicPrice", h, dx, xs, ys, func(e *lookback.Engine, limit int) (lookback.Graph, error) {
		return e.GraphPrice(ctx, dx, limit)
	})
}

// GraphicDelta 把 Delta 曲线写入 xs 与 ys，语义同 GraphicPrice。
func (f *Facade) GraphicDelta(ctx context.Context, ec *ErrorContext, h Handle, dx float64, xs, ys []float64) int {
	return f.graph(ctx, ec, "GraphicDelta", h, dx, xs, ys, func(e *lookback.Engine, limit int) (lookback.Graph, error) {
		return e.GraphDelta(ctx, dx, limit)
	})
}

// YearFraction 解析两个 dd-mm-yyyy 日期并按编码对应的约定计算年化期限。
func (f *Facade) YearFraction(ctx context.Context, ec *ErrorContext, start, end string, convention int) float64 {
	v, err := guard(func() (float64, error) {
		s, err := datetime.ParseDate(start)
		if err != nil {
			return 0, err
		}
		e, err := datetime.ParseDate(end)
		if err != nil {
			return 0, err
		}
		dc, err := ConventionFromCode(convention)
		if err != nil {
			return 0, err
		}
		return datetime.YearFraction(s, e, dc)
	})
	return finish(ctx, f, ec, "YearFraction", v, err)
}

func (f *Facade) call(ctx context.Context, ec *ErrorContext, op string, h Handle, fn func(*lookback.Engine) (float64, error)) float64 {
	v, err := guard(func() (float64, error) {
		e, err := f.reg.Engine(h)
		if err != nil {
			return 0, err
		}
		return fn(e)
	})
	return finish(ctx, f, ec, op, v, err)
}

func (f *Facade) graph(ctx context.Context, ec *ErrorContext, op string, h Handle, dx float64, xs, ys []float64, fn func(*lookback.Engine, int) (lookback.Graph, error)) int {
	n, err := guard(func() (int, error) {
		e, err := f.reg.Engine(h)
		if err != nil {
			return 0, err
		}
		capacity := min(len(xs), len(ys))
		if capacity == 0 {
			return e.GraphPoints(dx)
		}
		g, err := fn(e, capacity)
		if err != nil {
			return 0, err
		}
		copy(xs, g.X)
		copy(ys, g.Y)
		return g.Len(), nil
	})
	return finish(ctx, f, ec, op, n, err)
}

// guard 执行 fn，把 panic 转换为错误。
func guard[T any](fn func() (T, error)) (v T, err error) {
	defer async.Capture(&err)
	return fn()
}

// finish 在失败时记录错误并返回零值。
func finish[T any](ctx context.Context, f *Facade, ec *ErrorContext, op string, v T, err error) T {
	if ec != nil {
		ec.Set(op, err)
	}
	if err != nil {
		f.logger.WarnContext(ctx, "bridge call failed", "op", op, "error", err)
		var zero T
		return zero
	}
	return v
}
